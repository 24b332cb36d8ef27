package transport

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\$\{([a-z_]+)\}`)

// URLTemplateValues supplies the values for the library's fixed WebSocket
// URL templating vocabulary.
type URLTemplateValues struct {
	Host     string
	HostPort string
	VNCPort  string
	Ticket   string
}

// SubstituteURLTemplate expands the named placeholders (${host},
// ${host_port}, ${vnc_port}, ${ticket}) in template. Every placeholder
// actually referenced in the template must have a non-empty value in
// values; an unprovided-but-referenced placeholder is a value error
// returned before any socket is opened. The ticket value is URL-encoded.
// After substitution, empty query parameters are removed.
func SubstituteURLTemplate(template string, values URLTemplateValues) (string, error) {
	fields := map[string]string{
		"host":      values.Host,
		"host_port": values.HostPort,
		"vnc_port":  values.VNCPort,
		"ticket":    url.QueryEscape(values.Ticket),
	}

	var missing error
	expanded := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		value, known := fields[name]
		if !known {
			missing = fmt.Errorf("transport: url_template references unknown placeholder %q", match)
			return match
		}
		if value == "" {
			missing = fmt.Errorf("transport: url_template references %q but no value was supplied", match)
			return match
		}
		return value
	})
	if missing != nil {
		return "", missing
	}

	return stripEmptyQueryParams(expanded)
}

func stripEmptyQueryParams(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("transport: url_template produced an invalid URL: %w", err)
	}

	q := u.Query()
	for key, values := range q {
		nonEmpty := values[:0]
		for _, v := range values {
			if v != "" {
				nonEmpty = append(nonEmpty, v)
			}
		}
		if len(nonEmpty) == 0 {
			q.Del(key)
		} else {
			q[key] = nonEmpty
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimSuffix(u.String(), "?"), nil
}
