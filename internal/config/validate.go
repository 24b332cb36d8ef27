package config

import (
	"fmt"
	"net/url"
	"strings"
)

var validTransports = map[string]bool{
	"tcp":       true,
	"websocket": true,
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidationResult separates validation problems that must stop startup
// (Fatals) from ones that were auto-corrected and merely deserve a log line
// (Warnings).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether any fatal validation error was found.
func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// AllErrors returns fatals followed by warnings, for callers that just want
// to print everything.
func (r ValidationResult) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	all = append(all, r.Warnings...)
	return all
}

// ValidateTiered checks d for invalid values. Malformed values that would
// make a connection attempt fail outright (bad transport kind, port outside
// 1-65535) are fatal. Out-of-range timeouts are clamped to a safe value
// and reported as warnings rather than rejected, since a caller's intent
// ("no timeout tuning, just connect") shouldn't be blocked by a single
// out-of-range number.
func (d *Defaults) ValidateTiered() ValidationResult {
	var result ValidationResult

	if d.TransportKind != "" && !validTransports[strings.ToLower(d.TransportKind)] {
		result.Fatals = append(result.Fatals, fmt.Errorf("transport %q must be \"tcp\" or \"websocket\"", d.TransportKind))
	}

	if d.Port != 0 && (d.Port < 1 || d.Port > 65535) {
		result.Fatals = append(result.Fatals, fmt.Errorf("port %d is outside the valid range 1-65535", d.Port))
	}

	if d.URLTemplate != "" {
		if _, err := url.Parse(strings.NewReplacer(
			"${host}", "placeholder",
			"${host_port}", "5900",
			"${vnc_port}", "5900",
			"${ticket}", "placeholder",
		).Replace(d.URLTemplate)); err != nil {
			result.Fatals = append(result.Fatals, fmt.Errorf("url_template %q is not a valid URL after placeholder substitution: %w", d.URLTemplate, err))
		}
	}

	for _, header := range d.Headers {
		if !strings.Contains(header, ":") {
			result.Fatals = append(result.Fatals, fmt.Errorf("header %q must be in \"Key: Value\" form", header))
		}
	}

	if d.TimeoutSeconds < 1 {
		result.Warnings = append(result.Warnings, fmt.Errorf("timeout_seconds %d is below minimum 1, clamping", d.TimeoutSeconds))
		d.TimeoutSeconds = 1
	} else if d.TimeoutSeconds > 300 {
		result.Warnings = append(result.Warnings, fmt.Errorf("timeout_seconds %d exceeds maximum 300, clamping", d.TimeoutSeconds))
		d.TimeoutSeconds = 300
	}

	if d.LogLevel != "" && !validLogLevels[strings.ToLower(d.LogLevel)] {
		result.Warnings = append(result.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error), falling back to info", d.LogLevel))
		d.LogLevel = "info"
	}

	if d.LogFormat != "" && d.LogFormat != "text" && d.LogFormat != "json" {
		result.Warnings = append(result.Warnings, fmt.Errorf("log_format %q is not valid (use text or json), falling back to text", d.LogFormat))
		d.LogFormat = "text"
	}

	return result
}
