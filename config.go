package vncbridge

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Ganzzi/vnc-agent-bridge/internal/config"
	"github.com/Ganzzi/vnc-agent-bridge/internal/logging"
)

// TransportKind selects which wire transport a Client dials.
type TransportKind string

const (
	TransportTCP       TransportKind = "tcp"
	TransportWebSocket TransportKind = "websocket"
)

// ConnectionConfig describes how to reach a server. It is immutable
// after Connect: a Client never mutates the config it was given.
type ConnectionConfig struct {
	Host string
	Port int

	// Username is accepted for API symmetry with callers migrating from
	// other VNC clients but is unused by RFB 3.8 authentication, which
	// has no username concept.
	Username string

	// Password authenticates classic VNC-DES over TCP, or — for
	// WebSocket — doubles as the ticket value when Ticket is empty
	// (some proxies only ever speak one credential slot).
	Password string

	Transport TransportKind
	Timeout   time.Duration

	// WebSocket-only fields.
	URLTemplate    string
	HostPort       string
	VNCPort        string
	Ticket         string
	CertificatePEM string
	VerifySSL      bool
	Headers        http.Header
}

// effectiveTicket resolves the value fed to the ${ticket} URL
// placeholder: an explicit Ticket wins; Password is the fallback so a
// caller using only one credential slot does not have to duplicate it,
// per original_source/'s dual-auth pattern (see SPEC_FULL.md).
func (c ConnectionConfig) effectiveTicket() string {
	if c.Ticket != "" {
		return c.Ticket
	}
	return c.Password
}

// LoadConnectionDefaults reads fallback connection settings from cfgFile
// (or the platform default search path when cfgFile is empty) and from
// VNCBRIDGE_-prefixed environment variables, via internal/config's
// viper-backed loader. It also applies the loaded log level/format to
// the package's logging output as a side effect, matching the teacher's
// own config-then-logging startup order (see DESIGN.md).
//
// The returned ConnectionConfig is meant to be a starting point: callers
// overwrite whichever fields they have explicit values for before
// passing it to Connect.
func LoadConnectionDefaults(cfgFile string) (ConnectionConfig, error) {
	defaults, err := config.Load(cfgFile)
	if err != nil {
		return ConnectionConfig{}, newInputError("load-connection-defaults", err)
	}

	logging.Init(defaults.LogFormat, defaults.LogLevel, os.Stderr)

	cfg := ConnectionConfig{
		Host:      defaults.Host,
		Port:      defaults.Port,
		Transport: TransportKind(strings.ToLower(defaults.TransportKind)),
		Timeout:   time.Duration(defaults.TimeoutSeconds) * time.Second,

		URLTemplate: defaults.URLTemplate,
		HostPort:    defaults.HostPort,
		VNCPort:     defaults.VNCPort,
		VerifySSL:   defaults.VerifySSL,
		Headers:     parseHeaderDefaults(defaults.Headers),
	}

	if defaults.CertificatePEMPath != "" {
		pem, err := os.ReadFile(defaults.CertificatePEMPath)
		if err != nil {
			return ConnectionConfig{}, newInputError("load-connection-defaults", err)
		}
		cfg.CertificatePEM = string(pem)
	}

	return cfg, nil
}

// parseHeaderDefaults turns "Key: Value" strings (internal/config's
// validated wire format for defaults.Headers) into an http.Header.
func parseHeaderDefaults(raw []string) http.Header {
	if len(raw) == 0 {
		return nil
	}
	headers := make(http.Header, len(raw))
	for _, entry := range raw {
		key, value, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		headers.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return headers
}
