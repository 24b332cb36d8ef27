// Package mtls builds *tls.Config values for the WebSocket transport from
// an optional PEM certificate and the verify_ssl toggle.
package mtls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/Ganzzi/vnc-agent-bridge/internal/logging"
)

var log = logging.L("mtls")

// BuildTLSConfig returns a TLS config for dialing the WebSocket transport.
//
// certificatePEM, when non-empty, is parsed as one or more PEM-encoded
// certificates and added to a dedicated root pool so the server's chain can
// be verified against infrastructure certificates that are not in the
// system trust store. When empty, the system root pool is used.
//
// verifySSL, when false, disables both hostname and certificate chain
// verification — required because production deployments of RFB-over-
// WebSocket proxies routinely sit behind self-signed infrastructure
// certificates (spec requirement, not a default).
func BuildTLSConfig(certificatePEM string, verifySSL bool) (*tls.Config, error) {
	cfg := &tls.Config{}

	if !verifySSL {
		cfg.InsecureSkipVerify = true
		log.Warn("TLS certificate verification disabled")
	}

	if certificatePEM != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(certificatePEM)) {
			return nil, fmt.Errorf("mtls: no valid certificates found in certificate_pem")
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
