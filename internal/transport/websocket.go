package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ganzzi/vnc-agent-bridge/internal/logging"
)

// WebSocketConfig configures the secure-WebSocket transport.
type WebSocketConfig struct {
	URLTemplate    string
	Host           string
	HostPort       string
	VNCPort        string
	Ticket         string
	Headers        http.Header
	Timeout        time.Duration
	CertificatePEM string
	VerifySSL      bool
}

// WebSocket carries RFB bytes as binary WebSocket frames. Because a single
// RFB message may be split across several frames — or a single frame may
// carry several RFB messages — it maintains an internal read buffer and
// pulls whole frames until enough bytes are available.
type WebSocket struct {
	conn    *websocket.Conn
	readBuf bytes.Buffer
	closed  atomic.Bool
}

var _ Transport = (*WebSocket)(nil)

// DialWebSocket substitutes cfg.URLTemplate's placeholders and opens the
// connection with tlsConfig, which the caller builds (the root package
// uses internal/mtls, the single source of truth for certificate
// handling). cfg.CertificatePEM and cfg.VerifySSL are not read here.
func DialWebSocket(ctx context.Context, cfg WebSocketConfig, tlsConfig *tls.Config) (*WebSocket, error) {
	log := logging.L("transport")

	target, err := SubstituteURLTemplate(cfg.URLTemplate, URLTemplateValues{
		Host:     cfg.Host,
		HostPort: cfg.HostPort,
		VNCPort:  cfg.VNCPort,
		Ticket:   cfg.Ticket,
	})
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: timeout,
		TLSClientConfig:  tlsConfig,
	}

	conn, _, err := dialer.DialContext(ctx, target, cfg.Headers)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket dial %s: %w", target, err)
	}

	log.Debug("websocket connected", "url", target)
	return &WebSocket{conn: conn}, nil
}

// Send writes b as one binary WebSocket frame.
func (w *WebSocket) Send(ctx context.Context, b []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(deadline)
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return fmt.Errorf("transport: websocket write: %w", err)
	}
	return nil
}

// RecvExact returns exactly n bytes, pulling and buffering whole WebSocket
// frames (both binary and text, the latter treated as raw bytes for
// robustness) until enough data has accumulated.
func (w *WebSocket) RecvExact(ctx context.Context, n int) ([]byte, error) {
	for w.readBuf.Len() < n {
		if deadline, ok := ctx.Deadline(); ok {
			_ = w.conn.SetReadDeadline(deadline)
		}

		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrConnectionClosed
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil, ErrConnectionClosed
			}
			return nil, fmt.Errorf("transport: websocket read: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage, websocket.TextMessage:
			w.readBuf.Write(data)
		default:
			// Ping/pong/control frames are handled by gorilla internally;
			// anything else unexpected is simply ignored.
		}
	}

	out := make([]byte, n)
	if _, err := w.readBuf.Read(out); err != nil {
		return nil, fmt.Errorf("transport: websocket buffer read: %w", err)
	}
	return out, nil
}

// Close closes the underlying WebSocket connection. Safe to call more
// than once.
func (w *WebSocket) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	return w.conn.Close()
}

// IsConnected reports whether the connection has not yet been closed by
// this side.
func (w *WebSocket) IsConnected() bool {
	return !w.closed.Load()
}
