package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/Ganzzi/vnc-agent-bridge/internal/logging"
)

// ErrConnectionClosed is returned by RecvExact when the peer closes the
// connection before delivering the requested number of bytes.
var ErrConnectionClosed = errors.New("transport: connection closed by peer")

// TCPConfig configures a direct TCP transport.
type TCPConfig struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// TCP is a blocking-socket Transport with a configurable connect/read
// timeout. RecvExact loops over reads until exactly n bytes are obtained
// or the peer closes, mirroring a C-style recv_exact helper.
type TCP struct {
	conn    net.Conn
	timeout time.Duration
	closed  atomic.Bool
}

var _ Transport = (*TCP)(nil)

// DialTCP opens a stream socket to cfg.Host:cfg.Port with the configured
// connect timeout.
func DialTCP(ctx context.Context, cfg TCPConfig) (*TCP, error) {
	log := logging.L("transport")
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: tcp dial %s: %w", addr, err)
	}

	log.Debug("tcp connected", "addr", addr)
	return &TCP{conn: conn, timeout: timeout}, nil
}

// Send writes b in full, honoring the configured timeout and any
// deadline on ctx.
func (t *TCP) Send(ctx context.Context, b []byte) error {
	if err := t.applyDeadline(ctx); err != nil {
		return err
	}
	if _, err := t.conn.Write(b); err != nil {
		return fmt.Errorf("transport: tcp write: %w", err)
	}
	return nil
}

// RecvExact blocks until exactly n bytes have been read, the peer closes
// (ErrConnectionClosed), or a read times out.
func (t *TCP) RecvExact(ctx context.Context, n int) ([]byte, error) {
	if err := t.applyDeadline(ctx); err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("transport: tcp read: %w", err)
	}
	return buf, nil
}

// Close closes the underlying socket. Safe to call more than once.
func (t *TCP) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return t.conn.Close()
}

// IsConnected reports whether the socket has not yet been closed by this
// side. It does not probe the peer.
func (t *TCP) IsConnected() bool {
	return !t.closed.Load()
}

func (t *TCP) applyDeadline(ctx context.Context) error {
	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return t.conn.SetDeadline(deadline)
}
