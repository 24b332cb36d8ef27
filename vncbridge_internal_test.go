package vncbridge

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/Ganzzi/vnc-agent-bridge/internal/rfb"
)

// pipeTransport adapts a net.Conn to transport.Transport for tests, the
// same technique internal/rfb's own tests use to exercise the engine
// without a real socket.
type pipeTransport struct {
	conn net.Conn
}

func (p *pipeTransport) Send(ctx context.Context, b []byte) error {
	_, err := p.conn.Write(b)
	return err
}

func (p *pipeTransport) RecvExact(ctx context.Context, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *pipeTransport) Close() error      { return p.conn.Close() }
func (p *pipeTransport) IsConnected() bool { return true }

// newTestClient builds a Client wired to a fake in-process server
// without running the handshake or dialing a real transport, letting
// controller tests drive the wire protocol directly.
func newTestClient(t *testing.T, width, height uint16) (*Client, net.Conn) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		serverConn.Close()
	})

	engine := rfb.New(&pipeTransport{conn: clientConn})
	engine.Framebuffer().Initialize(width, height)

	c := &Client{cfg: ConnectionConfig{Host: "test"}, engine: engine}
	c.pointer = newPointerController(engine)
	c.keyboard = newKeyboardController(engine)
	c.scroll = newScrollController(c.pointer)
	c.clipboard = newClipboardController(engine)
	c.screenshot = newScreenshotService(engine)
	c.video = newVideoRecorder(c.screenshot)
	c.connected.Store(true)

	return c, serverConn
}
