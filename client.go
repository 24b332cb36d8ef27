// Package vncbridge drives a remote desktop exposed via RFB 3.8 over
// either a direct TCP socket or an RFB stream tunneled as binary frames
// over a secure WebSocket. Callers hold one Client, which binds a
// transport to a protocol engine and exposes pointer, keyboard, scroll,
// clipboard, screenshot, and video-recording controllers.
package vncbridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Ganzzi/vnc-agent-bridge/internal/logging"
	"github.com/Ganzzi/vnc-agent-bridge/internal/mtls"
	"github.com/Ganzzi/vnc-agent-bridge/internal/rfb"
	"github.com/Ganzzi/vnc-agent-bridge/internal/transport"
)

var facadeLog = logging.L("facade")

// Client is the library's single entry point. It owns exactly one
// Transport and Protocol Engine pair; controllers are non-owning views
// onto that pair and are only usable while the Client is connected.
type Client struct {
	cfg    ConnectionConfig
	engine *rfb.Engine

	connected atomic.Bool
	closeOnce sync.Once

	pointer    *PointerController
	keyboard   *KeyboardController
	scroll     *ScrollController
	clipboard  *ClipboardController
	screenshot *ScreenshotService
	video      *VideoRecorder
}

// Connect dials cfg's transport, runs the RFB 3.8 handshake, and
// returns a ready Client. On any failure the partially-opened transport
// is torn down before the error is returned.
func Connect(ctx context.Context, cfg ConnectionConfig) (*Client, error) {
	tr, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine := rfb.New(tr)
	if _, err := engine.Handshake(ctx, cfg.Password); err != nil {
		engine.Close()
		return nil, wrapEngineErr("connect", err)
	}

	c := &Client{cfg: cfg, engine: engine}
	c.pointer = newPointerController(engine)
	c.keyboard = newKeyboardController(engine)
	c.scroll = newScrollController(c.pointer)
	c.clipboard = newClipboardController(engine)
	c.screenshot = newScreenshotService(engine)
	c.video = newVideoRecorder(c.screenshot)
	c.connected.Store(true)

	facadeLog.Info("connected", "host", cfg.Host, "transport", cfg.Transport)
	return c, nil
}

// Use runs fn against a freshly connected Client and guarantees
// Disconnect runs exactly once on any exit path — success, early
// return, or a panic propagated from fn.
func Use(ctx context.Context, cfg ConnectionConfig, fn func(ctx context.Context, c *Client) error) error {
	c, err := Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Disconnect(ctx)

	return fn(ctx, c)
}

func dial(ctx context.Context, cfg ConnectionConfig) (transport.Transport, error) {
	switch cfg.Transport {
	case TransportWebSocket:
		tlsConfig, err := mtls.BuildTLSConfig(cfg.CertificatePEM, cfg.VerifySSL)
		if err != nil {
			return nil, &Error{Kind: KindInput, Op: "connect", Err: err}
		}

		ws, err := transport.DialWebSocket(ctx, transport.WebSocketConfig{
			URLTemplate:    cfg.URLTemplate,
			Host:           cfg.Host,
			HostPort:       cfg.HostPort,
			VNCPort:        cfg.VNCPort,
			Ticket:         cfg.effectiveTicket(),
			Headers:        cfg.Headers,
			Timeout:        cfg.Timeout,
			CertificatePEM: cfg.CertificatePEM,
			VerifySSL:      cfg.VerifySSL,
		}, tlsConfig)
		if err != nil {
			return nil, wrapEngineErr("connect", err)
		}
		return ws, nil

	case TransportTCP, "":
		tcp, err := transport.DialTCP(ctx, transport.TCPConfig{
			Host:    cfg.Host,
			Port:    cfg.Port,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, wrapEngineErr("connect", err)
		}
		return tcp, nil

	default:
		return nil, &Error{Kind: KindInput, Op: "connect", Err: fmt.Errorf("unknown transport kind %q", cfg.Transport)}
	}
}

// Disconnect tears down the underlying transport and makes every
// controller inaccessible. It is idempotent: calling it again on an
// already-disconnected Client is a no-op.
func (c *Client) Disconnect(ctx context.Context) error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		if c.video != nil {
			c.video.stopIfRunning(ctx)
		}
		closeErr = c.engine.Close()
		facadeLog.Info("disconnected", "host", c.cfg.Host)
	})
	if closeErr != nil {
		return &Error{Kind: KindConnection, Op: "disconnect", Err: closeErr}
	}
	return nil
}

// IsConnected reports whether the Client is currently usable.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) requireConnected(op string) error {
	if !c.connected.Load() {
		return newInputError(op, ErrNotConnected)
	}
	return nil
}

// Pointer returns the pointer controller. Valid only while connected.
func (c *Client) Pointer() (*PointerController, error) {
	if err := c.requireConnected("pointer"); err != nil {
		return nil, err
	}
	return c.pointer, nil
}

// Keyboard returns the keyboard controller. Valid only while connected.
func (c *Client) Keyboard() (*KeyboardController, error) {
	if err := c.requireConnected("keyboard"); err != nil {
		return nil, err
	}
	return c.keyboard, nil
}

// Scroll returns the scroll controller. Valid only while connected.
func (c *Client) Scroll() (*ScrollController, error) {
	if err := c.requireConnected("scroll"); err != nil {
		return nil, err
	}
	return c.scroll, nil
}

// Clipboard returns the clipboard controller. Valid only while connected.
func (c *Client) Clipboard() (*ClipboardController, error) {
	if err := c.requireConnected("clipboard"); err != nil {
		return nil, err
	}
	return c.clipboard, nil
}

// Screenshot returns the screenshot service. Valid only while connected.
func (c *Client) Screenshot() (*ScreenshotService, error) {
	if err := c.requireConnected("screenshot"); err != nil {
		return nil, err
	}
	return c.screenshot, nil
}

// Video returns the video recorder. Valid only while connected.
func (c *Client) Video() (*VideoRecorder, error) {
	if err := c.requireConnected("video"); err != nil {
		return nil, err
	}
	return c.video, nil
}

// ServerInit returns the server's negotiated desktop description.
func (c *Client) ServerInit() *rfb.ServerInit {
	return c.engine.ServerInit()
}
