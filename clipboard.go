package vncbridge

import (
	"context"
	"sync"
	"time"

	"github.com/Ganzzi/vnc-agent-bridge/internal/rfb"
)

// ClipboardController sends ClientCutText messages and caches the most
// recently sent or received clipboard text, so HasText can answer
// without waiting on the wire. GetText always reads from the wire.
type ClipboardController struct {
	engine *rfb.Engine

	mu   sync.Mutex
	text string
	has  bool
}

func newClipboardController(engine *rfb.Engine) *ClipboardController {
	return &ClipboardController{engine: engine}
}

// SendText pushes text to the remote clipboard and updates the cache to
// the sent text.
func (c *ClipboardController) SendText(ctx context.Context, text string) error {
	const op = "clipboard-send-text"
	if err := validateNonEmptyText(op, text); err != nil {
		return err
	}

	c.engine.Lock()
	err := c.engine.SendClientCutText(ctx, text)
	c.engine.Unlock()
	if err != nil {
		return wrapEngineErr(op, err)
	}

	c.mu.Lock()
	c.text, c.has = text, true
	c.mu.Unlock()
	return nil
}

// Clear pushes an empty clipboard to the remote side and drops the
// locally cached text.
func (c *ClipboardController) Clear(ctx context.Context) error {
	const op = "clipboard-clear"

	c.engine.Lock()
	err := c.engine.SendClientCutText(ctx, "")
	c.engine.Unlock()
	if err != nil {
		return wrapEngineErr(op, err)
	}

	c.mu.Lock()
	c.text, c.has = "", false
	c.mu.Unlock()
	return nil
}

// HasText reports whether clipboard text has been cached, by SendText
// or by a GetText that received a ServerCutText, since the last Clear.
func (c *ClipboardController) HasText() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.has
}

// GetText waits up to timeout for one server message and reports
// whether it was a ServerCutText. Because the server can interleave
// other messages, GetText only returns text if the *next* incoming
// server message is ServerCutText; any other message type — including
// a FramebufferUpdate, which DispatchOne still applies to the
// framebuffer as a side effect — returns absent (ok == false, err ==
// nil), mirroring the reference implementation's single-peek read
// rather than dispatching a whole queue of messages looking for one.
func (c *ClipboardController) GetText(ctx context.Context, timeout time.Duration) (text string, ok bool, err error) {
	const op = "clipboard-get-text"

	if err := validateTimeout(op, timeout); err != nil {
		return "", false, err
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c.engine.Lock()
	defer c.engine.Unlock()

	result, err := c.engine.DispatchOne(waitCtx)
	if err != nil {
		return "", false, wrapEngineErr(op, err)
	}

	if result.Kind != rfb.DispatchServerCutText {
		return "", false, nil
	}

	c.mu.Lock()
	c.text, c.has = result.Text, true
	c.mu.Unlock()
	return result.Text, true, nil
}
