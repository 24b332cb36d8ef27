package rfb

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Ganzzi/vnc-agent-bridge/internal/framebuffer"
	"github.com/Ganzzi/vnc-agent-bridge/internal/logging"
	"github.com/Ganzzi/vnc-agent-bridge/internal/transport"
)

// Engine frames and parses RFB 3.8 messages over a transport.Transport.
// It exclusively owns the Framebuffer it allocates during Handshake.
//
// Engine is not safe for concurrent use by itself — every exported
// method assumes the caller already holds the engine via Lock/Unlock.
// This is the library's single-writer enforcement: callers (the root
// package's controllers, and the video recorder's background worker)
// bracket each logical operation with Lock/Unlock so the wire never
// sees interleaved messages from two goroutines, and so a composite
// operation like a drag's move/down/up sequence is never split by a
// concurrent screenshot capture.
type Engine struct {
	tr transport.Transport
	mu sync.Mutex

	fb         *framebuffer.Framebuffer
	serverInit *ServerInit
}

// New wraps tr in a protocol engine. The framebuffer is allocated lazily
// by Handshake once ServerInit is known.
func New(tr transport.Transport) *Engine {
	return &Engine{
		tr: tr,
		fb: framebuffer.New(0, 0),
	}
}

// Lock acquires exclusive use of the engine's message path for the
// duration of one logical operation (a single message, or a composite
// sequence such as a drag).
func (e *Engine) Lock() { e.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (e *Engine) Unlock() { e.mu.Unlock() }

// Framebuffer returns the framebuffer this engine owns. Valid only
// after Handshake succeeds.
func (e *Engine) Framebuffer() *framebuffer.Framebuffer {
	return e.fb
}

// ServerInit returns the negotiated server description, or nil before
// Handshake completes.
func (e *Engine) ServerInit() *ServerInit {
	return e.serverInit
}

// Close tears down the underlying transport.
func (e *Engine) Close() error {
	return e.tr.Close()
}

var log = logging.L("rfb")

// SendSetEncodings writes the SetEncodings message (type 2).
func (e *Engine) SendSetEncodings(ctx context.Context, encodings []int32) error {
	buf := make([]byte, 4+4*len(encodings))
	buf[0] = msgSetEncodings
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(encodings)))
	for i, enc := range encodings {
		binary.BigEndian.PutUint32(buf[4+4*i:8+4*i], uint32(enc))
	}
	return e.send(ctx, "set-encodings", buf)
}

// SendFramebufferUpdateRequest writes a FramebufferUpdateRequest (type 3).
func (e *Engine) SendFramebufferUpdateRequest(ctx context.Context, incremental bool, x, y, w, h uint16) error {
	buf := make([]byte, 10)
	buf[0] = msgFramebufferUpdateRequest
	if incremental {
		buf[1] = 1
	}
	binary.BigEndian.PutUint16(buf[2:4], x)
	binary.BigEndian.PutUint16(buf[4:6], y)
	binary.BigEndian.PutUint16(buf[6:8], w)
	binary.BigEndian.PutUint16(buf[8:10], h)
	return e.send(ctx, "framebuffer-update-request", buf)
}

// SendKeyEvent writes a KeyEvent (type 4).
func (e *Engine) SendKeyEvent(ctx context.Context, down bool, keysym uint32) error {
	buf := make([]byte, 8)
	buf[0] = msgKeyEvent
	if down {
		buf[1] = 1
	}
	binary.BigEndian.PutUint32(buf[4:8], keysym)
	return e.send(ctx, "key-event", buf)
}

// SendPointerEvent writes a PointerEvent (type 5).
func (e *Engine) SendPointerEvent(ctx context.Context, buttonMask uint8, x, y uint16) error {
	buf := make([]byte, 6)
	buf[0] = msgPointerEvent
	buf[1] = buttonMask
	binary.BigEndian.PutUint16(buf[2:4], x)
	binary.BigEndian.PutUint16(buf[4:6], y)
	return e.send(ctx, "pointer-event", buf)
}

// SendClientCutText writes a ClientCutText (type 6). text is encoded as
// Latin-1 per the wire format.
func (e *Engine) SendClientCutText(ctx context.Context, text string) error {
	payload, err := EncodeLatin1(text)
	if err != nil {
		return wrapErr(KindProtocol, "client-cut-text", err)
	}

	buf := make([]byte, 8+len(payload))
	buf[0] = msgClientCutText
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	return e.send(ctx, "client-cut-text", buf)
}

func (e *Engine) send(ctx context.Context, op string, buf []byte) error {
	if err := e.tr.Send(ctx, buf); err != nil {
		return wrapErr(KindConnection, op, err)
	}
	return nil
}

// DispatchKind tags the server message DispatchOne just processed.
type DispatchKind int

const (
	DispatchFramebufferUpdate DispatchKind = iota
	DispatchServerCutText
)

// DispatchResult is the outcome of reading and routing one server
// message.
type DispatchResult struct {
	Kind DispatchKind
	Text string // set when Kind == DispatchServerCutText
}

// DispatchOne reads exactly one server-to-client message and routes it:
// FramebufferUpdate rectangles are applied to the owned Framebuffer,
// ServerCutText is decoded and handed back to the caller to cache. This
// is the engine's resolution of the clipboard open question in spec.md
// §9 (policy (ii), see DESIGN.md): nothing read off the wire is ever silently
// discarded, it is always routed somewhere useful.
func (e *Engine) DispatchOne(ctx context.Context) (DispatchResult, error) {
	typeByte, err := e.tr.RecvExact(ctx, 1)
	if err != nil {
		return DispatchResult{}, wrapErr(KindConnection, "dispatch", err)
	}

	switch typeByte[0] {
	case msgFramebufferUpdate:
		if err := e.readFramebufferUpdate(ctx); err != nil {
			return DispatchResult{}, err
		}
		return DispatchResult{Kind: DispatchFramebufferUpdate}, nil
	case msgServerCutText:
		text, err := e.readServerCutText(ctx)
		if err != nil {
			return DispatchResult{}, err
		}
		return DispatchResult{Kind: DispatchServerCutText, Text: text}, nil
	default:
		return DispatchResult{}, wrapErr(KindProtocol, "dispatch", fmt.Errorf("unsupported server message type %d", typeByte[0]))
	}
}

func (e *Engine) readFramebufferUpdate(ctx context.Context) error {
	header, err := e.tr.RecvExact(ctx, 3) // pad(1) count(u16)
	if err != nil {
		return wrapErr(KindConnection, "framebuffer-update", err)
	}
	count := binary.BigEndian.Uint16(header[1:3])

	for i := uint16(0); i < count; i++ {
		rectHeader, err := e.tr.RecvExact(ctx, 12)
		if err != nil {
			return wrapErr(KindConnection, "framebuffer-update", err)
		}

		x := binary.BigEndian.Uint16(rectHeader[0:2])
		y := binary.BigEndian.Uint16(rectHeader[2:4])
		w := binary.BigEndian.Uint16(rectHeader[4:6])
		h := binary.BigEndian.Uint16(rectHeader[6:8])
		encoding := int32(binary.BigEndian.Uint32(rectHeader[8:12]))

		if encoding != EncodingRaw {
			return wrapErr(KindProtocol, "framebuffer-update", fmt.Errorf("unsupported rectangle encoding %d", encoding))
		}

		pixels, err := e.tr.RecvExact(ctx, int(w)*int(h)*4)
		if err != nil {
			return wrapErr(KindConnection, "framebuffer-update", err)
		}

		if err := e.fb.ApplyRectangle(x, y, w, h, pixels); err != nil {
			return wrapErr(KindProtocol, "framebuffer-update", err)
		}
	}

	log.Debug("applied framebuffer update", "rectangles", count)
	return nil
}

func (e *Engine) readServerCutText(ctx context.Context) (string, error) {
	header, err := e.tr.RecvExact(ctx, 7) // pad(3) length(u32)
	if err != nil {
		return "", wrapErr(KindConnection, "server-cut-text", err)
	}
	length := binary.BigEndian.Uint32(header[3:7])

	payload, err := e.tr.RecvExact(ctx, int(length))
	if err != nil {
		return "", wrapErr(KindConnection, "server-cut-text", err)
	}

	return DecodeLatin1(payload), nil
}
