// Package rfb implements the client side of the Remote Framebuffer
// protocol, version 3.8: handshake, security negotiation (None and
// classic VNC-DES), ClientInit/ServerInit, and the message codec for the
// pointer/key/scroll/clipboard/framebuffer-update messages the rest of
// the library needs. It speaks to any transport.Transport, so the same
// engine drives both the TCP and WebSocket variants.
package rfb

import "fmt"

// ProtocolVersion is the only version string this engine speaks, in
// both directions.
const ProtocolVersion = "RFB 003.008\n"

// Security types offered by a 3.8 server.
const (
	SecurityNone = 1
	SecurityVNC  = 2
)

// Client-to-server message type bytes.
const (
	msgSetEncodings             = 2
	msgFramebufferUpdateRequest = 3
	msgKeyEvent                 = 4
	msgPointerEvent             = 5
	msgClientCutText            = 6
)

// Server-to-client message type bytes this engine consumes.
const (
	msgFramebufferUpdate = 0
	msgServerCutText     = 3
)

// EncodingRaw is the only rectangle encoding this engine understands.
const EncodingRaw int32 = 0

// PixelFormat is the 16-byte pixel-format block sent in ServerInit. The
// engine preserves it but never parses it — raster operations assume
// 32-bit RGBA, per spec.
type PixelFormat [16]byte

// ServerInit is the server's desktop description, captured once during
// the handshake and never mutated afterward.
type ServerInit struct {
	Width       uint16
	Height      uint16
	PixelFormat PixelFormat
	Name        string
}

// Rectangle describes one updated region of a FramebufferUpdate message.
// The engine itself does not build Rectangle values: DispatchOne reads
// each region's header and pixels and applies them straight to the
// framebuffer.
type Rectangle struct {
	X, Y, W, H uint16
	Encoding   int32
	Pixels     []byte
}

func (r Rectangle) String() string {
	return fmt.Sprintf("rect(%d,%d %dx%d enc=%d)", r.X, r.Y, r.W, r.H, r.Encoding)
}
