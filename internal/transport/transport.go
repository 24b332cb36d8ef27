// Package transport implements the byte-stream abstraction the RFB
// protocol engine runs over: a direct TCP socket, or an RFB stream
// tunneled as binary WebSocket frames. Both variants satisfy the same
// Transport interface so the protocol engine never has to know which one
// it is talking to.
package transport

import "context"

// Transport delivers ordered, reliable bytes in both directions and
// surfaces one unified failure mode to the protocol engine. All methods
// are safe to call from one goroutine at a time; callers serialize access
// (see the protocol engine's single-writer mutex).
type Transport interface {
	Send(ctx context.Context, b []byte) error
	RecvExact(ctx context.Context, n int) ([]byte, error)
	Close() error
	IsConnected() bool
}

// Kind names which Transport variant a Config selects.
type Kind string

const (
	KindTCP       Kind = "tcp"
	KindWebSocket Kind = "websocket"
)
