package vncbridge

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Ganzzi/vnc-agent-bridge/internal/rfb"
	"github.com/Ganzzi/vnc-agent-bridge/internal/transport"
)

// Kind classifies every error the library can return, per spec.md §7.
// All five kinds share this one wrapper type so a caller can switch on
// Kind without type-asserting five different error types.
type Kind int

const (
	// KindConnection covers transport setup/teardown failures: host
	// unreachable, connection refused, peer closed mid-stream.
	KindConnection Kind = iota
	// KindTimeout covers a bounded wait (connect or read) elapsing.
	KindTimeout
	// KindProtocol covers the server violating RFB 3.8 or sending
	// unsupported content.
	KindProtocol
	// KindAuthentication covers security negotiation completing
	// syntactically but the server rejecting credentials.
	KindAuthentication
	// KindInput covers local validation rejecting a call before any
	// bytes moved.
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	case KindAuthentication:
		return "authentication"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

// Error is the error type every exported operation returns.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vncbridge: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is (or wraps) a *Error of the given Kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}

// ErrNotConnected is returned by any controller accessor called on a
// Client that is not currently connected. Controller methods do not
// check it: a controller obtained before Disconnect fails with the
// closed transport's error instead. It wraps
// as KindInput, since it is a local precondition failure, not a
// wire-level event — mirroring the original Python implementation's
// distinct "not connected" exception rather than folding it into the
// Connection kind (see DESIGN.md).
var ErrNotConnected = errors.New("vncbridge: client is not connected")

func newInputError(op string, err error) *Error {
	return &Error{Kind: KindInput, Op: op, Err: err}
}

func inputErrorf(op, format string, args ...any) *Error {
	return newInputError(op, fmt.Errorf(format, args...))
}

// wrapEngineErr maps an internal/rfb.Error (or a raw transport/context
// error) onto the library's public five-kind taxonomy.
func wrapEngineErr(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}

	var rfbErr *rfb.Error
	if errors.As(err, &rfbErr) {
		switch rfbErr.Kind {
		case rfb.KindConnection:
			return &Error{Kind: KindConnection, Op: op, Err: err}
		case rfb.KindProtocol:
			return &Error{Kind: KindProtocol, Op: op, Err: err}
		case rfb.KindAuthentication:
			return &Error{Kind: KindAuthentication, Op: op, Err: err}
		}
	}

	if errors.Is(err, transport.ErrConnectionClosed) {
		return &Error{Kind: KindConnection, Op: op, Err: err}
	}

	return &Error{Kind: KindConnection, Op: op, Err: err}
}
