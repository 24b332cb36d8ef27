package rfb

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Handshake drives the client side of the RFB 3.8 connection setup over
// e's transport: version exchange, security negotiation (preferring
// None, falling back to VNC-DES, then whatever the server offered
// first), ClientInit, and ServerInit. On success it returns the
// negotiated ServerInit and the engine is Ready — controllers may send
// messages.
func (e *Engine) Handshake(ctx context.Context, password string) (*ServerInit, error) {
	if err := e.awaitServerVersion(ctx); err != nil {
		return nil, err
	}
	if err := e.sendClientVersion(ctx); err != nil {
		return nil, err
	}

	secTypes, err := e.awaitSecurityList(ctx)
	if err != nil {
		return nil, err
	}

	chosen := chooseSecurityType(secTypes)
	if err := e.sendSecurityChoice(ctx, chosen); err != nil {
		return nil, err
	}

	switch chosen {
	case SecurityNone:
		// proceed directly
	case SecurityVNC:
		if err := e.performVNCAuth(ctx, password); err != nil {
			return nil, err
		}
	default:
		return nil, wrapErr(KindProtocol, "handshake", fmt.Errorf("server offered only unsupported security types %v", secTypes))
	}

	if err := e.sendClientInit(ctx); err != nil {
		return nil, err
	}

	init, err := e.awaitServerInit(ctx)
	if err != nil {
		return nil, err
	}

	e.serverInit = init
	e.fb.Initialize(init.Width, init.Height)
	return init, nil
}

func (e *Engine) awaitServerVersion(ctx context.Context) error {
	b, err := e.tr.RecvExact(ctx, 12)
	if err != nil {
		return wrapErr(KindConnection, "await-server-version", err)
	}
	if string(b) != ProtocolVersion {
		return wrapErr(KindProtocol, "await-server-version", fmt.Errorf("unexpected server version %q", b))
	}
	return nil
}

func (e *Engine) sendClientVersion(ctx context.Context) error {
	if err := e.tr.Send(ctx, []byte(ProtocolVersion)); err != nil {
		return wrapErr(KindConnection, "send-client-version", err)
	}
	return nil
}

func (e *Engine) awaitSecurityList(ctx context.Context) ([]byte, error) {
	nb, err := e.tr.RecvExact(ctx, 1)
	if err != nil {
		return nil, wrapErr(KindConnection, "await-security-list", err)
	}
	n := int(nb[0])

	if n == 0 {
		lenBuf, err := e.tr.RecvExact(ctx, 4)
		if err != nil {
			return nil, wrapErr(KindConnection, "await-security-list", err)
		}
		reasonLen := binary.BigEndian.Uint32(lenBuf)
		reason, err := e.tr.RecvExact(ctx, int(reasonLen))
		if err != nil {
			return nil, wrapErr(KindConnection, "await-security-list", err)
		}
		return nil, wrapErr(KindConnection, "await-security-list", fmt.Errorf("server refused connection: %s", reason))
	}

	types, err := e.tr.RecvExact(ctx, n)
	if err != nil {
		return nil, wrapErr(KindConnection, "await-security-list", err)
	}
	return types, nil
}

// chooseSecurityType prefers None, then VNC, then whatever the server
// listed first. The caller decides whether the result is actually
// supported.
func chooseSecurityType(offered []byte) byte {
	for _, t := range offered {
		if t == SecurityNone {
			return SecurityNone
		}
	}
	for _, t := range offered {
		if t == SecurityVNC {
			return SecurityVNC
		}
	}
	if len(offered) > 0 {
		return offered[0]
	}
	return 0
}

func (e *Engine) sendSecurityChoice(ctx context.Context, chosen byte) error {
	if err := e.tr.Send(ctx, []byte{chosen}); err != nil {
		return wrapErr(KindConnection, "send-security-choice", err)
	}
	return nil
}

func (e *Engine) performVNCAuth(ctx context.Context, password string) error {
	challengeBytes, err := e.tr.RecvExact(ctx, 16)
	if err != nil {
		return wrapErr(KindConnection, "vnc-auth", err)
	}
	var challenge [16]byte
	copy(challenge[:], challengeBytes)

	response, err := vncChallengeResponse(challenge, password)
	if err != nil {
		return wrapErr(KindAuthentication, "vnc-auth", err)
	}

	if err := e.tr.Send(ctx, response[:]); err != nil {
		return wrapErr(KindConnection, "vnc-auth", err)
	}

	statusBuf, err := e.tr.RecvExact(ctx, 4)
	if err != nil {
		return wrapErr(KindConnection, "vnc-auth", err)
	}
	if binary.BigEndian.Uint32(statusBuf) != 0 {
		return wrapErr(KindAuthentication, "vnc-auth", fmt.Errorf("server rejected VNC authentication"))
	}
	return nil
}

func (e *Engine) sendClientInit(ctx context.Context) error {
	if err := e.tr.Send(ctx, []byte{1}); err != nil { // shared desktop, always requested
		return wrapErr(KindConnection, "send-client-init", err)
	}
	return nil
}

func (e *Engine) awaitServerInit(ctx context.Context) (*ServerInit, error) {
	header, err := e.tr.RecvExact(ctx, 4)
	if err != nil {
		return nil, wrapErr(KindConnection, "await-server-init", err)
	}
	width := binary.BigEndian.Uint16(header[0:2])
	height := binary.BigEndian.Uint16(header[2:4])

	pf, err := e.tr.RecvExact(ctx, 16)
	if err != nil {
		return nil, wrapErr(KindConnection, "await-server-init", err)
	}

	nameLenBuf, err := e.tr.RecvExact(ctx, 4)
	if err != nil {
		return nil, wrapErr(KindConnection, "await-server-init", err)
	}
	nameLen := binary.BigEndian.Uint32(nameLenBuf)

	nameBuf, err := e.tr.RecvExact(ctx, int(nameLen))
	if err != nil {
		return nil, wrapErr(KindConnection, "await-server-init", err)
	}

	init := &ServerInit{Width: width, Height: height, Name: string(nameBuf)}
	copy(init.PixelFormat[:], pf)
	return init, nil
}
