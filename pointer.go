package vncbridge

import (
	"context"
	"sync"
	"time"

	"github.com/Ganzzi/vnc-agent-bridge/internal/rfb"
)

// Pointer button bit masks, per the RFB wire format. Wheel events are
// ordinary pointer events with button 4 or button 5 asserted instead of
// a position change.
const (
	ButtonLeft      uint8 = 1 << 0
	ButtonMiddle    uint8 = 1 << 1
	ButtonRight     uint8 = 1 << 2
	ButtonWheelUp   uint8 = 1 << 3
	ButtonWheelDown uint8 = 1 << 4
)

// doubleClickPause is the inter-click pacing used by DoubleClick,
// sufficient to satisfy server double-click recognition without being
// so slow it reads as two separate clicks.
const doubleClickPause = 50 * time.Millisecond

// ClickOptions customizes a click/double-click call. X and Y are
// optional: nil reuses the controller's current stored position.
type ClickOptions struct {
	X, Y  *int
	Delay time.Duration
}

// PointerController translates click/drag/move operations into
// PointerEvent sequences, tracking the cursor position and button mask
// it last sent so GetPosition reflects the server's view without a
// round trip.
type PointerController struct {
	engine *rfb.Engine

	mu      sync.Mutex
	x, y    uint16
	buttons uint8
}

func newPointerController(engine *rfb.Engine) *PointerController {
	return &PointerController{engine: engine}
}

// GetPosition returns the last coordinate and button mask this
// controller transmitted.
func (p *PointerController) GetPosition() (x, y uint16, buttons uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y, p.buttons
}

func intPtr(v int) *int { return &v }

// LeftClick moves to the target position (if one differs from the
// current position), presses and releases the left button, then sleeps
// opts.Delay.
func (p *PointerController) LeftClick(ctx context.Context, opts ClickOptions) error {
	return p.click(ctx, "left-click", ButtonLeft, opts)
}

// RightClick is LeftClick's right-button counterpart.
func (p *PointerController) RightClick(ctx context.Context, opts ClickOptions) error {
	return p.click(ctx, "right-click", ButtonRight, opts)
}

func (p *PointerController) click(ctx context.Context, op string, button uint8, opts ClickOptions) error {
	p.engine.Lock()
	defer p.engine.Unlock()

	x, y, err := p.resolveTarget(op, opts.X, opts.Y)
	if err != nil {
		return err
	}

	curX, curY, _ := p.GetPosition()
	if x != curX || y != curY {
		if err := p.sendLocked(ctx, op, 0, x, y); err != nil {
			return err
		}
	}
	if err := p.sendLocked(ctx, op, button, x, y); err != nil {
		return err
	}
	if err := p.sendLocked(ctx, op, 0, x, y); err != nil {
		return err
	}

	sleep(ctx, opts.Delay)
	return nil
}

// DoubleClick performs two left clicks separated by a short pacing
// delay, sufficient for servers to recognize it as a double-click
// rather than two independent clicks.
func (p *PointerController) DoubleClick(ctx context.Context, opts ClickOptions) error {
	first := opts
	first.Delay = doubleClickPause
	if err := p.click(ctx, "double-click", ButtonLeft, first); err != nil {
		return err
	}

	p.mu.Lock()
	x, y := int(p.x), int(p.y)
	p.mu.Unlock()

	second := ClickOptions{X: intPtr(x), Y: intPtr(y), Delay: opts.Delay}
	return p.click(ctx, "double-click", ButtonLeft, second)
}

// MoveTo emits a single no-button pointer event at (x, y) and updates
// the stored cursor.
func (p *PointerController) MoveTo(ctx context.Context, x, y int, delay time.Duration) error {
	p.engine.Lock()
	defer p.engine.Unlock()

	if err := validatePoint("move-to", x, y); err != nil {
		return err
	}
	if err := p.sendLocked(ctx, "move-to", p.currentButtons(), mustUint16(x), mustUint16(y)); err != nil {
		return err
	}
	sleep(ctx, delay)
	return nil
}

// dragPointsPerSecond bounds the interpolation density of DragTo: at
// most this many intermediate points are generated per second of
// requested duration.
const dragPointsPerSecond = 10

// DragTo holds the left button down from the current position to
// (x, y), emitting linearly interpolated move events along the way
// so the server's drag recognition sees a continuous gesture instead
// of a single jump.
func (p *PointerController) DragTo(ctx context.Context, x, y int, duration, delay time.Duration) error {
	p.engine.Lock()
	defer p.engine.Unlock()

	if err := validatePoint("drag-to", x, y); err != nil {
		return err
	}
	targetX, targetY := mustUint16(x), mustUint16(y)

	startX, startY := p.x, p.y

	if err := p.sendLocked(ctx, "drag-to", ButtonLeft, startX, startY); err != nil {
		return err
	}

	steps := int(duration.Seconds() * dragPointsPerSecond)
	if steps < 1 {
		steps = 1
	}
	step := duration / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		frac := float64(i) / float64(steps)
		ix := uint16(float64(startX) + frac*(float64(targetX)-float64(startX)))
		iy := uint16(float64(startY) + frac*(float64(targetY)-float64(startY)))
		if i == steps {
			ix, iy = targetX, targetY
		}
		if err := p.sendLocked(ctx, "drag-to", ButtonLeft, ix, iy); err != nil {
			return err
		}
		if step > 0 && i < steps {
			sleep(ctx, step)
		}
	}

	if err := p.sendLocked(ctx, "drag-to", 0, targetX, targetY); err != nil {
		return err
	}

	sleep(ctx, delay)
	return nil
}

// resolveTarget validates and narrows an optional (x, y) pair, falling
// back to the controller's current stored position for either
// coordinate left unspecified.
func (p *PointerController) resolveTarget(op string, xOpt, yOpt *int) (uint16, uint16, error) {
	p.mu.Lock()
	curX, curY := p.x, p.y
	p.mu.Unlock()

	x, y := int(curX), int(curY)
	if xOpt != nil {
		x = *xOpt
	}
	if yOpt != nil {
		y = *yOpt
	}

	if err := validatePoint(op, x, y); err != nil {
		return 0, 0, err
	}
	return mustUint16(x), mustUint16(y), nil
}

func (p *PointerController) currentButtons() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buttons
}

// sendLocked sends one PointerEvent and updates stored state. Callers
// must already hold p.engine's lock.
func (p *PointerController) sendLocked(ctx context.Context, op string, buttons uint8, x, y uint16) error {
	if err := p.engine.SendPointerEvent(ctx, buttons, x, y); err != nil {
		return wrapEngineErr(op, err)
	}
	p.mu.Lock()
	p.x, p.y, p.buttons = x, y, buttons
	p.mu.Unlock()
	return nil
}
