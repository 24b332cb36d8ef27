package vncbridge

import (
	"context"
)

// defaultScrollToTicks is the short default scroll ScrollTo performs
// after repositioning the cursor.
const defaultScrollToTicks = 3

// ScrollController emits wheel events — VNC pointer events with the
// wheel-up (button 4) or wheel-down (button 5) bit asserted instead of
// a position change. It shares the pointer's engine and cursor state
// rather than owning a second one, since both drive the same mouse.
type ScrollController struct {
	pointer *PointerController
}

func newScrollController(pointer *PointerController) *ScrollController {
	return &ScrollController{pointer: pointer}
}

// ScrollUp emits amount wheel-up ticks at the current cursor position.
// amount < 0 is an input error; amount == 0 is a no-op.
func (s *ScrollController) ScrollUp(ctx context.Context, amount int) error {
	return s.tick(ctx, "scroll-up", ButtonWheelUp, amount)
}

// ScrollDown is ScrollUp's wheel-down counterpart.
func (s *ScrollController) ScrollDown(ctx context.Context, amount int) error {
	return s.tick(ctx, "scroll-down", ButtonWheelDown, amount)
}

func (s *ScrollController) tick(ctx context.Context, op string, button uint8, amount int) error {
	if amount < 0 {
		return inputErrorf(op, "amount %d must not be negative", amount)
	}
	if amount == 0 {
		return nil
	}

	p := s.pointer
	p.engine.Lock()
	defer p.engine.Unlock()

	x, y, _ := p.GetPosition()
	for i := 0; i < amount; i++ {
		if err := p.sendLocked(ctx, op, button, x, y); err != nil {
			return err
		}
		if err := p.sendLocked(ctx, op, 0, x, y); err != nil {
			return err
		}
	}
	return nil
}

// ScrollTo moves the cursor to (x, y) with a no-button pointer event,
// then performs a short default downward scroll.
func (s *ScrollController) ScrollTo(ctx context.Context, x, y int) error {
	if err := validatePoint("scroll-to", x, y); err != nil {
		return err
	}

	p := s.pointer
	p.engine.Lock()
	if err := p.sendLocked(ctx, "scroll-to", p.currentButtons(), mustUint16(x), mustUint16(y)); err != nil {
		p.engine.Unlock()
		return err
	}
	p.engine.Unlock()

	return s.ScrollDown(ctx, defaultScrollToTicks)
}
