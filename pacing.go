package vncbridge

import (
	"context"
	"time"
)

// sleep pauses for d, or until ctx is cancelled, whichever comes first.
// d <= 0 is a no-op. Every controller's pacing delay routes through
// here so a caller's cancellation reaches even the small inter-event
// sleeps spec.md calls for (press/release pacing, double-click pacing,
// drag interpolation).
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
