package mechanism

import (
	"context"
	"time"

	"github.com/san-kum/motioncore/internal/device"
)

// ProfileVelocity is the rpm ceiling for profiled moves.
const ProfileVelocity = 200

const pollInterval = 2 * time.Millisecond

// twoWay runs fwd while a is held, else rev while b is held, else idle.
func twoWay(pad device.Gamepad, a, b device.Button, fwd, rev, idle func()) {
	switch {
	case pad.Digital(a):
		fwd()
	case pad.Digital(b):
		rev()
	default:
		idle()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
