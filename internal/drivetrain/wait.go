package drivetrain

import (
	"context"
	"time"
)

// WaitUntilSettled blocks until the loop reports settled. It first waits
// PreSettleDelay so a fresh target is not judged before the robot moves,
// and afterwards PostSettleDelay so the robot comes to rest. A positive
// SettleTimeout bounds the whole wait and yields ErrSettleTimeout.
func (d *Drivetrain) WaitUntilSettled(ctx context.Context) error {
	if d.cfg.SettleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, d.cfg.SettleTimeout, ErrSettleTimeout)
		defer cancel()
	}

	if err := sleep(ctx, d.cfg.PreSettleDelay); err != nil {
		return err
	}

	poll := d.cfg.PollInterval
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for !d.settled.Load() {
		select {
		case <-ctx.Done():
			l, r := d.Targets()
			d.log.WithField("left_target", l).WithField("right_target", r).Warn("gave up waiting to settle")
			return context.Cause(ctx)
		case <-ticker.C:
		}
	}

	return sleep(ctx, d.cfg.PostSettleDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}
