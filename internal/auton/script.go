package auton

import (
	"context"
	"time"

	"github.com/san-kum/motioncore/internal/robot"
)

// script runs autonomous steps in order and skips everything after the
// first failure. The failure is kept in err.
type script struct {
	ctx context.Context
	r   *robot.Robot
	err error
}

func (s *script) do(fn func() error) {
	if s.err != nil {
		return
	}
	s.err = fn()
}

func (s *script) straight(inches float64) {
	s.do(func() error {
		s.r.Drive.MoveStraight(inches)
		return s.r.Drive.WaitUntilSettled(s.ctx)
	})
}

func (s *script) turn(deg float64) {
	s.do(func() error {
		s.r.Drive.TurnAngle(deg)
		return s.r.Drive.WaitUntilSettled(s.ctx)
	})
}

func (s *script) wait(d time.Duration) {
	s.do(func() error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-t.C:
			return nil
		}
	})
}

// punch fires n disks with a short gap after each.
func (s *script) punch(n int) {
	for i := 0; i < n; i++ {
		s.do(func() error { return s.r.Indexer.PunchDisk(s.ctx) })
		s.wait(250 * time.Millisecond)
	}
}

func (s *script) then(fn func()) {
	s.do(func() error {
		fn()
		return nil
	})
}
