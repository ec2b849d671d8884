package auton

import (
	"context"
	"time"

	"github.com/san-kum/motioncore/internal/robot"
)

// Skills is the programming-skills run: preloads into the low goal,
// the roller, then two volleys of three disks.
func Skills(ctx context.Context, r *robot.Robot) error {
	s := script{ctx: ctx, r: r}

	s.punch(2)
	s.then(r.Flywheel.PauseTask)

	// roller
	s.straight(24)
	s.turn(90)
	s.straight(2)
	s.then(r.Intake.In)
	s.wait(time.Second)
	s.then(r.Intake.Stop)

	// line of three
	s.straight(-2)
	s.turn(135)
	s.then(r.Intake.In)
	s.straight(68)
	s.then(r.Intake.Stop)
	s.then(r.Flywheel.ResumeTask)

	s.turn(93)
	s.punch(3)

	// stack of three
	s.then(r.Intake.In)
	s.turn(-93)
	s.straight(34)
	s.wait(2 * time.Second)
	s.then(r.Intake.Stop)

	s.turn(100)
	s.punch(3)

	return s.err
}
