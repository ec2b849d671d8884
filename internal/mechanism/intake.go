package mechanism

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/motorgroup"
)

type Intake struct {
	motors *motorgroup.Group
	log    *log.Entry
}

func NewIntake(motors *motorgroup.Group) *Intake {
	motors.SetEncoderUnits(device.UnitsDegrees)
	return &Intake{motors: motors, log: log.WithField("subsystem", "intake")}
}

func (i *Intake) Motors() *motorgroup.Group { return i.motors }

func (i *Intake) In()   { i.motors.Move(device.MaxPower) }
func (i *Intake) Out()  { i.motors.Move(-device.MaxPower) }
func (i *Intake) Stop() { i.motors.MoveVelocity(0) }

func (i *Intake) Driver(pad device.Gamepad, in, out device.Button) {
	twoWay(pad, in, out, i.In, i.Out, i.Stop)
}

// TurnDegrees rotates the intake by deg and blocks until the averaged
// position has travelled that far.
func (i *Intake) TurnDegrees(ctx context.Context, deg float64) error {
	i.motors.ResetPositions()
	i.motors.MoveRelative(deg, ProfileVelocity)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for math.Abs(i.motors.AvgPosition()) < math.Abs(deg) {
		select {
		case <-ctx.Done():
			i.log.WithField("position", i.motors.AvgPosition()).Warn("turn abandoned")
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
