package flywheel

import (
	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/task"
)

// Driver maps two gamepad buttons onto the wheel. A new press of power
// toggles the loop between running and paused; a new press of reverse
// flips between the fast forward target and the reverse target.
func (f *Flywheel) Driver(pad device.Gamepad, power, reverse device.Button) {
	if pad.DigitalNewPress(power) {
		if f.TaskState() == task.Running {
			f.PauseTask()
			f.log.Debug("driver paused flywheel")
		} else {
			f.ResumeTask()
			f.log.Debug("driver resumed flywheel")
		}
	}
	if pad.DigitalNewPress(reverse) {
		rev := !f.reversed.Load()
		f.reversed.Store(rev)
		if rev {
			f.SetTargetVelocity(-float64(f.cfg.ReverseSpeed))
		} else {
			f.SetTargetVelocity(float64(f.cfg.FastSpeed))
		}
	}
}

// Reversed reports whether the driver last selected the reverse target.
func (f *Flywheel) Reversed() bool { return f.reversed.Load() }
