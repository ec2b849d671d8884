// Package control provides the feedback laws used by the motion
// controllers.
//
//   - [PID]: the stateless recurrence shared by every loop; callers own the
//     integral and previous-error storage
//   - [VelocityLaw]: continuous velocity control for spinning mechanisms,
//     implemented by [PIDLaw], [FeedforwardLaw] and [TBHLaw]
//   - [Saturate]: sign-preserving clamp to an actuator envelope
//
// # Usage
//
//	var integral, prev float64
//	u := control.PID(control.Gains{KP: 5, KI: 1}, target-measured, &integral, &prev)
//	motor.MoveVoltage(int(control.Saturate(u, 12000)))
//
// Laws implementing [Configurable] support live tuning.
package control
