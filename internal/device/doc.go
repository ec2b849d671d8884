// Package device defines the hardware contract the motion controllers are
// written against.
//
// A [Backend] hands out per-port devices:
//
//   - [Motor]: smart motor with an integrated encoder and on-board control
//   - [RotationSensor]: two-wire quadrature encoder reporting signed ticks
//   - [DigitalOut]: solenoid or other on/off output
//   - [Gamepad]: operator controller with analog sticks and buttons
//
// Commands are fire-and-forget. Hardware faults never surface as errors;
// they are reported through [Motor.Faults] and the telemetry getters.
package device
