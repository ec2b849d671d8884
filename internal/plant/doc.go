// Package plant simulates the robot hardware behind [device.Backend].
//
// Each [Motor] is a first-order DC motor model whose velocity lags the
// commanded voltage with a fixed time constant. State is advanced by an
// [integrators.Integrator] whenever the owning [World] steps, either
// manually with [World.Advance] for deterministic tests or in real time
// with [World.Run].
//
//	w := plant.NewWorld()
//	m, _ := w.Motor(11)
//	m.MoveVoltage(6000)
//	w.Advance(100 * time.Millisecond)
package plant
