// Package integrators advances continuous plant state by a fixed step.
package integrators

import "fmt"

type State []float64

// Derivative returns dx/dt at (x, t). Inputs such as applied voltage are
// captured by the closure.
type Derivative func(x State, t float64) State

type Integrator interface {
	Step(f Derivative, x State, t, dt float64) State
}

func New(name string) (Integrator, error) {
	switch name {
	case "", "rk4":
		return NewRK4(), nil
	case "euler":
		return NewEuler(), nil
	}
	return nil, fmt.Errorf("integrators: unknown integrator %q", name)
}
