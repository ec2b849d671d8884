package integrators

// RK4 reuses its stage buffers between steps and is not safe for
// concurrent use.
type RK4 struct {
	k1, k2, k3, k4 State
	scratch        State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) grow(n int) {
	if len(r.k1) == n {
		return
	}
	r.k1 = make(State, n)
	r.k2 = make(State, n)
	r.k3 = make(State, n)
	r.k4 = make(State, n)
	r.scratch = make(State, n)
}

func (r *RK4) stage(f Derivative, x, k State, h, t float64, out State) {
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
	copy(out, f(r.scratch, t))
}

func (r *RK4) Step(f Derivative, x State, t, dt float64) State {
	r.grow(len(x))

	copy(r.k1, f(x, t))
	r.stage(f, x, r.k1, dt/2, t+dt/2, r.k2)
	r.stage(f, x, r.k2, dt/2, t+dt/2, r.k3)
	r.stage(f, x, r.k3, dt, t+dt, r.k4)

	next := make(State, len(x))
	for i := range x {
		next[i] = x[i] + dt/6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return next
}
