package plant

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/integrators"
)

var (
	_ device.Backend        = (*World)(nil)
	_ device.Motor          = (*Motor)(nil)
	_ device.RotationSensor = (*Encoder)(nil)
	_ device.Gamepad        = (*Gamepad)(nil)
	_ device.DigitalOut     = (*DigitalOut)(nil)
)

// Link ties an encoder's pins to the motor whose shaft it follows.
type Link struct {
	Port  int
	Ratio float64
}

type Option func(*World)

func WithMotorParams(p MotorParams) Option {
	return func(w *World) { w.params = p }
}

func WithIntegrator(name string) Option {
	return func(w *World) { w.integrator = name }
}

// World owns every simulated device and advances them together.
type World struct {
	mu         sync.Mutex
	params     MotorParams
	integrator string
	motors     map[int]*Motor
	links      map[byte]Link
	outs       map[byte]*DigitalOut
	pads       map[int]*Gamepad
	elapsed    time.Duration
	closed     bool
}

func NewWorld(opts ...Option) *World {
	w := &World{
		params: DefaultMotorParams(),
		motors: make(map[int]*Motor),
		links:  make(map[byte]Link),
		outs:   make(map[byte]*DigitalOut),
		pads:   make(map[int]*Gamepad),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// LinkEncoder makes the encoder on pin top follow the motor on port.
func (w *World) LinkEncoder(top byte, port int, ratio float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.links[top] = Link{Port: port, Ratio: ratio}
}

func (w *World) motor(port int) (*Motor, error) {
	if w.closed {
		return nil, device.ErrBackendClosed
	}
	if !device.ValidPort(port) {
		return nil, fmt.Errorf("%w: %d", device.ErrInvalidPort, port)
	}
	if m, ok := w.motors[port]; ok {
		return m, nil
	}
	integ, err := integrators.New(w.integrator)
	if err != nil {
		return nil, err
	}
	m := newMotor(port, w.params, integ)
	w.motors[port] = m
	return m, nil
}

func (w *World) Motor(port int) (device.Motor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, err := w.motor(port)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SimMotor returns the concrete simulated motor for fault injection.
func (w *World) SimMotor(port int) (*Motor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.motor(port)
}

func (w *World) RotationSensor(top, bottom byte, reversed bool) (device.RotationSensor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, device.ErrBackendClosed
	}
	enc := &Encoder{reversed: reversed, ratio: 1}
	if link, ok := w.links[top]; ok {
		m, err := w.motor(link.Port)
		if err != nil {
			return nil, err
		}
		enc.motor = m
		if link.Ratio != 0 {
			enc.ratio = link.Ratio
		}
	}
	enc.Reset()
	return enc, nil
}

func (w *World) DigitalOut(pin byte) (device.DigitalOut, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, device.ErrBackendClosed
	}
	if d, ok := w.outs[pin]; ok {
		return d, nil
	}
	d := &DigitalOut{}
	w.outs[pin] = d
	return d, nil
}

func (w *World) Gamepad(id int) (device.Gamepad, error) {
	return w.SimGamepad(id), nil
}

// SimGamepad returns the scriptable pad with the given id.
func (w *World) SimGamepad(id int) *Gamepad {
	w.mu.Lock()
	defer w.mu.Unlock()
	if g, ok := w.pads[id]; ok {
		return g
	}
	g := NewGamepad()
	w.pads[id] = g
	return g
}

func (w *World) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// Ports lists the ports with a simulated motor attached.
func (w *World) Ports() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	ports := make([]int, 0, len(w.motors))
	for p := range w.motors {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

// Advance integrates every motor forward by d in 1 ms substeps.
func (w *World) Advance(d time.Duration) {
	w.mu.Lock()
	motors := make([]*Motor, 0, len(w.motors))
	for _, m := range w.motors {
		motors = append(motors, m)
	}
	w.elapsed += d
	w.mu.Unlock()

	const sub = time.Millisecond
	for left := d; left > 0; left -= sub {
		step := sub
		if left < sub {
			step = left
		}
		for _, m := range motors {
			m.advance(step.Seconds())
		}
	}
}

func (w *World) Elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.elapsed
}

// Run advances the world in real time until ctx is done.
func (w *World) Run(ctx context.Context, dt time.Duration) error {
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			w.Advance(now.Sub(last))
			last = now
		}
	}
}
