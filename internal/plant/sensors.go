package plant

import (
	"math"
	"sync"

	"github.com/san-kum/motioncore/internal/device"
)

// Encoder is a quadrature encoder riding on a simulated motor's shaft.
// One tick is one degree of the encoder shaft.
type Encoder struct {
	mu       sync.Mutex
	motor    *Motor
	ratio    float64
	reversed bool
	zero     float64
}

func (e *Encoder) raw() float64 {
	if e.motor == nil {
		return 0
	}
	v := e.motor.shaftDegrees() * e.ratio
	if e.reversed {
		v = -v
	}
	return v
}

func (e *Encoder) Get() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(math.Round(e.raw() - e.zero))
}

func (e *Encoder) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.zero = e.raw()
}

type DigitalOut struct {
	mu  sync.Mutex
	on  bool
	set int
}

func (d *DigitalOut) Set(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.on = on
	d.set++
}

func (d *DigitalOut) Value() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

// Writes counts Set calls, including ones that did not change the level.
func (d *DigitalOut) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.set
}

// Gamepad is a scriptable operator controller.
type Gamepad struct {
	mu      sync.Mutex
	axes    map[device.Axis]int
	down    map[device.Button]bool
	pending map[device.Button]bool
}

func NewGamepad() *Gamepad {
	return &Gamepad{
		axes:    make(map[device.Axis]int),
		down:    make(map[device.Button]bool),
		pending: make(map[device.Button]bool),
	}
}

func (g *Gamepad) SetAnalog(a device.Axis, v int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.axes[a] = device.ClampPower(v)
}

func (g *Gamepad) Press(b device.Button) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.down[b] {
		g.pending[b] = true
	}
	g.down[b] = true
}

func (g *Gamepad) Release(b device.Button) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.down[b] = false
	g.pending[b] = false
}

func (g *Gamepad) Analog(a device.Axis) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.axes[a]
}

func (g *Gamepad) Digital(b device.Button) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.down[b]
}

func (g *Gamepad) DigitalNewPress(b device.Button) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending[b] {
		g.pending[b] = false
		return true
	}
	return false
}
