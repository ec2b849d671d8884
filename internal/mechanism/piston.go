package mechanism

import (
	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/device"
)

// Piston is a single-acting pneumatic cylinder on a digital output.
type Piston struct {
	name string
	out  device.DigitalOut
}

func NewPiston(name string, out device.DigitalOut) *Piston {
	return &Piston{name: name, out: out}
}

func (p *Piston) Extend() {
	p.out.Set(true)
	log.WithField("piston", p.name).Info("extended")
}

func (p *Piston) Retract() { p.out.Set(false) }

func (p *Piston) Toggle() {
	if p.Extended() {
		p.Retract()
		return
	}
	p.Extend()
}

func (p *Piston) Extended() bool { return p.out.Value() }

// Driver extends the piston on a new press of fire. It never retracts.
func (p *Piston) Driver(pad device.Gamepad, fire device.Button) {
	if pad.DigitalNewPress(fire) {
		p.Extend()
	}
}
