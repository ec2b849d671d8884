package device

import (
	"fmt"
	"strings"
)

// Command envelopes accepted by every motor.
const (
	MaxPower   = 127
	MaxVoltage = 12000
)

// Smart ports are numbered 1 through MaxPort.
const MaxPort = 21

// ValidPort reports whether p names a smart port.
func ValidPort(p int) bool { return p >= 1 && p <= MaxPort }

// ValidPin reports whether p names a three-wire port, 'a' through 'h'.
func ValidPin(p byte) bool { return p >= 'a' && p <= 'h' }

type Gearset int

const (
	GearsetRed   Gearset = iota // 36:1, 100 rpm
	GearsetGreen                // 18:1, 200 rpm
	GearsetBlue                 // 6:1, 600 rpm
)

// MaxRPM is the free speed of the output shaft.
func (g Gearset) MaxRPM() float64 {
	switch g {
	case GearsetRed:
		return 100
	case GearsetBlue:
		return 600
	default:
		return 200
	}
}

func (g Gearset) String() string {
	switch g {
	case GearsetRed:
		return "red"
	case GearsetGreen:
		return "green"
	case GearsetBlue:
		return "blue"
	}
	return fmt.Sprintf("gearset(%d)", int(g))
}

// ParseGearset accepts a color name or the free speed in rpm.
func ParseGearset(s string) (Gearset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red", "100", "36":
		return GearsetRed, nil
	case "green", "200", "18", "":
		return GearsetGreen, nil
	case "blue", "600", "6":
		return GearsetBlue, nil
	}
	return GearsetGreen, fmt.Errorf("%w: %q", ErrUnknownGearset, s)
}

type EncoderUnits int

const (
	UnitsDegrees EncoderUnits = iota
	UnitsRotations
	UnitsCounts
)

// countsPerRev is the raw encoder resolution on the motor side of each cartridge.
func (g Gearset) countsPerRev() float64 {
	switch g {
	case GearsetRed:
		return 1800
	case GearsetBlue:
		return 300
	default:
		return 900
	}
}

// FromDegrees converts output-shaft degrees into u.
func (u EncoderUnits) FromDegrees(deg float64, g Gearset) float64 {
	switch u {
	case UnitsRotations:
		return deg / 360
	case UnitsCounts:
		return deg / 360 * g.countsPerRev()
	}
	return deg
}

// ToDegrees converts a value in u into output-shaft degrees.
func (u EncoderUnits) ToDegrees(v float64, g Gearset) float64 {
	switch u {
	case UnitsRotations:
		return v * 360
	case UnitsCounts:
		return v / g.countsPerRev() * 360
	}
	return v
}

func (u EncoderUnits) String() string {
	switch u {
	case UnitsDegrees:
		return "degrees"
	case UnitsRotations:
		return "rotations"
	case UnitsCounts:
		return "counts"
	}
	return fmt.Sprintf("units(%d)", int(u))
}

type BrakeMode int

const (
	BrakeCoast BrakeMode = iota
	BrakeBrake
	BrakeHold
)

func (b BrakeMode) String() string {
	switch b {
	case BrakeCoast:
		return "coast"
	case BrakeBrake:
		return "brake"
	case BrakeHold:
		return "hold"
	}
	return fmt.Sprintf("brake(%d)", int(b))
}

func ParseBrakeMode(s string) (BrakeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coast", "":
		return BrakeCoast, nil
	case "brake":
		return BrakeBrake, nil
	case "hold":
		return BrakeHold, nil
	}
	return BrakeCoast, fmt.Errorf("%w: %q", ErrUnknownBrake, s)
}

// Fault is a bitmask of conditions latched by the motor firmware.
type Fault uint32

const (
	FaultOverTemp Fault = 1 << iota
	FaultDriverFault
	FaultOverCurrent
	FaultDriverOverCurrent
)

func (f Fault) Has(flag Fault) bool { return f&flag != 0 }

func (f Fault) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, n := range []struct {
		flag Fault
		name string
	}{
		{FaultOverTemp, "over_temp"},
		{FaultDriverFault, "driver_fault"},
		{FaultOverCurrent, "over_current"},
		{FaultDriverOverCurrent, "driver_over_current"},
	} {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ClampPower limits a percent-style command to ±MaxPower.
func ClampPower(p int) int {
	return clampInt(p, MaxPower)
}

// ClampVoltage limits a millivolt command to ±MaxVoltage.
func ClampVoltage(mv int) int {
	return clampInt(mv, MaxVoltage)
}

func clampInt(v, limit int) int {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
