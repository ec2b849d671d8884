package drivetrain

import (
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/motioncore/internal/control"
)

var (
	ErrInvalidGeometry = errors.New("drivetrain: geometry constants must be positive")
	ErrSettleTimeout   = errors.New("drivetrain: timed out waiting to settle")
)

// Config holds the geometry and tuning of a two-sided drive. Distances are
// inches; thresholds are sensor degrees.
type Config struct {
	TrackWidth     float64 `yaml:"track_width"`
	TrackingRadius float64 `yaml:"tracking_radius"`
	// GearRatio is sensor gear teeth over wheel gear teeth.
	GearRatio float64 `yaml:"gear_ratio"`

	Straight control.Gains `yaml:"straight"`
	Turn     control.Gains `yaml:"turn"`

	SettleThreshold float64 `yaml:"settle_threshold"`
	// StallCycles is how many consecutive unchanged errors declare a stall.
	StallCycles int `yaml:"stall_cycles"`
	// StallTolerance is the largest change still counted as unchanged.
	// Zero compares errors exactly.
	StallTolerance float64 `yaml:"stall_tolerance"`

	Period          time.Duration `yaml:"period"`
	SettleTimeout   time.Duration `yaml:"settle_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PreSettleDelay  time.Duration `yaml:"pre_settle_delay"`
	PostSettleDelay time.Duration `yaml:"post_settle_delay"`

	PolyExponent float64 `yaml:"poly_exponent"`
}

// DefaultConfig is the spin-up drive tuned against the simulated motors.
// The integral term is per loop cycle, so at a 2 ms period kI acts 500
// times per second and must stay tiny to keep the position loop stable.
func DefaultConfig() Config {
	return Config{
		TrackWidth:      14.5,
		TrackingRadius:  1.625,
		GearRatio:       1,
		Straight:        control.Gains{KP: 45, KI: 0.0002},
		Turn:            control.Gains{KP: 40, KI: 0.0002},
		SettleThreshold: 5,
		StallCycles:     50,
		Period:          2 * time.Millisecond,
		SettleTimeout:   5 * time.Second,
		PollInterval:    10 * time.Millisecond,
		PreSettleDelay:  50 * time.Millisecond,
		PostSettleDelay: 50 * time.Millisecond,
		PolyExponent:    1.3,
	}
}

func (c Config) Validate() error {
	if c.TrackWidth <= 0 || c.TrackingRadius <= 0 || c.GearRatio <= 0 {
		return fmt.Errorf("%w: track width %g, tracking radius %g, gear ratio %g",
			ErrInvalidGeometry, c.TrackWidth, c.TrackingRadius, c.GearRatio)
	}
	if c.SettleThreshold < 0 || c.StallCycles < 0 || c.StallTolerance < 0 {
		return errors.New("drivetrain: settle threshold, stall cycles and stall tolerance must not be negative")
	}
	return nil
}
