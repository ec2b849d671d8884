package flywheel

import (
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/motioncore/internal/control"
)

var (
	ErrUnknownLaw = errors.New("flywheel: unknown control law")
	ErrNotTunable = errors.New("flywheel: control law has no tunable parameters")
)

const (
	LawPID         = "pid"
	LawFeedforward = "feedforward"
	LawTBH         = "tbh"
)

type FeedforwardGains struct {
	KS float64 `yaml:"ks" json:"ks"`
	KV float64 `yaml:"kv" json:"kv"`
	KP float64 `yaml:"kp" json:"kp"`
	KD float64 `yaml:"kd" json:"kd"`
}

type TBHGains struct {
	Gain  float64 `yaml:"gain" json:"gain"`
	Limit float64 `yaml:"limit" json:"limit"`
}

// Config selects the velocity law and holds the constants for every law,
// so switching laws at runtime does not lose tuning.
type Config struct {
	Law          string           `yaml:"law"`
	PID          control.Gains    `yaml:"pid"`
	Feedforward  FeedforwardGains `yaml:"feedforward"`
	TBH          TBHGains         `yaml:"tbh"`
	FastSpeed    int              `yaml:"fast_speed"`
	SlowSpeed    int              `yaml:"slow_speed"`
	ReverseSpeed int              `yaml:"reverse_speed"`
	Period       time.Duration    `yaml:"period"`
}

func DefaultConfig() Config {
	return Config{
		Law:          LawPID,
		PID:          control.Gains{KP: 20, KI: 5, KD: 0.1},
		Feedforward:  FeedforwardGains{KV: 20, KP: 10},
		TBH:          TBHGains{Gain: 1, Limit: 12000},
		FastSpeed:    600,
		SlowSpeed:    400,
		ReverseSpeed: 400,
		Period:       2 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	if _, err := c.NewLaw(); err != nil {
		return err
	}
	if c.FastSpeed < 0 || c.SlowSpeed < 0 || c.ReverseSpeed < 0 {
		return fmt.Errorf("flywheel: preset speeds must not be negative (fast %d, slow %d, reverse %d)",
			c.FastSpeed, c.SlowSpeed, c.ReverseSpeed)
	}
	return nil
}

// NewLaw builds a fresh law of the configured kind.
func (c Config) NewLaw() (control.VelocityLaw, error) {
	return c.LawByName(c.Law)
}

func (c Config) LawByName(name string) (control.VelocityLaw, error) {
	switch name {
	case LawPID, "":
		return control.NewPIDLaw(c.PID), nil
	case LawFeedforward:
		ff := c.Feedforward
		return control.NewFeedforwardLaw(ff.KS, ff.KV, ff.KP, ff.KD, c.period().Seconds()), nil
	case LawTBH:
		return control.NewTBHLaw(c.TBH.Gain, c.TBH.Limit), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLaw, name)
}

func (c Config) period() time.Duration {
	if c.Period <= 0 {
		return 2 * time.Millisecond
	}
	return c.Period
}
