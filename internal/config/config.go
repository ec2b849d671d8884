// Package config describes a whole robot: which ports drive which
// subsystem, the controller constants, and how to reach the hardware.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/drivetrain"
	"github.com/san-kum/motioncore/internal/flywheel"
	"github.com/san-kum/motioncore/internal/mechanism"
)

var ErrInvalid = errors.New("config: invalid")

const (
	BackendSim     = "sim"
	BackendFeetech = "feetech"
)

// Motors is a port list with one reversal flag per port.
type Motors struct {
	Ports    []int  `yaml:"ports"`
	Reversed []bool `yaml:"reversed"`
}

func (m Motors) Empty() bool { return len(m.Ports) == 0 }

func (m Motors) validate(name string) error {
	if len(m.Reversed) != len(m.Ports) {
		return fmt.Errorf("%w: %s has %d ports and %d reversal flags", ErrInvalid, name, len(m.Ports), len(m.Reversed))
	}
	for _, p := range m.Ports {
		if !device.ValidPort(p) {
			return fmt.Errorf("%w: %s port %d", ErrInvalid, name, p)
		}
	}
	return nil
}

// Encoders places the two tracking-wheel encoders on three-wire pins.
// SimRatio is how many encoder degrees the simulator counts per degree
// of the first drive motor on the same side.
type Encoders struct {
	LeftTop       string  `yaml:"left_top"`
	LeftBottom    string  `yaml:"left_bottom"`
	LeftReversed  bool    `yaml:"left_reversed"`
	RightTop      string  `yaml:"right_top"`
	RightBottom   string  `yaml:"right_bottom"`
	RightReversed bool    `yaml:"right_reversed"`
	SimRatio      float64 `yaml:"sim_ratio"`
}

type Drive struct {
	Left      Motors            `yaml:"left"`
	Right     Motors            `yaml:"right"`
	Gearset   string            `yaml:"gearset"`
	BrakeMode string            `yaml:"brake_mode"`
	Encoders  *Encoders         `yaml:"encoders,omitempty"`
	Control   drivetrain.Config `yaml:"control"`
}

type Flywheel struct {
	Motors  `yaml:",inline"`
	Control flywheel.Config `yaml:"control"`
}

type Indexer struct {
	Motors  `yaml:",inline"`
	Control mechanism.IndexerConfig `yaml:"control"`
}

type Roller struct {
	Motors    `yaml:",inline"`
	GearRatio float64 `yaml:"gear_ratio"`
}

type Serial struct {
	Port    string        `yaml:"port"`
	Baud    int           `yaml:"baud"`
	Timeout time.Duration `yaml:"timeout"`
}

type Telemetry struct {
	MQTTBroker  string        `yaml:"mqtt_broker"`
	TopicPrefix string        `yaml:"topic_prefix"`
	Listen      string        `yaml:"listen"`
	Interval    time.Duration `yaml:"interval"`
}

type Sim struct {
	Integrator string        `yaml:"integrator"`
	Step       time.Duration `yaml:"step"`
}

type Config struct {
	Name      string    `yaml:"name"`
	Backend   string    `yaml:"backend"`
	Serial    Serial    `yaml:"serial"`
	Sim       Sim       `yaml:"sim"`
	Drive     Drive     `yaml:"drive"`
	Flywheel  Flywheel  `yaml:"flywheel"`
	Intake    Motors    `yaml:"intake"`
	Indexer   Indexer   `yaml:"indexer"`
	Roller    Roller    `yaml:"roller"`
	Conveyor  Motors    `yaml:"conveyor"`
	Expansion string    `yaml:"expansion"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// DefaultConfig is the 2023 spin-up robot on the simulator.
func DefaultConfig() *Config {
	return &Config{
		Name:    "spinup-2023",
		Backend: BackendSim,
		Serial:  Serial{Baud: 1_000_000, Timeout: 100 * time.Millisecond},
		Sim:     Sim{Integrator: "rk4", Step: time.Millisecond},
		Drive: Drive{
			Left:      Motors{Ports: []int{11, 12}, Reversed: []bool{true, true}},
			Right:     Motors{Ports: []int{13, 14}, Reversed: []bool{false, false}},
			Gearset:   "green",
			BrakeMode: "brake",
			Encoders: &Encoders{
				LeftTop: "c", LeftBottom: "d",
				RightTop: "g", RightBottom: "h",
				SimRatio: 1,
			},
			Control: drivetrain.DefaultConfig(),
		},
		Flywheel: Flywheel{
			Motors:  Motors{Ports: []int{20}, Reversed: []bool{true}},
			Control: flywheel.DefaultConfig(),
		},
		Intake: Motors{Ports: []int{10}, Reversed: []bool{true}},
		Indexer: Indexer{
			Motors:  Motors{Ports: []int{19}, Reversed: []bool{false}},
			Control: mechanism.DefaultIndexerConfig(),
		},
		Roller:    Roller{GearRatio: 1},
		Expansion: "e",
		Telemetry: Telemetry{
			TopicPrefix: "motioncore",
			Listen:      ":8080",
			Interval:    100 * time.Millisecond,
		},
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSim, BackendFeetech:
	default:
		return fmt.Errorf("%w: backend %q", ErrInvalid, c.Backend)
	}
	if c.Backend == BackendFeetech && c.Serial.Port == "" {
		return fmt.Errorf("%w: feetech backend needs a serial port", ErrInvalid)
	}

	if c.Drive.Left.Empty() || c.Drive.Right.Empty() {
		return fmt.Errorf("%w: drive needs motors on both sides: %w", ErrInvalid, device.ErrNoMotors)
	}
	groups := []struct {
		name string
		m    Motors
	}{
		{"drive.left", c.Drive.Left},
		{"drive.right", c.Drive.Right},
		{"flywheel", c.Flywheel.Motors},
		{"intake", c.Intake},
		{"indexer", c.Indexer.Motors},
		{"roller", c.Roller.Motors},
		{"conveyor", c.Conveyor},
	}
	seen := make(map[int]string)
	for _, g := range groups {
		if err := g.m.validate(g.name); err != nil {
			return err
		}
		for _, p := range g.m.Ports {
			if other, ok := seen[p]; ok {
				return fmt.Errorf("%w: port %d used by %s and %s", ErrInvalid, p, other, g.name)
			}
			seen[p] = g.name
		}
	}

	if _, err := device.ParseGearset(c.Drive.Gearset); err != nil {
		return fmt.Errorf("%w: drive: %w", ErrInvalid, err)
	}
	if _, err := device.ParseBrakeMode(c.Drive.BrakeMode); err != nil {
		return fmt.Errorf("%w: drive: %w", ErrInvalid, err)
	}
	if e := c.Drive.Encoders; e != nil {
		for _, pin := range []string{e.LeftTop, e.LeftBottom, e.RightTop, e.RightBottom} {
			if _, err := Pin(pin); err != nil {
				return err
			}
		}
	}
	if c.Expansion != "" {
		if _, err := Pin(c.Expansion); err != nil {
			return err
		}
	}

	if err := c.Drive.Control.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Flywheel.Control.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Pin converts a three-wire port letter such as "c" to its byte form.
func Pin(s string) (byte, error) {
	if len(s) != 1 || !device.ValidPin(s[0]) {
		return 0, fmt.Errorf("%w: three-wire pin %q", ErrInvalid, s)
	}
	return s[0], nil
}

// Load reads a YAML file over the defaults, so a file only needs the
// fields it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
