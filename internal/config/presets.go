package config

import (
	"sort"

	"github.com/san-kum/motioncore/internal/control"
	"github.com/san-kum/motioncore/internal/flywheel"
)

// Presets are named robot configurations built on top of the defaults.
var Presets = map[string]func() *Config{
	"spinup-2023": DefaultConfig,
	"spinup-tbh": func() *Config {
		c := DefaultConfig()
		c.Name = "spinup-tbh"
		c.Flywheel.Control.Law = flywheel.LawTBH
		return c
	},
	"spinup-feedforward": func() *Config {
		c := DefaultConfig()
		c.Name = "spinup-feedforward"
		c.Flywheel.Control.Law = flywheel.LawFeedforward
		return c
	},
	"motor-encoders": func() *Config {
		c := DefaultConfig()
		c.Name = "motor-encoders"
		c.Drive.Encoders = nil
		return c
	},
	"full-field": func() *Config {
		c := DefaultConfig()
		c.Name = "full-field"
		c.Roller = Roller{Motors: Motors{Ports: []int{8}, Reversed: []bool{false}}, GearRatio: 3}
		c.Conveyor = Motors{Ports: []int{9}, Reversed: []bool{false}}
		c.Drive.Control.Straight = control.Gains{KP: 60, KI: 0.0001}
		return c
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
