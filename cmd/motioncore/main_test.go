package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/motioncore/internal/config"
	"github.com/san-kum/motioncore/internal/flywheel"
	"github.com/san-kum/motioncore/internal/tune"
)

func newRobotCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addRobotFlags(cmd)
	return cmd
}

func resetGlobals() {
	preset, configFile = "", ""
	backend, serialPort, law, integrator = "", "", "", ""
}

func TestLoadConfigLayers(t *testing.T) {
	defer resetGlobals()

	path := filepath.Join(t.TempDir(), "robot.yaml")
	file := config.GetPreset("spinup-tbh")
	file.Name = "from-file"
	if err := config.Save(path, file); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		preset   string
		file     string
		flags    map[string]string
		wantName string
		wantLaw  string
	}{
		{"defaults", "", "", nil, "spinup-2023", flywheel.LawPID},
		{"preset", "spinup-feedforward", "", nil, "spinup-feedforward", flywheel.LawFeedforward},
		{"file over preset", "spinup-feedforward", path, nil, "from-file", flywheel.LawTBH},
		{"flag over file", "", path, map[string]string{"law": "pid"}, "from-file", flywheel.LawPID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobals()
			preset, configFile = tt.preset, tt.file
			cmd := newRobotCmd()
			for k, v := range tt.flags {
				if err := cmd.Flags().Set(k, v); err != nil {
					t.Fatal(err)
				}
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if cfg.Name != tt.wantName || cfg.Flywheel.Control.Law != tt.wantLaw {
				t.Errorf("got %s/%s, want %s/%s", cfg.Name, cfg.Flywheel.Control.Law, tt.wantName, tt.wantLaw)
			}
		})
	}
}

func TestLoadConfigRejects(t *testing.T) {
	defer resetGlobals()

	resetGlobals()
	preset = "nope"
	if _, err := loadConfig(newRobotCmd()); err == nil {
		t.Error("expected unknown preset to fail")
	}

	resetGlobals()
	cmd := newRobotCmd()
	if err := cmd.Flags().Set("backend", "feetech"); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(cmd); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid for feetech without a port, got %v", err)
	}

	resetGlobals()
	configFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := loadConfig(newRobotCmd()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a missing file error, got %v", err)
	}
}

func TestIgnoreDone(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		err  error
		want error
	}{
		{nil, nil},
		{context.Canceled, nil},
		{fmt.Errorf("drive: %w", context.DeadlineExceeded), nil},
		{other, other},
	}
	for _, tt := range tests {
		if got := ignoreDone(tt.err); got != tt.want {
			t.Errorf("ignoreDone(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"kP=0.1, 0.2,0.3", "kD=0"})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "kP" || names[1] != "kD" {
		t.Fatalf("unexpected names %v", names)
	}
	if len(ranges[0]) != 3 || ranges[0][1] != 0.2 || len(ranges[1]) != 1 {
		t.Errorf("unexpected ranges %v", ranges)
	}

	for _, bad := range []string{"kP", "=1,2", "kP=1,x"} {
		if _, _, err := parseGrid([]string{bad}); !errors.Is(err, tune.ErrBadGrid) {
			t.Errorf("%q: expected ErrBadGrid, got %v", bad, err)
		}
	}
}
