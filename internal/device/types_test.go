package device

import (
	"errors"
	"testing"
)

func TestParseGearset(t *testing.T) {
	tests := []struct {
		in   string
		want Gearset
	}{
		{"red", GearsetRed},
		{"Green", GearsetGreen},
		{"600", GearsetBlue},
		{"", GearsetGreen},
	}
	for _, tt := range tests {
		got, err := ParseGearset(tt.in)
		if err != nil {
			t.Fatalf("ParseGearset(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseGearset(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseGearset("purple"); !errors.Is(err, ErrUnknownGearset) {
		t.Errorf("expected ErrUnknownGearset, got %v", err)
	}
}

func TestEncoderUnitsRoundTrip(t *testing.T) {
	for _, u := range []EncoderUnits{UnitsDegrees, UnitsRotations, UnitsCounts} {
		for _, g := range []Gearset{GearsetRed, GearsetGreen, GearsetBlue} {
			got := u.ToDegrees(u.FromDegrees(270, g), g)
			if got < 269.999 || got > 270.001 {
				t.Errorf("%v/%v: round trip gave %f", u, g, got)
			}
		}
	}
	if v := UnitsCounts.FromDegrees(360, GearsetGreen); v != 900 {
		t.Errorf("green counts per rev = %f, want 900", v)
	}
}

func TestFaultString(t *testing.T) {
	if s := Fault(0).String(); s != "none" {
		t.Errorf("empty fault = %q", s)
	}
	f := FaultOverTemp | FaultOverCurrent
	if s := f.String(); s != "over_temp|over_current" {
		t.Errorf("fault string = %q", s)
	}
	if !f.Has(FaultOverCurrent) || f.Has(FaultDriverFault) {
		t.Error("Has reported wrong flags")
	}
}

func TestClamp(t *testing.T) {
	if ClampPower(200) != 127 || ClampPower(-200) != -127 || ClampPower(50) != 50 {
		t.Error("ClampPower out of envelope")
	}
	if ClampVoltage(-20000) != -12000 {
		t.Error("ClampVoltage out of envelope")
	}
}
