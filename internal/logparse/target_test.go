package logparse

import (
	"strings"
	"testing"
)

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Target
		wantErr bool
	}{
		{"ice40", ICE40, false},
		{"ICE40", ICE40, false},
		{"  ecp5 ", ECP5, false},
		{"xilinx", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTarget(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTarget(%q) returned nil error", tt.input)
				}
				if !strings.Contains(err.Error(), "ice40, ecp5") {
					t.Fatalf("error %q should list valid targets", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTarget(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseTarget(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTargetProfilesAreComplete(t *testing.T) {
	t.Parallel()

	for _, target := range Targets {
		p := target.Profile()
		if p.Flops == nil || p.LUTs == nil || p.Freq == nil {
			t.Errorf("%s profile is missing a pattern", target)
		}
		for _, re := range []interface{ NumSubexp() int }{p.Flops, p.LUTs, p.Freq} {
			if re.NumSubexp() != 1 {
				t.Errorf("%s pattern has %d capture groups, want 1", target, re.NumSubexp())
			}
		}
	}
}

func TestTargetString(t *testing.T) {
	t.Parallel()

	if ICE40.String() != "ice40" || ECP5.String() != "ecp5" {
		t.Fatalf("unexpected names %q %q", ICE40, ECP5)
	}
	if got := Target(9).String(); got != "Target(9)" {
		t.Fatalf("Target(9).String() = %q", got)
	}
}
