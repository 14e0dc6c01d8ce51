package logparse

import (
	"fmt"
	"regexp"
	"strings"
)

// Target is an FPGA device family. The set is closed: each value carries
// the fixed patterns for its toolchain output.
type Target int

const (
	ICE40 Target = iota
	ECP5
)

// Targets lists every supported family in flag order.
var Targets = []Target{ICE40, ECP5}

// frequencyRegex matches the max frequency report printed by nextpnr for
// every family.
var frequencyRegex = regexp.MustCompile(`Info: Max frequency.*?(\d+.\d+) MHz`)

// Profile holds the patterns used to scrape one family's logs. Each pattern
// has exactly one capture group.
type Profile struct {
	Flops      *regexp.Regexp
	LUTs       *regexp.Regexp
	Freq       *regexp.Regexp
	LogicCells *regexp.Regexp // nil when the family has no logic-cell report
}

var profiles = map[Target]Profile{
	ICE40: {
		Flops:      regexp.MustCompile(`SB_DFF[ESR]*[ ]+(\d+)`),
		LUTs:       regexp.MustCompile(`SB_LUT4[ ]+(\d+)`),
		Freq:       frequencyRegex,
		LogicCells: regexp.MustCompile(`ICESTORM_LC:[ ]+(\d+)`),
	},
	ECP5: {
		Flops: regexp.MustCompile(`TRELLIS_FF[ ]+(\d+)`),
		LUTs:  regexp.MustCompile(`LUT4[ ]+(\d+)`),
		Freq:  frequencyRegex,
	},
}

// String returns the flag name of the family.
func (t Target) String() string {
	switch t {
	case ICE40:
		return "ice40"
	case ECP5:
		return "ecp5"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// Profile returns the patterns for t.
func (t Target) Profile() Profile {
	return profiles[t]
}

// ParseTarget converts a flag value such as "ice40" into a Target.
func ParseTarget(name string) (Target, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, t := range Targets {
		if t.String() == normalized {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown target %q (choose from %s)", name, targetNames())
}

func targetNames() string {
	names := make([]string, len(Targets))
	for i, t := range Targets {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
