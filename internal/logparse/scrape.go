package logparse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/tinytelemetry/logluts/internal/model"
)

// ErrMissingInput reports that a log file to scrape does not exist.
var ErrMissingInput = errors.New("logparse: log file not found")

const maxLineSize = 1024 * 1024

// Stats holds the values scraped from one synthesis and place-and-route run.
type Stats struct {
	Flops         int
	LUTs          int
	FreqMHz       float64
	LogicCells    int
	HasLogicCells bool
}

// Record stamps the stats with a commit id.
func (s Stats) Record(commit string) model.Record {
	return model.Record{
		Commit:  commit,
		Flops:   s.Flops,
		LUTs:    s.LUTs,
		FreqMHz: s.FreqMHz,
	}
}

// ScrapeFiles checks that both logs exist and then scrapes them. Nothing is
// read when either file is missing.
func ScrapeFiles(synthPath, pnrPath string, target Target) (Stats, error) {
	if err := checkExists("yosys", synthPath); err != nil {
		return Stats{}, err
	}
	if err := checkExists("nextpnr", pnrPath); err != nil {
		return Stats{}, err
	}

	synth, err := os.Open(synthPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open yosys log: %w", err)
	}
	defer synth.Close()

	pnr, err := os.Open(pnrPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open nextpnr log: %w", err)
	}
	defer pnr.Close()

	return Scrape(synth, pnr, target)
}

// Scrape reads a yosys log and a nextpnr log.
//
// Flop and LUT counts accumulate over every matching synthesis line, since a
// device may report the same primitive once per cell variant. Frequency and
// logic cells take the value of the last matching place-and-route line.
func Scrape(synth, pnr io.Reader, target Target) (Stats, error) {
	profile := target.Profile()
	var stats Stats

	err := scanLines(synth, func(lineNum int, line string) error {
		n, ok, err := captureInt(profile.Flops, line)
		if err != nil {
			return fmt.Errorf("yosys log line %d: %w", lineNum, err)
		}
		if ok {
			stats.Flops += n
		}
		n, ok, err = captureInt(profile.LUTs, line)
		if err != nil {
			return fmt.Errorf("yosys log line %d: %w", lineNum, err)
		}
		if ok {
			stats.LUTs += n
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("read yosys log: %w", err)
	}

	err = scanLines(pnr, func(lineNum int, line string) error {
		if m := profile.Freq.FindStringSubmatch(line); m != nil {
			f, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return fmt.Errorf("nextpnr log line %d: parse frequency %q: %w", lineNum, m[1], err)
			}
			stats.FreqMHz = f
		}
		if profile.LogicCells == nil {
			return nil
		}
		n, ok, err := captureInt(profile.LogicCells, line)
		if err != nil {
			return fmt.Errorf("nextpnr log line %d: %w", lineNum, err)
		}
		if ok {
			stats.LogicCells = n
			stats.HasLogicCells = true
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("read nextpnr log: %w", err)
	}

	return stats, nil
}

func checkExists(kind, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: couldn't find %s log %s", ErrMissingInput, kind, path)
		}
		return fmt.Errorf("stat %s log: %w", kind, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s log %s is a directory", ErrMissingInput, kind, path)
	}
	return nil
}

func scanLines(r io.Reader, fn func(lineNum int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if err := fn(lineNum, scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func captureInt(re *regexp.Regexp, line string) (int, bool, error) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false, fmt.Errorf("parse count %q: %w", m[1], err)
	}
	return n, true, nil
}
