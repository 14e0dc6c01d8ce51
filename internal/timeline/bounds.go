package timeline

import (
	"math"
	"time"

	"github.com/tinytelemetry/logluts/internal/model"
)

// Range is the extent of a set of points along both chart axes.
type Range struct {
	Start, End         time.Time
	CountMin, CountMax float64
	FreqMin, FreqMax   float64
}

// Bounds computes the chart ranges for points. Flat ranges are widened so
// the charts never collapse to a line.
func Bounds(points []model.Point) Range {
	if len(points) == 0 {
		now := time.Now()
		return Range{Start: now.Add(-time.Hour), End: now, CountMax: 1, FreqMax: 1}
	}

	r := Range{
		Start:    points[0].Info.Date,
		End:      points[0].Info.Date,
		CountMin: math.Inf(1),
		CountMax: math.Inf(-1),
		FreqMin:  math.Inf(1),
		FreqMax:  math.Inf(-1),
	}
	for _, p := range points {
		if p.Info.Date.Before(r.Start) {
			r.Start = p.Info.Date
		}
		if p.Info.Date.After(r.End) {
			r.End = p.Info.Date
		}
		for _, v := range []float64{float64(p.Flops), float64(p.LUTs)} {
			r.CountMin = math.Min(r.CountMin, v)
			r.CountMax = math.Max(r.CountMax, v)
		}
		r.FreqMin = math.Min(r.FreqMin, p.FreqMHz)
		r.FreqMax = math.Max(r.FreqMax, p.FreqMHz)
	}

	if !r.End.After(r.Start) {
		r.Start = r.Start.Add(-12 * time.Hour)
		r.End = r.End.Add(12 * time.Hour)
	}
	r.CountMin, r.CountMax = pad(r.CountMin, r.CountMax)
	r.FreqMin, r.FreqMax = pad(r.FreqMin, r.FreqMax)
	return r
}

// pad adds 5% headroom on both sides, never below zero.
func pad(lo, hi float64) (float64, float64) {
	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(hi), 1)
	}
	margin := span * 0.05
	if lo == hi {
		margin = span / 2
	}
	return math.Max(0, lo-margin), hi + margin
}
