// Package timeline turns a history into plottable points and answers
// "which commit is under the pointer" for the renderers.
package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/tinytelemetry/logluts/internal/model"
)

// InitialText is shown before the pointer has visited the plot.
const InitialText = "hover over points to see commit info"

// Prepare resolves the commit of every record. The first id that cannot be
// resolved aborts preparation with the resolver's error.
func Prepare(ctx context.Context, records []model.Record, resolver model.CommitResolver) ([]model.Point, error) {
	cache := make(map[string]model.CommitInfo, len(records))
	points := make([]model.Point, 0, len(records))
	for _, rec := range records {
		info, ok := cache[rec.Commit]
		if !ok {
			var err error
			info, err = resolver.Lookup(ctx, rec.Commit)
			if err != nil {
				return nil, fmt.Errorf("timeline: commit %s: %w", rec.Commit, err)
			}
			cache[rec.Commit] = info
		}
		points = append(points, model.Point{Record: rec, Info: info})
	}
	return points, nil
}

// Dates returns the commit date of every point, in order.
func Dates(points []model.Point) []time.Time {
	dates := make([]time.Time, len(points))
	for i, p := range points {
		dates[i] = p.Info.Date
	}
	return dates
}

// IndexAt returns the first index whose date is strictly after x, or the
// last index when there is none. It returns -1 for an empty slice.
func IndexAt(dates []time.Time, x time.Time) int {
	if len(dates) == 0 {
		return -1
	}
	for i, d := range dates {
		if d.After(x) {
			return i
		}
	}
	return len(dates) - 1
}

// Annotate renders the two-line description of p.
func Annotate(p model.Point) string {
	return fmt.Sprintf("%s: %s\nflops %d  LUTs %d  freq %.2f MHz",
		p.Commit, p.Info.Message, p.Flops, p.LUTs, p.FreqMHz)
}
