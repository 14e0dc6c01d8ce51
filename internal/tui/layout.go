package tui

import (
	"math"
	"time"
)

// plotArea is the screen region of one chart's graph, in terminal cells,
// and the time range it spans horizontally.
type plotArea struct {
	left, width int // first graph column and number of graph columns
	top, height int // first screen row and number of rows
	start, end  time.Time
}

func (a plotArea) contains(x, y int) bool {
	return x >= a.left && x < a.left+a.width &&
		y >= a.top && y < a.top+a.height
}

// timeAt maps a graph column to a time. Columns outside the graph clamp to
// the range ends.
func (a plotArea) timeAt(x int) time.Time {
	if a.width <= 1 {
		return a.start
	}
	frac := float64(x-a.left) / float64(a.width-1)
	frac = math.Max(0, math.Min(1, frac))
	span := a.end.Sub(a.start)
	return a.start.Add(time.Duration(frac * float64(span)))
}

// columnOf maps a time to a graph column, the inverse of timeAt.
func (a plotArea) columnOf(t time.Time) int {
	span := a.end.Sub(a.start)
	if span <= 0 || a.width <= 1 {
		return a.left
	}
	frac := float64(t.Sub(a.start)) / float64(span)
	frac = math.Max(0, math.Min(1, frac))
	return a.left + int(math.Round(frac*float64(a.width-1)))
}

// splitHeights divides the rows left for charts between the counts chart and
// the frequency chart, roughly 3:2.
func splitHeights(total int) (counts, freq int) {
	const minChart = 4
	if total < 2*minChart {
		return minChart, minChart
	}
	counts = total * 3 / 5
	freq = total - counts
	if freq < minChart {
		freq = minChart
		counts = total - freq
	}
	return counts, freq
}
