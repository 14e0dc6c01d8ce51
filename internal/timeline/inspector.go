package timeline

import (
	"time"

	"github.com/tinytelemetry/logluts/internal/model"
)

// Inspector tracks the annotation currently on display.
type Inspector struct {
	points []model.Point
	dates  []time.Time
	index  int
	text   string
}

func NewInspector(points []model.Point) *Inspector {
	return &Inspector{
		points: points,
		dates:  Dates(points),
		index:  -1,
		text:   InitialText,
	}
}

// Move inspects the point nearest x. It reports whether the selection or its
// annotation changed, so callers redraw only then.
func (in *Inspector) Move(x time.Time) bool {
	return in.Select(IndexAt(in.dates, x))
}

// Select inspects the point at index i. Out of range indexes are ignored.
func (in *Inspector) Select(i int) bool {
	if i < 0 || i >= len(in.points) {
		return false
	}
	text := Annotate(in.points[i])
	if i == in.index && text == in.text {
		return false
	}
	in.index = i
	in.text = text
	return true
}

// Step moves the selection by delta points, clamped to the history.
func (in *Inspector) Step(delta int) bool {
	if len(in.points) == 0 {
		return false
	}
	i := in.index + delta
	if in.index < 0 {
		if delta < 0 {
			i = len(in.points) - 1
		} else {
			i = 0
		}
	}
	if i < 0 {
		i = 0
	}
	if i >= len(in.points) {
		i = len(in.points) - 1
	}
	return in.Select(i)
}

// Index returns the inspected point, or -1 before the first move.
func (in *Inspector) Index() int {
	return in.index
}

// Text returns the annotation on display.
func (in *Inspector) Text() string {
	return in.text
}
