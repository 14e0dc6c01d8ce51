package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/logluts/internal/model"
	"github.com/tinytelemetry/logluts/internal/timeline"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func testPoints() []model.Point {
	return []model.Point{
		{Record: model.Record{Commit: "a1", Flops: 10, LUTs: 20, FreqMHz: 50}, Info: model.CommitInfo{ID: "a1", Date: day(1), Message: "first"}},
		{Record: model.Record{Commit: "b2", Flops: 12, LUTs: 25, FreqMHz: 48.5}, Info: model.CommitInfo{ID: "b2", Date: day(5), Message: "second"}},
		{Record: model.Record{Commit: "c3", Flops: 15, LUTs: 30, FreqMHz: 52.25}, Info: model.CommitInfo{ID: "c3", Date: day(9), Message: "third"}},
	}
}

func sizedModel(t *testing.T, points []model.Point) *PlotModel {
	t.Helper()
	m := NewPlotModel(points)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	if !m.ready {
		t.Fatal("model not ready after WindowSizeMsg")
	}
	return m
}

func motion(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone}
}

func TestPlotAreaMapping(t *testing.T) {
	t.Parallel()

	a := plotArea{left: 10, width: 11, top: 1, height: 5, start: day(1), end: day(11)}

	tests := []struct {
		x    int
		want time.Time
	}{
		{x: 10, want: day(1)},
		{x: 15, want: day(6)},
		{x: 20, want: day(11)},
		{x: 0, want: day(1)},
		{x: 99, want: day(11)},
	}
	near := func(a, b time.Time) bool {
		d := a.Sub(b)
		return d > -time.Second && d < time.Second
	}
	for _, tt := range tests {
		if got := a.timeAt(tt.x); !near(got, tt.want) {
			t.Errorf("timeAt(%d) = %v, want %v", tt.x, got, tt.want)
		}
	}

	for _, d := range []int{1, 4, 6, 11} {
		col := a.columnOf(day(d))
		if got := a.timeAt(col); !near(got, day(d)) {
			t.Errorf("timeAt(columnOf(day %d)) = %v", d, got)
		}
	}
}

func TestPlotAreaContains(t *testing.T) {
	t.Parallel()

	a := plotArea{left: 10, width: 5, top: 2, height: 3}
	tests := []struct {
		x, y int
		want bool
	}{
		{10, 2, true},
		{14, 4, true},
		{9, 2, false},
		{15, 2, false},
		{10, 1, false},
		{10, 5, false},
	}
	for _, tt := range tests {
		if got := a.contains(tt.x, tt.y); got != tt.want {
			t.Errorf("contains(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestSplitHeights(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total, counts, freq int
	}{
		{total: 25, counts: 15, freq: 10},
		{total: 10, counts: 6, freq: 4},
		{total: 3, counts: 4, freq: 4},
	}
	for _, tt := range tests {
		counts, freq := splitHeights(tt.total)
		if counts != tt.counts || freq != tt.freq {
			t.Errorf("splitHeights(%d) = %d, %d, want %d, %d", tt.total, counts, freq, tt.counts, tt.freq)
		}
	}
}

func TestMouseMotionInspectsCommit(t *testing.T) {
	t.Parallel()

	m := sizedModel(t, testPoints())
	area := m.areas[0]

	last := area.left + area.width - 1
	if !m.handleMouse(motion(last, area.top)) {
		t.Fatal("motion over the graph did not change the annotation")
	}
	if m.inspector.Index() != 2 {
		t.Fatalf("index = %d, want 2", m.inspector.Index())
	}
	if !strings.HasPrefix(m.inspector.Text(), "c3: third\n") {
		t.Fatalf("annotation = %q", m.inspector.Text())
	}

	if m.handleMouse(motion(last, area.top+1)) {
		t.Fatal("motion over the same commit reported a change")
	}

	freqArea := m.areas[1]
	if !m.handleMouse(motion(freqArea.columnOf(day(3)), freqArea.top)) {
		t.Fatal("motion over the frequency graph did not change the annotation")
	}
	if m.inspector.Index() != 1 {
		t.Fatalf("index = %d, want 1", m.inspector.Index())
	}
}

func TestMouseMotionOutsideGraphIgnored(t *testing.T) {
	t.Parallel()

	m := sizedModel(t, testPoints())
	if m.handleMouse(motion(m.areas[0].left, 0)) {
		t.Fatal("motion over the title row changed the annotation")
	}
	if m.inspector.Text() != timeline.InitialText {
		t.Fatalf("annotation = %q, want initial text", m.inspector.Text())
	}
}

func TestKeysStepThroughCommits(t *testing.T) {
	t.Parallel()

	m := sizedModel(t, testPoints())
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.inspector.Index() != 0 {
		t.Fatalf("index after right = %d, want 0", m.inspector.Index())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.inspector.Index() != 0 {
		t.Fatalf("index after right, left = %d, want 0", m.inspector.Index())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	if m.inspector.Index() != 2 {
		t.Fatalf("index after end = %d, want 2", m.inspector.Index())
	}
}

func TestQuitKeys(t *testing.T) {
	t.Parallel()

	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		m := sizedModel(t, testPoints())
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("%s: no command returned", msg)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: command did not quit", msg)
		}
	}
}

func TestViewShowsAnnotationAndMarker(t *testing.T) {
	t.Parallel()

	m := sizedModel(t, testPoints())
	m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	view := m.View()
	if !strings.Contains(view, "c3: third") {
		t.Error("view is missing the annotation")
	}
	if !strings.Contains(view, "▲") {
		t.Error("view is missing the inspected commit marker")
	}
	if !strings.Contains(view, "3 commits") {
		t.Error("view is missing the status line")
	}
}

func TestViewEmptyHistory(t *testing.T) {
	t.Parallel()

	m := sizedModel(t, nil)
	if !strings.Contains(m.View(), "no history to plot") {
		t.Fatalf("view = %q", m.View())
	}
}

func TestViewReusedUntilSelectionChanges(t *testing.T) {
	t.Parallel()

	m := sizedModel(t, testPoints())
	first := m.View()
	if m.dirty {
		t.Fatal("frame still dirty after View")
	}

	area := m.areas[0]
	last := area.left + area.width - 1
	m.Update(motion(last, area.top))
	if !m.dirty {
		t.Fatal("selection change did not invalidate the frame")
	}
	second := m.View()
	if second == first {
		t.Fatal("view did not change after selecting a commit")
	}

	m.Update(motion(last, area.top+1))
	if m.dirty {
		t.Fatal("motion over the same commit invalidated the frame")
	}
	if m.View() != second {
		t.Fatal("frame changed without a selection change")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	if m.dirty {
		t.Fatal("selecting the already selected commit invalidated the frame")
	}
}

func TestChartsMarkEveryPoint(t *testing.T) {
	t.Parallel()

	m := sizedModel(t, testPoints())
	counts := strings.Count(m.counts.View(), string(pointRune))
	if counts != 2*len(testPoints()) {
		t.Errorf("counts chart has %d point marks, want %d", counts, 2*len(testPoints()))
	}
	freq := strings.Count(m.freq.View(), string(pointRune))
	if freq != len(testPoints()) {
		t.Errorf("frequency chart has %d point marks, want %d", freq, len(testPoints()))
	}
}
