// Package tui renders the history as an interactive terminal plot.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/canvas"
	tslc "github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/logluts/internal/model"
	"github.com/tinytelemetry/logluts/internal/timeline"
)

const (
	plotTitle = "flip-flops, LUTs and max frequency vs commits"

	seriesFlops = model.MetricFlops
	seriesLUTs  = model.MetricLUTs
	seriesFreq  = model.MetricFreq

	// rows that are not chart: title, marker row, two annotation lines, status
	chromeRows = 5

	yLabelWidth = 7

	pointRune = '●'
)

// PlotModel is the Bubble Tea model of the history plot.
type PlotModel struct {
	points    []model.Point
	bounds    timeline.Range
	inspector *timeline.Inspector
	keys      KeyMap

	width  int
	height int

	counts tslc.Model
	freq   tslc.Model
	areas  [2]plotArea
	ready  bool

	// frame is the last rendered view, reused until dirty is set.
	frame string
	dirty bool
}

// NewPlotModel creates a plot over points, which must be in history order.
func NewPlotModel(points []model.Point) *PlotModel {
	return &PlotModel{
		points:    points,
		bounds:    timeline.Bounds(points),
		inspector: timeline.NewInspector(points),
		keys:      DefaultKeyMap(),
	}
}

func (m *PlotModel) Init() tea.Cmd {
	return nil
}

func (m *PlotModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.handleMouse(msg) {
			m.dirty = true
		}
		return m, nil
	}
	return m, nil
}

func (m *PlotModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit), key.Matches(msg, m.keys.Escape):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		m.dirty = m.inspector.Step(-1) || m.dirty
	case key.Matches(msg, m.keys.Right):
		m.dirty = m.inspector.Step(1) || m.dirty
	case key.Matches(msg, m.keys.Home):
		m.dirty = m.inspector.Select(0) || m.dirty
	case key.Matches(msg, m.keys.End):
		m.dirty = m.inspector.Select(len(m.points)-1) || m.dirty
	}
	return m, nil
}

// handleMouse inspects the commit under the pointer. It reports whether the
// annotation changed; motion outside the graphs is ignored.
func (m *PlotModel) handleMouse(msg tea.MouseMsg) bool {
	if !m.ready {
		return false
	}
	if msg.Action != tea.MouseActionMotion && msg.Action != tea.MouseActionPress {
		return false
	}
	for _, area := range m.areas {
		if area.contains(msg.X, msg.Y) {
			return m.inspector.Move(area.timeAt(msg.X))
		}
	}
	return false
}

// resize rebuilds both charts for the new terminal size.
func (m *PlotModel) resize(width, height int) {
	m.width, m.height = width, height
	countsHeight, freqHeight := splitHeights(height - chromeRows)

	m.counts = m.newChart(width, countsHeight, m.bounds.CountMin, m.bounds.CountMax, "%*.0f")
	m.counts.SetDataSetStyle(seriesFlops, flopsStyle)
	m.counts.SetDataSetStyle(seriesLUTs, lutsStyle)

	m.freq = m.newChart(width, freqHeight, m.bounds.FreqMin, m.bounds.FreqMax, "%*.1f")
	m.freq.SetDataSetStyle(seriesFreq, freqStyle)

	for _, p := range m.points {
		m.counts.PushDataSet(seriesFlops, tslc.TimePoint{Time: p.Info.Date, Value: float64(p.Flops)})
		m.counts.PushDataSet(seriesLUTs, tslc.TimePoint{Time: p.Info.Date, Value: float64(p.LUTs)})
		m.freq.PushDataSet(seriesFreq, tslc.TimePoint{Time: p.Info.Date, Value: p.FreqMHz})
	}
	m.counts.DrawBrailleAll()
	m.freq.DrawBrailleAll()
	m.markPoints()

	top := 1
	m.areas[0] = m.areaOf(&m.counts, top, countsHeight)
	m.areas[1] = m.areaOf(&m.freq, top+countsHeight, freqHeight)
	m.ready = true
	m.dirty = true
}

// markPoints draws a glyph over every commit on top of the braille lines.
func (m *PlotModel) markPoints() {
	for _, p := range m.points {
		x := float64(p.Info.Date.Unix())
		m.counts.DrawRuneWithStyle(canvas.Float64Point{X: x, Y: float64(p.Flops)}, pointRune, flopsStyle)
		m.counts.DrawRuneWithStyle(canvas.Float64Point{X: x, Y: float64(p.LUTs)}, pointRune, lutsStyle)
		m.freq.DrawRuneWithStyle(canvas.Float64Point{X: x, Y: p.FreqMHz}, pointRune, freqStyle)
	}
}

func (m *PlotModel) newChart(width, height int, lo, hi float64, format string) tslc.Model {
	yLabels := func(_ int, v float64) string {
		return fmt.Sprintf(format, yLabelWidth, v)
	}
	return tslc.New(width, height,
		tslc.WithTimeRange(m.bounds.Start, m.bounds.End),
		tslc.WithYRange(lo, hi),
		tslc.WithXLabelFormatter(dateLabels),
		tslc.WithYLabelFormatter(yLabels),
	)
}

func (m *PlotModel) areaOf(chart *tslc.Model, top, height int) plotArea {
	return plotArea{
		left:   chart.Origin().X + 1,
		width:  chart.GraphWidth(),
		top:    top,
		height: height,
		start:  m.bounds.Start,
		end:    m.bounds.End,
	}
}

func dateLabels(_ int, v float64) string {
	return time.Unix(int64(v), 0).UTC().Format("01/02")
}

// View reuses the previous frame until the selection or size changes.
func (m *PlotModel) View() string {
	if !m.ready {
		return "loading..."
	}
	if !m.dirty && m.frame != "" {
		return m.frame
	}
	m.frame = m.render()
	m.dirty = false
	return m.frame
}

func (m *PlotModel) render() string {
	if len(m.points) == 0 {
		return "no history to plot\n" + m.renderStatusLine()
	}

	sections := []string{
		m.renderTitle(),
		m.counts.View(),
		m.freq.View(),
		m.renderMarkerRow(),
		annotationStyle.Render(m.annotation()),
		m.renderStatusLine(),
	}
	return lipgloss.NewStyle().MaxHeight(m.height).Render(strings.Join(sections, "\n"))
}

func (m *PlotModel) renderTitle() string {
	legend := flopsStyle.Render("flops") + " " + lutsStyle.Render("luts") + " " + freqStyle.Render("freq (MHz)")
	title := titleStyle.Render(" " + plotTitle + " ")
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(legend)
	if gap < 1 {
		return title
	}
	return title + strings.Repeat(" ", gap) + legend
}

// renderMarkerRow draws a tick under every commit and highlights the one
// being inspected.
func (m *PlotModel) renderMarkerRow() string {
	area := m.areas[0]
	width := area.left + area.width
	if width <= 0 {
		return ""
	}
	cells := make([]string, width)
	for i := range cells {
		cells[i] = " "
	}
	for _, p := range m.points {
		if col := area.columnOf(p.Info.Date); col < width {
			cells[col] = tickStyle.Render("·")
		}
	}
	if i := m.inspector.Index(); i >= 0 {
		if col := area.columnOf(m.points[i].Info.Date); col < width {
			cells[col] = markerStyle.Render("▲")
		}
	}
	return strings.Join(cells, "")
}

// annotation always spans two lines so the layout does not jump.
func (m *PlotModel) annotation() string {
	text := m.inspector.Text()
	if !strings.Contains(text, "\n") {
		text += "\n"
	}
	return text
}

func (m *PlotModel) renderStatusLine() string {
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	left := fmt.Sprintf(" %d commits", len(m.points))
	right := strings.Join(parts, " • ") + " "
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return statusStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// Run shows the plot until the user quits or ctx is cancelled.
func Run(ctx context.Context, points []model.Point) error {
	p := tea.NewProgram(NewPlotModel(points),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
