package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/tinytelemetry/logluts/internal/model"
)

const (
	colorFlops = "#3b82f6"
	colorLUTs  = "#fbbf24"
	colorFreq  = "#34d399"

	chartTitle = "flip-flops, LUTs and max frequency vs commits"
)

// ErrNoPoints is returned when there is nothing to chart.
var ErrNoPoints = errors.New("report: no points to chart")

// WriteHTML renders points as a standalone HTML page: flops and LUTs on a
// left count axis, frequency on a right MHz axis, one marker per commit.
func WriteHTML(w io.Writer, points []model.Point) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	line := buildLine(points)
	if err := line.Render(w); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}

func buildLine(points []model.Point) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "logluts",
			Theme:     types.ThemeWesteros,
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    chartTitle,
			Subtitle: fmt.Sprintf("%d commits, %s .. %s", len(points), points[0].Commit, points[len(points)-1].Commit),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "commit"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count", Type: "value"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "MHz", Type: "value"})

	labels := make([]string, len(points))
	flops := make([]opts.LineData, len(points))
	luts := make([]opts.LineData, len(points))
	freq := make([]opts.LineData, len(points))
	for i, p := range points {
		labels[i] = xLabel(p)
		flops[i] = opts.LineData{Value: p.Flops, Name: p.Info.Message}
		luts[i] = opts.LineData{Value: p.LUTs, Name: p.Info.Message}
		freq[i] = opts.LineData{Value: p.FreqMHz, Name: p.Info.Message}
	}

	line.SetXAxis(labels).
		AddSeries(model.MetricFlops, flops,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colorFlops}),
		).
		AddSeries(model.MetricLUTs, luts,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colorLUTs}),
		).
		AddSeries(model.MetricFreq, freq,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), YAxisIndex: 1}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colorFreq}),
		)
	return line
}

func xLabel(p model.Point) string {
	return p.Info.Date.Format("2006-01-02") + " " + p.Commit
}
