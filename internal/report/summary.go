// Package report renders a history as an HTML chart or a per-metric summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/logluts/internal/model"
)

// Format selects how a summary is written.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

const sparkWidth = 40

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatYAML, FormatJSON:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("report: unknown format %q (choose text, yaml, json)", name)
}

// WriteSummary writes s in the given format. The text format adds a
// sparkline per metric drawn from records.
func WriteSummary(w io.Writer, s model.Summary, records []model.Record, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("report: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("report: encode json: %w", err)
		}
		return nil
	case FormatText, "":
		_, err := io.WriteString(w, renderText(s, records))
		return err
	}
	return fmt.Errorf("report: unknown format %q", format)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderText(s model.Summary, records []model.Record) string {
	if s.Rows == 0 {
		return "history is empty\n"
	}

	series := metricSeries(records)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("metric", "first", "last", "min", "max", "delta", "trend").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, m := range s.Metrics {
		t.Row(
			m.Metric,
			formatValue(m.Metric, m.First),
			formatValue(m.Metric, m.Last),
			formatValue(m.Metric, m.Min),
			formatValue(m.Metric, m.Max),
			formatDelta(m.Metric, m.Delta),
			SparklineWidth(series[m.Metric], sparkWidth),
		)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d commits, %s .. %s\n", s.Rows, s.First, s.Last)
	sb.WriteString(t.Render())
	sb.WriteString("\n")
	return sb.String()
}

func metricSeries(records []model.Record) map[string][]float64 {
	series := map[string][]float64{
		model.MetricFlops: make([]float64, 0, len(records)),
		model.MetricLUTs:  make([]float64, 0, len(records)),
		model.MetricFreq:  make([]float64, 0, len(records)),
	}
	for _, r := range records {
		series[model.MetricFlops] = append(series[model.MetricFlops], float64(r.Flops))
		series[model.MetricLUTs] = append(series[model.MetricLUTs], float64(r.LUTs))
		series[model.MetricFreq] = append(series[model.MetricFreq], r.FreqMHz)
	}
	return series
}

func formatValue(metric string, v float64) string {
	if metric == model.MetricFreq {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.0f", v)
}

func formatDelta(metric string, v float64) string {
	s := formatValue(metric, v)
	if v > 0 {
		return "+" + s
	}
	return s
}
