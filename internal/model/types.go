package model

import "time"

// Record is one row of resource-usage history: a commit and the measurements
// taken from the build logs produced at that commit.
type Record struct {
	Commit  string  `json:"commit" yaml:"commit"`
	Flops   int     `json:"flops" yaml:"flops"`
	LUTs    int     `json:"luts" yaml:"luts"`
	FreqMHz float64 `json:"freq" yaml:"freq"`
}

// CommitInfo is the display metadata for a stored commit id.
type CommitInfo struct {
	ID      string    `json:"id" yaml:"id"`     // id as stored in the history
	Hash    string    `json:"hash" yaml:"hash"` // full object name
	Date    time.Time `json:"date" yaml:"date"` // committer date
	Message string    `json:"message" yaml:"message"`
}

// Point is a history record annotated with its commit metadata.
type Point struct {
	Record `yaml:",inline"`
	Info   CommitInfo `json:"commit_info" yaml:"commit_info"`
}

// Metric names used by charts, summaries and the SQL schema.
const (
	MetricFlops = "flops"
	MetricLUTs  = "luts"
	MetricFreq  = "freq"
)

// Metrics lists the metric names in display order.
var Metrics = []string{MetricFlops, MetricLUTs, MetricFreq}

// MetricSummary describes how one metric moved across the history.
type MetricSummary struct {
	Metric string  `json:"metric" yaml:"metric"`
	First  float64 `json:"first" yaml:"first"`
	Last   float64 `json:"last" yaml:"last"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Delta  float64 `json:"delta" yaml:"delta"`
}

// Summary is the per-metric digest of a history.
type Summary struct {
	Rows    int             `json:"rows" yaml:"rows"`
	First   string          `json:"first_commit" yaml:"first_commit"`
	Last    string          `json:"last_commit" yaml:"last_commit"`
	Metrics []MetricSummary `json:"metrics" yaml:"metrics"`
}

// Step is the change of one metric between a commit and its predecessor.
type Step struct {
	Commit string  `json:"commit" yaml:"commit"`
	Metric string  `json:"metric" yaml:"metric"`
	Delta  float64 `json:"delta" yaml:"delta"`
}
