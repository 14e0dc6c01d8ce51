package duckdb

import (
	"database/sql"
	"fmt"

	"github.com/tinytelemetry/logluts/internal/model"
)

var _ model.Summarizer = (*Store)(nil)

// metricColumns maps metric names to history columns. Only these names are
// ever interpolated into SQL.
var metricColumns = map[string]string{
	model.MetricFlops: "flops",
	model.MetricLUTs:  "luts",
	model.MetricFreq:  "freq",
}

// Load replaces the history table with records. seq follows slice order.
func (s *Store) Load(records []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("duckdb: begin load: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM history"); err != nil {
		return fmt.Errorf("duckdb: clear history: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO history (seq, commit_id, flops, luts, freq) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("duckdb: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, i, r.Commit, r.Flops, r.LUTs, r.FreqMHz); err != nil {
			return fmt.Errorf("duckdb: insert %s: %w", r.Commit, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("duckdb: commit load: %w", err)
	}
	return nil
}

// Summary digests the loaded history per metric: first, last, min, max and
// the change from first to last.
func (s *Store) Summary() (model.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var summary model.Summary
	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), arg_min(commit_id, seq), arg_max(commit_id, seq) FROM history`,
	).Scan(&summary.Rows, &first, &last)
	if err != nil {
		return model.Summary{}, fmt.Errorf("duckdb: summary: %w", err)
	}
	if summary.Rows == 0 {
		return summary, nil
	}
	summary.First, summary.Last = first.String, last.String

	for _, metric := range model.Metrics {
		col := metricColumns[metric]
		m := model.MetricSummary{Metric: metric}
		query := fmt.Sprintf(`SELECT
			CAST(arg_min(%[1]s, seq) AS DOUBLE),
			CAST(arg_max(%[1]s, seq) AS DOUBLE),
			CAST(MIN(%[1]s) AS DOUBLE),
			CAST(MAX(%[1]s) AS DOUBLE)
			FROM history`, col)
		if err := s.db.QueryRowContext(ctx, query).Scan(&m.First, &m.Last, &m.Min, &m.Max); err != nil {
			return model.Summary{}, fmt.Errorf("duckdb: summary %s: %w", metric, err)
		}
		m.Delta = m.Last - m.First
		summary.Metrics = append(summary.Metrics, m)
	}
	return summary, nil
}

// LargestSteps returns the biggest commit-to-commit changes of metric,
// largest magnitude first.
func (s *Store) LargestSteps(metric string, limit int) ([]model.Step, error) {
	col, ok := metricColumns[metric]
	if !ok {
		return nil, fmt.Errorf("duckdb: unknown metric %q", metric)
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	query := fmt.Sprintf(`SELECT commit_id, CAST(%[1]s_delta AS DOUBLE)
		FROM history_steps
		WHERE %[1]s_delta IS NOT NULL AND %[1]s_delta <> 0
		ORDER BY abs(%[1]s_delta) DESC, seq
		LIMIT ?`, col)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("duckdb: steps %s: %w", metric, err)
	}
	defer rows.Close()

	var steps []model.Step
	for rows.Next() {
		step := model.Step{Metric: metric}
		if err := rows.Scan(&step.Commit, &step.Delta); err != nil {
			return nil, fmt.Errorf("duckdb: scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}
