package duckdb

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinytelemetry/logluts/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore(\"\") failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func loadTestRecords(t *testing.T, store *Store, records []model.Record) {
	t.Helper()
	if err := store.Load(records); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func sampleRecords() []model.Record {
	return []model.Record{
		{Commit: "a1", Flops: 100, LUTs: 400, FreqMHz: 42.5},
		{Commit: "b2", Flops: 90, LUTs: 460, FreqMHz: 55.1},
		{Commit: "c3", Flops: 120, LUTs: 450, FreqMHz: 48.0},
	}
}

func TestLoadReplacesContents(t *testing.T) {
	store := newTestStore(t)

	loadTestRecords(t, store, sampleRecords())
	loadTestRecords(t, store, sampleRecords()[:2])

	counts, err := store.TableRowCounts()
	if err != nil {
		t.Fatalf("TableRowCounts: %v", err)
	}
	if counts["history"] != 2 {
		t.Errorf("history rows = %d, want 2", counts["history"])
	}
}

func TestSummary(t *testing.T) {
	store := newTestStore(t)
	loadTestRecords(t, store, sampleRecords())

	s, err := store.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Rows != 3 || s.First != "a1" || s.Last != "c3" {
		t.Fatalf("summary header = %d %s..%s, want 3 a1..c3", s.Rows, s.First, s.Last)
	}

	want := map[string]model.MetricSummary{
		model.MetricFlops: {Metric: model.MetricFlops, First: 100, Last: 120, Min: 90, Max: 120, Delta: 20},
		model.MetricLUTs:  {Metric: model.MetricLUTs, First: 400, Last: 450, Min: 400, Max: 460, Delta: 50},
		model.MetricFreq:  {Metric: model.MetricFreq, First: 42.5, Last: 48.0, Min: 42.5, Max: 55.1, Delta: 5.5},
	}
	if len(s.Metrics) != len(want) {
		t.Fatalf("got %d metrics, want %d", len(s.Metrics), len(want))
	}
	for _, got := range s.Metrics {
		w := want[got.Metric]
		if !approxEqual(got.First, w.First) || !approxEqual(got.Last, w.Last) || !approxEqual(got.Min, w.Min) ||
			!approxEqual(got.Max, w.Max) || !approxEqual(got.Delta, w.Delta) {
			t.Errorf("%s = %+v, want %+v", got.Metric, got, w)
		}
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummaryEmpty(t *testing.T) {
	store := newTestStore(t)

	s, err := store.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Rows != 0 || len(s.Metrics) != 0 {
		t.Fatalf("empty summary = %+v", s)
	}
}

func TestLargestSteps(t *testing.T) {
	store := newTestStore(t)
	loadTestRecords(t, store, sampleRecords())

	steps, err := store.LargestSteps(model.MetricLUTs, 5)
	if err != nil {
		t.Fatalf("LargestSteps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(steps))
	}
	if steps[0].Commit != "b2" || steps[0].Delta != 60 {
		t.Errorf("largest step = %+v, want b2 +60", steps[0])
	}
	if steps[1].Commit != "c3" || steps[1].Delta != -10 {
		t.Errorf("second step = %+v, want c3 -10", steps[1])
	}

	if _, err := store.LargestSteps("bogus", 5); err == nil {
		t.Error("LargestSteps accepted an unknown metric")
	}
}

func TestFileBackedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "history.duckdb")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	loadTestRecords(t, store, sampleRecords())
	store.Close()

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.DBPath() != path {
		t.Errorf("DBPath = %q, want %q", reopened.DBPath(), path)
	}
	counts, err := reopened.TableRowCounts()
	if err != nil {
		t.Fatalf("TableRowCounts: %v", err)
	}
	if counts["history"] != 3 {
		t.Errorf("history rows after reopen = %d, want 3", counts["history"])
	}
}

func TestExecuteQuery_SelectAllowed(t *testing.T) {
	store := newTestStore(t)
	loadTestRecords(t, store, sampleRecords())

	results, err := store.ExecuteQuery("SELECT commit_id, luts FROM history ORDER BY seq")
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("ExecuteQuery returned %d rows, want 3", len(results))
	}
	if results[0]["commit_id"] != "a1" {
		t.Errorf("first commit_id = %v, want a1", results[0]["commit_id"])
	}
}

func TestExecuteQuery_WithAllowed(t *testing.T) {
	store := newTestStore(t)
	loadTestRecords(t, store, sampleRecords())

	results, err := store.ExecuteQuery("WITH c AS (SELECT COUNT(*) AS cnt FROM history) SELECT cnt FROM c")
	if err != nil {
		t.Fatalf("ExecuteQuery WITH: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ExecuteQuery WITH returned %d rows, want 1", len(results))
	}
}

func TestExecuteQuery_DMLRejected(t *testing.T) {
	store := newTestStore(t)

	rejected := []string{
		"INSERT INTO history (seq, commit_id, flops, luts, freq) VALUES (9, 'x', 1, 1, 1)",
		"UPDATE history SET luts = 0",
		"DELETE FROM history",
		"DROP TABLE history",
		"CREATE TABLE evil (id int)",
		"ALTER TABLE history ADD COLUMN evil varchar",
		"TRUNCATE history",
	}

	for _, sql := range rejected {
		if _, err := store.ExecuteQuery(sql); err == nil {
			t.Errorf("ExecuteQuery(%q) should have been rejected", sql)
		}
	}
}

func TestExecuteQuery_DuckDBKeywordsRejected(t *testing.T) {
	store := newTestStore(t)

	rejected := []struct {
		sql     string
		keyword string
	}{
		{"SELECT COPY(history, '/tmp/dump.csv') FROM history", "COPY"},
		{"SELECT ATTACH FROM history", "ATTACH"},
		{"SELECT LOAD FROM history", "LOAD"},
		{"SELECT INSTALL FROM history", "INSTALL"},
		{"SELECT PRAGMA FROM history", "PRAGMA"},
		{"SELECT SET FROM history", "SET"},
		{"SELECT 1 /* hidden */ FROM history WHERE 1 = 1 -- \nAND DELETE", "DELETE"},
	}

	for _, tt := range rejected {
		_, err := store.ExecuteQuery(tt.sql)
		if err == nil {
			t.Errorf("ExecuteQuery should reject %s keyword", tt.keyword)
			continue
		}
		if !strings.Contains(err.Error(), tt.keyword) {
			t.Errorf("ExecuteQuery error %q should mention keyword %s", err.Error(), tt.keyword)
		}
	}

	semicolonCases := []string{
		"SELECT * FROM history; DROP TABLE history",
		"SELECT * FROM history; COPY history TO '/tmp/dump.csv'",
	}
	for _, sql := range semicolonCases {
		_, err := store.ExecuteQuery(sql)
		if err == nil || !strings.Contains(err.Error(), "semicolons") {
			t.Errorf("ExecuteQuery(%q) error = %v, want semicolon rejection", sql, err)
		}
	}
}

func TestCheckReadOnlyIgnoresComments(t *testing.T) {
	t.Parallel()

	if err := checkReadOnly("SELECT 1 /* DROP */ -- DELETE\nFROM history"); err != nil {
		t.Fatalf("keywords inside comments rejected: %v", err)
	}
	if err := checkReadOnly("/* SELECT */ DELETE FROM history"); !errors.Is(err, ErrNotReadOnly) {
		t.Fatalf("statement hidden behind a comment accepted: %v", err)
	}
}

func TestExecuteQuery_FileAccessRejected(t *testing.T) {
	store := newTestStore(t)
	loadTestRecords(t, store, sampleRecords())

	dir := t.TempDir()
	secret := filepath.Join(dir, "secret.csv")
	if err := os.WriteFile(secret, []byte("token\nhunter2\n"), 0600); err != nil {
		t.Fatal(err)
	}

	queries := []string{
		"SELECT * FROM read_text('" + secret + "')",
		"SELECT * FROM read_csv_auto('" + secret + "')",
		"SELECT * FROM read_csv('" + secret + "')",
		"SELECT * FROM read_blob('" + secret + "')",
		"SELECT * FROM glob('" + dir + "/*')",
		"SELECT * FROM Read_Text('" + secret + "')",
		// replacement scan on a quoted path, stopped by DuckDB itself
		"SELECT * FROM '" + secret + "'",
	}
	for _, q := range queries {
		rows, err := store.ExecuteQuery(q)
		if err == nil {
			t.Errorf("ExecuteQuery(%q) returned %v, want an error", q, rows)
			continue
		}
		if strings.Contains(err.Error(), "hunter2") {
			t.Errorf("ExecuteQuery(%q) leaked file contents in %q", q, err)
		}
	}

	// history queries keep working with external access off
	rows, err := store.ExecuteQuery("SELECT COUNT(*) AS n FROM history")
	if err != nil || len(rows) != 1 {
		t.Fatalf("history query after rejected file reads: rows=%v err=%v", rows, err)
	}
}

func TestSchemaVersion(t *testing.T) {
	store := newTestStore(t)

	current, pending, err := store.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if current != 2 || pending != 0 {
		t.Fatalf("SchemaVersion = %d, %d pending; want 2, 0", current, pending)
	}
}

func TestGetSchemaDescription(t *testing.T) {
	store := newTestStore(t)
	desc := store.GetSchemaDescription()
	for _, want := range []string{"history", "commit_id", "history_steps"} {
		if !strings.Contains(desc, want) {
			t.Errorf("schema description missing %q", want)
		}
	}
}

func TestCheckReadOnlyQuotes(t *testing.T) {
	t.Parallel()

	allowed := []string{
		"SELECT commit_id FROM history WHERE commit_id = 'drop; delete'",
		`SELECT luts AS "set" FROM history`,
		"select 1 -- trailing; comment",
	}
	for _, q := range allowed {
		if err := checkReadOnly(q); err != nil {
			t.Errorf("checkReadOnly(%q) = %v, want nil", q, err)
		}
	}

	rejected := []string{
		"",
		"-- only a comment",
		"EXPLAIN SELECT 1",
		"SELECT 1; SELECT 2",
		"WITH x AS (SELECT 1) INSERT INTO history SELECT * FROM x",
	}
	for _, q := range rejected {
		if err := checkReadOnly(q); !errors.Is(err, ErrNotReadOnly) {
			t.Errorf("checkReadOnly(%q) = %v, want ErrNotReadOnly", q, err)
		}
	}
}
