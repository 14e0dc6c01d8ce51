package duckdb

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

// maxQueryRows caps the rows returned by ExecuteQuery.
const maxQueryRows = 1000

// ErrNotReadOnly is wrapped by every rejection of ExecuteQuery's guard.
var ErrNotReadOnly = errors.New("duckdb: query is not read-only")

// forbiddenWords are statements and DuckDB functions that write, load code or
// change the session. They are matched as whole words outside quotes.
var forbiddenWords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true,
	"CREATE": true, "ALTER": true, "TRUNCATE": true, "COPY": true,
	"ATTACH": true, "DETACH": true, "LOAD": true, "EXPORT": true,
	"IMPORT": true, "INSTALL": true, "CALL": true, "EXECUTE": true,
	"PRAGMA": true, "SET": true, "RESET": true,
	// table functions that open files or URLs
	"GLOB": true, "PARQUET_SCAN": true, "SNIFF_CSV": true,
	"PARQUET_METADATA": true, "PARQUET_SCHEMA": true, "DELTA_SCAN": true,
	"ICEBERG_SCAN": true, "ST_READ": true,
}

// forbiddenPrefixes catch the read_* family (read_text, read_csv_auto,
// read_json_objects, ...) without listing every variant.
var forbiddenPrefixes = []string{"READ_", "SCAN_"}

func forbidden(word string) bool {
	if forbiddenWords[word] {
		return true
	}
	for _, p := range forbiddenPrefixes {
		if strings.HasPrefix(word, p) {
			return true
		}
	}
	return false
}

// queryTables are the relations counted by TableRowCounts.
var queryTables = []string{"history"}

// sqlScan walks a query once, skipping comments. It returns the upper-cased
// bare words found outside string literals and quoted identifiers, and
// whether a statement separator appears outside them.
func sqlScan(query string) (words []string, separator bool) {
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			words = append(words, strings.ToUpper(word.String()))
			word.Reset()
		}
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			flush()
			for i < len(query) && query[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			flush()
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				i = len(query)
			} else {
				i += end + 3
			}
		case c == '\'' || c == '"':
			flush()
			// Doubled quotes escape themselves, so they fall out of the loop
			// as two adjacent literals.
			j := i + 1
			for j < len(query) && query[j] != c {
				j++
			}
			if j >= len(query) {
				j = len(query) - 1
			}
			i = j
		case c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
			word.WriteByte(c)
		default:
			flush()
			if c == ';' {
				separator = true
			}
		}
	}
	flush()
	return words, separator
}

// checkReadOnly accepts a single SELECT or WITH statement that names none of
// the forbidden words. The store also runs with external access disabled, so
// file reads this list misses (such as FROM 'path.csv') fail in DuckDB.
func checkReadOnly(query string) error {
	words, separator := sqlScan(query)
	if separator {
		return fmt.Errorf("%w: query must not contain semicolons", ErrNotReadOnly)
	}
	if len(words) == 0 || (words[0] != "SELECT" && words[0] != "WITH") {
		return fmt.Errorf("%w: only SELECT/WITH queries are allowed", ErrNotReadOnly)
	}
	for _, w := range words {
		if forbidden(w) {
			return fmt.Errorf("%w: query contains disallowed keyword: %s", ErrNotReadOnly, w)
		}
	}
	return nil
}

// ExecuteQuery runs a guarded read-only query over the history and returns
// at most maxQueryRows rows, one map per row keyed by column name.
func (s *Store) ExecuteQuery(query string) ([]map[string]any, error) {
	query = strings.TrimSpace(query)
	if err := checkReadOnly(query); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("duckdb: query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("duckdb: columns: %w", err)
	}

	results := []map[string]any{}
	cells := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if len(results) == maxQueryRows {
			log.Printf("duckdb: query result truncated to %d rows", maxQueryRows)
			break
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("duckdb: scan: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := cells[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = cells[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// GetSchemaDescription returns a human-readable description of the
// queryable tables.
func (s *Store) GetSchemaDescription() string {
	return `Table 'history': seq (INTEGER, append order from 0), commit_id (VARCHAR), ` +
		`flops (INTEGER), luts (INTEGER), freq (DOUBLE, MHz). ` +
		`View 'history_steps': seq, commit_id, flops_delta, luts_delta, freq_delta ` +
		`(change from the previous row, NULL for the first).`
}

// TableRowCounts returns the row count of every queryable table.
func (s *Store) TableRowCounts() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	counts := make(map[string]int64, len(queryTables))
	for _, table := range queryTables {
		var n int64
		// table comes from queryTables, never from a request.
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("duckdb: count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
