package model

import "context"

// CommitResolver maps the repository state to commit ids and back.
type CommitResolver interface {
	// Current returns the short id of the commit the working tree is on.
	Current(ctx context.Context) (string, error)
	// Lookup returns the metadata of a stored commit id.
	Lookup(ctx context.Context, id string) (CommitInfo, error)
}

// HistoryReader provides the full ordered history.
type HistoryReader interface {
	LoadAll() ([]Record, error)
}

// HistoryWriter appends one record to the history.
type HistoryWriter interface {
	Append(rec Record) error
}

// SchemaQuerier provides schema introspection and arbitrary read-only queries.
type SchemaQuerier interface {
	ExecuteQuery(query string) ([]map[string]interface{}, error)
	GetSchemaDescription() string
	TableRowCounts() (map[string]int64, error)
}

// Summarizer loads a history and digests it.
type Summarizer interface {
	Load(records []Record) error
	Summary() (Summary, error)
}
