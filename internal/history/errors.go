package history

import (
	"errors"
	"fmt"
)

// ErrMalformedRow is matched by every ParseError.
var ErrMalformedRow = errors.New("history: malformed row")

// ParseError describes the first row of a history file that could not be
// decoded.
type ParseError struct {
	Line  int    // 1-based line in the file
	Field string // empty when the whole row is at fault
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("history: line %d: field %s: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("history: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedRow, e.Err}
}
