package dataset

import (
	"fmt"
	"strings"
)

// ParseError reports a cell that could not be parsed as its declared type.
type ParseError struct {
	Column string
	Row    int // 1-based data row, header excluded
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dataset: column %q row %d: cannot parse %q: %v", e.Column, e.Row, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a required column that is absent from the table.
type SchemaError struct {
	Column    string
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset: column %q not found (have: %s)", e.Column, strings.Join(e.Available, ", "))
}
