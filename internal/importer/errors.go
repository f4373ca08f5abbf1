package importer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPortfolioNotFound is returned when the target portfolio does not exist
var ErrPortfolioNotFound = errors.New("portfolio not found")

// ParseError reports an upload that could not be read as CSV
type ParseError struct {
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "unparseable upload: " + e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FieldError is a single constraint violation inside a row
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// RowError lists every invalid field of one row. Row is 1-based and counts data rows only.
type RowError struct {
	Row     int          `json:"row"`
	Content string       `json:"content"`
	Fields  []FieldError `json:"fields"`
}

func (e *RowError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return fmt.Sprintf("row %d: %s", e.Row, strings.Join(parts, "; "))
}

// HasField reports whether the row failed on the named field
func (e *RowError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// ValidationError carries the invalid rows of an upload
type ValidationError struct {
	Rows []*RowError
}

func (e *ValidationError) Error() string {
	if len(e.Rows) == 1 {
		return "invalid " + e.Rows[0].Error()
	}
	return fmt.Sprintf("%d invalid rows, first %s", len(e.Rows), e.Rows[0].Error())
}

// ResolutionError reports a ticker that could not be resolved to a company
type ResolutionError struct {
	Ticker string
	Row    int
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve company %s: %s", e.Ticker, e.Reason)
	if e.Row > 0 {
		msg = fmt.Sprintf("%s (row %d)", msg, e.Row)
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// CommitError reports a batch the store refused to persist. Nothing was written.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return "batch commit failed: " + e.Err.Error()
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
