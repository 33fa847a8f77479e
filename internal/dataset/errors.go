package dataset

import (
	"fmt"
	"io/fs"
	"strings"
)

// SourceNotFoundError reports that the backing table of a source is absent.
type SourceNotFoundError struct {
	Source SourceID
	Path   string
	Err    error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source %q: table not found at %s", e.Source, e.Path)
}

func (e *SourceNotFoundError) Unwrap() error {
	if e.Err == nil {
		return fs.ErrNotExist
	}
	return e.Err
}

// SourceSchemaError reports a table that does not satisfy the metric schema.
type SourceSchemaError struct {
	Source SourceID
	Reason string
}

func (e *SourceSchemaError) Error() string {
	return fmt.Sprintf("source %q: invalid schema: %s", e.Source, e.Reason)
}

// AggregationError reports tables that cannot be merged, such as a shared
// column that is numeric in one source and text in another.
type AggregationError struct {
	Column  string
	Sources []SourceID
	Kinds   []Kind
	Reason  string
}

func (e *AggregationError) Error() string {
	if e.Reason != "" {
		return "aggregate: " + e.Reason
	}
	parts := make([]string, 0, len(e.Sources))
	for i, s := range e.Sources {
		k := KindUnknown
		if i < len(e.Kinds) {
			k = e.Kinds[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%s", s, k))
	}
	return fmt.Sprintf("aggregate: column %q has conflicting types (%s)", e.Column, strings.Join(parts, ", "))
}
