package query

import (
	"context"
	"time"
)

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// RowMaps pairs every row with the result columns, in column order per row.
func (r Result) RowMaps() []map[string]any {
	maps := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		entry := make(map[string]any, len(r.Columns))
		for i, column := range r.Columns {
			if i < len(row) {
				entry[column] = row[i]
			}
		}
		maps = append(maps, entry)
	}
	return maps
}

// ExecutionError marks a failure while running caller-supplied SQL, as
// opposed to an infrastructure fault. It keeps the statement that failed
// so handlers can echo it back.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

type Engine interface {
	Execute(ctx context.Context, sql string) (Result, error)
}
