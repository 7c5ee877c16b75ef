package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/costnav/costnav/internal/query"
)

// Engine runs generated SQL against the directory database inside a
// read-only transaction. The SQL gate decides whether a statement may
// reach the engine at all; the transaction mode is the backstop.
type Engine struct {
	db               *sql.DB
	statementTimeout time.Duration
	maxRows          int
}

func NewEngine(db *sql.DB, statementTimeout time.Duration, maxRows int) *Engine {
	return &Engine{db: db, statementTimeout: statementTimeout, maxRows: maxRows}
}

func (e *Engine) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if e.maxRows > 0 {
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, e.maxRows)
	}

	start := time.Now()
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: fmt.Errorf("begin read-only tx: %w", err)}
	}
	defer func() { _ = tx.Rollback() }()

	if e.statementTimeout > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", e.statementTimeout.Milliseconds())); err != nil {
			return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: fmt.Errorf("set statement timeout: %w", err)}
		}
	}

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: fmt.Errorf("query columns: %w", err)}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: fmt.Errorf("scan row: %w", err)}
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: fmt.Errorf("iterate rows: %w", err)}
	}

	return query.Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
