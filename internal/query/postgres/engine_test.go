package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/costnav/costnav/internal/query"
)

func TestExecuteRunsInsideReadOnlyTx(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := NewEngine(db, 30*time.Second, 1000)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL statement_timeout = 30000`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM (SELECT provider_name, provider_state FROM providers) AS q LIMIT 1000`)).
		WillReturnRows(sqlmock.NewRows([]string{"provider_name", "provider_state"}).
			AddRow("Test Hospital 1", []byte("NY")).
			AddRow("Test Hospital 2", "NY"))
	mock.ExpectRollback()

	result, err := engine.Execute(context.Background(), "SELECT provider_name, provider_state FROM providers;")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "provider_name" {
		t.Fatalf("Columns = %v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	if result.Rows[0][1] != "NY" {
		t.Fatalf("byte column = %#v, want normalized string", result.Rows[0][1])
	}
	assertSQLMock(t, mock)
}

func TestExecuteSkipsRowLimitWhenZero(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := NewEngine(db, 0, 0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM providers`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectRollback()

	result, err := engine.Execute(context.Background(), "SELECT COUNT(*) FROM providers")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Rows[0][0] != int64(2) {
		t.Fatalf("count = %#v", result.Rows[0][0])
	}
	assertSQLMock(t, mock)
}

func TestExecuteWrapsFailureAsExecutionError(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := NewEngine(db, 0, 0)
	cause := errors.New(`pq: column "msr_drg_definition" does not exist`)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT msr_drg_definition FROM drgs`)).
		WillReturnError(cause)
	mock.ExpectRollback()

	_, err := engine.Execute(context.Background(), "SELECT msr_drg_definition FROM drgs")
	if err == nil {
		t.Fatal("expected execution error")
	}
	var execErr *query.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %T, want *query.ExecutionError", err)
	}
	if execErr.SQL != "SELECT msr_drg_definition FROM drgs" {
		t.Fatalf("SQL = %q", execErr.SQL)
	}
	if execErr.Error() != cause.Error() {
		t.Fatalf("Error() = %q, want %q", execErr.Error(), cause.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("ExecutionError should unwrap to the driver error")
	}
	assertSQLMock(t, mock)
}

func TestExecuteRejectsEmptySQL(t *testing.T) {
	db, _ := newSQLMock(t)
	engine := NewEngine(db, 0, 100)

	for _, sqlText := range []string{"", "   ", ";;", " ; "} {
		if _, err := engine.Execute(context.Background(), sqlText); err == nil {
			t.Fatalf("Execute(%q) expected error", sqlText)
		}
	}
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
