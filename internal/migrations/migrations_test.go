package migrations

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestLoadMigrationsSortsAndPairsUpDown(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_create_zip_codes.up.sql":     {Data: []byte("CREATE TABLE zip_codes (zip_code VARCHAR(10) PRIMARY KEY);")},
		"sql/0002_create_zip_codes.down.sql":   {Data: []byte("DROP TABLE zip_codes;")},
		"sql/0001_create_core_schema.up.sql":   {Data: []byte("CREATE TABLE providers (provider_id VARCHAR(6) PRIMARY KEY);")},
		"sql/0001_create_core_schema.down.sql": {Data: []byte("DROP TABLE providers;")},
	}

	items, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Version != 1 || items[1].Version != 2 {
		t.Fatalf("unexpected migration order: %+v", items)
	}
}

func TestLoadMigrationsErrorsWhenDownMissing(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0001_create_core_schema.up.sql": {Data: []byte("CREATE TABLE providers (provider_id VARCHAR(6) PRIMARY KEY);")},
	}
	_, err := loadMigrations(fsys)
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "missing down SQL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpAppliesOnlyPendingMigrations(t *testing.T) {
	db, mock := newSQLMock(t)
	defer db.Close()

	runner := &Runner{fsys: fstest.MapFS{
		"sql/0001_core.up.sql":   {Data: []byte("CREATE TABLE providers ();")},
		"sql/0001_core.down.sql": {Data: []byte("DROP TABLE providers;")},
		"sql/0002_zips.up.sql":   {Data: []byte("CREATE TABLE zip_codes ();")},
		"sql/0002_zips.down.sql": {Data: []byte("DROP TABLE zip_codes;")},
	}}

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS costnav_schema_migrations`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version FROM costnav_schema_migrations ORDER BY version ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(1)))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE zip_codes ();`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO costnav_schema_migrations (version) VALUES ($1)`)).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := runner.Up(context.Background(), db, 0)
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	assertSQLMock(t, mock)
}

func TestDownRollsBackLatestApplied(t *testing.T) {
	db, mock := newSQLMock(t)
	defer db.Close()

	runner := &Runner{fsys: fstest.MapFS{
		"sql/0001_core.up.sql":   {Data: []byte("CREATE TABLE providers ();")},
		"sql/0001_core.down.sql": {Data: []byte("DROP TABLE providers;")},
		"sql/0002_zips.up.sql":   {Data: []byte("CREATE TABLE zip_codes ();")},
		"sql/0002_zips.down.sql": {Data: []byte("DROP TABLE zip_codes;")},
	}}

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS costnav_schema_migrations`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version FROM costnav_schema_migrations ORDER BY version DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(2)).AddRow(int64(1)))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE zip_codes;`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM costnav_schema_migrations WHERE version = $1`)).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reverted, err := runner.Down(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	if reverted != 1 {
		t.Fatalf("reverted = %d, want 1", reverted)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
