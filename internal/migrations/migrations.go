// Package migrations applies the embedded schema migrations in version order.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

// versionTable records applied migrations. Every migration runs in its own
// transaction together with its bookkeeping row, so a failed script leaves
// no trace.
const versionTable = "costnav_schema_migrations"

var upFilePattern = regexp.MustCompile(`^sql/([0-9]+)_(.+)\.up\.sql$`)

type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

type migration struct {
	Version int64
	name    string
	up      string
	down    string
}

// Up applies pending migrations in ascending version order. steps caps how
// many run; steps <= 0 applies everything pending. Returns how many ran.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	all, err := loadMigrations(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := appliedVersions(ctx, db, "ASC")
	if err != nil {
		return 0, err
	}

	done := make(map[int64]struct{}, len(applied))
	for _, version := range applied {
		done[version] = struct{}{}
	}

	var pending []migration
	for _, m := range all {
		if _, ok := done[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	if steps > 0 && len(pending) > steps {
		pending = pending[:steps]
	}

	for ran, m := range pending {
		if err := apply(ctx, db, m); err != nil {
			return ran, err
		}
	}
	return len(pending), nil
}

// Down rolls back the most recently applied migrations, newest first.
// steps <= 0 rolls back exactly one.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}

	all, err := loadMigrations(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := appliedVersions(ctx, db, "DESC")
	if err != nil {
		return 0, err
	}

	byVersion := make(map[int64]migration, len(all))
	for _, m := range all {
		byVersion[m.Version] = m
	}
	if len(applied) > steps {
		applied = applied[:steps]
	}

	for ran, version := range applied {
		m, ok := byVersion[version]
		if !ok {
			return ran, fmt.Errorf("applied migration %d has no source file", version)
		}
		if err := revert(ctx, db, m); err != nil {
			return ran, err
		}
	}
	return len(applied), nil
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	ddl := `
CREATE TABLE IF NOT EXISTS ` + versionTable + ` (
	version BIGINT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure version table: %w", err)
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.up); err != nil {
			return fmt.Errorf("apply migration %d %s: %w", m.Version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+versionTable+` (version) VALUES ($1)`, m.Version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		return nil
	})
}

func revert(ctx context.Context, db *sql.DB, m migration) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.down); err != nil {
			return fmt.Errorf("roll back migration %d %s: %w", m.Version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+versionTable+` WHERE version = $1`, m.Version); err != nil {
			return fmt.Errorf("erase migration %d: %w", m.Version, err)
		}
		return nil
	})
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func appliedVersions(ctx context.Context, db *sql.DB, order string) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM `+versionTable+` ORDER BY version `+order)
	if err != nil {
		return nil, fmt.Errorf("list applied versions: %w", err)
	}
	defer rows.Close()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied versions: %w", err)
	}
	return versions, nil
}

// loadMigrations pairs every sql/NNNN_name.up.sql with its .down.sql twin
// and returns the pairs sorted by version.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	upFiles, err := fs.Glob(fsys, "sql/*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}

	migrations := make([]migration, 0, len(upFiles))
	seen := make(map[int64]string, len(upFiles))
	for _, upPath := range upFiles {
		groups := upFilePattern.FindStringSubmatch(upPath)
		if groups == nil {
			continue
		}
		version, err := strconv.ParseInt(groups[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version of %q: %w", upPath, err)
		}
		if prior, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d (%q and %q)", version, prior, upPath)
		}
		seen[version] = upPath

		up, err := fs.ReadFile(fsys, upPath)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", upPath, err)
		}
		downPath := strings.TrimSuffix(upPath, ".up.sql") + ".down.sql"
		down, err := fs.ReadFile(fsys, downPath)
		if err != nil {
			return nil, fmt.Errorf("migration %d missing down SQL: %w", version, err)
		}
		if strings.TrimSpace(string(up)) == "" {
			return nil, fmt.Errorf("migration %d missing up SQL", version)
		}
		if strings.TrimSpace(string(down)) == "" {
			return nil, fmt.Errorf("migration %d missing down SQL", version)
		}

		migrations = append(migrations, migration{
			Version: version,
			name:    groups[2],
			up:      string(up),
			down:    string(down),
		})
	}

	downFiles, err := fs.Glob(fsys, "sql/*.down.sql")
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	for _, downPath := range downFiles {
		upPath := strings.TrimSuffix(downPath, ".down.sql") + ".up.sql"
		if _, err := fs.Stat(fsys, upPath); err != nil {
			return nil, fmt.Errorf("migration file %q has no matching up file", downPath)
		}
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
