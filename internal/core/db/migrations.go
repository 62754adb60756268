package db

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/switchboard/migrations"
)

// LatestMigration is the migration the running binary requires.
// Commands that touch the store refuse to start until it is applied.
const LatestMigration = "002_api_keys.sql"

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

// migration is one parsed file from the embedded set.
type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// appliedRow is one row of the migrations tracking table.
type appliedRow struct {
	ID          string    `db:"migration_id"`
	Checksum    string    `db:"checksum"`
	AppliedAt   time.Time `db:"applied_at"`
	ExecutionMs int64     `db:"execution_ms"`
}

// MigrateUp applies every pending migration in ID order.
// Each migration and its tracking row commit in one transaction. Applied
// migrations whose checksum no longer matches the embedded file abort the run.
func MigrateUp(ctx context.Context, db *sqlx.DB) error {
	pending, applied, err := plan(ctx, db)
	if err != nil {
		return err
	}
	if err := verifyChecksums(pending, applied); err != nil {
		return fmt.Errorf("migration checksum validation failed: %w", err)
	}

	for _, m := range pending {
		if _, done := applied[m.ID]; done {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// MigrateStatus reports every embedded migration and whether it is applied.
func MigrateStatus(ctx context.Context, db *sqlx.DB) ([]MigrationStatus, error) {
	all, applied, err := plan(ctx, db)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(all))
	for _, m := range all {
		row, ok := applied[m.ID]
		if !ok {
			statuses = append(statuses, MigrationStatus{ID: m.ID, Checksum: m.Checksum})
			continue
		}
		at := row.AppliedAt
		statuses = append(statuses, MigrationStatus{
			ID:          row.ID,
			Checksum:    row.Checksum,
			Applied:     true,
			AppliedAt:   &at,
			ExecutionMs: row.ExecutionMs,
		})
	}
	return statuses, nil
}

// IsApplied reports whether the migration with id has been recorded.
func IsApplied(ctx context.Context, db *sqlx.DB, id string) (bool, error) {
	if err := createMigrationsTable(ctx, db); err != nil {
		return false, fmt.Errorf("failed to create migrations table: %w", err)
	}
	var n int
	err := db.GetContext(ctx, &n, db.Rebind("SELECT COUNT(*) FROM migrations WHERE migration_id = ?"), id)
	if err != nil {
		return false, fmt.Errorf("failed to check migrations: %w", err)
	}
	return n > 0, nil
}

// plan loads the embedded migrations and the applied rows for the driver.
func plan(ctx context.Context, db *sqlx.DB) ([]migration, map[string]appliedRow, error) {
	fsys, err := migrations.For(db.DriverName())
	if err != nil {
		return nil, nil, err
	}
	if err := createMigrationsTable(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	all, err := parseMigrationFiles(fsys)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	var rows []appliedRow
	query := "SELECT migration_id, checksum, applied_at, execution_ms FROM migrations"
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied := make(map[string]appliedRow, len(rows))
	for _, r := range rows {
		applied[r.ID] = r
	}
	return all, applied, nil
}

// parseMigrationFiles reads every .sql file at the root of fsys, sorted by name.
func parseMigrationFiles(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		out = append(out, migration{
			ID:       e.Name(),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// verifyChecksums fails if an applied migration was edited or removed.
func verifyChecksums(all []migration, applied map[string]appliedRow) error {
	embedded := make(map[string]string, len(all))
	for _, m := range all {
		embedded[m.ID] = m.Checksum
	}
	for id, row := range applied {
		want, ok := embedded[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if row.Checksum != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, row.Checksum)
		}
	}
	return nil
}

// createMigrationsTable ensures the tracking table exists.
// applied_at uses TIMESTAMP on both drivers so it scans into time.Time.
func createMigrationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			execution_ms INTEGER NOT NULL
		)
	`)
	return err
}

// apply runs one migration and records it in the same transaction.
func apply(ctx context.Context, db *sqlx.DB, m migration) error {
	start := time.Now()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
	}

	// lib/pq rejects multiple statements per Exec, so run them one at a time
	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		m.ID, m.Checksum, time.Now().UTC(), time.Since(start).Milliseconds(),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

// splitStatements drops "--" comment lines and splits on semicolons.
func splitStatements(sql string) []string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
