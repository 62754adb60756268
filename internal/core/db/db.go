// Package db provides database connection management and migration support
// for the switch store and API key tables.
//
// Supports SQLite (single node, development) and PostgreSQL via sqlx.
// Migrations are embedded SQL files applied by a small checksum-verifying
// runner; queries are named statements loaded with dotsql.
package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Pool limits. The admin API is low traffic; a handful of connections is plenty.
const (
	maxOpenConns    = 8
	maxIdleConns    = 2
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute

	// sqliteBusyTimeoutMs lets concurrent writers wait for the file lock
	// instead of failing with SQLITE_BUSY.
	sqliteBusyTimeoutMs = 5000
)

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open connects using a database URL and configures pooling.
// Supported schemes: sqlite://, postgres://, postgresql://
// SQLite URLs: sqlite://relative/file.db or sqlite:///absolute/file.db
func Open(ctx context.Context, dbURL string) (*sqlx.DB, error) {
	driverName, dataSource, err := parseURL(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// parseURL maps a database URL to a driver name and driver-specific DSN.
func parseURL(dbURL string) (driverName, dataSource string, err error) {
	if dbURL == "" {
		return "", "", fmt.Errorf("database URL is empty")
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch u.Scheme {
	case "sqlite":
		// sqlite://file.db carries the path in host+path, sqlite:///abs in path only
		path := u.Path
		if u.Host != "" {
			path = u.Host + u.Path
		}
		if path == "" {
			return "", "", fmt.Errorf("sqlite URL has no file path: %s", dbURL)
		}
		q := u.Query()
		if q.Get("_busy_timeout") == "" {
			q.Set("_busy_timeout", fmt.Sprint(sqliteBusyTimeoutMs))
		}
		return DriverSQLite, "file:" + path + "?" + q.Encode(), nil
	case "postgres", "postgresql":
		return DriverPostgres, dbURL, nil
	default:
		return "", "", fmt.Errorf("unsupported database scheme: %s (expected sqlite or postgres)", u.Scheme)
	}
}
