// Package migrations embeds the schema migrations for each supported driver.
// Files are applied in lexical order; names are the migration IDs.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// For returns the migration files for a database/sql driver name.
func For(driver string) (fs.FS, error) {
	var dir string
	switch driver {
	case "sqlite3":
		dir = "sqlite"
	case "postgres":
		dir = "postgres"
	default:
		return nil, fmt.Errorf("no migrations for database driver: %s", driver)
	}
	return fs.Sub(files, dir)
}
