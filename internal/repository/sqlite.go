package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opensource-finance/harrier/internal/domain"
	_ "modernc.org/sqlite"
)

// sqlitePragmas tunes the connection for the search workload: the
// entity query GROUP BYs with JSON aggregation, so grouping temp
// structures stay in memory and the page cache is sized for repeated
// scans over the mapping/attribute/event tables.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"foreign_keys(ON)",
	"temp_store(MEMORY)",
	"cache_size(-20000)",
}

// openSQLite opens a SQLite database connection. Uses
// modernc.org/sqlite so Community-tier deployments need no CGO.
func openSQLite(cfg domain.RepositoryConfig) (*sql.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = "./harrier.db"
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return db, nil
}

func sqliteDSN(path string) string {
	dsn := "file:" + path + "?_pragma=" + sqlitePragmas[0]
	for _, p := range sqlitePragmas[1:] {
		dsn += "&_pragma=" + p
	}
	return dsn
}
