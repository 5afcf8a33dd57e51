package domain

import (
	"context"
	"time"
)

// Repository defines the interface for the database collaborator.
// It executes queries produced by the search builder and returns raw
// joined rows; it performs no risk interpretation of its own.
type Repository interface {
	// SearchEntities executes a built search query and scans the raw
	// joined rows. Execution errors surface to the caller.
	SearchEntities(ctx context.Context, entityType string, q Query) ([]RawEntityRow, error)

	// GetEntity retrieves the raw row for a single entity.
	GetEntity(ctx context.Context, entityType string, entityID string) (*RawEntityRow, error)

	// Screening alerts (persisted by the alert worker)
	SaveAlert(ctx context.Context, alert *ScreeningAlert) error
	ListAlerts(ctx context.Context, since time.Time) ([]*ScreeningAlert, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
