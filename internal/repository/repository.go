// Package repository executes built queries against the entity schema
// and persists screening alerts.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/search"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db      *sql.DB
	driver  string
	builder *search.Builder
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:      db,
		driver:  cfg.Driver,
		builder: search.NewBuilder(search.DialectForDriver(cfg.Driver)),
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SearchEntities executes a built search query and scans the raw
// joined rows. Execution errors surface to the caller.
func (r *SQLRepository) SearchEntities(ctx context.Context, entityType string, q domain.Query) ([]domain.RawEntityRow, error) {
	if !domain.ValidEntityType(entityType) {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, entityType)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(q.SQL), q.Args...)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	return scanEntityRows(rows)
}

// GetEntity retrieves the raw joined row for a single entity.
func (r *SQLRepository) GetEntity(ctx context.Context, entityType string, entityID string) (*domain.RawEntityRow, error) {
	if !domain.ValidEntityType(entityType) {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, entityType)
	}
	if entityID == "" {
		return nil, fmt.Errorf("%w: entity id is required", ErrInvalidInput)
	}

	q := r.builder.BuildDetail(entityType, entityID)

	rows, err := r.db.QueryContext(ctx, r.rebind(q.SQL), q.Args...)
	if err != nil {
		return nil, fmt.Errorf("entity lookup failed: %w", err)
	}
	defer rows.Close()

	scanned, err := scanEntityRows(rows)
	if err != nil {
		return nil, err
	}
	if len(scanned) == 0 {
		return nil, ErrNotFound
	}
	return &scanned[0], nil
}

// scanEntityRows scans joined rows by column name: the column set
// varies with entity type and ordering options.
func scanEntityRows(rows *sql.Rows) ([]domain.RawEntityRow, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []domain.RawEntityRow
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		var row domain.RawEntityRow
		for i, col := range cols {
			v := values[i]
			switch col {
			case "entity_id":
				row.EntityID = asString(v)
			case "risk_id":
				row.RiskID = asString(v)
			case "entity_name":
				row.EntityName = asString(v)
			case "record_type":
				row.RecordType = asString(v)
			case "source_item_id":
				row.SourceItemID = asString(v)
			case "system_id":
				row.SystemID = asString(v)
			case "entity_date":
				row.EntityDate = asString(v)
			case "birth_year":
				row.BirthYear = asIntPtr(v)
			case "birth_month":
				row.BirthMonth = asIntPtr(v)
			case "birth_day":
				row.BirthDay = asIntPtr(v)
			case "birth_circa":
				row.BirthCirca = asBool(v)
			case "cross_ref_id":
				row.CrossRefID = asString(v)
			case "match_type":
				row.CrossRefType = asString(v)
			case "attributes":
				row.Attributes = v
			case "events":
				row.Events = v
			case "addresses":
				row.Addresses = v
			case "aliases":
				row.Aliases = v
			case "identifications":
				row.Identifications = v
				// pep_count / critical_event_count only drive ordering
			}
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// SaveAlert stores a screening alert.
func (r *SQLRepository) SaveAlert(ctx context.Context, alert *domain.ScreeningAlert) error {
	if alert == nil || alert.ID == "" {
		return fmt.Errorf("%w: alert id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO screening_alerts (
			id, entity_id, entity_name, entity_type,
			risk_score, risk_category, trace_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		alert.ID, alert.EntityID, alert.EntityName, alert.EntityType,
		alert.RiskScore, alert.RiskCategory, alert.TraceID, alert.CreatedAt,
	)
	return err
}

// ListAlerts retrieves screening alerts created at or after the given
// time, newest first.
func (r *SQLRepository) ListAlerts(ctx context.Context, since time.Time) ([]*domain.ScreeningAlert, error) {
	query := `
		SELECT id, entity_id, entity_name, entity_type,
			   risk_score, risk_category, trace_id, created_at
		FROM screening_alerts
		WHERE created_at >= ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.ScreeningAlert
	for rows.Next() {
		var a domain.ScreeningAlert
		var traceID sql.NullString
		if err := rows.Scan(
			&a.ID, &a.EntityID, &a.EntityName, &a.EntityType,
			&a.RiskScore, &a.RiskCategory, &traceID, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.TraceID = traceID.String
		alerts = append(alerts, &a)
	}

	return alerts, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asIntPtr(v any) *int {
	switch val := v.(type) {
	case int64:
		n := int(val)
		return &n
	case int:
		return &val
	default:
		return nil
	}
}

func asBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	default:
		return false
	}
}
