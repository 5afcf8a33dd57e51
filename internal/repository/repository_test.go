package repository

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/search"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}
	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo.(*SQLRepository)
}

func seedEntities(t *testing.T, r *SQLRepository) {
	t.Helper()

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO individual_mapping (entity_id, risk_id, entity_name, record_type, source_item_id, system_id, entity_date)
		  VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{"I-1", "R-1", "CARLOS SILVA", "individual", "S-1", "GRID", "2024-01-01"}},
		{`INSERT INTO individual_mapping (entity_id, risk_id, entity_name, record_type, source_item_id, system_id, entity_date)
		  VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{"I-2", "R-2", "JOHN DOE", "individual", "S-2", "GRID", "2024-01-01"}},
		{`INSERT INTO individual_attributes (entity_id, attribute_type, attribute_value) VALUES (?, ?, ?)`,
			[]any{"I-1", "PTY", "MUN:L3"}},
		{`INSERT INTO individual_events (entity_id, event_category_code, event_sub_category_code, event_date, event_description)
		  VALUES (?, ?, ?, ?, ?)`,
			[]any{"I-1", "FRD", "CVT", "2020-06-15", "Convicted of fraud"}},
		{`INSERT INTO individual_events (entity_id, event_category_code, event_sub_category_code, event_date, event_description)
		  VALUES (?, ?, ?, ?, ?)`,
			[]any{"I-2", "MIS", "ALL", "2021-03-01", "Alleged misconduct"}},
		{`INSERT INTO individual_addresses (entity_id, address_line1, address_city, address_province, address_country, address_type)
		  VALUES (?, ?, ?, ?, ?, ?)`,
			[]any{"I-1", "Rua A 1", "Sao Paulo", "SP", "Brazil", "residence"}},
		{`INSERT INTO individual_date_of_births (entity_id, birth_year, birth_month, birth_day, birth_circa)
		  VALUES (?, ?, ?, ?, ?)`,
			[]any{"I-1", 1960, 5, 2, 0}},
		{`INSERT INTO cross_reference_mapping (risk_id, cross_ref_id, match_type) VALUES (?, ?, ?)`,
			[]any{"R-1", "X-9", "exact"}},
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s.query, s.args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestSearchEntities(t *testing.T) {
	repo := newTestRepo(t)
	seedEntities(t, repo)

	builder := search.NewBuilder(search.DialectSQLite)
	ctx := context.Background()

	t.Run("name search", func(t *testing.T) {
		q := builder.Build(domain.SearchParameters{
			EntityType: domain.EntityTypeIndividual,
			Name:       "silva",
		}, nil)
		rows, err := repo.SearchEntities(ctx, domain.EntityTypeIndividual, q)
		if err != nil {
			t.Fatalf("SearchEntities: %v", err)
		}
		if len(rows) != 1 || rows[0].EntityID != "I-1" {
			t.Fatalf("rows = %+v", rows)
		}
		if rows[0].CrossRefID != "X-9" {
			t.Errorf("cross ref = %q", rows[0].CrossRefID)
		}
		if rows[0].BirthYear == nil || *rows[0].BirthYear != 1960 {
			t.Errorf("birth year = %v", rows[0].BirthYear)
		}
		if rows[0].Attributes == nil {
			t.Error("attributes collection not scanned")
		}
	})

	t.Run("pep only filter", func(t *testing.T) {
		q := builder.Build(domain.SearchParameters{
			EntityType: domain.EntityTypeIndividual,
			PepOnly:    true,
		}, nil)
		rows, err := repo.SearchEntities(ctx, domain.EntityTypeIndividual, q)
		if err != nil {
			t.Fatalf("SearchEntities: %v", err)
		}
		if len(rows) != 1 || rows[0].EntityID != "I-1" {
			t.Fatalf("rows = %+v", rows)
		}
	})

	t.Run("boolean condition filter", func(t *testing.T) {
		conds := search.ParseConditions("RISK_CATEGORY:MIS AND COUNTRY:Brazil")
		q := builder.Build(domain.SearchParameters{EntityType: domain.EntityTypeIndividual}, conds)
		rows, err := repo.SearchEntities(ctx, domain.EntityTypeIndividual, q)
		if err != nil {
			t.Fatalf("SearchEntities: %v", err)
		}
		// I-2 has the MIS event but no Brazil address.
		if len(rows) != 0 {
			t.Fatalf("rows = %+v", rows)
		}
	})

	t.Run("results ordered by name", func(t *testing.T) {
		q := builder.Build(domain.SearchParameters{EntityType: domain.EntityTypeIndividual}, nil)
		rows, err := repo.SearchEntities(ctx, domain.EntityTypeIndividual, q)
		if err != nil {
			t.Fatalf("SearchEntities: %v", err)
		}
		if len(rows) != 2 || rows[0].EntityName != "CARLOS SILVA" {
			t.Fatalf("rows = %+v", rows)
		}
	})

	t.Run("rank by risk query executes", func(t *testing.T) {
		q := builder.Build(domain.SearchParameters{
			EntityType: domain.EntityTypeIndividual,
			RankByRisk: true,
		}, nil)
		rows, err := repo.SearchEntities(ctx, domain.EntityTypeIndividual, q)
		if err != nil {
			t.Fatalf("SearchEntities: %v", err)
		}
		// I-1 is the only PEP, so it ranks first.
		if len(rows) != 2 || rows[0].EntityID != "I-1" {
			t.Fatalf("rows = %+v", rows)
		}
	})

	t.Run("invalid entity type", func(t *testing.T) {
		_, err := repo.SearchEntities(ctx, "vessel", domain.Query{SQL: "SELECT 1"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestGetEntity(t *testing.T) {
	repo := newTestRepo(t)
	seedEntities(t, repo)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		row, err := repo.GetEntity(ctx, domain.EntityTypeIndividual, "I-1")
		if err != nil {
			t.Fatalf("GetEntity: %v", err)
		}
		if row.EntityName != "CARLOS SILVA" || row.RiskID != "R-1" {
			t.Errorf("row = %+v", row)
		}
		if row.Events == nil {
			t.Error("events collection not scanned")
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetEntity(ctx, domain.EntityTypeIndividual, "I-404")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.GetEntity(ctx, domain.EntityTypeIndividual, "")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestAlerts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	alert := &domain.ScreeningAlert{
		ID:           "a-1",
		EntityID:     "I-1",
		EntityName:   "CARLOS SILVA",
		EntityType:   domain.EntityTypeIndividual,
		RiskScore:    91,
		RiskCategory: domain.RiskCategoryCritical,
		TraceID:      "trace-1",
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.SaveAlert(ctx, alert); err != nil {
		t.Fatalf("SaveAlert: %v", err)
	}

	alerts, err := repo.ListAlerts(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %+v", alerts)
	}
	got := alerts[0]
	if got.EntityID != "I-1" || got.RiskScore != 91 || got.RiskCategory != domain.RiskCategoryCritical {
		t.Errorf("alert = %+v", got)
	}

	t.Run("missing id rejected", func(t *testing.T) {
		err := repo.SaveAlert(ctx, &domain.ScreeningAlert{})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestConnectionStrings(t *testing.T) {
	t.Run("sqlite pragmas applied in order", func(t *testing.T) {
		dsn := sqliteDSN("/tmp/h.db")
		if !strings.HasPrefix(dsn, "file:/tmp/h.db?_pragma=journal_mode(WAL)") {
			t.Errorf("dsn = %q", dsn)
		}
		for _, p := range []string{"temp_store(MEMORY)", "cache_size(-20000)", "busy_timeout(5000)"} {
			if !strings.Contains(dsn, "_pragma="+p) {
				t.Errorf("dsn missing pragma %s: %q", p, dsn)
			}
		}
	})

	t.Run("postgres defaults and session tag", func(t *testing.T) {
		dsn := postgresDSN(domain.RepositoryConfig{Driver: "postgres"})
		for _, kv := range []string{"host=localhost", "port=5432", "dbname=harrier", "sslmode=disable", "application_name=harrier"} {
			if !strings.Contains(dsn, kv) {
				t.Errorf("dsn missing %s: %q", kv, dsn)
			}
		}
		if strings.Contains(dsn, "user=") || strings.Contains(dsn, "password=") {
			t.Errorf("empty credentials leaked into dsn: %q", dsn)
		}
	})

	t.Run("postgres credentials appended when set", func(t *testing.T) {
		dsn := postgresDSN(domain.RepositoryConfig{
			Driver:           "postgres",
			PostgresUser:     "screener",
			PostgresPassword: "s3cret",
		})
		if !strings.Contains(dsn, "user=screener") || !strings.Contains(dsn, "password=s3cret") {
			t.Errorf("dsn = %q", dsn)
		}
	})
}
