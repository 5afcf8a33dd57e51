package repository

import "fmt"

// Schema definitions for the fixed entity-screening schema.
// Compatible with both SQLite and PostgreSQL.

// entitySchemas renders the per-type table set. The individual variant
// additionally gets a date-of-birth table.
func entitySchemas(entityType string) []string {
	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s_mapping (
    entity_id TEXT PRIMARY KEY,
    risk_id TEXT NOT NULL,
    entity_name TEXT NOT NULL,
    record_type TEXT,
    source_item_id TEXT,
    system_id TEXT,
    entity_date TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_mapping_name ON %[1]s_mapping(entity_name);
CREATE INDEX IF NOT EXISTS idx_%[1]s_mapping_risk ON %[1]s_mapping(risk_id);
`, entityType),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s_attributes (
    entity_id TEXT NOT NULL,
    attribute_type TEXT NOT NULL,
    attribute_value TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_attributes_entity ON %[1]s_attributes(entity_id);
CREATE INDEX IF NOT EXISTS idx_%[1]s_attributes_type ON %[1]s_attributes(attribute_type);
`, entityType),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s_events (
    entity_id TEXT NOT NULL,
    event_category_code TEXT NOT NULL,
    event_sub_category_code TEXT,
    event_date TEXT,
    event_description TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_events_entity ON %[1]s_events(entity_id);
CREATE INDEX IF NOT EXISTS idx_%[1]s_events_category ON %[1]s_events(event_category_code);
`, entityType),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s_addresses (
    entity_id TEXT NOT NULL,
    address_line1 TEXT,
    address_city TEXT,
    address_province TEXT,
    address_country TEXT,
    address_type TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_addresses_entity ON %[1]s_addresses(entity_id);
CREATE INDEX IF NOT EXISTS idx_%[1]s_addresses_country ON %[1]s_addresses(address_country);
`, entityType),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s_aliases (
    entity_id TEXT NOT NULL,
    alias_name TEXT NOT NULL,
    alias_type TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_aliases_entity ON %[1]s_aliases(entity_id);
`, entityType),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s_identifications (
    entity_id TEXT NOT NULL,
    identification_type TEXT NOT NULL,
    identification_value TEXT,
    identification_country TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_identifications_entity ON %[1]s_identifications(entity_id);
`, entityType),
	}
}

const schemaDateOfBirths = `
CREATE TABLE IF NOT EXISTS individual_date_of_births (
    entity_id TEXT NOT NULL,
    birth_year INTEGER,
    birth_month INTEGER,
    birth_day INTEGER,
    birth_circa INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_date_of_births_entity ON individual_date_of_births(entity_id);
CREATE INDEX IF NOT EXISTS idx_date_of_births_year ON individual_date_of_births(birth_year);
`

const schemaCrossReference = `
CREATE TABLE IF NOT EXISTS cross_reference_mapping (
    risk_id TEXT NOT NULL,
    cross_ref_id TEXT NOT NULL,
    match_type TEXT
);

CREATE INDEX IF NOT EXISTS idx_cross_reference_risk ON cross_reference_mapping(risk_id);
`

const schemaScreeningAlerts = `
CREATE TABLE IF NOT EXISTS screening_alerts (
    id TEXT PRIMARY KEY,
    entity_id TEXT NOT NULL,
    entity_name TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    risk_score INTEGER NOT NULL,
    risk_category TEXT NOT NULL,
    trace_id TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_screening_alerts_created ON screening_alerts(created_at);
CREATE INDEX IF NOT EXISTS idx_screening_alerts_entity ON screening_alerts(entity_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	var schemas []string
	schemas = append(schemas, entitySchemas("individual")...)
	schemas = append(schemas, entitySchemas("organization")...)
	schemas = append(schemas,
		schemaDateOfBirths,
		schemaCrossReference,
		schemaScreeningAlerts,
	)
	return schemas
}
