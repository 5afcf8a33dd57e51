package search

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Dialect selects the JSON aggregation functions used in built queries.
// Placeholders are always `?`; the repository rebinds them for drivers
// that need positional markers.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DialectForDriver maps a repository driver name to its SQL dialect.
func DialectForDriver(driver string) Dialect {
	if driver == "postgres" {
		return DialectPostgres
	}
	return DialectSQLite
}

// criticalRankCodes are the event categories counted by the
// rank-by-risk ordering. Fixed table, never user-supplied.
const criticalRankCodes = "'TER','WLT','BRB','MLA','FRD'"

// Builder composes parameterized join queries over the fixed schema.
// Every user-supplied literal is bound positionally, never
// interpolated into the statement text.
type Builder struct {
	dialect Dialect
}

// NewBuilder creates a query builder for the given dialect.
func NewBuilder(dialect Dialect) *Builder {
	return &Builder{dialect: dialect}
}

// Build composes the search query for the given parameters and parsed
// boolean conditions. Predicates are emitted in a fixed order: name,
// PEP-only, PEP types, country, event categories, birth year, event
// date range, then the boolean-language conditions in expression
// order. Parameter positions always match predicate emission order.
func (b *Builder) Build(params domain.SearchParameters, conditions []domain.BooleanCondition) domain.Query {
	entityType := params.EntityType
	individual := entityType == domain.EntityTypeIndividual

	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT\n")
	sb.WriteString("    m.entity_id, m.risk_id, m.entity_name, m.record_type,\n")
	sb.WriteString("    m.source_item_id, m.system_id, m.entity_date,\n")
	if individual {
		sb.WriteString("    dob.birth_year, dob.birth_month, dob.birth_day, dob.birth_circa,\n")
	}
	sb.WriteString("    x.cross_ref_id, x.match_type,\n")
	sb.WriteString("    " + b.collectionSelects())
	if params.RankByRisk {
		sb.WriteString(",\n    " + b.rankSelects(entityType))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("FROM %s_mapping m\n", entityType))
	sb.WriteString(fmt.Sprintf("LEFT JOIN %s_attributes a ON a.entity_id = m.entity_id\n", entityType))
	sb.WriteString(fmt.Sprintf("LEFT JOIN %s_events e ON e.entity_id = m.entity_id\n", entityType))
	sb.WriteString(fmt.Sprintf("LEFT JOIN %s_addresses ad ON ad.entity_id = m.entity_id\n", entityType))
	sb.WriteString(fmt.Sprintf("LEFT JOIN %s_aliases al ON al.entity_id = m.entity_id\n", entityType))
	sb.WriteString(fmt.Sprintf("LEFT JOIN %s_identifications idf ON idf.entity_id = m.entity_id\n", entityType))
	if individual {
		sb.WriteString("LEFT JOIN individual_date_of_births dob ON dob.entity_id = m.entity_id\n")
	}
	sb.WriteString("LEFT JOIN cross_reference_mapping x ON x.risk_id = m.risk_id\n")

	var predicates []string

	if params.Name != "" {
		predicates = append(predicates, "LOWER(m.entity_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(params.Name)+"%")
	}

	if params.PepOnly {
		predicates = append(predicates, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s_attributes pa WHERE pa.entity_id = m.entity_id AND pa.attribute_type = 'PTY')",
			entityType))
	}

	if len(params.PepTypes) > 0 {
		matches := make([]string, 0, len(params.PepTypes))
		for _, code := range params.PepTypes {
			matches = append(matches, "pt.attribute_value LIKE ?")
			args = append(args, "%"+code+"%")
		}
		predicates = append(predicates, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s_attributes pt WHERE pt.entity_id = m.entity_id AND pt.attribute_type = 'PTY' AND (%s))",
			entityType, strings.Join(matches, " OR ")))
	}

	if params.Country != "" {
		predicates = append(predicates, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s_addresses ac WHERE ac.entity_id = m.entity_id AND LOWER(ac.address_country) = ?)",
			entityType))
		args = append(args, strings.ToLower(params.Country))
	}

	if len(params.EventCategories) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(params.EventCategories)), ",")
		predicates = append(predicates, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s_events ec WHERE ec.entity_id = m.entity_id AND ec.event_category_code IN (%s))",
			entityType, placeholders))
		for _, cat := range params.EventCategories {
			args = append(args, cat)
		}
	}

	if individual && params.BirthYear != 0 {
		predicates = append(predicates, "dob.birth_year = ?")
		args = append(args, params.BirthYear)
	}

	if params.EventDateFrom != "" || params.EventDateTo != "" {
		var bounds []string
		if params.EventDateFrom != "" {
			bounds = append(bounds, "ed.event_date >= ?")
			args = append(args, params.EventDateFrom)
		}
		if params.EventDateTo != "" {
			bounds = append(bounds, "ed.event_date <= ?")
			args = append(args, params.EventDateTo)
		}
		predicates = append(predicates, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s_events ed WHERE ed.entity_id = m.entity_id AND %s)",
			entityType, strings.Join(bounds, " AND ")))
	}

	condPredicates, condArgs := b.conditionPredicates(entityType, individual, conditions)
	predicates = append(predicates, condPredicates...)
	args = append(args, condArgs...)

	if len(predicates) > 0 {
		sb.WriteString("WHERE " + strings.Join(predicates, "\n  AND ") + "\n")
	}

	sb.WriteString("GROUP BY " + b.groupColumns(individual) + "\n")

	if params.RankByRisk {
		sb.WriteString("ORDER BY pep_count DESC, critical_event_count DESC, m.entity_name\n")
	} else {
		sb.WriteString("ORDER BY m.entity_name\n")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	sb.WriteString("LIMIT ?")
	args = append(args, limit)

	return domain.Query{SQL: sb.String(), Args: args}
}

// BuildDetail composes the single-entity lookup query.
func (b *Builder) BuildDetail(entityType, entityID string) domain.Query {
	individual := entityType == domain.EntityTypeIndividual

	var sb strings.Builder
	sb.WriteString("SELECT\n")
	sb.WriteString("    m.entity_id, m.risk_id, m.entity_name, m.record_type,\n")
	sb.WriteString("    m.source_item_id, m.system_id, m.entity_date,\n")
	if individual {
		sb.WriteString("    dob.birth_year, dob.birth_month, dob.birth_day, dob.birth_circa,\n")
	}
	sb.WriteString("    x.cross_ref_id, x.match_type,\n")
	sb.WriteString("    " + b.collectionSelects() + "\n")
	sb.WriteString(fmt.Sprintf("FROM %s_mapping m\n", entityType))
	sb.WriteString(fmt.Sprintf("LEFT JOIN %s_attributes a ON a.entity_id = m.entity_id\n", entityType))
	sb.WriteString(fmt.Sprintf("LEFT JOIN %s_events e ON e.entity_id = m.entity_id\n", entityType))
	sb.WriteString(fmt.Sprintf("LEFT JOIN %s_addresses ad ON ad.entity_id = m.entity_id\n", entityType))
	sb.WriteString(fmt.Sprintf("LEFT JOIN %s_aliases al ON al.entity_id = m.entity_id\n", entityType))
	sb.WriteString(fmt.Sprintf("LEFT JOIN %s_identifications idf ON idf.entity_id = m.entity_id\n", entityType))
	if individual {
		sb.WriteString("LEFT JOIN individual_date_of_births dob ON dob.entity_id = m.entity_id\n")
	}
	sb.WriteString("LEFT JOIN cross_reference_mapping x ON x.risk_id = m.risk_id\n")
	sb.WriteString("WHERE m.entity_id = ?\n")
	sb.WriteString("GROUP BY " + b.groupColumns(individual))

	return domain.Query{SQL: sb.String(), Args: []any{entityID}}
}

// conditionPredicates translates parsed boolean conditions into
// predicates, in condition order. Unknown fields are skipped.
func (b *Builder) conditionPredicates(entityType string, individual bool, conditions []domain.BooleanCondition) ([]string, []any) {
	var predicates []string
	var args []any

	for _, cond := range conditions {
		switch cond.Field {
		case domain.FieldPepType:
			predicates = append(predicates, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM %s_attributes ba WHERE ba.entity_id = m.entity_id AND ba.attribute_type = 'PTY' AND ba.attribute_value LIKE ?)",
				entityType))
			args = append(args, "%"+cond.Value+"%")

		case domain.FieldRiskCategory:
			predicates = append(predicates, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM %s_events be WHERE be.entity_id = m.entity_id AND be.event_category_code = ?)",
				entityType))
			args = append(args, cond.Value)

		case domain.FieldCountry:
			predicates = append(predicates, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM %s_addresses bc WHERE bc.entity_id = m.entity_id AND LOWER(bc.address_country) = ?)",
				entityType))
			args = append(args, strings.ToLower(cond.Value))

		case domain.FieldName:
			predicates = append(predicates, "LOWER(m.entity_name) LIKE ?")
			args = append(args, "%"+strings.ToLower(cond.Value)+"%")

		default:
			slog.Debug("skipping condition with unknown field",
				"field", string(cond.Field), "value", cond.Value)
		}
	}
	return predicates, args
}

// collectionSelects renders the JSON-aggregated collection columns.
func (b *Builder) collectionSelects() string {
	cols := []string{
		b.jsonAgg("a", "'attribute_type', a.attribute_type, 'attribute_value', a.attribute_value") + " AS attributes",
		b.jsonAgg("e", "'event_category_code', e.event_category_code, 'event_sub_category_code', e.event_sub_category_code, 'event_date', e.event_date, 'event_description', e.event_description") + " AS events",
		b.jsonAgg("ad", "'address_line1', ad.address_line1, 'address_city', ad.address_city, 'address_province', ad.address_province, 'address_country', ad.address_country, 'address_type', ad.address_type") + " AS addresses",
		b.jsonAgg("al", "'alias_name', al.alias_name, 'alias_type', al.alias_type") + " AS aliases",
		b.jsonAgg("idf", "'identification_type', idf.identification_type, 'identification_value', idf.identification_value, 'identification_country', idf.identification_country") + " AS identifications",
	}
	return strings.Join(cols, ",\n    ")
}

// jsonAgg renders one aggregated JSON array column for the dialect,
// filtered so entities without rows aggregate to NULL instead of
// [null].
func (b *Builder) jsonAgg(alias, objectArgs string) string {
	if b.dialect == DialectPostgres {
		return fmt.Sprintf("json_agg(json_build_object(%s)) FILTER (WHERE %s.entity_id IS NOT NULL)",
			objectArgs, alias)
	}
	return fmt.Sprintf("json_group_array(json_object(%s)) FILTER (WHERE %s.entity_id IS NOT NULL)",
		objectArgs, alias)
}

// rankSelects renders the PEP and critical-event count columns used by
// rank-by-risk ordering.
func (b *Builder) rankSelects(entityType string) string {
	return fmt.Sprintf(
		"(SELECT COUNT(*) FROM %s_attributes pc WHERE pc.entity_id = m.entity_id AND pc.attribute_type = 'PTY') AS pep_count,\n"+
			"    (SELECT COUNT(*) FROM %s_events cc WHERE cc.entity_id = m.entity_id AND cc.event_category_code IN (%s)) AS critical_event_count",
		entityType, entityType, criticalRankCodes)
}

func (b *Builder) groupColumns(individual bool) string {
	cols := "m.entity_id, m.risk_id, m.entity_name, m.record_type, m.source_item_id, m.system_id, m.entity_date"
	if individual {
		cols += ", dob.birth_year, dob.birth_month, dob.birth_day, dob.birth_circa"
	}
	return cols + ", x.cross_ref_id, x.match_type"
}
