package domain

// Entity types supported by the fixed schema.
const (
	EntityTypeIndividual   = "individual"
	EntityTypeOrganization = "organization"
)

// ValidEntityType reports whether t names a searchable entity type.
func ValidEntityType(t string) bool {
	return t == EntityTypeIndividual || t == EntityTypeOrganization
}

// SearchParameters holds the structured search criteria for one query.
// Immutable per query; absent optional fields emit no predicate.
type SearchParameters struct {
	EntityType      string   `json:"entityType"`
	Name            string   `json:"name,omitempty"`
	Country         string   `json:"country,omitempty"`
	PepOnly         bool     `json:"pepOnly,omitempty"`
	PepTypes        []string `json:"pepTypes,omitempty"`
	EventCategories []string `json:"eventCategories,omitempty"`
	BirthYear       int      `json:"birthYear,omitempty"`
	EventDateFrom   string   `json:"eventDateFrom,omitempty"`
	EventDateTo     string   `json:"eventDateTo,omitempty"`

	// RankByRisk orders results by PEP and critical-event counts
	// before the entity-name tie-break.
	RankByRisk bool `json:"rankByRisk,omitempty"`

	Limit int `json:"limit,omitempty"`
}

// DefaultSearchLimit caps result sets when the caller does not.
const DefaultSearchLimit = 100

// ConditionField enumerates the fields the boolean mini-language
// understands. Unknown fields parse but emit no predicate.
type ConditionField string

const (
	FieldPepType      ConditionField = "PEP_TYPE"
	FieldRiskCategory ConditionField = "RISK_CATEGORY"
	FieldCountry      ConditionField = "COUNTRY"
	FieldName         ConditionField = "NAME"
)

// BooleanCondition is one FIELD:value term parsed from a boolean
// expression. Order in the original expression determines the
// AND-combination order.
type BooleanCondition struct {
	Field    ConditionField `json:"field"`
	Operator string         `json:"operator"`
	Value    string         `json:"value"`
}

// Query is a parameterized statement plus its positionally-ordered
// bound values. The statement never embeds a user-supplied literal.
type Query struct {
	SQL  string
	Args []any
}
