package domain

import (
	"time"
)

// EntityAttribute is one row of the {type}_attributes table.
// PTY attributes carry PEP classification values.
type EntityAttribute struct {
	AttributeType  string `json:"attribute_type"`
	AttributeValue string `json:"attribute_value"`
}

// EntityEvent is one row of the {type}_events table.
type EntityEvent struct {
	CategoryCode    string `json:"event_category_code"`
	SubCategoryCode string `json:"event_sub_category_code"`
	EventDate       string `json:"event_date"`
	Description     string `json:"event_description"`
}

// EntityAddress is one row of the {type}_addresses table.
type EntityAddress struct {
	Line1    string `json:"address_line1"`
	City     string `json:"address_city"`
	Province string `json:"address_province"`
	Country  string `json:"address_country"`
	Type     string `json:"address_type"`
}

// EntityAlias is one row of the {type}_aliases table.
type EntityAlias struct {
	Name string `json:"alias_name"`
	Type string `json:"alias_type"`
}

// EntityIdentification is one row of the {type}_identifications table.
type EntityIdentification struct {
	Type    string `json:"identification_type"`
	Value   string `json:"identification_value"`
	Country string `json:"identification_country"`
}

// RawEntityRow is one joined row as returned by the database
// collaborator. The collection fields may arrive as native slices or
// as JSON-encoded strings depending on the driver and query shape, so
// they are typed loosely and decoded by the normalizer.
type RawEntityRow struct {
	EntityID     string
	RiskID       string
	EntityName   string
	RecordType   string
	SourceItemID string
	SystemID     string
	EntityDate   string

	BirthYear  *int
	BirthMonth *int
	BirthDay   *int
	BirthCirca bool

	CrossRefID   string
	CrossRefType string

	// Native sequence or JSON text; see normalize.
	Attributes      any
	Events          any
	Addresses       any
	Aliases         any
	Identifications any
}

// PepInfo is the derived politically-exposed-person classification for
// one entity. Not persisted.
type PepInfo struct {
	IsPep          bool     `json:"isPep"`
	PepType        string   `json:"pepType,omitempty"`
	PepLevel       string   `json:"pepLevel,omitempty"`
	PepDescription string   `json:"pepDescription,omitempty"`
	Associations   []string `json:"associations,omitempty"`
	RawDetails     []string `json:"rawDetails,omitempty"`
}

// EventScore is the per-event breakdown retained for explainability.
type EventScore struct {
	Category    string  `json:"category"`
	SubCategory string  `json:"subCategory"`
	BaseScore   int     `json:"baseScore"`
	Modifier    float64 `json:"modifier"`
	FinalScore  int     `json:"finalScore"`
}

// RiskInfo is the derived risk assessment for one entity.
type RiskInfo struct {
	RiskScore    int          `json:"riskScore"`
	RiskCategory string       `json:"riskCategory"`
	Breakdown    []EventScore `json:"breakdown,omitempty"`
}

// Risk categories derived from the aggregate score.
const (
	RiskCategoryCritical      = "Critical"
	RiskCategoryValuable      = "Valuable"
	RiskCategoryInvestigative = "Investigative"
	RiskCategoryProbative     = "Probative"
	RiskCategoryUnknown       = "Unknown"
)

// RiskCategoryForScore maps an aggregate score to its category.
func RiskCategoryForScore(score int) string {
	switch {
	case score >= 80:
		return RiskCategoryCritical
	case score >= 60:
		return RiskCategoryValuable
	case score >= 40:
		return RiskCategoryInvestigative
	default:
		return RiskCategoryProbative
	}
}

// EntityRecord is the canonical risk-annotated output record for one
// searched entity. Owned by the caller after normalization.
type EntityRecord struct {
	EntityID     string `json:"entityId"`
	RiskID       string `json:"riskId"`
	EntityName   string `json:"entityName"`
	EntityType   string `json:"entityType"`
	SourceItemID string `json:"sourceItemId,omitempty"`
	SystemID     string `json:"systemId,omitempty"`
	EntityDate   string `json:"entityDate,omitempty"`

	BirthYear  *int   `json:"birthYear,omitempty"`
	BirthMonth *int   `json:"birthMonth,omitempty"`
	BirthDay   *int   `json:"birthDay,omitempty"`
	BirthCirca bool   `json:"birthCirca,omitempty"`
	BirthDate  string `json:"birthDate,omitempty"`

	CrossRefID   string `json:"crossRefId,omitempty"`
	CrossRefType string `json:"crossRefType,omitempty"`

	Pep  PepInfo  `json:"pep"`
	Risk RiskInfo `json:"risk"`

	Events          []EntityEvent          `json:"events,omitempty"`
	Attributes      []EntityAttribute      `json:"attributes,omitempty"`
	Addresses       []EntityAddress        `json:"addresses,omitempty"`
	Aliases         []EntityAlias          `json:"aliases,omitempty"`
	Identifications []EntityIdentification `json:"identifications,omitempty"`
}

// PrimaryCountry returns the country of the first address, if any.
func (r *EntityRecord) PrimaryCountry() string {
	if len(r.Addresses) == 0 {
		return ""
	}
	return r.Addresses[0].Country
}

// ScreeningAlert records a Critical-category entity surfaced by a
// search, persisted by the alert worker.
type ScreeningAlert struct {
	ID           string    `json:"id"`
	EntityID     string    `json:"entityId"`
	EntityName   string    `json:"entityName"`
	EntityType   string    `json:"entityType"`
	RiskScore    int       `json:"riskScore"`
	RiskCategory string    `json:"riskCategory"`
	TraceID      string    `json:"traceId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
