// Package normalize turns raw joined rows into canonical
// risk-annotated entity records.
package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/scoring"
)

// Normalizer converts raw rows using the scorer for PEP and risk
// derivation. Stateless per call.
type Normalizer struct {
	scorer *scoring.Scorer
}

// New creates a normalizer backed by the given scorer.
func New(scorer *scoring.Scorer) *Normalizer {
	return &Normalizer{scorer: scorer}
}

// NormalizeRows converts a batch of raw rows. A failure in one row is
// logged and that row skipped; it never aborts the rest of the batch.
func (n *Normalizer) NormalizeRows(rows []domain.RawEntityRow, entityType string) []*domain.EntityRecord {
	records := make([]*domain.EntityRecord, 0, len(rows))
	for i := range rows {
		rec, err := n.NormalizeRow(&rows[i], entityType)
		if err != nil {
			slog.Warn("skipping row that failed normalization",
				"entity_id", rows[i].EntityID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// NormalizeRow converts one raw row into a canonical record. A
// malformed JSON collection field yields an empty collection, not a
// failed row.
func (n *Normalizer) NormalizeRow(row *domain.RawEntityRow, entityType string) (*domain.EntityRecord, error) {
	if row.EntityID == "" {
		return nil, fmt.Errorf("row has no entity id")
	}

	attributes := decodeCollection[domain.EntityAttribute](row.EntityID, "attributes", row.Attributes)
	events := decodeCollection[domain.EntityEvent](row.EntityID, "events", row.Events)
	addresses := decodeCollection[domain.EntityAddress](row.EntityID, "addresses", row.Addresses)
	aliases := decodeCollection[domain.EntityAlias](row.EntityID, "aliases", row.Aliases)
	identifications := decodeCollection[domain.EntityIdentification](row.EntityID, "identifications", row.Identifications)

	rec := &domain.EntityRecord{
		EntityID:     row.EntityID,
		RiskID:       row.RiskID,
		EntityName:   row.EntityName,
		EntityType:   entityType,
		SourceItemID: row.SourceItemID,
		SystemID:     row.SystemID,
		EntityDate:   row.EntityDate,

		BirthYear:  row.BirthYear,
		BirthMonth: row.BirthMonth,
		BirthDay:   row.BirthDay,
		BirthCirca: row.BirthCirca,
		BirthDate:  formatBirthDate(row.BirthYear, row.BirthMonth, row.BirthDay),

		CrossRefID:   row.CrossRefID,
		CrossRefType: row.CrossRefType,

		Pep:  n.scorer.ExtractPepInfo(attributes),
		Risk: n.scorer.ComputeRisk(events),

		Events:          events,
		Attributes:      attributes,
		Addresses:       addresses,
		Aliases:         aliases,
		Identifications: identifications,
	}
	return rec, nil
}

// decodeCollection handles the three shapes a nested collection can
// arrive in: already-typed slice, JSON text, or nothing. Decode
// failures log and yield an empty collection.
func decodeCollection[T any](entityID, field string, v any) []T {
	switch val := v.(type) {
	case nil:
		return nil
	case []T:
		return val
	case string:
		return unmarshalCollection[T](entityID, field, []byte(val))
	case []byte:
		return unmarshalCollection[T](entityID, field, val)
	default:
		// Driver-specific shapes (e.g. []any) round-trip through JSON.
		raw, err := json.Marshal(val)
		if err != nil {
			slog.Warn("undecodable collection field",
				"entity_id", entityID, "field", field, "error", err)
			return nil
		}
		return unmarshalCollection[T](entityID, field, raw)
	}
}

func unmarshalCollection[T any](entityID, field string, data []byte) []T {
	if len(data) == 0 {
		return nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Warn("malformed collection JSON, treating as empty",
			"entity_id", entityID, "field", field, "error", err)
		return nil
	}
	return out
}

func formatBirthDate(year, month, day *int) string {
	switch {
	case year == nil:
		return ""
	case month == nil || day == nil:
		return fmt.Sprintf("%04d", *year)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", *year, *month, *day)
	}
}
