// Package scoring derives PEP classifications and risk assessments for
// entities from their attribute and event collections.
package scoring

import (
	"math"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// pepAttributeType marks PEP classification attributes in the schema.
const pepAttributeType = "PTY"

// defaultBaseScore applies to event categories the registry has never seen.
const defaultBaseScore = 10

// ScoreSource supplies base risk scores per event category code.
// Satisfied by *registry.Registry.
type ScoreSource interface {
	ScoreFor(code string) (int, bool)
}

// Scorer computes PepInfo and RiskInfo for one entity. Stateless given
// the score source; identical inputs always produce identical outputs.
type Scorer struct {
	scores ScoreSource
}

// New creates a scorer backed by the given score source.
func New(scores ScoreSource) *Scorer {
	return &Scorer{scores: scores}
}

// ExtractPepInfo scans an entity's attributes for PTY values and
// derives its PEP classification.
//
// Value grammar: "CODE:LEVEL" (e.g. "MUN:L3") sets type and level; a
// bare known role code (e.g. "FAM") sets type only; free text
// containing "Family Member of" or "Associate of" is recorded as an
// association and sets type FAM or ASC; anything else is recorded as
// an unclassified association. When several attributes carry a code,
// the last one wins.
func (s *Scorer) ExtractPepInfo(attributes []domain.EntityAttribute) domain.PepInfo {
	var info domain.PepInfo

	for _, attr := range attributes {
		if attr.AttributeType != pepAttributeType || attr.AttributeValue == "" {
			continue
		}
		info.IsPep = true
		value := attr.AttributeValue
		info.RawDetails = append(info.RawDetails, value)

		switch {
		case strings.Contains(value, ":L"):
			parts := strings.SplitN(value, ":", 2)
			info.PepType = parts[0]
			info.PepLevel = parts[1]

		case isKnownPepCode(value):
			info.PepType = strings.ToUpper(value)

		case strings.Contains(value, "Family Member of"):
			info.PepType = "FAM"
			info.Associations = append(info.Associations, value)

		case strings.Contains(value, "Associate of"):
			info.PepType = "ASC"
			info.Associations = append(info.Associations, value)

		default:
			info.Associations = append(info.Associations, value)
		}
	}

	if info.PepType != "" {
		if t, ok := PepTypeFor(info.PepType); ok {
			info.PepDescription = t.DisplayName
		} else {
			info.PepDescription = info.PepType
		}
	}
	return info
}

func isKnownPepCode(value string) bool {
	_, ok := pepTypes[strings.ToUpper(value)]
	return ok
}

// ComputeRisk scores an entity from its event list. Each event scores
// min(round(base * modifier), 100) where base comes from the registry
// (default 10 for unseen categories) and the modifier from the
// disposition table. The entity score is the maximum event score, so a
// single severe event dominates regardless of how many minor ones
// surround it.
func (s *Scorer) ComputeRisk(events []domain.EntityEvent) domain.RiskInfo {
	if len(events) == 0 {
		return domain.RiskInfo{RiskScore: 0, RiskCategory: domain.RiskCategoryUnknown}
	}

	maxScore := 0
	breakdown := make([]domain.EventScore, 0, len(events))

	for _, ev := range events {
		base, ok := s.scores.ScoreFor(ev.CategoryCode)
		if !ok {
			base = defaultBaseScore
		}
		modifier := ModifierFor(ev.SubCategoryCode)

		final := int(math.Round(float64(base) * modifier))
		if final > 100 {
			final = 100
		}

		breakdown = append(breakdown, domain.EventScore{
			Category:    ev.CategoryCode,
			SubCategory: ev.SubCategoryCode,
			BaseScore:   base,
			Modifier:    modifier,
			FinalScore:  final,
		})
		if final > maxScore {
			maxScore = final
		}
	}

	return domain.RiskInfo{
		RiskScore:    maxScore,
		RiskCategory: domain.RiskCategoryForScore(maxScore),
		Breakdown:    breakdown,
	}
}
