// Package search turns structured parameters and a small boolean
// mini-language into parameterized queries over the fixed entity
// schema.
package search

import (
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ParseConditions parses a boolean expression of FIELD:value terms
// joined by literal " AND " into structured conditions.
//
// The grammar is deliberately permissive: parentheses are stripped
// rather than grouped, OR and NOT are not supported, segments without
// a colon are discarded, and unknown field names are kept in the
// output but emit no predicate at build time. Condition order follows
// the original expression.
func ParseConditions(expression string) []domain.BooleanCondition {
	cleaned := strings.NewReplacer("(", "", ")", "").Replace(expression)

	var conditions []domain.BooleanCondition
	for _, part := range strings.Split(cleaned, " AND ") {
		part = strings.TrimSpace(part)
		if part == "" || !strings.Contains(part, ":") {
			continue
		}
		field, value, _ := strings.Cut(part, ":")
		conditions = append(conditions, domain.BooleanCondition{
			Field:    domain.ConditionField(strings.ToUpper(strings.TrimSpace(field))),
			Operator: "=",
			Value:    strings.TrimSpace(value),
		})
	}
	return conditions
}
