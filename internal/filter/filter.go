// Package filter provides the CEL-Go based post-search filter engine.
// A filter expression runs over each normalized record after the
// database query, for criteria the fixed schema cannot express
// directly (derived risk scores, PEP classifications).
package filter

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/harrier/internal/domain"
)

// Engine compiles and applies CEL filter expressions over canonical
// entity records.
type Engine struct {
	env *cel.Env
}

// NewEngine creates the filter environment with the record variables
// available to expressions.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("risk_score", cel.IntType),
		cel.Variable("risk_category", cel.StringType),
		cel.Variable("is_pep", cel.BoolType),
		cel.Variable("pep_type", cel.StringType),
		cel.Variable("pep_level", cel.StringType),
		cel.Variable("country", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("event_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Engine{env: env}, nil
}

// Compiled is a pre-compiled filter expression.
type Compiled struct {
	Expression string
	program    cel.Program
}

// Compile validates and compiles a filter expression. The expression
// must evaluate to a boolean.
func (e *Engine) Compile(expression string) (*Compiled, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile filter: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return bool, got %s", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter program: %w", err)
	}

	return &Compiled{Expression: expression, program: program}, nil
}

// Apply keeps the records for which the filter evaluates to true. A
// record whose evaluation errors is kept, so a bad expression narrows
// results no further than the structured query did.
func (e *Engine) Apply(f *Compiled, records []*domain.EntityRecord) []*domain.EntityRecord {
	kept := make([]*domain.EntityRecord, 0, len(records))
	for _, rec := range records {
		match, err := e.evaluate(f, rec)
		if err != nil {
			slog.Warn("filter evaluation failed, keeping record",
				"entity_id", rec.EntityID, "expression", f.Expression, "error", err)
			kept = append(kept, rec)
			continue
		}
		if match {
			kept = append(kept, rec)
		}
	}
	return kept
}

func (e *Engine) evaluate(f *Compiled, rec *domain.EntityRecord) (bool, error) {
	activation := map[string]any{
		"record": map[string]any{
			"entity_id":   rec.EntityID,
			"risk_id":     rec.RiskID,
			"entity_name": rec.EntityName,
			"entity_type": rec.EntityType,
		},
		"risk_score":    rec.Risk.RiskScore,
		"risk_category": rec.Risk.RiskCategory,
		"is_pep":        rec.Pep.IsPep,
		"pep_type":      rec.Pep.PepType,
		"pep_level":     rec.Pep.PepLevel,
		"country":       rec.PrimaryCountry(),
		"name":          rec.EntityName,
		"event_count":   len(rec.Events),
	}

	out, _, err := f.program.Eval(activation)
	if err != nil {
		return false, err
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("filter returned %T, want bool", out)
	}
	return bool(b), nil
}
