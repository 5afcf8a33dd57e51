// Package domain defines the core interfaces and types for Harrier.
package domain

// CodeSource indicates where an event code entry came from.
type CodeSource string

const (
	// SourceExtracted means the code was loaded from the usage table.
	SourceExtracted CodeSource = "extracted"

	// SourceFallback means the code came from the built-in fallback set.
	SourceFallback CodeSource = "fallback"

	// SourceUserAdded means the code was created by an operator.
	SourceUserAdded CodeSource = "user_added"
)

// Severity tiers for event codes, highest to lowest.
const (
	SeverityCritical      = "critical"
	SeverityValuable      = "valuable"
	SeverityInvestigative = "investigative"
	SeverityProbative     = "probative"
	SeverityUnknown       = "unknown"
)

// EventCodeInfo describes a 3-letter adverse-media event code.
// Unique by code; created at registry load and only mutated through
// explicit update calls.
type EventCodeInfo struct {
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	UsageCount    int64      `json:"usageCount"`
	FrequencyRank int        `json:"frequencyRank"`
	Source        CodeSource `json:"source"`
}

// RiskAssignment holds the risk scoring decision for one event code.
// RiskScore is always clamped to [0,100].
type RiskAssignment struct {
	Code           string `json:"code"`
	RiskScore      int    `json:"riskScore"`
	Severity       string `json:"severity"`
	AutoAssigned   bool   `json:"autoAssigned"`
	UserCustomized bool   `json:"userCustomized"`
	Reasoning      string `json:"reasoning"`
}

// ClampScore bounds a risk score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// CodeOverride is a partial, field-level customization for one code.
// Nil fields are left untouched by ApplyUserOverrides.
type CodeOverride struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	RiskScore   *int    `json:"riskScore,omitempty"`
	Severity    *string `json:"severity,omitempty"`
}

// CodeUsage is one row of the usage table supplied by the config
// collaborator: a code and how many times it appears in the dataset.
// Slice order is significant; it breaks frequency-rank ties.
type CodeUsage struct {
	Code       string `json:"code"`
	UsageCount int64  `json:"usageCount"`
}

// CodeDefinition is one row of the definitions table: the documented
// name, category and description for a code.
type CodeDefinition struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// PepTypeInfo describes one politically-exposed-person role code.
type PepTypeInfo struct {
	Code           string  `json:"code"`
	DisplayName    string  `json:"displayName"`
	Level          string  `json:"level"`
	RiskMultiplier float64 `json:"riskMultiplier"`
}
