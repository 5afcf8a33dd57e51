// Package registry is the authoritative mapping from 3-letter event
// codes to display metadata and risk score defaults, overridable by
// operators.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Keyword sets scanned against the lower-cased name+description of a
// code. Evaluated top-down; the first matching tier wins.
var (
	criticalKeywords = []string{
		"terror", "trafficking", "murder", "laundering", "weapon", "sanction", "watch",
		"denied", "espionage", "kidnap", "human rights", "organized crime",
	}
	valuableKeywords = []string{
		"fraud", "bribery", "conspiracy", "robbery", "tax", "securities", "regulatory",
		"corruption", "embezzle", "extortion",
	}
	investigativeKeywords = []string{
		"assault", "theft", "burglary", "forgery", "cyber", "identity", "counterfeit",
		"smuggling", "fugitive",
	}
)

// letterCategories infers a coarse category from a code's first letter
// when the definitions table has no entry for it.
var letterCategories = map[byte]string{
	'A': "Assault/Abuse",
	'B': "Business/Bribery",
	'C': "Conspiracy/Cyber",
	'D': "Drug/Denied",
	'E': "Environmental/Economic",
	'F': "Fraud/Fugitive",
	'G': "Government",
	'H': "Human Rights/Trafficking",
	'I': "Identity/Immigration",
	'K': "Kidnapping",
	'L': "Legal",
	'M': "Money/Murder",
	'O': "Organized Crime",
	'P': "Political/Possession",
	'R': "Regulatory/Robbery",
	'S': "Sanctions/Securities",
	'T': "Terrorism/Tax/Theft",
	'W': "Weapons/Watch List",
}

// unknownFrequencyRank marks codes that never appeared in the usage table.
const unknownFrequencyRank = 999

// CodeView is the merged lookup result: code metadata plus its risk
// assignment. Lookups never fail; unknown codes resolve to a sentinel.
type CodeView struct {
	Code           string            `json:"code"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Category       string            `json:"category"`
	UsageCount     int64             `json:"usageCount"`
	FrequencyRank  int               `json:"frequencyRank"`
	Source         domain.CodeSource `json:"source"`
	RiskScore      int               `json:"riskScore"`
	Severity       string            `json:"severity"`
	AutoAssigned   bool              `json:"autoAssigned"`
	UserCustomized bool              `json:"userCustomized"`
	Reasoning      string            `json:"reasoning,omitempty"`
}

// Registry holds event-code metadata and risk assignments.
// Reads are safe under concurrent callers; updates are serialized by a
// single writer lock so readers observe either the pre- or post-update
// entry, never a torn one.
type Registry struct {
	mu     sync.RWMutex
	codes  map[string]*domain.EventCodeInfo
	scores map[string]*domain.RiskAssignment
	order  []string // insertion order, breaks frequency-rank ties
}

// New creates an empty registry. Callers typically follow up with
// Load or LoadBuiltin.
func New() *Registry {
	return &Registry{
		codes:  make(map[string]*domain.EventCodeInfo),
		scores: make(map[string]*domain.RiskAssignment),
	}
}

// Load ingests the usage and definitions tables supplied by the config
// collaborator, merges definitions into usage entries by code, computes
// frequency ranks, and assigns default risk scores. Codes present in
// usage but absent from definitions keep an inferred category and a
// synthesized name.
//
// An empty usage table is treated as a load failure: the built-in
// fallback set is installed instead so the registry is never empty.
func (r *Registry) Load(usage []domain.CodeUsage, defs []domain.CodeDefinition) error {
	if len(usage) == 0 {
		slog.Warn("code usage table empty, installing built-in fallback set")
		r.LoadBuiltin()
		return fmt.Errorf("empty usage table: fallback codes installed")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.codes = make(map[string]*domain.EventCodeInfo, len(usage))
	r.scores = make(map[string]*domain.RiskAssignment, len(usage))
	r.order = r.order[:0]

	for _, u := range usage {
		code := strings.ToUpper(strings.TrimSpace(u.Code))
		if len(code) != 3 {
			slog.Warn("skipping malformed event code", "code", u.Code)
			continue
		}
		if _, exists := r.codes[code]; exists {
			continue
		}
		r.codes[code] = &domain.EventCodeInfo{
			Code:       code,
			Name:       defaultName(code),
			Category:   inferCategory(code),
			UsageCount: u.UsageCount,
			Source:     domain.SourceExtracted,
		}
		r.order = append(r.order, code)
	}

	for _, d := range defs {
		code := strings.ToUpper(strings.TrimSpace(d.Code))
		info, ok := r.codes[code]
		if !ok {
			continue
		}
		if d.Name != "" {
			info.Name = d.Name
		}
		if d.Category != "" {
			info.Category = d.Category
		}
		info.Description = d.Description
	}

	r.rankByUsageLocked()
	r.assignDefaultScoresLocked()

	slog.Info("event code registry loaded",
		"codes", len(r.codes),
		"definitions", len(defs),
	)
	return nil
}

// rankByUsageLocked computes 1-based frequency ranks, descending by
// usage count. The sort must be stable: ties keep insertion order.
func (r *Registry) rankByUsageLocked() {
	ranked := make([]string, len(r.order))
	copy(ranked, r.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return r.codes[ranked[i]].UsageCount > r.codes[ranked[j]].UsageCount
	})
	for i, code := range ranked {
		r.codes[code].FrequencyRank = i + 1
	}
}

// assignDefaultScoresLocked derives a risk assignment for every code:
// frequency sets the base, keyword tiers raise it. First matching tier
// wins in priority order critical > valuable > investigative.
func (r *Registry) assignDefaultScoresLocked() {
	for _, code := range r.order {
		info := r.codes[code]
		r.scores[code] = deriveAssignment(info)
	}
}

func deriveAssignment(info *domain.EventCodeInfo) *domain.RiskAssignment {
	rank := info.FrequencyRank
	if rank == 0 {
		rank = unknownFrequencyRank
	}

	// Higher frequency means a lower individual base score.
	base := 100 - 2*rank
	if base < 20 {
		base = 20
	}
	if base > 100 {
		base = 100
	}

	text := strings.ToLower(info.Name + " " + info.Description)
	score := base
	severity := domain.SeverityProbative

	switch {
	case containsAny(text, criticalKeywords):
		score = maxInt(85, base+30)
		severity = domain.SeverityCritical
	case containsAny(text, valuableKeywords):
		score = maxInt(65, base+20)
		severity = domain.SeverityValuable
	case containsAny(text, investigativeKeywords):
		score = maxInt(45, base+10)
		severity = domain.SeverityInvestigative
	}

	if score > 100 {
		score = 100
	}
	if score < 10 {
		score = 10
	}

	return &domain.RiskAssignment{
		Code:         info.Code,
		RiskScore:    score,
		Severity:     severity,
		AutoAssigned: true,
		Reasoning:    fmt.Sprintf("frequency rank %d with content analysis", rank),
	}
}

// ApplyUserOverrides merges operator customizations field-by-field onto
// matching entries. Codes missing from the registry are untouched.
// This and Upsert are the only mutation paths after load.
func (r *Registry) ApplyUserOverrides(overrides map[string]domain.CodeOverride) {
	r.mu.Lock()
	defer r.mu.Unlock()

	applied := 0
	for code, ov := range overrides {
		code = strings.ToUpper(strings.TrimSpace(code))
		info, ok := r.codes[code]
		if !ok {
			continue
		}
		score := r.scores[code]

		if ov.Name != nil {
			info.Name = *ov.Name
		}
		if ov.Description != nil {
			info.Description = *ov.Description
		}
		if ov.RiskScore != nil {
			score.RiskScore = domain.ClampScore(*ov.RiskScore)
		}
		if ov.Severity != nil {
			score.Severity = *ov.Severity
		}
		score.AutoAssigned = false
		score.UserCustomized = true
		applied++
	}

	if applied > 0 {
		slog.Info("user overrides applied", "codes", applied)
	}
}

// Upsert adds or updates a code's name, description, score and
// severity, marking it user-customized. Used for ad hoc operator
// corrections.
func (r *Registry) Upsert(code string, ov domain.CodeOverride) {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.codes[code]
	if !ok {
		name := fmt.Sprintf("User Defined %s", code)
		if ov.Name != nil {
			name = *ov.Name
		}
		info = &domain.EventCodeInfo{
			Code:          code,
			Name:          name,
			Category:      inferCategory(code),
			FrequencyRank: unknownFrequencyRank,
			Source:        domain.SourceUserAdded,
		}
		r.codes[code] = info
		r.order = append(r.order, code)
	}
	score, ok := r.scores[code]
	if !ok {
		score = &domain.RiskAssignment{Code: code, Severity: domain.SeverityUnknown}
		r.scores[code] = score
	}

	if ov.Name != nil {
		info.Name = *ov.Name
	}
	if ov.Description != nil {
		info.Description = *ov.Description
	}
	if ov.RiskScore != nil {
		score.RiskScore = domain.ClampScore(*ov.RiskScore)
	}
	if ov.Severity != nil {
		score.Severity = *ov.Severity
	}
	score.AutoAssigned = false
	score.UserCustomized = true

	slog.Info("event code upserted", "code", code)
}

// Lookup returns the merged view for a code. Unknown codes return a
// sentinel with score 0 and severity "unknown"; lookups never fail.
func (r *Registry) Lookup(code string) CodeView {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.codes[code]
	if !ok {
		return CodeView{
			Code:          code,
			Name:          fmt.Sprintf("Unknown Code %s", code),
			Description:   "code not found in registry",
			Category:      "Unknown",
			FrequencyRank: unknownFrequencyRank,
			Severity:      domain.SeverityUnknown,
		}
	}

	view := CodeView{
		Code:          info.Code,
		Name:          info.Name,
		Description:   info.Description,
		Category:      info.Category,
		UsageCount:    info.UsageCount,
		FrequencyRank: info.FrequencyRank,
		Source:        info.Source,
		Severity:      domain.SeverityUnknown,
	}
	if score, ok := r.scores[code]; ok {
		view.RiskScore = score.RiskScore
		view.Severity = score.Severity
		view.AutoAssigned = score.AutoAssigned
		view.UserCustomized = score.UserCustomized
		view.Reasoning = score.Reasoning
	}
	return view
}

// ScoreFor returns the risk score for a code and whether the code is
// known. The risk scorer substitutes its own default for unseen codes.
func (r *Registry) ScoreFor(code string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	score, ok := r.scores[strings.ToUpper(code)]
	if !ok {
		return 0, false
	}
	return score.RiskScore, true
}

// Codes returns the merged view of every registered code, sorted by
// code, for listing and export.
func (r *Registry) Codes() []CodeView {
	r.mu.RLock()
	sorted := make([]string, len(r.order))
	copy(sorted, r.order)
	r.mu.RUnlock()

	sort.Strings(sorted)
	views := make([]CodeView, 0, len(sorted))
	for _, code := range sorted {
		views = append(views, r.Lookup(code))
	}
	return views
}

// Count returns the number of registered codes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codes)
}

// ExportOverrides returns the user-customized entries in the
// persistence format consumed by the config collaborator.
func (r *Registry) ExportOverrides() map[string]domain.CodeOverride {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.CodeOverride)
	for code, score := range r.scores {
		if !score.UserCustomized {
			continue
		}
		info := r.codes[code]
		name := info.Name
		desc := info.Description
		rs := score.RiskScore
		sev := score.Severity
		out[code] = domain.CodeOverride{
			Name:        &name,
			Description: &desc,
			RiskScore:   &rs,
			Severity:    &sev,
		}
	}
	return out
}

func inferCategory(code string) string {
	if code == "" {
		return "Unknown Category"
	}
	if cat, ok := letterCategories[code[0]]; ok {
		return cat
	}
	return "Unknown Category"
}

func defaultName(code string) string {
	return fmt.Sprintf("Event Code %s", code)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
