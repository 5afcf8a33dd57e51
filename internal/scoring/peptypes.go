package scoring

import (
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// pepTypes is the static table of politically-exposed-person role
// codes observed in the source data.
var pepTypes = map[string]domain.PepTypeInfo{
	"HOS": {Code: "HOS", DisplayName: "Head of State", Level: "L6", RiskMultiplier: 2.0},
	"CAB": {Code: "CAB", DisplayName: "Cabinet Official", Level: "L5", RiskMultiplier: 1.8},
	"INF": {Code: "INF", DisplayName: "Senior Infrastructure Official", Level: "L4", RiskMultiplier: 1.6},
	"NIO": {Code: "NIO", DisplayName: "Senior Non-Infrastructure Official", Level: "L4", RiskMultiplier: 1.6},
	"LEG": {Code: "LEG", DisplayName: "Senior Legislative", Level: "L4", RiskMultiplier: 1.6},
	"AMB": {Code: "AMB", DisplayName: "Ambassador/Diplomatic", Level: "L4", RiskMultiplier: 1.6},
	"MIL": {Code: "MIL", DisplayName: "Senior Military", Level: "L4", RiskMultiplier: 1.6},
	"JUD": {Code: "JUD", DisplayName: "Senior Judicial", Level: "L4", RiskMultiplier: 1.6},
	"MUN": {Code: "MUN", DisplayName: "Municipal Official", Level: "L3", RiskMultiplier: 1.4},
	"REG": {Code: "REG", DisplayName: "Regional Official", Level: "L3", RiskMultiplier: 1.4},
	"POL": {Code: "POL", DisplayName: "Political Party Figure", Level: "L3", RiskMultiplier: 1.4},
	"GOE": {Code: "GOE", DisplayName: "Government Owned Enterprise", Level: "L3", RiskMultiplier: 1.4},
	"GCO": {Code: "GCO", DisplayName: "State-Controlled Business Executive", Level: "L3", RiskMultiplier: 1.4},
	"IGO": {Code: "IGO", DisplayName: "International Gov Organization", Level: "L3", RiskMultiplier: 1.4},
	"ISO": {Code: "ISO", DisplayName: "International Sporting Official", Level: "L2", RiskMultiplier: 1.2},
	"FAM": {Code: "FAM", DisplayName: "Family Member", Level: "L2", RiskMultiplier: 1.2},
	"ASC": {Code: "ASC", DisplayName: "Close Associate", Level: "L1", RiskMultiplier: 1.1},
}

// subcategoryModifiers maps a disposition code to its multiplicative
// severity modifier. Conviction weighs heaviest, dismissal lightest.
var subcategoryModifiers = map[string]float64{
	"CVT": 1.3, // Convicted
	"CNF": 1.2, // Confession
	"SAN": 1.2, // Sanctioned
	"SJT": 1.2, // Jail Time
	"GOV": 1.2, // Government
	"ART": 1.1, // Arrested
	"IND": 1.1, // Indicted
	"WTD": 1.1, // Wanted
	"CHG": 1.0, // Charged
	"ARN": 1.0, // Arraigned
	"ACT": 1.0, // Action
	"PLE": 1.0, // Plea
	"CSP": 1.0, // Conspiracy
	"TRL": 1.0, // Trial
	"DEP": 1.0, // Deported
	"SEZ": 1.0, // Seizure
	"RVK": 1.0, // Revoked
	"FIM": 1.0, // Fine >$10K
	"EXP": 0.9, // Expelled
	"CEN": 0.9, // Censured
	"SPD": 0.9, // Suspended
	"CMP": 0.8, // Complaint
	"APL": 0.8, // Appeal
	"SET": 0.8, // Settlement
	"LIC": 0.8, // License Action
	"ACC": 0.7, // Accused
	"FIL": 0.7, // Fine <$10K
	"PRB": 0.7, // Probe
	"ADT": 0.7, // Audit
	"ALL": 0.6, // Alleged
	"LIN": 0.6, // Lien
	"SPT": 0.6, // Suspected
	"ACQ": 0.5, // Acquitted
	"ASC": 0.5, // Associated
	"DMS": 0.4, // Dismissed
}

// PepTypeFor returns the static info for a PEP role code.
func PepTypeFor(code string) (domain.PepTypeInfo, bool) {
	info, ok := pepTypes[code]
	return info, ok
}

// PepTypes returns all known PEP role codes sorted by level descending,
// then code, for listing endpoints.
func PepTypes() []domain.PepTypeInfo {
	out := make([]domain.PepTypeInfo, 0, len(pepTypes))
	for _, info := range pepTypes {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// ModifierFor returns the severity modifier for a disposition code,
// defaulting to 1.0 for unknown codes.
func ModifierFor(subCategory string) float64 {
	if m, ok := subcategoryModifiers[subCategory]; ok {
		return m
	}
	return 1.0
}
