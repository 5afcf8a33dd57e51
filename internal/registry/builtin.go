package registry

import (
	"log/slog"

	"github.com/opensource-finance/harrier/internal/domain"
)

// builtinCode is one entry of the curated fallback set installed when
// no usage table is available. Scores here are hand-assigned, not
// derived from frequency.
type builtinCode struct {
	code        string
	name        string
	category    string
	description string
	score       int
}

var builtinCodes = []builtinCode{
	{"TER", "Terrorism", "Terrorism/Tax/Theft", "Acts of terrorism or material support for terrorist organizations", 100},
	{"WLT", "Watch List", "Weapons/Watch List", "Presence on a government or regulatory watch list", 100},
	{"DEN", "Denied Entity", "Drug/Denied", "Listed on a denied persons or entities list", 95},
	{"DTF", "Drug Trafficking", "Drug/Denied", "Trafficking in controlled substances", 90},
	{"TRF", "Human Trafficking", "Terrorism/Tax/Theft", "Trafficking in persons", 90},
	{"MLA", "Money Laundering", "Money/Murder", "Laundering of criminal proceeds", 85},
	{"HUM", "Human Rights Abuse", "Human Rights/Trafficking", "Violations of human rights", 85},
	{"ORG", "Organized Crime", "Organized Crime", "Participation in organized crime groups", 85},
	{"KID", "Kidnapping", "Kidnapping", "Kidnapping or hostage taking", 85},
	{"BRB", "Bribery", "Business/Bribery", "Bribery of public or private officials", 75},
	{"FRD", "Fraud", "Fraud/Fugitive", "Fraud, deception or misrepresentation", 70},
	{"TAX", "Tax Crime", "Terrorism/Tax/Theft", "Tax evasion or tax fraud", 70},
	{"SEC", "Securities Violation", "Sanctions/Securities", "Securities fraud or market manipulation", 70},
	{"REG", "Regulatory Action", "Regulatory/Robbery", "Regulatory enforcement actions", 65},
	{"ROB", "Robbery", "Regulatory/Robbery", "Robbery or armed theft", 60},
	{"MUR", "Murder", "Money/Murder", "Murder or manslaughter", 55},
	{"AST", "Assault", "Assault/Abuse", "Assault or battery", 55},
	{"FUG", "Fugitive", "Fraud/Fugitive", "Wanted fugitive status", 50},
	{"BUR", "Burglary", "Business/Bribery", "Burglary or breaking and entering", 50},
	{"TFT", "Theft", "Terrorism/Tax/Theft", "Theft or larceny", 50},
	{"CON", "Conspiracy", "Conspiracy/Cyber", "Criminal conspiracy", 45},
	{"CFT", "Counterfeiting", "Conspiracy/Cyber", "Counterfeiting of currency or goods", 45},
	{"SMG", "Smuggling", "Sanctions/Securities", "Smuggling of goods or persons", 45},
	{"CYB", "Cyber Crime", "Conspiracy/Cyber", "Computer intrusion or cyber offenses", 40},
	{"IMP", "Identity Misrepresentation", "Identity/Immigration", "False identity or impersonation", 40},
	{"DPS", "Drug Possession", "Drug/Denied", "Possession of controlled substances", 35},
	{"ABU", "Abuse", "Assault/Abuse", "Abuse offenses", 30},
	{"MIS", "Misconduct", "Money/Murder", "General misconduct", 30},
	{"ENV", "Environmental Violation", "Environmental/Economic", "Environmental crimes", 25},
	{"GAM", "Illegal Gambling", "Government", "Illegal gambling operations", 25},
	{"ARS", "Arson", "Assault/Abuse", "Arson", 25},
	{"BKY", "Bankruptcy", "Business/Bribery", "Bankruptcy proceedings", 20},
}

// LoadBuiltin replaces the registry contents with the curated fallback
// set. Severity follows the same thresholds the default scorer uses.
func (r *Registry) LoadBuiltin() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codes = make(map[string]*domain.EventCodeInfo, len(builtinCodes))
	r.scores = make(map[string]*domain.RiskAssignment, len(builtinCodes))
	r.order = r.order[:0]

	for _, b := range builtinCodes {
		r.codes[b.code] = &domain.EventCodeInfo{
			Code:          b.code,
			Name:          b.name,
			Description:   b.description,
			Category:      b.category,
			FrequencyRank: unknownFrequencyRank,
			Source:        domain.SourceFallback,
		}
		r.scores[b.code] = &domain.RiskAssignment{
			Code:         b.code,
			RiskScore:    b.score,
			Severity:     severityForScore(b.score),
			AutoAssigned: true,
			Reasoning:    "built-in fallback assignment",
		}
		r.order = append(r.order, b.code)
	}

	slog.Info("built-in event codes installed", "codes", len(builtinCodes))
}

func severityForScore(score int) string {
	switch {
	case score >= 85:
		return domain.SeverityCritical
	case score >= 65:
		return domain.SeverityValuable
	case score >= 45:
		return domain.SeverityInvestigative
	default:
		return domain.SeverityProbative
	}
}
