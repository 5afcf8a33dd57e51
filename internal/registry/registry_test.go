package registry

import (
	"strings"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func loadedRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	usage := []domain.CodeUsage{
		{Code: "FRD", UsageCount: 500},
		{Code: "TER", UsageCount: 300},
		{Code: "TFT", UsageCount: 300},
		{Code: "BKY", UsageCount: 10},
	}
	defs := []domain.CodeDefinition{
		{Code: "FRD", Name: "Fraud", Category: "Financial Crime", Description: "Fraud or deception"},
		{Code: "TER", Name: "Terrorism", Category: "National Security", Description: "Acts of terrorism"},
		{Code: "TFT", Name: "Theft", Category: "Property Crime", Description: "Theft or larceny"},
	}
	if err := r.Load(usage, defs); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r
}

func TestLoad(t *testing.T) {
	t.Run("merges definitions into usage", func(t *testing.T) {
		r := loadedRegistry(t)

		v := r.Lookup("FRD")
		if v.Name != "Fraud" || v.Category != "Financial Crime" {
			t.Errorf("got name=%q category=%q", v.Name, v.Category)
		}
		if v.Source != domain.SourceExtracted {
			t.Errorf("source = %q, want extracted", v.Source)
		}
	})

	t.Run("undocumented code gets inferred category and synthesized name", func(t *testing.T) {
		r := loadedRegistry(t)

		v := r.Lookup("BKY")
		if v.Name != "Event Code BKY" {
			t.Errorf("name = %q", v.Name)
		}
		if v.Category != "Business/Bribery" {
			t.Errorf("category = %q", v.Category)
		}
	})

	t.Run("frequency ranks descend by usage with stable ties", func(t *testing.T) {
		r := loadedRegistry(t)

		if got := r.Lookup("FRD").FrequencyRank; got != 1 {
			t.Errorf("FRD rank = %d, want 1", got)
		}
		// TER and TFT tie at 300; TER was inserted first.
		if got := r.Lookup("TER").FrequencyRank; got != 2 {
			t.Errorf("TER rank = %d, want 2", got)
		}
		if got := r.Lookup("TFT").FrequencyRank; got != 3 {
			t.Errorf("TFT rank = %d, want 3", got)
		}
		if got := r.Lookup("BKY").FrequencyRank; got != 4 {
			t.Errorf("BKY rank = %d, want 4", got)
		}
	})

	t.Run("empty usage installs fallback set", func(t *testing.T) {
		r := New()
		err := r.Load(nil, nil)
		if err == nil {
			t.Fatal("want error for empty usage table")
		}
		if r.Count() == 0 {
			t.Fatal("fallback set not installed")
		}
		if v := r.Lookup("TER"); v.Source != domain.SourceFallback {
			t.Errorf("TER source = %q, want fallback", v.Source)
		}
	})

	t.Run("skips malformed codes", func(t *testing.T) {
		r := New()
		usage := []domain.CodeUsage{
			{Code: "FRD", UsageCount: 10},
			{Code: "TOOLONG", UsageCount: 5},
		}
		if err := r.Load(usage, nil); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if r.Count() != 1 {
			t.Errorf("count = %d, want 1", r.Count())
		}
	})
}

func TestDefaultScores(t *testing.T) {
	t.Run("critical keyword floor and bonus", func(t *testing.T) {
		r := loadedRegistry(t)

		// TER: rank 2, base = 100-4 = 96, critical keyword "terror",
		// score = max(85, 96+30) clamped to 100.
		v := r.Lookup("TER")
		if v.RiskScore != 100 {
			t.Errorf("TER score = %d, want 100", v.RiskScore)
		}
		if v.Severity != domain.SeverityCritical {
			t.Errorf("TER severity = %q", v.Severity)
		}
	})

	t.Run("valuable keyword", func(t *testing.T) {
		r := loadedRegistry(t)

		// FRD: rank 1, base = 98, "fraud" keyword, 98+20 clamped to 100.
		v := r.Lookup("FRD")
		if v.RiskScore != 100 {
			t.Errorf("FRD score = %d, want 100", v.RiskScore)
		}
		if v.Severity != domain.SeverityValuable {
			t.Errorf("FRD severity = %q", v.Severity)
		}
	})

	t.Run("investigative keyword", func(t *testing.T) {
		r := loadedRegistry(t)

		// TFT: rank 3, base = 94, "theft" keyword, 94+10 clamped to 100.
		v := r.Lookup("TFT")
		if v.Severity != domain.SeverityInvestigative {
			t.Errorf("TFT severity = %q", v.Severity)
		}
	})

	t.Run("no keyword match keeps frequency base", func(t *testing.T) {
		r := loadedRegistry(t)

		// BKY: rank 4, base = 92, no keyword in "Event Code BKY".
		v := r.Lookup("BKY")
		if v.RiskScore != 92 {
			t.Errorf("BKY score = %d, want 92", v.RiskScore)
		}
		if v.Severity != domain.SeverityProbative {
			t.Errorf("BKY severity = %q", v.Severity)
		}
	})

	t.Run("deep rank clamps base to 20", func(t *testing.T) {
		info := &domain.EventCodeInfo{Code: "ZZZ", Name: "Plain", FrequencyRank: 60}
		a := deriveAssignment(info)
		if a.RiskScore != 20 {
			t.Errorf("score = %d, want 20", a.RiskScore)
		}
	})

	t.Run("auto assigned with reasoning", func(t *testing.T) {
		r := loadedRegistry(t)
		v := r.Lookup("FRD")
		if !v.AutoAssigned || v.UserCustomized {
			t.Errorf("flags = auto:%v custom:%v", v.AutoAssigned, v.UserCustomized)
		}
		if !strings.Contains(v.Reasoning, "frequency rank 1") {
			t.Errorf("reasoning = %q", v.Reasoning)
		}
	})
}

func TestApplyUserOverrides(t *testing.T) {
	t.Run("merges fields and marks customized", func(t *testing.T) {
		r := loadedRegistry(t)

		score := 42
		sev := domain.SeverityProbative
		r.ApplyUserOverrides(map[string]domain.CodeOverride{
			"FRD": {RiskScore: &score, Severity: &sev},
		})

		v := r.Lookup("FRD")
		if v.RiskScore != 42 || v.Severity != domain.SeverityProbative {
			t.Errorf("got score=%d severity=%q", v.RiskScore, v.Severity)
		}
		if v.AutoAssigned || !v.UserCustomized {
			t.Errorf("flags = auto:%v custom:%v", v.AutoAssigned, v.UserCustomized)
		}
		// Untouched fields survive.
		if v.Name != "Fraud" {
			t.Errorf("name = %q", v.Name)
		}
	})

	t.Run("override score is clamped", func(t *testing.T) {
		r := loadedRegistry(t)

		score := 250
		r.ApplyUserOverrides(map[string]domain.CodeOverride{"FRD": {RiskScore: &score}})
		if got := r.Lookup("FRD").RiskScore; got != 100 {
			t.Errorf("score = %d, want 100", got)
		}
	})

	t.Run("unknown codes are ignored", func(t *testing.T) {
		r := loadedRegistry(t)
		before := r.Count()

		score := 50
		r.ApplyUserOverrides(map[string]domain.CodeOverride{"XXX": {RiskScore: &score}})
		if r.Count() != before {
			t.Errorf("count changed: %d -> %d", before, r.Count())
		}
	})
}

func TestUpsert(t *testing.T) {
	t.Run("creates new user code", func(t *testing.T) {
		r := loadedRegistry(t)

		score := 77
		r.Upsert("new", domain.CodeOverride{RiskScore: &score})

		v := r.Lookup("NEW")
		if v.Name != "User Defined NEW" {
			t.Errorf("name = %q", v.Name)
		}
		if v.Source != domain.SourceUserAdded {
			t.Errorf("source = %q", v.Source)
		}
		if v.RiskScore != 77 || !v.UserCustomized {
			t.Errorf("score=%d custom=%v", v.RiskScore, v.UserCustomized)
		}
		if v.FrequencyRank != unknownFrequencyRank {
			t.Errorf("rank = %d", v.FrequencyRank)
		}
	})

	t.Run("updates existing code in place", func(t *testing.T) {
		r := loadedRegistry(t)

		name := "Wire Fraud"
		r.Upsert("FRD", domain.CodeOverride{Name: &name})

		v := r.Lookup("FRD")
		if v.Name != "Wire Fraud" {
			t.Errorf("name = %q", v.Name)
		}
		if v.Source != domain.SourceExtracted {
			t.Errorf("source = %q, want extracted preserved", v.Source)
		}
	})
}

func TestLookup(t *testing.T) {
	t.Run("unknown code sentinel", func(t *testing.T) {
		r := loadedRegistry(t)

		v := r.Lookup("qqq")
		if v.Name != "Unknown Code QQQ" {
			t.Errorf("name = %q", v.Name)
		}
		if v.RiskScore != 0 || v.Severity != domain.SeverityUnknown {
			t.Errorf("score=%d severity=%q", v.RiskScore, v.Severity)
		}
		if v.FrequencyRank != unknownFrequencyRank {
			t.Errorf("rank = %d", v.FrequencyRank)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		r := loadedRegistry(t)
		if v := r.Lookup("frd"); v.Name != "Fraud" {
			t.Errorf("name = %q", v.Name)
		}
	})
}

func TestScoreFor(t *testing.T) {
	r := loadedRegistry(t)

	if _, ok := r.ScoreFor("QQQ"); ok {
		t.Error("unknown code reported as known")
	}
	if score, ok := r.ScoreFor("TER"); !ok || score != 100 {
		t.Errorf("TER = %d,%v", score, ok)
	}
}

func TestBuiltin(t *testing.T) {
	r := New()
	r.LoadBuiltin()

	cases := []struct {
		code     string
		score    int
		severity string
	}{
		{"TER", 100, domain.SeverityCritical},
		{"MLA", 85, domain.SeverityCritical},
		{"FRD", 70, domain.SeverityValuable},
		{"MIS", 30, domain.SeverityProbative},
		{"BKY", 20, domain.SeverityProbative},
	}
	for _, tc := range cases {
		v := r.Lookup(tc.code)
		if v.RiskScore != tc.score || v.Severity != tc.severity {
			t.Errorf("%s = score:%d severity:%q, want %d/%q",
				tc.code, v.RiskScore, v.Severity, tc.score, tc.severity)
		}
	}
}

func TestExportOverrides(t *testing.T) {
	r := loadedRegistry(t)

	score := 33
	r.ApplyUserOverrides(map[string]domain.CodeOverride{"TFT": {RiskScore: &score}})

	out := r.ExportOverrides()
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	ov, ok := out["TFT"]
	if !ok {
		t.Fatal("TFT missing from export")
	}
	if *ov.RiskScore != 33 || *ov.Name != "Theft" {
		t.Errorf("export = score:%d name:%q", *ov.RiskScore, *ov.Name)
	}
}

func TestCodes(t *testing.T) {
	r := loadedRegistry(t)
	views := r.Codes()
	if len(views) != 4 {
		t.Fatalf("len = %d, want 4", len(views))
	}
	for i := 1; i < len(views); i++ {
		if views[i-1].Code > views[i].Code {
			t.Errorf("not sorted: %s before %s", views[i-1].Code, views[i].Code)
		}
	}
}
