package model

import (
	"strings"
	"time"
)

// Severity is the three-level rating attached to each analysis section.
type Severity string

// Severity levels.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity normalizes s and reports whether it is a known level.
func ParseSeverity(s string) (Severity, bool) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return sev, true
	default:
		return SeverityMedium, false
	}
}

// SectionFinding is the output of one analysis phase.
type SectionFinding struct {
	Text     string   `json:"text" yaml:"text"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// SalesPitch is the synthesized pitch built from the three findings. Its JSON
// keys are the same keys the engine is asked to produce.
type SalesPitch struct {
	Headline      string   `json:"headline" yaml:"headline"`
	Symptoms      []string `json:"symptoms" yaml:"symptoms"`
	Prognosis     string   `json:"prognosis" yaml:"prognosis"`
	TreatmentPlan []string `json:"treatmentPlan" yaml:"treatment_plan"`
}

// CampaignExport is an advertising-campaign import file. Only surrounding
// whitespace is normalized; the content is otherwise opaque.
type CampaignExport string

// String returns the export text.
func (c CampaignExport) String() string {
	return string(c)
}

// AuditReport is the terminal aggregate of a successful run.
//
// The pitch and campaign keys (salesPitch, googleAdsCsv) are camelCase so
// existing report consumers keep the keys they already read. Every
// other key, including the signals and run metadata, is snake_case. YAML
// output is snake_case throughout.
type AuditReport struct {
	Subject      Subject           `json:"subject" yaml:"subject"`
	Technical    SectionFinding    `json:"technical" yaml:"technical"`
	Branding     SectionFinding    `json:"branding" yaml:"branding"`
	Market       SectionFinding    `json:"market" yaml:"market"`
	SalesPitch   SalesPitch        `json:"salesPitch" yaml:"sales_pitch"`
	GoogleAdsCSV CampaignExport    `json:"googleAdsCsv" yaml:"google_ads_csv"`
	Signals      CollectionContext `json:"signals" yaml:"signals"`
	GeneratedAt  time.Time         `json:"generated_at" yaml:"generated_at"`
}
