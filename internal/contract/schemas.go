package contract

import (
	"strings"

	"github.com/sells-group/practice-audit/internal/model"
)

// FindingSchema is the contract of the three analysis phases.
var FindingSchema = Schema[model.SectionFinding]{
	Name: "finding",
	Fields: []Field{
		{Name: "text", Type: String},
		{
			Name:    "severity",
			Type:    Enum,
			Default: string(model.SeverityMedium),
			Allowed: []string{string(model.SeverityLow), string(model.SeverityMedium), string(model.SeverityHigh)},
		},
	},
	Build: func(v Values) model.SectionFinding {
		sev, _ := model.ParseSeverity(v.String("severity"))
		return model.SectionFinding{Text: v.String("text"), Severity: sev}
	},
}

// PitchSchema is the contract of the sales-pitch synthesis phase.
var PitchSchema = Schema[model.SalesPitch]{
	Name: "sales_pitch",
	Fields: []Field{
		{Name: "headline", Type: String},
		{Name: "symptoms", Type: StringList},
		{Name: "prognosis", Type: String},
		{Name: "treatmentPlan", Type: StringList},
	},
	Build: func(v Values) model.SalesPitch {
		return model.SalesPitch{
			Headline:      v.String("headline"),
			Symptoms:      v.List("symptoms"),
			Prognosis:     v.String("prognosis"),
			TreatmentPlan: v.List("treatmentPlan"),
		}
	},
}

// Finding validates an analysis phase response.
func Finding(raw string) (Result[model.SectionFinding], error) {
	return Validate(raw, FindingSchema)
}

// Pitch validates a sales-pitch phase response.
func Pitch(raw string) (Result[model.SalesPitch], error) {
	return Validate(raw, PitchSchema)
}

// Campaign accepts free-text campaign output. Only surrounding whitespace is
// removed; blank output is malformed.
func Campaign(raw string) (model.CampaignExport, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", &Error{Kind: KindMalformed, Schema: "campaign_export", Reason: "response is empty"}
	}
	return model.CampaignExport(text), nil
}
