package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   Severity
		wantOK bool
	}{
		{"low", SeverityLow, true},
		{" HIGH ", SeverityHigh, true},
		{"Medium", SeverityMedium, true},
		{"critical", SeverityMedium, false},
		{"", SeverityMedium, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseSeverity(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestAuditReportJSONKeys(t *testing.T) {
	t.Parallel()

	r := AuditReport{
		Subject:      Subject{Name: "Dr. Silva"},
		SalesPitch:   SalesPitch{Headline: "h", TreatmentPlan: []string{"a"}},
		GoogleAdsCSV: CampaignExport("Campaign,Ad Group\n"),
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Contains(t, raw, "salesPitch")
	assert.Contains(t, raw, "googleAdsCsv")
	pitch := raw["salesPitch"].(map[string]any)
	assert.Contains(t, pitch, "treatmentPlan")

	assert.Contains(t, raw, "generated_at")
	signals := raw["signals"].(map[string]any)
	perf := signals["performance"].(map[string]any)
	assert.Contains(t, perf, "is_fallback")
	assert.Contains(t, perf["value"].(map[string]any), "load_time_display")
	assert.Equal(t, "Campaign,Ad Group\n", r.GoogleAdsCSV.String())
}
