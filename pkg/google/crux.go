package google

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// CrUX queries the Chrome UX Report for real-user metrics. Sites with too
// little traffic get a 404, surfaced as a *StatusError.
type CrUX interface {
	QueryRecord(ctx context.Context, targetURL string) (*CrUXResponse, error)
}

// CrUXResponse is the queryRecord response.
type CrUXResponse struct {
	Record CrUXRecord `json:"record"`
}

// CrUXRecord holds metrics keyed by name (e.g. "largest_contentful_paint").
type CrUXRecord struct {
	Metrics map[string]CrUXMetric `json:"metrics"`
}

// CrUXMetric holds the percentile summary of one metric.
type CrUXMetric struct {
	Percentiles CrUXPercentiles `json:"percentiles"`
}

// CrUXPercentiles holds p75, which CrUX encodes as a number or a string
// depending on the metric.
type CrUXPercentiles struct {
	P75 json.RawMessage `json:"p75"`
}

// P75 returns the p75 value of a metric as text.
func (r *CrUXResponse) P75(metric string) (string, bool) {
	m, ok := r.Record.Metrics[metric]
	if !ok || len(m.Percentiles.P75) == 0 {
		return "", false
	}
	return strings.Trim(string(m.Percentiles.P75), `"`), true
}

type cruxRequest struct {
	URL        string `json:"url"`
	FormFactor string `json:"formFactor"`
}

func (c *httpClient) QueryRecord(ctx context.Context, targetURL string) (*CrUXResponse, error) {
	var result CrUXResponse
	err := c.do(ctx, "crux", http.MethodPost, c.ep.crux+"/v1/records:queryRecord",
		cruxRequest{URL: targetURL, FormFactor: "PHONE"}, &result, nil)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
