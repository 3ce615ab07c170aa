package google

import (
	"context"
	"math"
	"net/http"
	"net/url"
)

// PageSpeed runs PageSpeed Insights (Lighthouse) against a URL.
type PageSpeed interface {
	RunPagespeed(ctx context.Context, targetURL string) (*PagespeedResponse, error)
}

// PagespeedResponse is the subset of the PageSpeed v5 response the audit reads.
type PagespeedResponse struct {
	LighthouseResult LighthouseResult `json:"lighthouseResult"`
}

// LighthouseResult holds category scores and individual audits.
type LighthouseResult struct {
	Categories LighthouseCategories       `json:"categories"`
	Audits     map[string]LighthouseAudit `json:"audits"`
}

// LighthouseCategories holds the category scores that were requested.
type LighthouseCategories struct {
	Performance *LighthouseCategory `json:"performance"`
}

// LighthouseCategory is one scored category. Score is 0..1, null when the
// run could not compute it.
type LighthouseCategory struct {
	Score *float64 `json:"score"`
}

// LighthouseAudit is one audit entry.
type LighthouseAudit struct {
	DisplayValue string       `json:"displayValue"`
	Details      AuditDetails `json:"details"`
}

// AuditDetails carries audit payloads such as the final screenshot.
type AuditDetails struct {
	Data string `json:"data"`
}

// PerformanceScore returns the performance score scaled to 0-100.
func (r *PagespeedResponse) PerformanceScore() (int, bool) {
	perf := r.LighthouseResult.Categories.Performance
	if perf == nil || perf.Score == nil {
		return 0, false
	}
	return int(math.Round(*perf.Score * 100)), true
}

// LCPDisplay returns the human-readable largest contentful paint time.
func (r *PagespeedResponse) LCPDisplay() string {
	return r.LighthouseResult.Audits["largest-contentful-paint"].DisplayValue
}

// Screenshot returns the final screenshot as a data URL, if captured.
func (r *PagespeedResponse) Screenshot() string {
	return r.LighthouseResult.Audits["final-screenshot"].Details.Data
}

func (c *httpClient) RunPagespeed(ctx context.Context, targetURL string) (*PagespeedResponse, error) {
	q := url.Values{}
	q.Set("url", targetURL)
	q.Set("strategy", c.strategy)
	q.Set("category", "PERFORMANCE")
	q.Set("locale", c.locale)

	var result PagespeedResponse
	if err := c.do(ctx, "pagespeed", http.MethodGet, c.ep.pagespeed+"/pagespeedonline/v5/runPagespeed?"+q.Encode(), nil, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}
