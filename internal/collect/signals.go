package collect

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sells-group/practice-audit/internal/model"
	"github.com/sells-group/practice-audit/pkg/google"
)

// Security detail texts.
const (
	detailSafe        = "SEGURO"
	detailNoHTTPS     = "ALERTA (Sem HTTPS)"
	detailThreat      = "PERIGO (Ameaça Detectada)"
	detailNoHTTPSRisk = "PERIGO (Sem HTTPS)"
	detailUnusableURL = "PERIGO (URL inválida)"
)

// noFieldData is the note attached when CrUX has too little traffic data.
const noFieldData = "Dados insuficientes (Site novo/pouco tráfego)"

// Performance runs PageSpeed Insights against the site.
func (c *Collector) Performance(ctx context.Context, siteURL string) model.Signal[model.Performance] {
	fb := model.Performance{Score: c.fallback.PerformanceScore, LoadTimeDisplay: c.fallback.LoadTimeDisplay}
	if siteURL == "" {
		degrade(model.CategoryPerformance, "no site url", nil)
		return model.Fallback(model.CategoryPerformance, fb, "no site url")
	}

	callCtx, cancel := c.withTimeout(ctx, c.signals.PerformanceTimeoutSecs)
	defer cancel()

	resp, err := c.provider.RunPagespeed(callCtx, siteURL)
	if err != nil {
		degrade(model.CategoryPerformance, "pagespeed call failed", err)
		return model.Fallback(model.CategoryPerformance, fb, "pagespeed call failed")
	}
	score, ok := resp.PerformanceScore()
	if !ok {
		degrade(model.CategoryPerformance, "pagespeed returned no score", nil)
		return model.Fallback(model.CategoryPerformance, fb, "pagespeed returned no score")
	}

	lcp := resp.LCPDisplay()
	if lcp == "" {
		lcp = "N/A"
	}
	return model.Live(model.CategoryPerformance, model.Performance{
		Score:           score,
		LoadTimeDisplay: lcp,
		Screenshot:      resp.Screenshot(),
	})
}

// Security checks the site against Safe Browsing. When the check itself
// fails, the verdict falls back to inspecting the URL scheme; an unusable URL
// is always DANGER.
func (c *Collector) Security(ctx context.Context, siteURL string) model.Signal[model.Security] {
	u, err := url.Parse(siteURL)
	if siteURL == "" || err != nil || u.Host == "" {
		degrade(model.CategorySecurity, "unusable site url", err)
		return model.Fallback(model.CategorySecurity,
			model.Security{Level: model.SecurityDanger, Detail: detailUnusableURL}, "unusable site url")
	}
	https := u.Scheme == "https"

	callCtx, cancel := c.withTimeout(ctx, c.signals.SecurityTimeoutSecs)
	defer cancel()

	resp, err := c.provider.FindThreatMatches(callCtx, siteURL)
	if err == nil {
		switch {
		case len(resp.Matches) > 0:
			return model.Live(model.CategorySecurity, model.Security{Level: model.SecurityDanger, Detail: detailThreat})
		case https:
			return model.Live(model.CategorySecurity, model.Security{Level: model.SecuritySafe, Detail: detailSafe})
		default:
			return model.Live(model.CategorySecurity, model.Security{Level: model.SecurityWarn, Detail: detailNoHTTPS})
		}
	}

	degrade(model.CategorySecurity, "protocol heuristic", err)
	if https {
		return model.Fallback(model.CategorySecurity,
			model.Security{Level: model.SecuritySafe, Detail: detailSafe}, "protocol heuristic")
	}
	return model.Fallback(model.CategorySecurity,
		model.Security{Level: model.SecurityDanger, Detail: detailNoHTTPSRisk}, "protocol heuristic")
}

// Market searches for nearby competitors. An empty result is a live answer.
func (c *Collector) Market(ctx context.Context, query string) model.Signal[[]model.Competitor] {
	if query == "" {
		degrade(model.CategoryMarket, "empty market query", nil)
		return model.Fallback(model.CategoryMarket, c.fallbackCompetitors(), "empty market query")
	}

	callCtx, cancel := c.withTimeout(ctx, c.signals.MarketTimeoutSecs)
	defer cancel()

	resp, err := c.provider.TextSearch(callCtx, query, maxCompetitors)
	if err != nil {
		degrade(model.CategoryMarket, "places search failed", err)
		return model.Fallback(model.CategoryMarket, c.fallbackCompetitors(), "places search failed")
	}

	out := make([]model.Competitor, 0, maxCompetitors)
	for _, p := range resp.Places {
		if len(out) == maxCompetitors {
			break
		}
		out = append(out, model.Competitor{
			Name:        p.DisplayName.Text,
			Rating:      p.Rating,
			ReviewCount: p.UserRatingCount,
		})
	}
	return model.Live(model.CategoryMarket, out)
}

func (c *Collector) fallbackCompetitors() []model.Competitor {
	out := make([]model.Competitor, len(c.fallback.Competitors))
	for i, fc := range c.fallback.Competitors {
		out[i] = model.Competitor{Name: fc.Name, Rating: fc.Rating, ReviewCount: fc.ReviewCount}
	}
	return out
}

// Vision labels the site screenshot and reads any text on it.
func (c *Collector) Vision(ctx context.Context, screenshot string) model.Signal[model.Vision] {
	fb := model.Vision{Labels: append([]string(nil), c.fallback.VisionLabels...)}
	if screenshot == "" {
		degrade(model.CategoryVision, "no screenshot", nil)
		return model.Fallback(model.CategoryVision, fb, "no screenshot")
	}

	callCtx, cancel := c.withTimeout(ctx, c.signals.VisionTimeoutSecs)
	defer cancel()

	res, err := c.provider.Annotate(callCtx, screenshot)
	if err != nil {
		degrade(model.CategoryVision, "vision annotate failed", err)
		return model.Fallback(model.CategoryVision, fb, "vision annotate failed")
	}

	labels := res.Labels
	if len(labels) == 0 {
		labels = []string{c.fallback.EmptyVisionLabel}
	}
	return model.Live(model.CategoryVision, model.Vision{Labels: labels, OCRText: res.Text})
}

// Sentiment scores the tone of text read from the site.
func (c *Collector) Sentiment(ctx context.Context, text string) model.Signal[model.Sentiment] {
	fb := model.Sentiment{Score: c.fallback.SentimentScore, Magnitude: c.fallback.SentimentMagnitude}
	if text == "" {
		degrade(model.CategorySentiment, "no text to analyze", nil)
		return model.Fallback(model.CategorySentiment, fb, "no text to analyze")
	}

	callCtx, cancel := c.withTimeout(ctx, c.signals.SentimentTimeoutSecs)
	defer cancel()

	resp, err := c.provider.AnalyzeSentiment(callCtx, text)
	if err != nil {
		degrade(model.CategorySentiment, "sentiment analysis failed", err)
		return model.Fallback(model.CategorySentiment, fb, "sentiment analysis failed")
	}
	if resp.DocumentSentiment == nil {
		degrade(model.CategorySentiment, "no document sentiment returned", nil)
		return model.Fallback(model.CategorySentiment, fb, "no document sentiment returned")
	}
	return model.Live(model.CategorySentiment, model.Sentiment{
		Score:     resp.DocumentSentiment.Score,
		Magnitude: resp.DocumentSentiment.Magnitude,
	})
}

// FieldData reads real-user metrics from the Chrome UX Report. A 404 means
// the site has too little traffic and is reported as a live, empty record.
func (c *Collector) FieldData(ctx context.Context, siteURL string) model.Signal[model.FieldData] {
	if siteURL == "" {
		degrade(model.CategoryFieldData, "no site url", nil)
		return model.Fallback(model.CategoryFieldData, model.FieldData{}, "no site url")
	}

	callCtx, cancel := c.withTimeout(ctx, c.signals.FieldDataTimeoutSecs)
	defer cancel()

	resp, err := c.provider.QueryRecord(callCtx, siteURL)
	if google.IsStatus(err, http.StatusNotFound) {
		sig := model.Live(model.CategoryFieldData, model.FieldData{})
		sig.Note = noFieldData
		return sig
	}
	if err != nil {
		degrade(model.CategoryFieldData, "crux query failed", err)
		return model.Fallback(model.CategoryFieldData, model.FieldData{}, "crux query failed")
	}

	fd := model.FieldData{HasData: true}
	if v, ok := resp.P75("largest_contentful_paint"); ok {
		if ms, perr := strconv.ParseFloat(v, 64); perr == nil {
			fd.LCPP75Milli = ms
		}
	}
	if v, ok := resp.P75("cumulative_layout_shift"); ok {
		fd.CLSP75 = v
	}
	return model.Live(model.CategoryFieldData, fd)
}
