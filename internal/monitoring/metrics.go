package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/practice-audit/internal/model"
)

// Metrics holds the Prometheus collectors for audit runs. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	AuditsStarted   prometheus.Counter
	AuditsCompleted *prometheus.CounterVec
	AuditDuration   prometheus.Histogram
	PhaseDuration   *prometheus.HistogramVec
	PhaseOutcomes   *prometheus.CounterVec
	Signals         *prometheus.CounterVec
	Tokens          *prometheus.CounterVec
	CostUSD         prometheus.Counter
}

// NewMetrics registers the audit collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuditsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "practice_audit_audits_started_total",
			Help: "Total number of audits started",
		}),
		AuditsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "practice_audit_audits_completed_total",
			Help: "Total number of audits that reached a terminal status",
		}, []string{"status"}),
		AuditDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "practice_audit_audit_duration_seconds",
			Help:    "Audit duration in seconds",
			Buckets: []float64{5, 10, 20, 30, 60, 90, 120, 180},
		}),
		PhaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "practice_audit_phase_duration_seconds",
			Help:    "Generation phase duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 60},
		}, []string{"phase"}),
		PhaseOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "practice_audit_phases_total",
			Help: "Generation phases by outcome",
		}, []string{"phase", "status"}),
		Signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "practice_audit_signals_total",
			Help: "Collected signals by category and origin (live or fallback)",
		}, []string{"category", "origin"}),
		Tokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "practice_audit_tokens_total",
			Help: "Generation tokens by phase and direction",
		}, []string{"phase", "direction"}),
		CostUSD: f.NewCounter(prometheus.CounterOpts{
			Name: "practice_audit_cost_usd_total",
			Help: "Estimated generation cost in USD",
		}),
	}
}

// AuditStarted counts a new audit.
func (m *Metrics) AuditStarted() {
	if m == nil {
		return
	}
	m.AuditsStarted.Inc()
}

// AuditFinished records a terminal audit.
func (m *Metrics) AuditFinished(status model.RunStatus, elapsed time.Duration, costUSD float64) {
	if m == nil {
		return
	}
	m.AuditsCompleted.WithLabelValues(string(status)).Inc()
	m.AuditDuration.Observe(elapsed.Seconds())
	m.CostUSD.Add(costUSD)
}

// PhaseFinished records one generation phase.
func (m *Metrics) PhaseFinished(phase string, status model.PhaseStatus, elapsed time.Duration, usage model.TokenUsage) {
	if m == nil {
		return
	}
	m.PhaseOutcomes.WithLabelValues(phase, string(status)).Inc()
	m.PhaseDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
	m.Tokens.WithLabelValues(phase, "input").Add(float64(usage.InputTokens))
	m.Tokens.WithLabelValues(phase, "output").Add(float64(usage.OutputTokens))
}

// SignalsCollected counts each category of cc as live or fallback.
func (m *Metrics) SignalsCollected(cc model.CollectionContext) {
	if m == nil {
		return
	}
	for _, s := range []struct {
		cat      model.Category
		fallback bool
	}{
		{model.CategoryPerformance, cc.Performance.IsFallback},
		{model.CategorySecurity, cc.Security.IsFallback},
		{model.CategoryVision, cc.Vision.IsFallback},
		{model.CategorySentiment, cc.Sentiment.IsFallback},
		{model.CategoryMarket, cc.Market.IsFallback},
		{model.CategoryFieldData, cc.FieldData.IsFallback},
	} {
		origin := "live"
		if s.fallback {
			origin = "fallback"
		}
		m.Signals.WithLabelValues(string(s.cat), origin).Inc()
	}
}
