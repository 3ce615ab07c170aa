package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/practice-audit/internal/model"
	"github.com/sells-group/practice-audit/internal/store"
)

// MetricsSnapshot holds a point-in-time view of audit health.
type MetricsSnapshot struct {
	// Audit runs within the lookback window.
	AuditTotal     int     `json:"audit_total"`
	AuditComplete  int     `json:"audit_complete"`
	AuditFailed    int     `json:"audit_failed"`
	AuditInFlight  int     `json:"audit_in_flight"`
	AuditFailRate  float64 `json:"audit_fail_rate"`
	AuditCostUSD   float64 `json:"audit_cost_usd"`
	AuditAvgTokens int     `json:"audit_avg_tokens"`

	// FailedPhases counts failed runs by the phase that aborted them.
	FailedPhases map[string]int `json:"failed_phases,omitempty"`

	// DegradedRuns counts complete runs with at least one fallback signal;
	// FallbackSignals counts fallback signals per category.
	DegradedRuns    int                    `json:"degraded_runs"`
	DegradedRate    float64                `json:"degraded_rate"`
	FallbackSignals map[model.Category]int `json:"fallback_signals,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers run-history metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		FailedPhases:    make(map[string]int),
		FallbackSignals: make(map[model.Category]int),
		LookbackHours:   lookbackHours,
		CollectedAt:     now,
	}

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.AuditTotal = len(runs)
	var totalTokens int
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.AuditComplete++
		case model.RunStatusFailed:
			snap.AuditFailed++
		default:
			snap.AuditInFlight++
		}
		if r.Result == nil {
			continue
		}
		snap.AuditCostUSD += r.Result.CostUSD
		totalTokens += r.Result.Usage.Total()
		if r.Result.FailedPhase != "" {
			snap.FailedPhases[r.Result.FailedPhase]++
		}
		if r.Result.Report != nil {
			degraded := r.Result.Report.Signals.Degraded()
			if len(degraded) > 0 {
				snap.DegradedRuns++
			}
			for _, cat := range degraded {
				snap.FallbackSignals[cat]++
			}
		}
	}

	if finished := snap.AuditComplete + snap.AuditFailed; finished > 0 {
		snap.AuditFailRate = float64(snap.AuditFailed) / float64(finished)
	}
	if snap.AuditTotal > 0 {
		snap.AuditAvgTokens = totalTokens / snap.AuditTotal
	}
	if snap.AuditComplete > 0 {
		snap.DegradedRate = float64(snap.DegradedRuns) / float64(snap.AuditComplete)
	}

	return snap, nil
}
