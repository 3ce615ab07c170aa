package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/practice-audit/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

// Alert types.
const (
	AlertAuditFailureRate AlertType = "audit_failure_rate"
	AlertSignalDegraded   AlertType = "signal_degraded"
	AlertCostOverrun      AlertType = "cost_overrun"
)

// minFinished is the number of finished audits below which rates are noise.
const minFinished = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.AuditComplete + snap.AuditFailed
	if finished >= minFinished && a.cfg.FailureRateThreshold > 0 && snap.AuditFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertAuditFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Audit failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.AuditFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.AuditFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate":  snap.AuditFailRate,
				"threshold":     a.cfg.FailureRateThreshold,
				"failed":        snap.AuditFailed,
				"finished":      finished,
				"failed_phases": snap.FailedPhases,
			},
			Timestamp: now,
		})
	}

	// Fallback signals never fail an audit, so a rising share of them is
	// only visible here.
	if snap.AuditComplete >= minFinished && a.cfg.DegradedRateThreshold > 0 && snap.DegradedRate > a.cfg.DegradedRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertSignalDegraded,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of audits used fallback signals (threshold %.1f%%) in last %dh",
				snap.DegradedRate*100, a.cfg.DegradedRateThreshold*100, snap.LookbackHours,
			),
			Details: map[string]any{
				"degraded_runs":    snap.DegradedRuns,
				"complete":         snap.AuditComplete,
				"fallback_signals": snap.FallbackSignals,
			},
			Timestamp: now,
		})
	}

	if a.cfg.CostThresholdUSD > 0 && snap.AuditCostUSD > a.cfg.CostThresholdUSD {
		alerts = append(alerts, Alert{
			Type:     AlertCostOverrun,
			Severity: "high",
			Message: fmt.Sprintf(
				"Generation cost $%.2f exceeds threshold $%.2f in last %dh",
				snap.AuditCostUSD, a.cfg.CostThresholdUSD, snap.LookbackHours,
			),
			Details: map[string]any{
				"cost_usd":      snap.AuditCostUSD,
				"threshold_usd": a.cfg.CostThresholdUSD,
				"audit_total":   snap.AuditTotal,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
