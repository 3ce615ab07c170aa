// Package pipeline orchestrates one audit run: signal collection, three
// concurrent analysis phases, then two synthesis phases, merged into an
// AuditReport.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/practice-audit/internal/engine"
	"github.com/sells-group/practice-audit/internal/model"
	"github.com/sells-group/practice-audit/internal/monitoring"
	"github.com/sells-group/practice-audit/internal/store"
)

// Collector gathers the signals for one run. It never fails.
type Collector interface {
	Collect(ctx context.Context, subject model.Subject) model.CollectionContext
}

// PhaseRunner executes one generation phase.
type PhaseRunner interface {
	RunPhase(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Pipeline runs audits. It holds only immutable dependencies; every run owns
// its own state, so concurrent RunAudit calls are independent.
type Pipeline struct {
	collector Collector
	runner    PhaseRunner
	store     store.Store
	metrics   *monitoring.Metrics
	now       func() time.Time

	background sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore persists run status and per-phase records.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) {
		p.store = st
	}
}

// WithMetrics records Prometheus metrics for each run.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a Pipeline.
func New(collector Collector, runner PhaseRunner, opts ...Option) *Pipeline {
	p := &Pipeline{
		collector: collector,
		runner:    runner,
		now:       time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RunAudit executes a complete audit for subject. It returns either a full
// report or an error; a phase failure is reported as a *PhaseError naming the
// phase, and no partial report is returned.
func (p *Pipeline) RunAudit(ctx context.Context, subject model.Subject) (*model.AuditReport, error) {
	if err := subject.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: invalid subject")
	}

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, subject)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
	}
	return p.execute(ctx, runID, subject)
}

// Start persists a queued run and executes it in the background, detached
// from ctx cancellation. It requires a store.
func (p *Pipeline) Start(ctx context.Context, subject model.Subject) (*model.Run, error) {
	if p.store == nil {
		return nil, eris.New("pipeline: start requires a store")
	}
	if err := subject.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: invalid subject")
	}

	run, err := p.store.CreateRun(ctx, subject)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	bg := context.WithoutCancel(ctx)
	p.background.Add(1)
	go func() {
		defer p.background.Done()
		_, _ = p.execute(bg, run.ID, subject) // outcome is persisted
	}()
	return run, nil
}

// Wait blocks until every run launched by Start has persisted its outcome, or
// ctx is done. Callers must not close the store before Wait returns nil.
func (p *Pipeline) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "pipeline: wait for background runs")
	}
}

func (p *Pipeline) execute(ctx context.Context, runID string, subject model.Subject) (*model.AuditReport, error) {
	rs := &runState{
		p:     p,
		runID: runID,
		log:   zap.L().With(zap.String("run_id", runID), zap.String("subject", subject.Slug())),
		start: time.Now(),
	}
	p.metrics.AuditStarted()
	rs.log.Info("pipeline: audit started")

	rs.setStatus(ctx, model.RunStatusCollecting)
	cc := p.collector.Collect(ctx, subject)
	p.metrics.SignalsCollected(cc)

	graph := NewGraph(p.nodes(subject, cc, rs)...)
	results, err := graph.Execute(ctx, OnStage(func(level int, ids []string) {
		status := model.RunStatusSynthesizing
		if level == 0 {
			status = model.RunStatusAnalyzing
		}
		rs.log.Debug("pipeline: stage started", zap.Int("level", level), zap.Strings("phases", ids))
		rs.setStatus(ctx, status)
	}))
	if err != nil {
		rs.fail(ctx, err)
		return nil, err
	}

	technical, _ := Input[model.SectionFinding](Inputs(results), PhaseTechnical)
	branding, _ := Input[model.SectionFinding](Inputs(results), PhaseBranding)
	market, _ := Input[model.SectionFinding](Inputs(results), PhaseMarket)
	pitch, _ := Input[model.SalesPitch](Inputs(results), PhaseSalesPitch)
	campaign, _ := Input[model.CampaignExport](Inputs(results), PhaseCampaign)

	report := &model.AuditReport{
		Subject:      subject,
		Technical:    technical,
		Branding:     branding,
		Market:       market,
		SalesPitch:   pitch,
		GoogleAdsCSV: campaign,
		Signals:      cc,
		GeneratedAt:  p.now().UTC(),
	}
	rs.complete(ctx, report)
	return report, nil
}

// runState accumulates one run's usage and mirrors its progress to the store
// and metrics.
type runState struct {
	p     *Pipeline
	runID string
	log   *zap.Logger
	start time.Time

	mu    sync.Mutex
	usage model.TokenUsage
	cost  float64
}

func (rs *runState) setStatus(ctx context.Context, status model.RunStatus) {
	if rs.p.store == nil || rs.runID == "" {
		return
	}
	if err := rs.p.store.UpdateRunStatus(ctx, rs.runID, status); err != nil {
		rs.log.Warn("pipeline: failed to update run status",
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (rs *runState) totals() (model.TokenUsage, float64) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.usage, rs.cost
}

func (rs *runState) finish(ctx context.Context, status model.RunStatus, result *model.RunResult) {
	elapsed := time.Since(rs.start)
	rs.p.metrics.AuditFinished(status, elapsed, result.CostUSD)
	if rs.p.store == nil || rs.runID == "" {
		return
	}
	if err := rs.p.store.UpdateRunResult(ctx, rs.runID, status, result); err != nil {
		rs.log.Warn("pipeline: failed to save run result", zap.Error(err))
	}
}

func (rs *runState) complete(ctx context.Context, report *model.AuditReport) {
	usage, cost := rs.totals()
	rs.finish(ctx, model.RunStatusComplete, &model.RunResult{Report: report, Usage: usage, CostUSD: cost})
	rs.log.Info("pipeline: audit complete",
		zap.Int("tokens", usage.Total()),
		zap.Float64("cost_usd", cost),
		zap.Int("degraded_signals", len(report.Signals.Degraded())),
		zap.Duration("elapsed", time.Since(rs.start)),
	)
}

func (rs *runState) fail(ctx context.Context, err error) {
	usage, cost := rs.totals()
	result := &model.RunResult{Usage: usage, CostUSD: cost, Error: err.Error()}
	var pe *PhaseError
	if errors.As(err, &pe) {
		result.FailedPhase = pe.Phase
	}
	rs.finish(ctx, model.RunStatusFailed, result)
	rs.log.Error("pipeline: audit failed",
		zap.String("phase", result.FailedPhase),
		zap.Error(err),
		zap.Duration("elapsed", time.Since(rs.start)),
	)
}

// phaseFunc is a phase body. res may be non-nil alongside an error when the
// engine answered but its output was rejected.
type phaseFunc func(ctx context.Context, in Inputs) (out any, res *engine.Result, err error)

// track wraps a phase body with timing, logging, usage accounting and
// persistence of its PhaseResult.
func (rs *runState) track(name string, fn phaseFunc) RunFunc {
	return func(ctx context.Context, in Inputs) (any, error) {
		var phaseID string
		if rs.p.store != nil && rs.runID != "" {
			ph, err := rs.p.store.CreatePhase(ctx, rs.runID, name)
			if err != nil {
				rs.log.Warn("pipeline: failed to create phase record", zap.String("phase", name), zap.Error(err))
			} else {
				phaseID = ph.ID
			}
		}

		start := time.Now()
		out, res, err := fn(ctx, in)
		elapsed := time.Since(start)

		result := &model.PhaseResult{
			Name:       name,
			Status:     model.PhaseStatusComplete,
			DurationMs: elapsed.Milliseconds(),
		}
		if res != nil {
			result.Usage = res.Usage
			result.CostUSD = res.CostUSD
			rs.mu.Lock()
			rs.usage.Add(res.Usage)
			rs.cost += res.CostUSD
			rs.mu.Unlock()
		}
		if err != nil {
			result.Status = model.PhaseStatusFailed
			result.Error = err.Error()
			rs.log.Warn("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", result.DurationMs),
				zap.Error(err),
			)
		} else {
			rs.log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", result.DurationMs),
				zap.Int("tokens", result.Usage.Total()),
			)
		}

		rs.p.metrics.PhaseFinished(name, result.Status, elapsed, result.Usage)
		if phaseID != "" {
			if cerr := rs.p.store.CompletePhase(ctx, phaseID, result); cerr != nil {
				rs.log.Warn("pipeline: failed to complete phase record", zap.String("phase", name), zap.Error(cerr))
			}
		}
		return out, err
	}
}

// Retryable reports whether a RunAudit error may succeed on a fresh run.
func Retryable(err error) bool {
	var ee *engine.Error
	return errors.As(err, &ee) && ee.Transient()
}
