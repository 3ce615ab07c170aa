package pipeline

import (
	"context"

	"github.com/sells-group/practice-audit/internal/contract"
	"github.com/sells-group/practice-audit/internal/engine"
	"github.com/sells-group/practice-audit/internal/model"
)

// Phase names. They double as node IDs and as the names persisted in run
// phase records.
const (
	PhaseTechnical  = "technical_triage"
	PhaseBranding   = "branding_diagnosis"
	PhaseMarket     = "market_competitiveness"
	PhaseSalesPitch = "sales_pitch"
	PhaseCampaign   = "campaign_export"
)

// nodes returns the audit graph for one run in declaration order.
func (p *Pipeline) nodes(subject model.Subject, cc model.CollectionContext, rs *runState) []Node {
	return []Node{
		{
			ID:  PhaseTechnical,
			Run: rs.track(PhaseTechnical, p.analysis(PhaseTechnical, technicalRole, technicalTask(subject, cc))),
		},
		{
			ID:  PhaseBranding,
			Run: rs.track(PhaseBranding, p.analysis(PhaseBranding, brandingRole, brandingTask(subject, cc))),
		},
		{
			ID:  PhaseMarket,
			Run: rs.track(PhaseMarket, p.analysis(PhaseMarket, marketRole, marketTask(subject, cc))),
		},
		{
			ID:   PhaseSalesPitch,
			Deps: []string{PhaseTechnical, PhaseBranding, PhaseMarket},
			Run:  rs.track(PhaseSalesPitch, p.salesPitch(subject)),
		},
		{
			ID:   PhaseCampaign,
			Deps: []string{PhaseTechnical, PhaseMarket},
			Run:  rs.track(PhaseCampaign, p.campaign(subject)),
		},
	}
}

// analysis runs one structured finding phase over a fixed task.
func (p *Pipeline) analysis(phase, role string, task taskFunc) phaseFunc {
	return func(ctx context.Context, _ Inputs) (any, *engine.Result, error) {
		payload, err := task()
		if err != nil {
			return nil, nil, err
		}
		res, err := p.runner.RunPhase(ctx, engine.Request{Phase: phase, Role: role, Task: payload, Structured: true})
		if err != nil {
			return nil, res, err
		}
		finding, err := contract.Finding(res.Text)
		if err != nil {
			return nil, res, err
		}
		return finding.Value, res, nil
	}
}

func (p *Pipeline) salesPitch(subject model.Subject) phaseFunc {
	return func(ctx context.Context, in Inputs) (any, *engine.Result, error) {
		technical, _ := Input[model.SectionFinding](in, PhaseTechnical)
		branding, _ := Input[model.SectionFinding](in, PhaseBranding)
		market, _ := Input[model.SectionFinding](in, PhaseMarket)

		res, err := p.runner.RunPhase(ctx, engine.Request{
			Phase:      PhaseSalesPitch,
			Role:       salesPitchRole,
			Task:       salesPitchTask(subject, technical, branding, market),
			Structured: true,
		})
		if err != nil {
			return nil, res, err
		}
		pitch, err := contract.Pitch(res.Text)
		if err != nil {
			return nil, res, err
		}
		return pitch.Value, res, nil
	}
}

func (p *Pipeline) campaign(subject model.Subject) phaseFunc {
	return func(ctx context.Context, in Inputs) (any, *engine.Result, error) {
		technical, _ := Input[model.SectionFinding](in, PhaseTechnical)
		market, _ := Input[model.SectionFinding](in, PhaseMarket)

		res, err := p.runner.RunPhase(ctx, engine.Request{
			Phase: PhaseCampaign,
			Role:  campaignRole,
			Task:  campaignTask(subject, technical, market),
		})
		if err != nil {
			return nil, res, err
		}
		export, err := contract.Campaign(res.Text)
		if err != nil {
			return nil, res, err
		}
		return export, res, nil
	}
}
