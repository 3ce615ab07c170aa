package model

import "time"

// RunStatus represents the current state of an audit run.
type RunStatus string

// Run lifecycle, in order. Complete and Failed are terminal.
const (
	RunStatusQueued       RunStatus = "queued"
	RunStatusCollecting   RunStatus = "collecting"
	RunStatusAnalyzing    RunStatus = "analyzing"
	RunStatusSynthesizing RunStatus = "synthesizing"
	RunStatusComplete     RunStatus = "complete"
	RunStatusFailed       RunStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// Run is a persisted audit run.
type Run struct {
	ID        string     `json:"id"`
	Subject   Subject    `json:"subject"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult is written once, when a run reaches a terminal status. Report is
// nil for failed runs.
type RunResult struct {
	Report      *AuditReport `json:"report,omitempty"`
	Usage       TokenUsage   `json:"usage"`
	CostUSD     float64      `json:"cost_usd"`
	FailedPhase string       `json:"failed_phase,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// PhaseStatus represents the outcome of one phase.
type PhaseStatus string

// Phase states.
const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// RunPhase tracks one phase execution within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseResult holds the outcome of a completed phase.
type PhaseResult struct {
	Name       string      `json:"name"`
	Status     PhaseStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
	Usage      TokenUsage  `json:"usage"`
	CostUSD    float64     `json:"cost_usd"`
	Error      string      `json:"error,omitempty"`
}

// TokenUsage tracks generation-engine token consumption.
type TokenUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_tokens,omitempty"`
	CacheReadTokens     int `json:"cache_read_tokens,omitempty"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}
