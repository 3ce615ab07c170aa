// Package engine runs single generation phases against the Anthropic Messages
// API and classifies their failures.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/sells-group/practice-audit/internal/config"
	"github.com/sells-group/practice-audit/internal/cost"
	"github.com/sells-group/practice-audit/internal/model"
	"github.com/sells-group/practice-audit/internal/resilience"
	"github.com/sells-group/practice-audit/pkg/anthropic"
)

// Kind classifies an engine failure.
type Kind int

// Engine failure kinds.
const (
	KindEmptyResponse Kind = iota + 1
	KindTransportFailure
)

func (k Kind) String() string {
	switch k {
	case KindEmptyResponse:
		return "empty response"
	case KindTransportFailure:
		return "transport failure"
	default:
		return "unknown"
	}
}

// Error is returned by RunPhase.
type Error struct {
	Kind  Kind
	Phase string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine: %s %s: %v", e.Phase, e.Kind, e.Err)
	}
	return fmt.Sprintf("engine: %s %s", e.Phase, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether re-running the audit may succeed.
func (e *Error) Transient() bool {
	return e.Kind == KindTransportFailure && resilience.IsTransient(e.Err)
}

// jsonOnly is appended to the system prompt for structured phases.
const jsonOnly = "Responda exclusivamente com um único objeto JSON válido, sem blocos de código markdown e sem texto antes ou depois do objeto."

// Request is one phase invocation.
type Request struct {
	Phase      string
	Role       string
	Task       string
	Structured bool
}

// Result is the raw engine output of one phase.
type Result struct {
	Text     string
	Model    string
	Usage    model.TokenUsage
	CostUSD  float64
	Duration time.Duration
}

// Runner invokes the generation engine. It holds no per-call state and is
// safe for concurrent use.
type Runner struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	calc        *cost.Calculator
}

// Option configures a Runner.
type Option func(*Runner)

// WithCalculator prices each call's usage.
func WithCalculator(c *cost.Calculator) Option {
	return func(r *Runner) {
		r.calc = c
	}
}

// NewRunner creates a Runner for the configured model.
func NewRunner(client anthropic.Client, cfg config.AnthropicConfig, opts ...Option) *Runner {
	r := &Runner{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	if r.maxTokens <= 0 {
		r.maxTokens = 4096
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Model returns the configured model ID.
func (r *Runner) Model() string {
	return r.model
}

// RunPhase sends the role instruction and task payload to the engine and
// returns its text. It makes exactly one call.
func (r *Runner) RunPhase(ctx context.Context, req Request) (*Result, error) {
	system := []string{req.Role}
	if req.Structured {
		system = append(system, jsonOnly)
	}

	temp := r.temperature
	start := time.Now()
	resp, err := r.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       r.model,
		MaxTokens:   r.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(system...),
		Messages:    []anthropic.Message{{Role: "user", Content: req.Task}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, &Error{Kind: KindTransportFailure, Phase: req.Phase, Err: classify(err)}
	}

	res := &Result{
		Text:     extractText(resp),
		Model:    r.model,
		Usage:    toUsage(resp.Usage),
		Duration: time.Since(start),
	}
	if r.calc != nil {
		res.CostUSD = r.calc.Attribute(r.model, req.Phase, res.Usage)
	}

	zap.L().Debug("engine: phase call complete",
		zap.String("phase", req.Phase),
		zap.Bool("structured", req.Structured),
		zap.String("stop_reason", resp.StopReason),
		zap.Int("output_tokens", res.Usage.OutputTokens),
		zap.Duration("elapsed", res.Duration),
	)

	if res.Text == "" {
		return res, &Error{Kind: KindEmptyResponse, Phase: req.Phase}
	}
	return res, nil
}

// classify marks API errors with retryable status codes as transient.
func classify(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return err
}

func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if t := strings.TrimSpace(block.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func toUsage(u anthropic.TokenUsage) model.TokenUsage {
	return model.TokenUsage{
		InputTokens:         int(u.InputTokens),
		OutputTokens:        int(u.OutputTokens),
		CacheCreationTokens: int(u.CacheCreationInputTokens),
		CacheReadTokens:     int(u.CacheReadInputTokens),
	}
}
