// Package cost prices generation-engine token usage.
package cost

import (
	"go.uber.org/zap"

	"github.com/sells-group/practice-audit/internal/config"
	"github.com/sells-group/practice-audit/internal/model"
)

// Calculator computes USD costs for engine usage from per-model rates.
type Calculator struct {
	rates map[string]config.ModelPricing
}

// NewCalculator creates a Calculator with the given per-model rates.
func NewCalculator(rates map[string]config.ModelPricing) *Calculator {
	return &Calculator{rates: rates}
}

// Known reports whether the model has a configured rate.
func (c *Calculator) Known(modelID string) bool {
	_, ok := c.rates[modelID]
	return ok
}

// Usage computes the cost of one call's token usage. Unknown models cost 0.
func (c *Calculator) Usage(modelID string, u model.TokenUsage) float64 {
	rate, ok := c.rates[modelID]
	if !ok {
		return 0
	}

	inCost := (float64(u.InputTokens) / 1e6) * rate.Input
	outCost := (float64(u.OutputTokens) / 1e6) * rate.Output
	cwCost := (float64(u.CacheCreationTokens) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(u.CacheReadTokens) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// Attribute prices u, logs it against the phase, and returns the cost.
func (c *Calculator) Attribute(modelID, phase string, u model.TokenUsage) float64 {
	usd := c.Usage(modelID, u)
	zap.L().Info("cost attribution",
		zap.String("model", modelID),
		zap.String("phase", phase),
		zap.Int("input_tokens", u.InputTokens),
		zap.Int("output_tokens", u.OutputTokens),
		zap.Int("cache_write_tokens", u.CacheCreationTokens),
		zap.Int("cache_read_tokens", u.CacheReadTokens),
		zap.Float64("estimated_cost_usd", usd),
	)
	return usd
}
