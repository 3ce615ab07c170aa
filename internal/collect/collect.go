// Package collect gathers the external signals an audit is built on. Every
// operation returns a usable signal: failed live calls degrade to the
// configured fallback value with IsFallback set.
package collect

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/practice-audit/internal/config"
	"github.com/sells-group/practice-audit/internal/model"
	"github.com/sells-group/practice-audit/pkg/google"
)

// Provider is the set of Google APIs the collector reads from.
type Provider interface {
	google.PageSpeed
	google.SafeBrowsing
	google.Places
	google.Vision
	google.Language
	google.CrUX
}

// maxCompetitors bounds the places search.
const maxCompetitors = 3

// Collector fetches signals with per-source timeouts and fallbacks. It holds
// only immutable configuration and is safe for concurrent use.
type Collector struct {
	provider Provider
	signals  config.SignalsConfig
	fallback config.FallbackConfig
}

// New creates a Collector.
func New(provider Provider, signals config.SignalsConfig, fallback config.FallbackConfig) *Collector {
	return &Collector{provider: provider, signals: signals, fallback: fallback}
}

// Collect gathers every signal for subject. The performance, vision and
// sentiment signals form a chain (screenshot, then its text); the other
// signals are fetched alongside it. Collect returns once all have resolved.
func (c *Collector) Collect(ctx context.Context, subject model.Subject) model.CollectionContext {
	var cc model.CollectionContext
	start := time.Now()

	var g errgroup.Group
	g.Go(func() error {
		cc.Performance = c.Performance(ctx, subject.URL)
		cc.Vision = c.Vision(ctx, cc.Performance.Value.Screenshot)
		cc.Sentiment = c.Sentiment(ctx, cc.Vision.Value.OCRText)
		return nil
	})
	g.Go(func() error {
		cc.Security = c.Security(ctx, subject.URL)
		return nil
	})
	g.Go(func() error {
		cc.Market = c.Market(ctx, subject.MarketQuery())
		return nil
	})
	g.Go(func() error {
		cc.FieldData = c.FieldData(ctx, subject.URL)
		return nil
	})
	_ = g.Wait() // signal fetchers never fail

	degraded := cc.Degraded()
	names := make([]string, len(degraded))
	for i, d := range degraded {
		names[i] = string(d)
	}
	zap.L().Info("collect: signals gathered",
		zap.String("subject", subject.Slug()),
		zap.Strings("degraded", names),
		zap.Duration("elapsed", time.Since(start)),
	)

	return cc
}

// degrade logs why a live call was not used.
func degrade(cat model.Category, note string, err error) {
	fields := []zap.Field{
		zap.String("category", string(cat)),
		zap.String("note", note),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	zap.L().Warn("collect: signal degraded, using fallback", fields...)
}

func (c *Collector) withTimeout(ctx context.Context, secs int) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, config.Timeout(secs))
}
