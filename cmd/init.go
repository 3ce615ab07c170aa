package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/practice-audit/internal/collect"
	"github.com/sells-group/practice-audit/internal/config"
	"github.com/sells-group/practice-audit/internal/cost"
	"github.com/sells-group/practice-audit/internal/engine"
	"github.com/sells-group/practice-audit/internal/monitoring"
	"github.com/sells-group/practice-audit/internal/pipeline"
	"github.com/sells-group/practice-audit/internal/store"
	anthropicpkg "github.com/sells-group/practice-audit/pkg/anthropic"
	"github.com/sells-group/practice-audit/pkg/google"
)

// auditEnv holds the initialized clients, store and pipeline shared by the
// audit, serve and probe commands.
type auditEnv struct {
	Store    store.Store // nil when persistence is disabled
	Google   google.Client
	Engine   *engine.Runner
	Metrics  *monitoring.Metrics
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *auditEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// validateKeys checks the credentials every live audit needs.
func validateKeys(c *config.Config) error {
	if c.Google.Key == "" {
		return eris.New("config: google key is required (AUDIT_GOOGLE_KEY)")
	}
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic key is required (AUDIT_ANTHROPIC_KEY)")
	}
	return nil
}

// initStore opens and migrates the configured run store. An empty driver
// returns a nil store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "":
		return nil, nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "audit.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newGoogleClient() google.Client {
	opts := []google.Option{
		google.WithRateLimit(cfg.Google.RateLimit),
		google.WithLocale(cfg.Google.Locale),
		google.WithStrategy(cfg.Google.Strategy),
	}
	if cfg.Google.BaseURL != "" {
		opts = append(opts, google.WithBaseURL(cfg.Google.BaseURL))
	}
	return google.NewClient(cfg.Google.Key, opts...)
}

func newEngine() *engine.Runner {
	opts := []anthropicpkg.Option{anthropicpkg.WithMaxRetries(0)}
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	client := anthropicpkg.NewClient(cfg.Anthropic.Key, opts...)
	return engine.NewRunner(client, cfg.Anthropic, engine.WithCalculator(cost.NewCalculator(cfg.Pricing.Anthropic)))
}

// initEnv builds the pipeline. Metrics are registered with reg when it is
// non-nil. Callers should defer env.Close().
func initEnv(ctx context.Context, reg prometheus.Registerer) (*auditEnv, error) {
	if err := validateKeys(cfg); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	env := &auditEnv{
		Store:  st,
		Google: newGoogleClient(),
		Engine: newEngine(),
	}
	if reg != nil {
		env.Metrics = monitoring.NewMetrics(reg)
	}

	opts := []pipeline.Option{pipeline.WithMetrics(env.Metrics)}
	if st != nil {
		opts = append(opts, pipeline.WithStore(st))
	}
	collector := collect.New(env.Google, cfg.Signals, cfg.Fallback)
	env.Pipeline = pipeline.New(collector, env.Engine, opts...)

	zap.L().Debug("audit environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("model", env.Engine.Model()),
	)
	return env, nil
}
