package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Signals    SignalsConfig    `yaml:"signals" mapstructure:"signals"`
	Fallback   FallbackConfig   `yaml:"fallback" mapstructure:"fallback"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GoogleConfig holds credentials and request settings shared by the Google APIs.
type GoogleConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	Locale    string  `yaml:"locale" mapstructure:"locale"`
	Strategy  string  `yaml:"strategy" mapstructure:"strategy"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds generation-engine settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// SignalsConfig holds the per-source timeouts for live signal calls. Each call
// is a single attempt bounded by its timeout.
type SignalsConfig struct {
	PerformanceTimeoutSecs int `yaml:"performance_timeout_secs" mapstructure:"performance_timeout_secs"`
	SecurityTimeoutSecs    int `yaml:"security_timeout_secs" mapstructure:"security_timeout_secs"`
	MarketTimeoutSecs      int `yaml:"market_timeout_secs" mapstructure:"market_timeout_secs"`
	VisionTimeoutSecs      int `yaml:"vision_timeout_secs" mapstructure:"vision_timeout_secs"`
	SentimentTimeoutSecs   int `yaml:"sentiment_timeout_secs" mapstructure:"sentiment_timeout_secs"`
	FieldDataTimeoutSecs   int `yaml:"field_data_timeout_secs" mapstructure:"field_data_timeout_secs"`
}

// Timeout converts a seconds setting into a duration, defaulting to 15s.
func Timeout(secs int) time.Duration {
	if secs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// FallbackConfig is the table of substitute values used when a live signal
// call fails.
type FallbackConfig struct {
	PerformanceScore   int                  `yaml:"performance_score" mapstructure:"performance_score"`
	LoadTimeDisplay    string               `yaml:"load_time_display" mapstructure:"load_time_display"`
	VisionLabels       []string             `yaml:"vision_labels" mapstructure:"vision_labels"`
	EmptyVisionLabel   string               `yaml:"empty_vision_label" mapstructure:"empty_vision_label"`
	SentimentScore     float64              `yaml:"sentiment_score" mapstructure:"sentiment_score"`
	SentimentMagnitude float64              `yaml:"sentiment_magnitude" mapstructure:"sentiment_magnitude"`
	Competitors        []CompetitorFallback `yaml:"competitors" mapstructure:"competitors"`
}

// CompetitorFallback is one simulated market entry.
type CompetitorFallback struct {
	Name        string  `yaml:"name" mapstructure:"name"`
	Rating      float64 `yaml:"rating" mapstructure:"rating"`
	ReviewCount int     `yaml:"review_count" mapstructure:"review_count"`
}

// DefaultCompetitors returns the simulated entries used when places search fails.
func DefaultCompetitors() []CompetitorFallback {
	return []CompetitorFallback{
		{Name: "Instituto Ortopédico", Rating: 4.9, ReviewCount: 342},
		{Name: "Clínica de Fraturas", Rating: 4.7, ReviewCount: 156},
	}
}

// DefaultFallback returns the built-in fallback table.
func DefaultFallback() FallbackConfig {
	return FallbackConfig{
		PerformanceScore:   45,
		LoadTimeDisplay:    "6.5s",
		VisionLabels:       []string{"Ambiente Clínico", "Médico", "Saúde", "Ortopedia"},
		EmptyVisionLabel:   "Imagem Genérica",
		SentimentScore:     0.8,
		SentimentMagnitude: 0.8,
		Competitors:        DefaultCompetitors(),
	}
}

// PricingConfig holds per-model token pricing (USD per million tokens).
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds token pricing for one model.
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// StoreConfig configures the run store. An empty driver disables persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// DrainTimeoutSecs bounds how long shutdown waits for in-flight audits.
	DrainTimeoutSecs int `yaml:"drain_timeout_secs" mapstructure:"drain_timeout_secs"`
}

// MonitoringConfig configures the background alert checker.
type MonitoringConfig struct {
	Enabled               bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	DegradedRateThreshold float64 `yaml:"degraded_rate_threshold" mapstructure:"degraded_rate_threshold"`
	CostThresholdUSD      float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	fb := DefaultFallback()
	v.SetDefault("google.locale", "pt-BR")
	v.SetDefault("google.strategy", "mobile")
	v.SetDefault("google.rate_limit", 10.0)
	v.SetDefault("google.key", "")
	v.SetDefault("google.base_url", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.4)
	v.SetDefault("signals.performance_timeout_secs", 60)
	v.SetDefault("signals.security_timeout_secs", 10)
	v.SetDefault("signals.market_timeout_secs", 10)
	v.SetDefault("signals.vision_timeout_secs", 20)
	v.SetDefault("signals.sentiment_timeout_secs", 10)
	v.SetDefault("signals.field_data_timeout_secs", 10)
	v.SetDefault("fallback.performance_score", fb.PerformanceScore)
	v.SetDefault("fallback.load_time_display", fb.LoadTimeDisplay)
	v.SetDefault("fallback.vision_labels", fb.VisionLabels)
	v.SetDefault("fallback.empty_vision_label", fb.EmptyVisionLabel)
	v.SetDefault("fallback.sentiment_score", fb.SentimentScore)
	v.SetDefault("fallback.sentiment_magnitude", fb.SentimentMagnitude)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "audit.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.drain_timeout_secs", 300)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.degraded_rate_threshold", 0.5)
	v.SetDefault("monitoring.cost_threshold_usd", 20.0)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// Lists of structs have no viper default; fill them here.
	if len(cfg.Fallback.Competitors) == 0 {
		cfg.Fallback.Competitors = DefaultCompetitors()
	}
	if len(cfg.Pricing.Anthropic) == 0 {
		cfg.Pricing.Anthropic = DefaultPricing()
	}

	return &cfg, nil
}

// DefaultPricing returns list prices for the supported models.
func DefaultPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
		"claude-opus-4-6":            {Input: 15.00, Output: 75.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
