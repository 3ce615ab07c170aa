package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "audit.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "pt-BR", cfg.Google.Locale)
	assert.Equal(t, "mobile", cfg.Google.Strategy)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 60, cfg.Signals.PerformanceTimeoutSecs)
	assert.Equal(t, 10, cfg.Signals.SecurityTimeoutSecs)

	assert.Equal(t, 45, cfg.Fallback.PerformanceScore)
	assert.Equal(t, "6.5s", cfg.Fallback.LoadTimeDisplay)
	assert.Len(t, cfg.Fallback.VisionLabels, 4)
	assert.InDelta(t, 0.8, cfg.Fallback.SentimentScore, 0.001)
	require.Len(t, cfg.Fallback.Competitors, 2)
	assert.InDelta(t, 4.9, cfg.Fallback.Competitors[0].Rating, 0.001)
	assert.Equal(t, 156, cfg.Fallback.Competitors[1].ReviewCount)
	assert.Contains(t, cfg.Pricing.Anthropic, "claude-sonnet-4-5-20250929")
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/audit
log:
  level: debug
  format: console
server:
  port: 9090
fallback:
  performance_score: 30
  competitors:
    - name: Clinica A
      rating: 4.1
      review_count: 12
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Fallback.PerformanceScore)
	require.Len(t, cfg.Fallback.Competitors, 1)
	assert.Equal(t, "Clinica A", cfg.Fallback.Competitors[0].Name)
	// Defaults still apply for unset values
	assert.Equal(t, "6.5s", cfg.Fallback.LoadTimeDisplay)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("AUDIT_LOG_LEVEL", "warn")
	t.Setenv("AUDIT_ANTHROPIC_KEY", "sk-test")
	t.Setenv("AUDIT_GOOGLE_KEY", "g-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, "g-test", cfg.Google.Key)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestTimeout(t *testing.T) {
	assert.Equal(t, 15*time.Second, Timeout(0))
	assert.Equal(t, 15*time.Second, Timeout(-3))
	assert.Equal(t, 60*time.Second, Timeout(60))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
