package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEngineConfigFrom_Defaults(t *testing.T) {
	cfg, err := LoadEngineConfigFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Limits.MaxTitleLength)
	assert.Equal(t, 1000, cfg.Limits.MaxValueLength)
	assert.Equal(t, 200, cfg.Limits.MaxFriendlyValueLength)
	assert.Equal(t, 2000, cfg.Limits.MaxActionValueLength)
	assert.Equal(t, 20, cfg.MaxRecipes)
	assert.Equal(t, 50, cfg.Stats.MaxHistory)
	assert.Equal(t, 3, cfg.Stats.FailureThreshold)
	assert.Equal(t, 30*time.Minute, cfg.WeatherCacheTTL)
	assert.Equal(t, "*/30 * * * *", cfg.AlertingSchedule)
	assert.Equal(t, 4, cfg.Engine().BatchConcurrency)
	assert.Equal(t, 3, cfg.Webhook().Retry.MaxAttempts)
	assert.True(t, cfg.WeatherEnabled)
	assert.NotEmpty(t, cfg.DatabasePath)
}

func TestLoadEngineConfigFrom_YAML(t *testing.T) {
	yaml := []byte(`
database:
  path: /tmp/recipes/test.db
recipes:
  max_title_length: 60
  max_per_user: 5
stats:
  max_history: 10
  failure_threshold: 0
weather:
  enabled: false
  base_url: http://localhost:8080
  cache_ttl: 5m
webhook:
  timeout: 2s
  max_attempts: 5
alerting:
  schedule: "0 * * * *"
  webhook_url: https://ops.example.com/hook
engine:
  batch_concurrency: 8
metrics:
  listen: ":9090"
`)

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(yaml)))

	cfg, err := LoadEngineConfigFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/recipes/test.db", cfg.DatabasePath)
	assert.Equal(t, 60, cfg.Limits.MaxTitleLength)
	assert.Equal(t, 1000, cfg.Limits.MaxValueLength)
	assert.Equal(t, 5, cfg.Engine().MaxRecipes)
	assert.Equal(t, 10, cfg.Stats.MaxHistory)
	assert.Zero(t, cfg.Stats.FailureThreshold)
	assert.False(t, cfg.WeatherEnabled)
	assert.Equal(t, "http://localhost:8080", cfg.Weather().BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Weather().CacheTTL)
	assert.Equal(t, 2*time.Second, cfg.Webhook().Timeout)
	assert.Equal(t, 5, cfg.Webhook().Retry.MaxAttempts)
	assert.Equal(t, "0 * * * *", cfg.Alerting().Schedule)
	assert.Equal(t, "https://ops.example.com/hook", cfg.Alerting().WebhookURL)
	assert.Equal(t, 8, cfg.Engine().BatchConcurrency)
	assert.Equal(t, ":9090", cfg.MetricsListen)
}

func TestLoadEngineConfigFrom_Env(t *testing.T) {
	t.Setenv("RECIPE_RECIPES_MAX_PER_USER", "7")
	t.Setenv("RECIPE_DATABASE_PATH", "$HOME/recipes.db")

	v := viper.New()
	v.SetEnvPrefix("RECIPE")
	v.SetEnvKeyReplacer(EnvKeyReplacer)
	v.AutomaticEnv()

	cfg, err := LoadEngineConfigFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxRecipes)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), "recipes.db"), cfg.DatabasePath)
}

func TestLoadEngineConfigFrom_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{key: "recipes.max_title_length", value: 0},
		{key: "recipes.max_per_user", value: -1},
		{key: "stats.failure_threshold", value: -2},
		{key: "engine.batch_concurrency", value: 0},
		{key: "weather.timeout", value: "0s"},
		{key: "webhook.max_attempts", value: 0},
		{key: "alerting.webhook_url", value: "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			_, err := LoadEngineConfigFrom(v)
			require.ErrorIs(t, err, common.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
