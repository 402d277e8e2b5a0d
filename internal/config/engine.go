package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/alerting"
	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/engine"
	"github.com/Veraticus/the-recipe-must-flow/internal/recipe"
	"github.com/Veraticus/the-recipe-must-flow/internal/service"
	"github.com/Veraticus/the-recipe-must-flow/internal/stats"
	"github.com/Veraticus/the-recipe-must-flow/internal/weather"
	"github.com/Veraticus/the-recipe-must-flow/internal/webhook"
	"github.com/spf13/viper"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "~/.local/share/recipe/recipe.db"

// EnvKeyReplacer maps nested keys such as recipes.max_per_user onto
// RECIPE_RECIPES_MAX_PER_USER.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// EngineConfig is the typed view of every engine setting.
type EngineConfig struct {
	DatabasePath      string
	WeatherBaseURL    string
	AlertingSchedule  string
	AlertingWebhook   string
	MetricsListen     string
	Limits            recipe.Limits
	Stats             stats.Config
	MaxRecipes        int
	BatchConcurrency  int
	WeatherRPM        int
	WebhookAttempts   int
	WeatherCacheTTL   time.Duration
	WeatherTimeout    time.Duration
	WebhookTimeout    time.Duration
	WeatherEnabled    bool
	RuntimeCollectors bool
}

// DefaultEngineConfig returns the built-in defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DatabasePath:      ExpandPath(DefaultDatabasePath),
		WeatherBaseURL:    weather.DefaultBaseURL,
		AlertingSchedule:  alerting.DefaultSchedule,
		Limits:            recipe.DefaultLimits(),
		Stats:             stats.DefaultConfig(),
		MaxRecipes:        engine.DefaultConfig().MaxRecipes,
		BatchConcurrency:  engine.DefaultConfig().BatchConcurrency,
		WeatherRPM:        60,
		WebhookAttempts:   3,
		WeatherCacheTTL:   30 * time.Minute,
		WeatherTimeout:    10 * time.Second,
		WebhookTimeout:    10 * time.Second,
		WeatherEnabled:    true,
		RuntimeCollectors: true,
	}
}

// LoadEngineConfig loads the engine configuration from the global Viper
// instance (config file or RECIPE_ env vars), falling back to defaults.
func LoadEngineConfig() (*EngineConfig, error) {
	return LoadEngineConfigFrom(viper.GetViper())
}

// LoadEngineConfigFrom loads the engine configuration from v.
func LoadEngineConfigFrom(v *viper.Viper) (*EngineConfig, error) {
	cfg := DefaultEngineConfig()

	if s := v.GetString("database.path"); s != "" {
		cfg.DatabasePath = ExpandPath(s)
	}

	setInt(v, "recipes.max_title_length", &cfg.Limits.MaxTitleLength)
	setInt(v, "recipes.max_value_length", &cfg.Limits.MaxValueLength)
	setInt(v, "recipes.max_friendly_value_length", &cfg.Limits.MaxFriendlyValueLength)
	setInt(v, "recipes.max_action_value_length", &cfg.Limits.MaxActionValueLength)
	setInt(v, "recipes.max_per_user", &cfg.MaxRecipes)

	setInt(v, "stats.max_history", &cfg.Stats.MaxHistory)
	setInt(v, "stats.failure_threshold", &cfg.Stats.FailureThreshold)

	if v.IsSet("weather.enabled") {
		cfg.WeatherEnabled = v.GetBool("weather.enabled")
	}
	if s := v.GetString("weather.base_url"); s != "" {
		cfg.WeatherBaseURL = s
	}
	setDuration(v, "weather.cache_ttl", &cfg.WeatherCacheTTL)
	setDuration(v, "weather.timeout", &cfg.WeatherTimeout)
	setInt(v, "weather.requests_per_minute", &cfg.WeatherRPM)

	setDuration(v, "webhook.timeout", &cfg.WebhookTimeout)
	setInt(v, "webhook.max_attempts", &cfg.WebhookAttempts)

	if s := v.GetString("alerting.schedule"); s != "" {
		cfg.AlertingSchedule = s
	}
	cfg.AlertingWebhook = v.GetString("alerting.webhook_url")

	setInt(v, "engine.batch_concurrency", &cfg.BatchConcurrency)

	cfg.MetricsListen = v.GetString("metrics.listen")
	if v.IsSet("metrics.runtime_collectors") {
		cfg.RuntimeCollectors = v.GetBool("metrics.runtime_collectors")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setDuration(v *viper.Viper, key string, dst *time.Duration) {
	if v.IsSet(key) {
		*dst = v.GetDuration(key)
	}
}

// Validate checks that every setting is usable.
func (c EngineConfig) Validate() error {
	positive := map[string]int{
		"recipes.max_title_length":          c.Limits.MaxTitleLength,
		"recipes.max_value_length":          c.Limits.MaxValueLength,
		"recipes.max_friendly_value_length": c.Limits.MaxFriendlyValueLength,
		"recipes.max_action_value_length":   c.Limits.MaxActionValueLength,
		"recipes.max_per_user":              c.MaxRecipes,
		"stats.max_history":                 c.Stats.MaxHistory,
		"engine.batch_concurrency":          c.BatchConcurrency,
		"weather.requests_per_minute":       c.WeatherRPM,
		"webhook.max_attempts":              c.WebhookAttempts,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", common.ErrInvalidConfig, key, value)
		}
	}

	if c.Stats.FailureThreshold < 0 {
		return fmt.Errorf("%w: stats.failure_threshold must not be negative", common.ErrInvalidConfig)
	}
	for key, d := range map[string]time.Duration{
		"weather.cache_ttl": c.WeatherCacheTTL,
		"weather.timeout":   c.WeatherTimeout,
		"webhook.timeout":   c.WebhookTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration", common.ErrInvalidConfig, key)
		}
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.AlertingWebhook != "" && !recipe.IsWebhookURL(c.AlertingWebhook) {
		return fmt.Errorf("%w: alerting.webhook_url %q is not a URL", common.ErrInvalidConfig, c.AlertingWebhook)
	}
	return nil
}

// Engine returns the engine settings.
func (c EngineConfig) Engine() engine.Config {
	return engine.Config{
		Limits:           c.Limits,
		MaxRecipes:       c.MaxRecipes,
		BatchConcurrency: c.BatchConcurrency,
	}
}

// Weather returns the weather client settings.
func (c EngineConfig) Weather() weather.Config {
	return weather.Config{
		BaseURL:           c.WeatherBaseURL,
		Retry:             service.DefaultRetryOptions(),
		Timeout:           c.WeatherTimeout,
		CacheTTL:          c.WeatherCacheTTL,
		RequestsPerMinute: c.WeatherRPM,
	}
}

// Webhook returns the webhook sender settings.
func (c EngineConfig) Webhook() webhook.Config {
	retry := service.DefaultRetryOptions()
	retry.MaxAttempts = c.WebhookAttempts
	return webhook.Config{
		Retry:   retry,
		Timeout: c.WebhookTimeout,
	}
}

// Alerting returns the failing-recipes watcher settings.
func (c EngineConfig) Alerting() alerting.Config {
	return alerting.Config{
		Schedule:   c.AlertingSchedule,
		WebhookURL: c.AlertingWebhook,
	}
}
