package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Veraticus/the-recipe-must-flow/internal/account"
	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/config"
	"github.com/Veraticus/the-recipe-must-flow/internal/engine"
	"github.com/Veraticus/the-recipe-must-flow/internal/metrics"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/recipe"
	"github.com/Veraticus/the-recipe-must-flow/internal/service"
	"github.com/Veraticus/the-recipe-must-flow/internal/stats"
	"github.com/Veraticus/the-recipe-must-flow/internal/storage"
	"github.com/Veraticus/the-recipe-must-flow/internal/weather"
	"github.com/Veraticus/the-recipe-must-flow/internal/webhook"
)

// app holds every collaborator a command may need.
type app struct {
	cfg       *config.EngineConfig
	store     *storage.SQLiteStorage
	tracker   *stats.Tracker
	metrics   *metrics.Recorder
	engine    *engine.Engine
	weather   *weather.Client
	webhooks  *webhook.Sender
	lifecycle *account.Lifecycle
}

// initStorage opens and migrates the configured database.
func initStorage(ctx context.Context, cfg *config.EngineConfig) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initApp wires storage, stats, providers and the engine from configuration.
func initApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadEngineConfig()
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	recorder, err := metrics.NewRecorder(metrics.Options{RuntimeCollectors: cfg.RuntimeCollectors})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger := slog.Default()
	a := &app{
		cfg:      cfg,
		store:    store,
		tracker:  stats.NewTracker(store, cfg.Stats, logger),
		metrics:  recorder,
		webhooks: webhook.NewSender(cfg.Webhook(), logger),
	}

	var weatherProvider recipe.WeatherProvider
	if cfg.WeatherEnabled {
		weatherCfg := cfg.Weather()
		weatherCfg.Logger = logger
		a.weather, err = weather.NewClient(weatherCfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize weather client: %w", err)
		}
		weatherProvider = a.weather
	}

	a.engine = engine.NewWithConfig(engine.Dependencies{
		Recipes:  store,
		Stats:    a.tracker,
		Weather:  weatherProvider,
		Webhooks: a.webhooks,
		Metrics:  recorder,
		Logger:   logger,
	}, cfg.Engine())

	a.lifecycle = account.NewLifecycle(store, service.DefaultRetryOptions(), logger)
	a.lifecycle.Register("recipe stats", a.tracker)

	return a, nil
}

// Close releases the database and background workers.
func (a *app) Close() {
	if a.weather != nil {
		a.weather.Close()
	}
	if a.webhooks != nil {
		a.webhooks.Close()
	}
	if err := a.store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

func (a *app) user(ctx context.Context, id string) (*model.User, error) {
	user, err := a.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %q: %w", id, err)
	}
	return user, nil
}

// readActivity loads one activity from a JSON or YAML file.
func readActivity(path string) (model.Activity, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the user on the command line
	if err != nil {
		return model.Activity{}, fmt.Errorf("failed to read activity file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if data, err = common.YAMLToJSON(data); err != nil {
			return model.Activity{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	var activity model.Activity
	if err := json.Unmarshal(data, &activity); err != nil {
		return model.Activity{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return activity, nil
}

// readActivities loads every activity file in dir, oldest first.
func readActivities(dir string) ([]model.Activity, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity directory: %w", err)
	}

	var activities []model.Activity
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		activity, err := readActivity(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].DateStart.Before(activities[j].DateStart)
	})
	return activities, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data)) //nolint:forbidigo // User-facing output
	return nil
}
