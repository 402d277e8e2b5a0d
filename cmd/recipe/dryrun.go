package main

import (
	"context"
	"log/slog"

	"github.com/Veraticus/the-recipe-must-flow/internal/engine"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/recipe"
	"github.com/Veraticus/the-recipe-must-flow/internal/stats"
)

// previewStats reads counters but records nothing.
type previewStats struct {
	tracker *stats.Tracker
}

func (p previewStats) Record(_ context.Context, _, _ string, _ model.Activity, _ bool) *model.RecipeStats {
	return nil
}

func (p previewStats) Counter(ctx context.Context, userID, recipeID string) (int, error) {
	return p.tracker.Counter(ctx, userID, recipeID)
}

func (p previewStats) Archive(context.Context, string, string) {}

// previewWebhooks logs the webhook that would have been sent.
type previewWebhooks struct {
	logger *slog.Logger
}

func (p previewWebhooks) Send(_ context.Context, url string, _ any) error {
	p.logger.Info("dry run: webhook not sent", "url", url)
	return nil
}

// previewEngine evaluates recipes exactly like the real engine without
// recording stats or delivering webhooks.
func (a *app) previewEngine() *engine.Engine {
	var weatherProvider recipe.WeatherProvider
	if a.weather != nil {
		weatherProvider = a.weather
	}

	return engine.NewWithConfig(engine.Dependencies{
		Recipes:  a.store,
		Stats:    previewStats{tracker: a.tracker},
		Weather:  weatherProvider,
		Webhooks: previewWebhooks{logger: slog.Default()},
		Logger:   slog.Default(),
	}, a.cfg.Engine())
}
