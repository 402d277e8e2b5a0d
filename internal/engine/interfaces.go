package engine

import (
	"context"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// RecipeStore defines the recipe persistence the engine reads and writes.
type RecipeStore interface {
	SaveRecipe(ctx context.Context, userID string, recipe *model.Recipe) error
	GetRecipe(ctx context.Context, userID, recipeID string) (*model.Recipe, error)
	GetRecipes(ctx context.Context, userID string) ([]model.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, recipeID string) error
	CountRecipes(ctx context.Context, userID string) (int, error)
}

// StatsRecorder is the part of the stats tracker the engine drives.
type StatsRecorder interface {
	Record(ctx context.Context, userID, recipeID string, activity model.Activity, success bool) *model.RecipeStats
	Counter(ctx context.Context, userID, recipeID string) (int, error)
	Archive(ctx context.Context, userID, recipeID string)
}

// WebhookSender delivers a JSON payload to a URL.
type WebhookSender interface {
	Send(ctx context.Context, url string, payload any) error
}

// Metrics receives engine counters. A nil Metrics disables recording.
type Metrics interface {
	RecipeEvaluated(matched bool)
	ActionExecuted(actionType string, ok bool)
	WebhookDelivered(ok bool)
	ObserveProcess(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecipeEvaluated(bool) {}
func (noopMetrics) ActionExecuted(string, bool) {}
func (noopMetrics) WebhookDelivered(bool) {}
func (noopMetrics) ObserveProcess(time.Duration) {}
