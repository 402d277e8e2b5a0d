// Package service defines the interfaces shared between the engine and its persistence layer.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error

	// Recipe operations
	SaveRecipe(ctx context.Context, userID string, recipe *model.Recipe) error
	GetRecipe(ctx context.Context, userID, recipeID string) (*model.Recipe, error)
	GetRecipes(ctx context.Context, userID string) ([]model.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, recipeID string) error
	CountRecipes(ctx context.Context, userID string) (int, error)

	// Recipe stats operations
	GetRecipeStats(ctx context.Context, userID, recipeID string) (*model.RecipeStats, error)
	GetUserRecipeStats(ctx context.Context, userID string) ([]model.RecipeStats, error)
	GetFailingRecipeStats(ctx context.Context, threshold int) ([]model.RecipeStats, error)
	UpdateRecipeStats(ctx context.Context, userID, recipeID string, mutate func(*model.RecipeStats) error) (*model.RecipeStats, error)
	DeleteRecipeStats(ctx context.Context, userID, recipeID string) error
	DeleteUserRecipeStats(ctx context.Context, userID string) (int64, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	// Logger receives the retry warnings; nil means slog.Default().
	Logger       *slog.Logger
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions returns the retry settings used for outbound calls.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}
