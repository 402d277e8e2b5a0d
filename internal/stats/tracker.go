// Package stats records how recipes perform for each user.
package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// Store is the persistence the tracker needs.
type Store interface {
	GetRecipeStats(ctx context.Context, userID, recipeID string) (*model.RecipeStats, error)
	GetUserRecipeStats(ctx context.Context, userID string) ([]model.RecipeStats, error)
	GetFailingRecipeStats(ctx context.Context, threshold int) ([]model.RecipeStats, error)
	UpdateRecipeStats(ctx context.Context, userID, recipeID string, mutate func(*model.RecipeStats) error) (*model.RecipeStats, error)
	DeleteRecipeStats(ctx context.Context, userID, recipeID string) error
	DeleteUserRecipeStats(ctx context.Context, userID string) (int64, error)
}

// Config controls history size and failure alerting.
type Config struct {
	MaxHistory       int
	FailureThreshold int
}

// DefaultConfig returns the tracker defaults.
func DefaultConfig() Config {
	return Config{
		MaxHistory:       50,
		FailureThreshold: 3,
	}
}

var errNoStats = errors.New("no stats recorded")

// Tracker maintains per-user, per-recipe execution statistics.
// Write failures on the trigger path are logged, never returned.
type Tracker struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	cfg    Config
}

// NewTracker creates a tracker backed by store.
func NewTracker(store Store, cfg Config, logger *slog.Logger) *Tracker {
	defaults := DefaultConfig()
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaults.MaxHistory
	}
	if cfg.FailureThreshold < 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// Record registers a trigger of recipeID for the activity. It returns the
// updated stats, or nil if they could not be saved.
func (t *Tracker) Record(ctx context.Context, userID, recipeID string, activity model.Activity, success bool) *model.RecipeStats {
	now := t.now()

	stats, err := t.store.UpdateRecipeStats(ctx, userID, recipeID, func(s *model.RecipeStats) error {
		s.Activities = append(s.Activities, activity.IDString())
		if excess := len(s.Activities) - t.cfg.MaxHistory; excess > 0 {
			s.Activities = append([]string(nil), s.Activities[excess:]...)
		}

		s.ActivityCount++
		s.Counter++
		s.DateLastTrigger = now
		s.Archived = false

		if success {
			s.RecentFailures = 0
		} else {
			s.RecentFailures++
		}
		return nil
	})
	if err != nil {
		common.LogError(t.logger, err, "failed to record recipe stats", common.Fields{
			"user_id":     userID,
			"recipe_id":   recipeID,
			"activity_id": activity.ID,
			"success":     success,
		})
		return nil
	}

	t.logger.Debug("recorded recipe trigger",
		"user_id", userID,
		"recipe_id", recipeID,
		"activity_id", activity.ID,
		"success", success,
		"activity_count", stats.ActivityCount,
		"recent_failures", stats.RecentFailures)

	return stats
}

// GetStats returns the stats of one recipe. Recipes that never fired return
// an error wrapping common.ErrNotFound.
func (t *Tracker) GetStats(ctx context.Context, userID, recipeID string) (*model.RecipeStats, error) {
	stats, err := t.store.GetRecipeStats(ctx, userID, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe stats: %w", err)
	}
	return stats, nil
}

// ListStats returns the stats of every recipe the user owns or owned.
func (t *Tracker) ListStats(ctx context.Context, userID string) ([]model.RecipeStats, error) {
	stats, err := t.store.GetUserRecipeStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe stats: %w", err)
	}
	return stats, nil
}

// GetFailingRecipes returns active stats whose failure streak exceeds the
// configured threshold.
func (t *Tracker) GetFailingRecipes(ctx context.Context) ([]model.RecipeStats, error) {
	stats, err := t.store.GetFailingRecipeStats(ctx, t.cfg.FailureThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to get failing recipes: %w", err)
	}
	return stats, nil
}

// FailureThreshold returns the streak length above which a recipe is failing.
func (t *Tracker) FailureThreshold() int {
	return t.cfg.FailureThreshold
}

// Archive marks the stats of a deleted recipe as inactive, keeping history.
func (t *Tracker) Archive(ctx context.Context, userID, recipeID string) {
	_, err := t.store.UpdateRecipeStats(ctx, userID, recipeID, func(s *model.RecipeStats) error {
		if s.ActivityCount == 0 && len(s.Activities) == 0 && s.DateLastTrigger.IsZero() {
			return errNoStats
		}
		s.Archived = true
		return nil
	})
	switch {
	case errors.Is(err, errNoStats):
		t.logger.Debug("no recipe stats to archive", "user_id", userID, "recipe_id", recipeID)
	case err != nil:
		common.LogError(t.logger, err, "failed to archive recipe stats", common.Fields{
			"user_id":   userID,
			"recipe_id": recipeID,
		})
	default:
		t.logger.Info("archived recipe stats", "user_id", userID, "recipe_id", recipeID)
	}
}

// Delete removes the stats of a single recipe.
func (t *Tracker) Delete(ctx context.Context, userID, recipeID string) {
	if err := t.store.DeleteRecipeStats(ctx, userID, recipeID); err != nil {
		common.LogError(t.logger, err, "failed to delete recipe stats", common.Fields{
			"user_id":   userID,
			"recipe_id": recipeID,
		})
		return
	}
	t.logger.Info("deleted recipe stats", "user_id", userID, "recipe_id", recipeID)
}

// DeleteUserData removes every stats record of a user. Unlike the other
// writes it returns its error so account deletion can retry.
func (t *Tracker) DeleteUserData(ctx context.Context, userID string) error {
	deleted, err := t.store.DeleteUserRecipeStats(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete stats for user %s: %w", userID, err)
	}
	t.logger.Info("deleted user recipe stats", "user_id", userID, "count", deleted)
	return nil
}

// Counter returns the user-facing counter of a recipe, 0 if it never fired.
func (t *Tracker) Counter(ctx context.Context, userID, recipeID string) (int, error) {
	stats, err := t.store.GetRecipeStats(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get recipe counter: %w", err)
	}
	return stats.Counter, nil
}

// SetCounter overrides the user-facing counter of a recipe.
func (t *Tracker) SetCounter(ctx context.Context, userID, recipeID string, value int) error {
	if value < 0 {
		return fmt.Errorf("counter must not be negative, got %d", value)
	}

	_, err := t.store.UpdateRecipeStats(ctx, userID, recipeID, func(s *model.RecipeStats) error {
		s.Counter = value
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set recipe counter: %w", err)
	}

	t.logger.Info("recipe counter updated", "user_id", userID, "recipe_id", recipeID, "counter", value)
	return nil
}
