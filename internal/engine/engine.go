// Package engine runs a user's recipes against incoming activities.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/recipe"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration options for the recipe engine.
type Config struct {
	Limits           recipe.Limits
	MaxRecipes       int
	BatchConcurrency int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Limits:           recipe.DefaultLimits(),
		MaxRecipes:       20,
		BatchConcurrency: 4,
	}
}

// Dependencies are the collaborators of the engine. Recipes and Stats are
// required; the rest may be nil.
type Dependencies struct {
	Recipes  RecipeStore
	Stats    StatsRecorder
	Weather  recipe.WeatherProvider
	Music    recipe.MusicProvider
	Webhooks WebhookSender
	Metrics  Metrics
	Logger   *slog.Logger
}

// Engine validates, stores and evaluates recipes.
type Engine struct {
	recipes    RecipeStore
	stats      StatsRecorder
	metrics    Metrics
	logger     *slog.Logger
	evaluator  *recipe.Evaluator
	matcher    *recipe.Matcher
	validator  *recipe.Validator
	dispatcher *Dispatcher
	cfg        Config
}

// Outcome describes what happened to one activity.
type Outcome struct {
	Errors   []error
	Fired    []string
	Failed   []string
	Activity model.Activity
	// StoppedBy is the kill-switch recipe that ended evaluation, if any.
	StoppedBy string
}

// Matched reports whether any recipe fired.
func (o Outcome) Matched() bool {
	return len(o.Fired) > 0
}

// New creates a new engine with the default configuration.
func New(deps Dependencies) *Engine {
	return NewWithConfig(deps, DefaultConfig())
}

// NewWithConfig creates a new engine with custom configuration.
func NewWithConfig(deps Dependencies, cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.MaxRecipes <= 0 {
		cfg.MaxRecipes = defaults.MaxRecipes
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = defaults.BatchConcurrency
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	catalog := recipe.DefaultCatalog()
	return &Engine{
		recipes:    deps.Recipes,
		stats:      deps.Stats,
		metrics:    metrics,
		logger:     logger,
		evaluator:  recipe.NewEvaluator(catalog, deps.Weather, deps.Music),
		matcher:    recipe.NewMatcher(logger),
		validator:  recipe.NewValidator(catalog, cfg.Limits, logger),
		dispatcher: NewDispatcher(catalog, deps.Webhooks, metrics, logger),
		cfg:        cfg,
	}
}

// RecipeLimit returns how many recipes the user may own.
func (e *Engine) RecipeLimit(user model.User) int {
	if user.IsPro {
		return e.cfg.MaxRecipes * 2
	}
	return e.cfg.MaxRecipes
}

// Validate checks a recipe before it is stored. It normalizes the recipe in
// place and enforces the user's recipe limit for new recipes.
func (e *Engine) Validate(ctx context.Context, user model.User, r *model.Recipe) error {
	if err := e.validator.Validate(r); err != nil {
		return err
	}

	isNew := r.ID == ""
	if !isNew {
		_, err := e.recipes.GetRecipe(ctx, user.ID, r.ID)
		switch {
		case errors.Is(err, common.ErrRecipeNotFound):
			isNew = true
		case err != nil:
			return fmt.Errorf("failed to load recipe: %w", err)
		}
	}
	if !isNew {
		return nil
	}

	count, err := e.recipes.CountRecipes(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to count recipes: %w", err)
	}
	if limit := e.RecipeLimit(user); count >= limit {
		return fmt.Errorf("%w: %d of %d recipes used", common.ErrRecipeLimit, count, limit)
	}
	return nil
}

// SaveRecipe validates and stores a recipe. A missing ID is generated.
func (e *Engine) SaveRecipe(ctx context.Context, user model.User, r *model.Recipe) error {
	if err := e.Validate(ctx, user, r); err != nil {
		return err
	}
	if err := e.recipes.SaveRecipe(ctx, user.ID, r); err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}

	e.logger.Info("recipe saved", "user_id", user.ID, "recipe_id", r.ID, "title", r.Title)
	return nil
}

// RemoveRecipe deletes a recipe and archives its stats.
func (e *Engine) RemoveRecipe(ctx context.Context, userID, recipeID string) error {
	if err := e.recipes.DeleteRecipe(ctx, userID, recipeID); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	e.stats.Archive(ctx, userID, recipeID)

	e.logger.Info("recipe removed", "user_id", userID, "recipe_id", recipeID)
	return nil
}

// Evaluate runs a single recipe against the activity. On a match the
// activity is mutated in place and its UpdatedFields extended.
func (e *Engine) Evaluate(ctx context.Context, user model.User, recipeID string, activity *model.Activity) (bool, error) {
	r, err := e.recipes.GetRecipe(ctx, user.ID, recipeID)
	if err != nil {
		return false, fmt.Errorf("failed to load recipe: %w", err)
	}
	if r.Disabled {
		e.logger.Debug("skipping disabled recipe", "user_id", user.ID, "recipe_id", r.ID)
		return false, nil
	}

	ev := e.evaluator.Begin(user, activity.Clone())
	fired, _ := e.run(ctx, ev, *r)
	*activity = ev.Activity()
	return fired, nil
}

// Process runs every enabled recipe of the user in order. A fired kill-switch
// recipe stops the remaining ones. The activity is mutated in place.
func (e *Engine) Process(ctx context.Context, user model.User, activity *model.Activity) (Outcome, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveProcess(time.Since(start)) }()

	recipes, err := e.recipes.GetRecipes(ctx, user.ID)
	if err != nil {
		return Outcome{Activity: *activity}, fmt.Errorf("failed to load recipes: %w", err)
	}

	ev := e.evaluator.Begin(user, activity.Clone())
	var out Outcome

	for _, r := range recipes {
		if err := ctx.Err(); err != nil {
			*activity = ev.Activity()
			out.Activity = *activity
			return out, err
		}
		if r.Disabled {
			e.logger.Debug("skipping disabled recipe", "user_id", user.ID, "recipe_id", r.ID)
			continue
		}

		fired, result := e.run(ctx, ev, r)
		if !fired {
			continue
		}

		out.Fired = append(out.Fired, r.ID)
		if !result.Success {
			out.Failed = append(out.Failed, r.ID)
			out.Errors = append(out.Errors, result.Errors...)
		}
		if r.KillSwitch {
			out.StoppedBy = r.ID
			e.logger.Info("kill switch stopped recipe evaluation",
				"user_id", user.ID,
				"recipe_id", r.ID,
				"activity_id", activity.ID)
			break
		}
	}

	*activity = ev.Activity()
	out.Activity = *activity
	return out, nil
}

// run matches, dispatches and records one recipe.
func (e *Engine) run(ctx context.Context, ev *recipe.Evaluation, r model.Recipe) (bool, DispatchResult) {
	matched := e.matcher.Matches(ctx, ev, r)
	e.metrics.RecipeEvaluated(matched)
	if !matched {
		return false, DispatchResult{}
	}

	userID := ev.User().ID
	counter := func(ctx context.Context) (int, error) {
		return e.stats.Counter(ctx, userID, r.ID)
	}

	result := e.dispatcher.Apply(ctx, ev, r, counter)
	ev.Update(result.Activity)
	e.stats.Record(ctx, userID, r.ID, result.Activity, result.Success)

	e.logger.Info("recipe fired",
		"user_id", userID,
		"recipe_id", r.ID,
		"activity_id", result.Activity.ID,
		"success", result.Success,
		"updated_fields", result.Updated)
	return true, result
}

// BatchResult is the outcome of one activity in a batch.
type BatchResult struct {
	Err     error
	Outcome Outcome
}

// ProcessBatch processes independent activities concurrently. Per-activity
// failures are reported in the results; the returned error is only set when
// ctx ends before every activity was processed.
func (e *Engine) ProcessBatch(ctx context.Context, user model.User, activities []model.Activity) ([]BatchResult, error) {
	results := make([]BatchResult, len(activities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BatchConcurrency)

	for i := range activities {
		i := i
		activity := activities[i].Clone()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := e.Process(gctx, user, &activity)
			results[i] = BatchResult{Outcome: out, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch interrupted: %w", err)
	}
	return results, nil
}
