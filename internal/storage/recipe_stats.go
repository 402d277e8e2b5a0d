package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

const recipeStatsColumns = `id, user_id, recipe_id, activities, activity_count, counter,
	date_last_trigger, recent_failures, archived`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecipeStats reads one recipe_stats row. A NULL activity_count is
// recomputed from the stored history.
func scanRecipeStats(row rowScanner) (*model.RecipeStats, error) {
	var (
		stats         model.RecipeStats
		activities    string
		activityCount sql.NullInt64
		lastTrigger   sql.NullTime
	)

	err := row.Scan(&stats.ID, &stats.UserID, &stats.RecipeID, &activities, &activityCount,
		&stats.Counter, &lastTrigger, &stats.RecentFailures, &stats.Archived)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(activities), &stats.Activities); err != nil {
		return nil, fmt.Errorf("%w: stats %s activities: %v", common.ErrDatabaseCorrupted, stats.ID, err)
	}

	if activityCount.Valid {
		stats.ActivityCount = int(activityCount.Int64)
	} else {
		stats.ActivityCount = len(stats.Activities)
	}
	if lastTrigger.Valid {
		stats.DateLastTrigger = lastTrigger.Time
	}

	return &stats, nil
}

// GetRecipeStats retrieves the stats record of a user's recipe.
func (s *SQLiteStorage) GetRecipeStats(ctx context.Context, userID, recipeID string) (*model.RecipeStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateStatsKey(userID, recipeID); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+recipeStatsColumns+" FROM recipe_stats WHERE user_id = ? AND recipe_id = ?", userID, recipeID)
	stats, err := scanRecipeStats(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: recipe stats %s/%s", common.ErrNotFound, userID, recipeID)
		}
		return nil, common.NewPersistenceError("get recipe stats", err)
	}
	return stats, nil
}

// GetUserRecipeStats retrieves every stats record owned by the user, archived included.
func (s *SQLiteStorage) GetUserRecipeStats(ctx context.Context, userID string) ([]model.RecipeStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryRecipeStats(ctx, "get user recipe stats",
		"SELECT "+recipeStatsColumns+" FROM recipe_stats WHERE user_id = ? ORDER BY date_last_trigger DESC, recipe_id ASC",
		userID)
}

// GetFailingRecipeStats retrieves active stats whose failure streak exceeds threshold.
func (s *SQLiteStorage) GetFailingRecipeStats(ctx context.Context, threshold int) ([]model.RecipeStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryRecipeStats(ctx, "get failing recipe stats",
		"SELECT "+recipeStatsColumns+" FROM recipe_stats WHERE archived = 0 AND recent_failures > ? ORDER BY recent_failures DESC, user_id ASC, recipe_id ASC",
		threshold)
}

func (s *SQLiteStorage) queryRecipeStats(ctx context.Context, op, query string, args ...any) ([]model.RecipeStats, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewPersistenceError(op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.RecipeStats
	for rows.Next() {
		stats, err := scanRecipeStats(rows)
		if err != nil {
			return nil, common.NewPersistenceError(op, err)
		}
		result = append(result, *stats)
	}

	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError(op, err)
	}
	return result, nil
}

// UpdateRecipeStats loads (or creates) the stats record for a user's recipe,
// applies mutate and writes the result back, all inside one transaction.
func (s *SQLiteStorage) UpdateRecipeStats(ctx context.Context, userID, recipeID string, mutate func(*model.RecipeStats) error) (*model.RecipeStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateStatsKey(userID, recipeID); err != nil {
		return nil, err
	}
	if mutate == nil {
		return nil, fmt.Errorf("%w: mutate", ErrNilParameter)
	}

	var updated *model.RecipeStats

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+recipeStatsColumns+" FROM recipe_stats WHERE user_id = ? AND recipe_id = ?", userID, recipeID)
		stats, err := scanRecipeStats(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			stats = &model.RecipeStats{
				ID:         model.RecipeStatsID(userID, recipeID),
				UserID:     userID,
				RecipeID:   recipeID,
				Activities: []string{},
			}
		case err != nil:
			return err
		}

		if err := mutate(stats); err != nil {
			return err
		}

		activities, err := json.Marshal(nonNilStrings(stats.Activities))
		if err != nil {
			return fmt.Errorf("failed to marshal activities: %w", err)
		}

		var lastTrigger any
		if !stats.DateLastTrigger.IsZero() {
			lastTrigger = stats.DateLastTrigger
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipe_stats (id, user_id, recipe_id, activities, activity_count,
				counter, date_last_trigger, recent_failures, archived)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, recipe_id) DO UPDATE SET
				activities = excluded.activities,
				activity_count = excluded.activity_count,
				counter = excluded.counter,
				date_last_trigger = excluded.date_last_trigger,
				recent_failures = excluded.recent_failures,
				archived = excluded.archived
		`, stats.ID, stats.UserID, stats.RecipeID, string(activities), stats.ActivityCount,
			stats.Counter, lastTrigger, stats.RecentFailures, stats.Archived)
		if err != nil {
			return fmt.Errorf("failed to save recipe stats: %w", err)
		}

		updated = stats
		return nil
	})
	if err != nil {
		return nil, common.NewPersistenceError("update recipe stats", err)
	}

	return updated, nil
}

// DeleteRecipeStats hard-deletes the stats record of a user's recipe.
func (s *SQLiteStorage) DeleteRecipeStats(ctx context.Context, userID, recipeID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateStatsKey(userID, recipeID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM recipe_stats WHERE user_id = ? AND recipe_id = ?", userID, recipeID)
	if err != nil {
		return common.NewPersistenceError("delete recipe stats", err)
	}
	return nil
}

// DeleteUserRecipeStats hard-deletes every stats record owned by the user.
func (s *SQLiteStorage) DeleteUserRecipeStats(ctx context.Context, userID string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM recipe_stats WHERE user_id = ?", userID)
	if err != nil {
		return 0, common.NewPersistenceError("delete user recipe stats", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, common.NewPersistenceError("delete user recipe stats", err)
	}
	return deleted, nil
}

func validateStatsKey(userID, recipeID string) error {
	if userID == "" || recipeID == "" {
		return fmt.Errorf("%w: user %q recipe %q", ErrInvalidStatsKey, userID, recipeID)
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
