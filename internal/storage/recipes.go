package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/google/uuid"
)

// SaveRecipe creates or replaces a recipe. A missing ID is generated.
func (s *SQLiteStorage) SaveRecipe(ctx context.Context, userID string, recipe *model.Recipe) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateRecipe(recipe); err != nil {
		return err
	}

	if recipe.ID == "" {
		recipe.ID = uuid.NewString()
	}

	definition, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipes (user_id, id, title, definition, recipe_order, disabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			title = excluded.title,
			definition = excluded.definition,
			recipe_order = excluded.recipe_order,
			disabled = excluded.disabled,
			updated_at = CURRENT_TIMESTAMP
	`, userID, recipe.ID, recipe.Title, string(definition), recipe.Order, recipe.Disabled)
	if err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}

	return nil
}

// GetRecipe retrieves a single recipe owned by the user.
func (s *SQLiteStorage) GetRecipe(ctx context.Context, userID, recipeID string) (*model.Recipe, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(recipeID, "recipeID"); err != nil {
		return nil, err
	}

	var definition string
	err := s.db.QueryRowContext(ctx,
		"SELECT definition FROM recipes WHERE user_id = ? AND id = ?", userID, recipeID,
	).Scan(&definition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", common.ErrRecipeNotFound, recipeID)
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	var recipe model.Recipe
	if err := json.Unmarshal([]byte(definition), &recipe); err != nil {
		return nil, fmt.Errorf("%w: recipe %s: %v", common.ErrDatabaseCorrupted, recipeID, err)
	}
	return &recipe, nil
}

// GetRecipes retrieves every recipe owned by the user in execution order.
func (s *SQLiteStorage) GetRecipes(ctx context.Context, userID string) ([]model.Recipe, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, definition FROM recipes
		WHERE user_id = ?
		ORDER BY recipe_order ASC, created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recipes []model.Recipe
	for rows.Next() {
		var id, definition string
		if err := rows.Scan(&id, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}

		var recipe model.Recipe
		if err := json.Unmarshal([]byte(definition), &recipe); err != nil {
			return nil, fmt.Errorf("%w: recipe %s: %v", common.ErrDatabaseCorrupted, id, err)
		}
		recipes = append(recipes, recipe)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}

	return recipes, nil
}

// DeleteRecipe removes a recipe definition. Its stats are archived separately.
func (s *SQLiteStorage) DeleteRecipe(ctx context.Context, userID, recipeID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM recipes WHERE user_id = ? AND id = ?", userID, recipeID)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", common.ErrRecipeNotFound, recipeID)
	}
	return nil
}

// CountRecipes returns how many recipes the user owns.
func (s *SQLiteStorage) CountRecipes(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM recipes WHERE user_id = ?", userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}
