// Package storage provides the data persistence layer for the recipe engine.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidUser     = errors.New("invalid user")
	ErrInvalidRecipe   = errors.New("invalid recipe")
	ErrInvalidGear     = errors.New("invalid gear")
	ErrInvalidStatsKey = errors.New("invalid recipe stats key")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateUser validates a user and its gear.
func validateUser(user *model.User) error {
	if user == nil {
		return fmt.Errorf("%w: user", ErrNilParameter)
	}
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidUser)
	}

	seen := make(map[string]bool)
	for _, g := range append(append([]model.Gear(nil), user.Bikes...), user.Shoes...) {
		if strings.TrimSpace(g.ID) == "" {
			return fmt.Errorf("%w: missing ID", ErrInvalidGear)
		}
		if seen[g.ID] {
			return fmt.Errorf("%w: duplicate ID %q", ErrInvalidGear, g.ID)
		}
		seen[g.ID] = true
	}
	return nil
}

// validateRecipe performs the storage-level sanity checks on a recipe. Full
// semantic validation happens in the recipe package before it gets here.
func validateRecipe(recipe *model.Recipe) error {
	if recipe == nil {
		return fmt.Errorf("%w: recipe", ErrNilParameter)
	}
	if strings.TrimSpace(recipe.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidRecipe)
	}
	return nil
}
