// Package testutil provides test utilities for the recipe engine: a migrated
// in-memory database and fixtures for athletes, recipes and activities.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	Users   []model.User
}

// SetupTestDB creates a new in-memory test database seeded with the given
// users. It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.Athlete())
//	recipe := db.MustSaveRecipe(testutil.Athlete().ID, testutil.LongRideRecipe())
func SetupTestDB(t *testing.T, users ...model.User) *TestDB {
	t.Helper()

	return SetupTestDBWithOptions(t, TestDBOptions{Users: users})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Users          []model.User
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	ctx := context.Background()

	// Register cleanup
	t.Cleanup(func() {
		_ = store.Close()
	})

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	for i := range opts.Users {
		if err := store.SaveUser(ctx, &opts.Users[i]); err != nil {
			t.Fatalf("failed to seed user %q: %v", opts.Users[i].ID, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		Users:   opts.Users,
		t:       t,
	}
}

// MustSaveRecipe persists a recipe for the user or fails the test.
func (db *TestDB) MustSaveRecipe(userID string, r model.Recipe) model.Recipe {
	db.t.Helper()

	if err := db.Storage.SaveRecipe(context.Background(), userID, &r); err != nil {
		db.t.Fatalf("failed to save recipe %q: %v", r.Title, err)
	}
	return r
}

// MustGetStats returns the stats of a user's recipe or fails the test.
func (db *TestDB) MustGetStats(userID, recipeID string) model.RecipeStats {
	db.t.Helper()

	stats, err := db.Storage.GetRecipeStats(context.Background(), userID, recipeID)
	if err != nil {
		db.t.Fatalf("failed to get stats for %s/%s: %v", userID, recipeID, err)
	}
	return *stats
}
