package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					display_name TEXT NOT NULL DEFAULT '',
					is_pro INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS gear (
					user_id TEXT NOT NULL,
					id TEXT NOT NULL,
					name TEXT NOT NULL,
					kind TEXT NOT NULL CHECK (kind IN ('bike', 'shoes')),
					PRIMARY KEY (user_id, id),
					FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
				)`,

				`CREATE TABLE IF NOT EXISTS recipes (
					user_id TEXT NOT NULL,
					id TEXT NOT NULL,
					title TEXT NOT NULL,
					definition TEXT NOT NULL,
					recipe_order INTEGER NOT NULL DEFAULT 0,
					disabled INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (user_id, id),
					FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_recipes_user_order ON recipes(user_id, recipe_order)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add recipe stats",
		Up: func(tx *sql.Tx) error {
			// No foreign keys: stats outlive deleted recipes for auditing and are
			// removed explicitly when the owning account goes away.
			queries := []string{
				`CREATE TABLE IF NOT EXISTS recipe_stats (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					recipe_id TEXT NOT NULL,
					activities TEXT NOT NULL DEFAULT '[]',
					activity_count INTEGER,
					counter INTEGER NOT NULL DEFAULT 0,
					date_last_trigger DATETIME,
					recent_failures INTEGER NOT NULL DEFAULT 0,
					archived INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_recipe_stats_user ON recipe_stats(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Index recipe stats failure streaks",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_recipe_stats_failures ON recipe_stats(recent_failures) WHERE archived = 0`,
				`CREATE TRIGGER update_recipe_stats_updated_at
				AFTER UPDATE ON recipe_stats
				FOR EACH ROW
				BEGIN
					UPDATE recipe_stats SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
				END`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Key recipe stats by user and recipe",
		Up: func(tx *sql.Tx) error {
			// id stays as a display key only: "{user}-{recipe}" is ambiguous once
			// either part contains a hyphen.
			queries := []string{
				`CREATE TABLE recipe_stats_v4 (
					id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					recipe_id TEXT NOT NULL,
					activities TEXT NOT NULL DEFAULT '[]',
					activity_count INTEGER,
					counter INTEGER NOT NULL DEFAULT 0,
					date_last_trigger DATETIME,
					recent_failures INTEGER NOT NULL DEFAULT 0,
					archived INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (user_id, recipe_id)
				)`,
				`INSERT OR IGNORE INTO recipe_stats_v4 (id, user_id, recipe_id, activities, activity_count,
					counter, date_last_trigger, recent_failures, archived, created_at, updated_at)
				SELECT id, user_id, recipe_id, activities, activity_count,
					counter, date_last_trigger, recent_failures, archived, created_at, updated_at
				FROM recipe_stats`,
				`DROP TABLE recipe_stats`,
				`ALTER TABLE recipe_stats_v4 RENAME TO recipe_stats`,
				`CREATE INDEX IF NOT EXISTS idx_recipe_stats_user ON recipe_stats(user_id)`,
				`CREATE INDEX IF NOT EXISTS idx_recipe_stats_failures ON recipe_stats(recent_failures) WHERE archived = 0`,
				`CREATE TRIGGER update_recipe_stats_updated_at
				AFTER UPDATE ON recipe_stats
				FOR EACH ROW
				BEGIN
					UPDATE recipe_stats SET updated_at = CURRENT_TIMESTAMP
					WHERE user_id = NEW.user_id AND recipe_id = NEW.recipe_id;
				END`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the schema version currently applied to the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
