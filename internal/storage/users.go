package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// SaveUser creates or updates a user and replaces their gear list.
func (s *SQLiteStorage) SaveUser(ctx context.Context, user *model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUser(user); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, display_name, is_pro)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				display_name = excluded.display_name,
				is_pro = excluded.is_pro,
				updated_at = CURRENT_TIMESTAMP
		`, user.ID, user.DisplayName, user.IsPro)
		if err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM gear WHERE user_id = ?", user.ID); err != nil {
			return fmt.Errorf("failed to clear gear: %w", err)
		}

		for _, g := range user.Bikes {
			if err := insertGear(ctx, tx, user.ID, g, model.GearBike); err != nil {
				return err
			}
		}
		for _, g := range user.Shoes {
			if err := insertGear(ctx, tx, user.ID, g, model.GearShoes); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertGear(ctx context.Context, tx *sql.Tx, userID string, g model.Gear, kind model.GearKind) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO gear (user_id, id, name, kind) VALUES (?, ?, ?, ?)",
		userID, g.ID, g.Name, string(kind))
	if err != nil {
		return fmt.Errorf("failed to save gear %q: %w", g.ID, err)
	}
	return nil
}

// GetUser retrieves a user with their gear.
func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var user model.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, display_name, is_pro FROM users WHERE id = ?", id,
	).Scan(&user.ID, &user.DisplayName, &user.IsPro)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", common.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, kind FROM gear WHERE user_id = ? ORDER BY kind, name", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get gear: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var g model.Gear
		if err := rows.Scan(&g.ID, &g.Name, &g.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan gear: %w", err)
		}
		if g.Kind == model.GearShoes {
			user.Shoes = append(user.Shoes, g)
		} else {
			user.Bikes = append(user.Bikes, g)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gear: %w", err)
	}

	return &user, nil
}

// DeleteUser removes a user together with their gear and recipes. Recipe
// stats are left to the account lifecycle cascade.
func (s *SQLiteStorage) DeleteUser(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", common.ErrUserNotFound, id)
	}
	return nil
}
