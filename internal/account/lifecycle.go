// Package account handles user lifecycle events that other packages react to.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
	"github.com/Veraticus/the-recipe-must-flow/internal/service"
)

// Cascade removes data a package keeps for a user.
type Cascade interface {
	DeleteUserData(ctx context.Context, userID string) error
}

// UserStore is the user persistence the lifecycle needs.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type namedCascade struct {
	cascade Cascade
	name    string
}

// Lifecycle deletes users together with every registered cascade.
type Lifecycle struct {
	users    UserStore
	logger   *slog.Logger
	cascades []namedCascade
	retry    service.RetryOptions
}

// NewLifecycle creates a lifecycle backed by users.
func NewLifecycle(users UserStore, retry service.RetryOptions, logger *slog.Logger) *Lifecycle {
	if retry.MaxAttempts == 0 {
		retry = service.DefaultRetryOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if retry.Logger == nil {
		retry.Logger = logger
	}
	return &Lifecycle{
		users:  users,
		retry:  retry,
		logger: logger,
	}
}

// Register adds a cascade run on user deletion, in registration order.
func (l *Lifecycle) Register(name string, c Cascade) {
	l.cascades = append(l.cascades, namedCascade{name: name, cascade: c})
}

// DeleteUser runs every cascade with retry and then removes the user. If a
// cascade keeps failing the user is kept so the deletion can be retried.
func (l *Lifecycle) DeleteUser(ctx context.Context, userID string) error {
	if _, err := l.users.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	for _, c := range l.cascades {
		err := common.WithRetry(ctx, func() error {
			return c.cascade.DeleteUserData(ctx, userID)
		}, l.retry)
		if err != nil {
			common.LogError(l.logger, err, "user data cascade failed", common.Fields{
				"user_id": userID,
				"cascade": c.name,
			})
			return fmt.Errorf("cascade %s: %w", c.name, err)
		}
		l.logger.Debug("user data cascade completed", "user_id", userID, "cascade", c.name)
	}

	if err := l.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			// removed concurrently; the cascades already ran
			return nil
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	l.logger.Info("user deleted", "user_id", userID, "cascades", len(l.cascades))
	return nil
}
