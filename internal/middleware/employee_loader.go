package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/swifty-uz/taskbot/internal/domain"
)

type ctxKey string

const (
	EmployeeKey ctxKey = "employee"
	OwnerKey    ctxKey = "is_owner"
)

// EmployeeDirectory looks up a registered employee by transport user id.
type EmployeeDirectory interface {
	FindEmployeeByTelegramID(userID int64) (*domain.Employee, error)
}

// GetEmployee extracts the registered employee from context, if any.
func GetEmployee(ctx context.Context) *domain.Employee {
	e, ok := ctx.Value(EmployeeKey).(*domain.Employee)
	if !ok {
		return nil
	}
	return e
}

// IsOwner reports whether the update came from the configured owner.
func IsOwner(ctx context.Context) bool {
	v, ok := ctx.Value(OwnerKey).(bool)
	return ok && v
}

// EmployeeLoader returns middleware that resolves the sender to a registered
// employee and an owner flag, and puts both into the context.
func EmployeeLoader(directory EmployeeDirectory, isOwner func(username string) bool) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var from *models.User
			if update.Message != nil {
				from = update.Message.From
			} else if update.CallbackQuery != nil {
				from = &update.CallbackQuery.From
			}

			if from == nil {
				next(ctx, b, update)
				return
			}

			if emp, err := directory.FindEmployeeByTelegramID(from.ID); err == nil {
				ctx = context.WithValue(ctx, EmployeeKey, emp)
			}
			ctx = context.WithValue(ctx, OwnerKey, isOwner(from.Username))

			next(ctx, b, update)
		}
	}
}
