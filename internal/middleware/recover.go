package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover returns middleware that recovers from handler panics and logs them
// with enough update context to trace the offending message.
func Recover() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					args := []any{
						"panic", r,
						"stack", string(debug.Stack()),
					}
					if update != nil {
						args = append(args, "update_id", update.ID)
						if update.Message != nil {
							args = append(args, "chat_id", update.Message.Chat.ID)
						}
						if update.CallbackQuery != nil {
							args = append(args, "callback_data", update.CallbackQuery.Data)
						}
					}
					slog.Error("panic recovered in handler", args...)
				}
			}()
			next(ctx, b, update)
		}
	}
}
