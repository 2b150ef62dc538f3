package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// Notifier delivers out-of-band messages (assignee notices, deadline
// reminders, the daily digest) to a chat.
type Notifier struct {
	bot *bot.Bot
}

func NewNotifier(b *bot.Bot) *Notifier {
	return &Notifier{bot: b}
}

// Notify sends a plain-text message, truncating it to the transport limit.
func (n *Notifier) Notify(ctx context.Context, chatID int64, text string) error {
	if runes := []rune(text); len(runes) > MaxMessageLen {
		text = string(runes[:MaxMessageLen-3]) + "..."
	}
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
