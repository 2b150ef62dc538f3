package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/swifty-uz/taskbot/internal/middleware"
	"github.com/swifty-uz/taskbot/internal/telegram"
)

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	text := "❓ *Команды*\n\n" +
		"📋 /my_tasks — мои задачи\n" +
		"🔍 /search_tasks <запрос> — поиск задач\n" +
		"✅ /done — завершить задачу\n" +
		"⏰ /deadlines — ближайшие дедлайны"

	if middleware.IsOwner(ctx) {
		text += "\n\n👑 *Для владельца:*\n" +
			"📝 /create_task <описание> — создать задачу\n" +
			"📊 /stats — статистика по доске\n" +
			"🔗 /start — ссылка для регистрации сотрудников\n\n" +
			"🎤 Можно просто отправить текст или голосовое сообщение с описанием задачи."
	}

	if err := telegram.SendLongMessage(ctx, b, chatID, text, nil); err != nil {
		slog.Error("send help", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleDeadlines(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	stopTyping := telegram.StartTyping(ctx, b, chatID)
	cards, err := h.deadlines.Upcoming(ctx)
	stopTyping()
	if err != nil {
		slog.Error("load deadlines", "error", err, "chat_id", chatID)
		h.replyError(ctx, b, chatID, "Не удалось загрузить дедлайны.")
		return
	}
	if len(cards) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "✨ Задач с дедлайнами нет.",
		})
		return
	}

	var text strings.Builder
	text.WriteString("⏰ *Ближайшие дедлайны:*\n\n")
	for _, dc := range cards {
		icon := "📅"
		if dc.Until <= 0 {
			icon = "🔴"
		}
		fmt.Fprintf(&text, "%s %s — %s", icon, telegram.EscapeMarkdown(dc.Card.Name),
			dc.Card.DueDate.Format("02.01.2006 15:04"))
		if dc.Assignee != nil {
			fmt.Fprintf(&text, " (%s)", dc.Assignee.Name)
		}
		text.WriteString("\n")
	}

	if err := telegram.SendLongMessage(ctx, b, chatID, text.String(), nil); err != nil {
		slog.Error("send deadlines", "error", err, "chat_id", chatID)
	}
}
