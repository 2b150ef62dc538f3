package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/swifty-uz/taskbot/internal/middleware"
	"github.com/swifty-uz/taskbot/internal/service"
	"github.com/swifty-uz/taskbot/internal/telegram"
)

func (h *Handler) handleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if !middleware.IsOwner(ctx) {
		h.replyError(ctx, b, chatID, "Статистика доступна только владельцу.")
		return
	}

	keyboard := telegram.InlineKeyboard(
		telegram.ButtonRow(
			telegram.InlineButton("7 дней", "stats_7d"),
			telegram.InlineButton("30 дней", "stats_30d"),
		),
		telegram.ButtonRow(
			telegram.InlineButton("90 дней", "stats_90d"),
			telegram.InlineButton("Всё время", "stats_all"),
		),
	)
	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, "📊 За какой период показать статистику?", keyboard); err != nil {
		slog.Error("send stats menu", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleStatsPeriod(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := h.ownerCallback(ctx, b, update)
	if !ok {
		return
	}
	period := strings.TrimPrefix(update.CallbackQuery.Data, "stats_")

	stopTyping := telegram.StartTyping(ctx, b, chatID)
	stats, err := h.stats.Collect(ctx, period)
	stopTyping()
	if err != nil {
		slog.Error("collect statistics", "error", err, "period", period)
		h.replyError(ctx, b, chatID, "Не удалось собрать статистику.")
		return
	}

	// Replace the period picker with the report instead of stacking messages.
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		if err := telegram.EditLongMessage(ctx, b, chatID, msg.ID, statsText(stats)); err != nil {
			slog.Error("send statistics", "error", err, "chat_id", chatID)
		}
		return
	}
	if err := telegram.SendLongMessage(ctx, b, chatID, statsText(stats), nil); err != nil {
		slog.Error("send statistics", "error", err, "chat_id", chatID)
	}
}

func statsText(stats *service.Statistics) string {
	var b strings.Builder

	period := map[string]string{
		"7d": "7 дней", "30d": "30 дней", "90d": "90 дней",
	}[stats.Period]
	if period == "" {
		period = "всё время"
	}

	fmt.Fprintf(&b, "📊 *Статистика за %s*\n\n", period)
	fmt.Fprintf(&b, "📋 Всего задач: %d\n", stats.Total)
	fmt.Fprintf(&b, "✅ Выполнено: %d (%d%%)\n", stats.Completed, stats.CompletionRate())
	fmt.Fprintf(&b, "🔴 Просрочено: %d\n", stats.Overdue)

	if len(stats.ByPriority) > 0 {
		b.WriteString("\n⚡ *По приоритету:*\n")
		for _, tier := range sortedKeys(stats.ByPriority) {
			fmt.Fprintf(&b, "• %s: %d\n", tier, stats.ByPriority[tier])
		}
	}
	if len(stats.ByList) > 0 {
		b.WriteString("\n📌 *По статусу:*\n")
		for _, name := range sortedKeys(stats.ByList) {
			fmt.Fprintf(&b, "• %s: %d\n", name, stats.ByList[name])
		}
	}
	if len(stats.ByEmployee) > 0 {
		b.WriteString("\n👥 *По сотрудникам:*\n")
		for _, name := range sortedKeys(stats.ByEmployee) {
			fmt.Fprintf(&b, "• %s: %d\n", name, stats.ByEmployee[name])
		}
	}
	if len(stats.OverdueCards) > 0 {
		b.WriteString("\n🚨 *Проблемные задачи:*\n")
		for _, card := range stats.OverdueCards {
			fmt.Fprintf(&b, "• %s — просрочена на %d дн.", telegram.EscapeMarkdown(card.Name), card.OverdueDays)
			if card.Assignee != "" {
				fmt.Fprintf(&b, " (%s)", card.Assignee)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
