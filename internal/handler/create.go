package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/swifty-uz/taskbot/internal/domain"
	"github.com/swifty-uz/taskbot/internal/middleware"
	"github.com/swifty-uz/taskbot/internal/service"
	"github.com/swifty-uz/taskbot/internal/telegram"
)

// ownerGate rejects task creation for anyone but the configured owner.
func ownerGate(ctx context.Context) error {
	if !middleware.IsOwner(ctx) {
		return domain.ErrNotOwner
	}
	return nil
}

func (h *Handler) handleCreateTask(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	// Tasks are created by the owner, in a private chat.
	if update.Message.Chat.Type != "private" {
		return
	}
	if err := ownerGate(ctx); err != nil {
		h.replyError(ctx, b, chatID, "Создание задач доступно только владельцу.")
		return
	}

	parts := strings.SplitN(update.Message.Text, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text: "📝 Опишите задачу после команды:\n\n" +
				"/create_task Подготовить отчёт по продажам до пятницы, исполнитель Алексей",
		})
		return
	}

	h.startCreation(ctx, b, chatID, update.Message.From, strings.TrimSpace(parts[1]))
}

// startCreation runs the analysis and opens a task-creation session. Shared
// by the command, free-text and voice entry points.
func (h *Handler) startCreation(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, text string) {
	stopTyping := telegram.StartTyping(ctx, b, chatID)
	result, err := h.flow.Start(ctx, chatID, from.ID, from.Username, text)
	stopTyping()

	switch {
	case errors.Is(err, domain.ErrSessionExists):
		h.replyError(ctx, b, chatID, "У вас уже есть незавершённая задача. Завершите или отмените её.")
		return
	case errors.Is(err, domain.ErrEmptyAnalysis):
		h.replyError(ctx, b, chatID, "Не удалось понять задачу. Опишите подробнее: что сделать, кому и когда.")
		return
	case errors.Is(err, domain.ErrNoLists):
		h.replyError(ctx, b, chatID, "На доске нет колонок. Настройте доску и попробуйте снова.")
		return
	case err != nil:
		slog.Error("start task creation", "error", err, "chat_id", chatID)
		h.replyError(ctx, b, chatID, "Не удалось обработать сообщение. Попробуйте позже.")
		return
	}

	h.sendStatusPrompt(ctx, b, chatID, result)
}

func (h *Handler) sendStatusPrompt(ctx context.Context, b *bot.Bot, chatID int64, result *service.StartResult) {
	text := proposalSummary(result.Session) + "\n\n📌 Выберите статус задачи:"

	var rows [][]models.InlineKeyboardButton
	for _, list := range result.Lists {
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton(list.Name, "select_list_"+list.ID),
		))
	}
	rows = append(rows, telegram.ButtonRow(telegram.InlineButton("❌ Отмена", "cancel_task")))

	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, text, telegram.InlineKeyboard(rows...)); err != nil {
		slog.Error("send status prompt", "error", err, "chat_id", chatID)
	}
}

func proposalSummary(sess domain.TaskSession) string {
	p := sess.Proposal
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Задача распознана!\n\n📝 *%s*\n", telegram.EscapeMarkdown(p.Title))
	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", telegram.EscapeMarkdown(p.Description))
	}
	fmt.Fprintf(&b, "\n⚡ Приоритет: %s", service.PriorityTier(p.Priority))
	if p.Category != "" {
		fmt.Fprintf(&b, "\n📂 Категория: %s", p.Category)
	}
	if sess.ResolvedAssignee != nil {
		fmt.Fprintf(&b, "\n👤 Исполнитель: %s", sess.ResolvedAssignee.Name)
	} else if p.Assignee.Mentioned && p.Assignee.Name != "" {
		fmt.Fprintf(&b, "\n👤 Упомянут: %s (не найден среди сотрудников)", p.Assignee.Name)
	}
	if p.Assignee.DueDate != nil {
		fmt.Fprintf(&b, "\n⏰ Срок: %s", p.Assignee.DueDate.Format("02.01.2006 15:04"))
	}
	return b.String()
}
