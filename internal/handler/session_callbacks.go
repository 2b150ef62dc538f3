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
	"github.com/swifty-uz/taskbot/internal/service"
	"github.com/swifty-uz/taskbot/internal/telegram"
)

// callbackOrigin extracts the chat and user a callback belongs to.
func callbackOrigin(update *models.Update) (chatID, userID int64, ok bool) {
	cq := update.CallbackQuery
	if cq == nil || cq.Message.Message == nil {
		return 0, 0, false
	}
	return cq.Message.Message.Chat.ID, cq.From.ID, true
}

// ownSession answers the callback and returns the caller's open session.
func (h *Handler) ownSession(ctx context.Context, b *bot.Bot, update *models.Update) (domain.TaskSession, int64, bool) {
	chatID, userID, ok := callbackOrigin(update)
	if !ok {
		return domain.TaskSession{}, 0, false
	}
	telegram.AnswerCallback(ctx, b, update.CallbackQuery.ID, "", false)

	sess, err := h.flow.Session(chatID, userID)
	if err != nil {
		h.replyError(ctx, b, chatID, "Сессия создания задачи не найдена. Начните заново: /create_task")
		return domain.TaskSession{}, chatID, false
	}
	return sess, chatID, true
}

func (h *Handler) handleSelectList(ctx context.Context, b *bot.Bot, update *models.Update) {
	sess, chatID, ok := h.ownSession(ctx, b, update)
	if !ok {
		return
	}
	if sess.Stage != domain.StageSelectStatus {
		return
	}
	listID := strings.TrimPrefix(update.CallbackQuery.Data, "select_list_")

	updated, err := h.flow.SelectStatus(sess.SessionID, listID)
	if err != nil {
		slog.Error("select status", "error", err, "session_id", sess.SessionID)
		return
	}

	if updated.Stage == domain.StageSelectAssignee {
		h.sendAssigneePrompt(ctx, b, chatID)
		return
	}
	h.sendAttachmentsPrompt(ctx, b, chatID, updated)
}

func (h *Handler) sendAssigneePrompt(ctx context.Context, b *bot.Bot, chatID int64) {
	var rows [][]models.InlineKeyboardButton
	for _, emp := range h.store.ListEmployees() {
		label := emp.Name
		if emp.Position != "" {
			label = fmt.Sprintf("%s (%s)", emp.Name, emp.Position)
		}
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton(label, "select_assignee_"+emp.PlankaUserID),
		))
	}
	rows = append(rows,
		telegram.ButtonRow(telegram.InlineButton("🚫 Без исполнителя", "select_assignee_"+domain.AssigneeNone)),
		telegram.ButtonRow(telegram.InlineButton("❌ Отмена", "cancel_task")),
	)

	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, "👤 Выберите исполнителя:", telegram.InlineKeyboard(rows...)); err != nil {
		slog.Error("send assignee prompt", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleSelectAssignee(ctx context.Context, b *bot.Bot, update *models.Update) {
	sess, chatID, ok := h.ownSession(ctx, b, update)
	if !ok {
		return
	}
	if sess.Stage != domain.StageSelectAssignee {
		return
	}
	assigneeID := strings.TrimPrefix(update.CallbackQuery.Data, "select_assignee_")

	updated, err := h.flow.SelectAssignee(sess.SessionID, assigneeID)
	if err != nil {
		slog.Error("select assignee", "error", err, "session_id", sess.SessionID)
		return
	}
	h.sendAttachmentsPrompt(ctx, b, chatID, updated)
}

func (h *Handler) sendAttachmentsPrompt(ctx context.Context, b *bot.Bot, chatID int64, sess domain.TaskSession) {
	keyboard := telegram.InlineKeyboard(
		telegram.ButtonRow(telegram.InlineButton("📎 Прикрепить файлы", "add_files")),
		telegram.ButtonRow(telegram.InlineButton("✅ Создать задачу", "create_task_now")),
		telegram.ButtonRow(telegram.InlineButton("❌ Отмена", "cancel_task")),
	)
	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, "📎 Прикрепить файлы к задаче?", keyboard); err != nil {
		slog.Error("send attachments prompt", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleAddFiles(ctx context.Context, b *bot.Bot, update *models.Update) {
	sess, chatID, ok := h.ownSession(ctx, b, update)
	if !ok {
		return
	}
	if sess.Stage != domain.StageAskAttachments && sess.Stage != domain.StageAwaitingAttachments {
		return
	}

	if _, err := h.flow.RequestAttachments(sess.SessionID); err != nil {
		slog.Error("request attachments", "error", err, "session_id", sess.SessionID)
		return
	}

	keyboard := telegram.InlineKeyboard(
		telegram.ButtonRow(telegram.InlineButton("✅ Создать задачу", "create_task_now")),
		telegram.ButtonRow(telegram.InlineButton("❌ Отмена", "cancel_task")),
	)
	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID,
		"📎 Отправьте файлы или фото. Когда закончите, нажмите «Создать задачу».", keyboard); err != nil {
		slog.Error("send files prompt", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleCreateTaskNow(ctx context.Context, b *bot.Bot, update *models.Update) {
	sess, chatID, ok := h.ownSession(ctx, b, update)
	if !ok {
		return
	}

	stopTyping := telegram.StartTyping(ctx, b, chatID)
	result, err := h.flow.Finalize(ctx, sess.SessionID)
	stopTyping()

	if errors.Is(err, domain.ErrSessionNotFound) {
		return
	}
	if err != nil {
		slog.Error("finalize task", "error", err, "session_id", sess.SessionID)
		h.replyError(ctx, b, chatID, "Не удалось создать задачу на доске. Попробуйте ещё раз или отмените.")
		return
	}

	h.sendCreationSummary(ctx, b, chatID, sess, result)
}

func (h *Handler) sendCreationSummary(ctx context.Context, b *bot.Bot, chatID int64, sess domain.TaskSession, result *service.FinalizeResult) {
	var text strings.Builder
	fmt.Fprintf(&text, "🎉 Задача создана!\n\n📝 *%s*\n", telegram.EscapeMarkdown(sess.Proposal.Title))
	if result.Assignee != nil {
		fmt.Fprintf(&text, "👤 Исполнитель: %s\n", result.Assignee.Name)
	}
	if result.Uploaded > 0 {
		fmt.Fprintf(&text, "📎 Файлов прикреплено: %d\n", result.Uploaded)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(&text, "⚠️ %s\n", warning)
	}
	fmt.Fprintf(&text, "\n🔗 %s", result.CardURL)

	if err := telegram.SendLongMessage(ctx, b, chatID, text.String(), nil); err != nil {
		slog.Error("send creation summary", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleCancelTask(ctx context.Context, b *bot.Bot, update *models.Update) {
	sess, chatID, ok := h.ownSession(ctx, b, update)
	if !ok {
		return
	}

	h.flow.Cancel(sess.SessionID)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🚫 Создание задачи отменено.",
	})
}
