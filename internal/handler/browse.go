package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
	"github.com/swifty-uz/taskbot/internal/middleware"
	"github.com/swifty-uz/taskbot/internal/service"
	"github.com/swifty-uz/taskbot/internal/telegram"
)

func (h *Handler) handleMyTasks(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	emp := middleware.GetEmployee(ctx)
	if emp == nil {
		h.replyError(ctx, b, chatID, "Вы не зарегистрированы. Попросите у руководителя ссылку для регистрации.")
		return
	}

	views, err := h.browser.MyTasks(ctx, emp.PlankaUserID)
	if err != nil {
		slog.Error("load my tasks", "error", err, "chat_id", chatID)
		h.replyError(ctx, b, chatID, "Не удалось загрузить задачи.")
		return
	}
	if len(views) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "✨ У вас нет открытых задач.",
		})
		return
	}

	h.sendTaskList(ctx, b, chatID, "📋 Ваши задачи:", views)
}

func (h *Handler) handleSearchTasks(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.SplitN(update.Message.Text, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🔍 Укажите запрос: /search_tasks отчёт",
		})
		return
	}
	query := strings.TrimSpace(parts[1])

	views, err := h.browser.Search(ctx, query)
	if err != nil {
		slog.Error("search tasks", "error", err, "chat_id", chatID)
		h.replyError(ctx, b, chatID, "Не удалось выполнить поиск.")
		return
	}
	if len(views) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("🔍 По запросу %q ничего не найдено.", query),
		})
		return
	}
	if len(views) > config.MaxSearchResults {
		views = views[:config.MaxSearchResults]
	}

	h.sendTaskList(ctx, b, chatID, fmt.Sprintf("🔍 Найдено по запросу %q:", query), views)
}

func (h *Handler) sendTaskList(ctx context.Context, b *bot.Bot, chatID int64, title string, views []service.CardView) {
	var rows [][]models.InlineKeyboardButton
	for _, v := range views {
		label := v.Card.Name
		if v.Card.DueDate != nil {
			label = fmt.Sprintf("%s · %s", v.Card.Name, v.Card.DueDate.Format("02.01"))
		}
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton(label, "view_task_"+v.Card.ID),
		))
	}

	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, title, telegram.InlineKeyboard(rows...)); err != nil {
		slog.Error("send task list", "error", err, "chat_id", chatID)
	}
}

// handleDone marks the caller's chosen task as completed via the move menu.
func (h *Handler) handleDone(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	emp := middleware.GetEmployee(ctx)
	if emp == nil {
		h.replyError(ctx, b, chatID, "Вы не зарегистрированы.")
		return
	}

	views, err := h.browser.MyTasks(ctx, emp.PlankaUserID)
	if err != nil {
		slog.Error("load tasks for completion", "error", err, "chat_id", chatID)
		h.replyError(ctx, b, chatID, "Не удалось загрузить задачи.")
		return
	}
	if len(views) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "✨ Нечего завершать — открытых задач нет.",
		})
		return
	}

	var rows [][]models.InlineKeyboardButton
	for _, v := range views {
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton(v.Card.Name, "complete_card_"+v.Card.ID),
		))
	}
	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, "✅ Какую задачу завершить?", telegram.InlineKeyboard(rows...)); err != nil {
		slog.Error("send completion list", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleViewTask(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := callbackOrigin(update)
	if !ok {
		return
	}
	telegram.AnswerCallback(ctx, b, update.CallbackQuery.ID, "", false)
	cardID := strings.TrimPrefix(update.CallbackQuery.Data, "view_task_")

	view, err := h.browser.Detail(ctx, cardID)
	if errors.Is(err, domain.ErrCardNotFound) {
		h.replyError(ctx, b, chatID, "Задача не найдена — возможно, её удалили.")
		return
	}
	if err != nil {
		slog.Error("load task detail", "error", err, "card_id", cardID)
		h.replyError(ctx, b, chatID, "Не удалось загрузить задачу.")
		return
	}

	text := cardDetailText(view)
	keyboard := h.cardKeyboard(ctx, view, h.cfg.CardURL(cardID))
	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, text, keyboard); err != nil {
		slog.Error("send task detail", "error", err, "card_id", cardID)
	}
}

func cardDetailText(view *service.CardView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 *%s*\n\n", telegram.EscapeMarkdown(view.Card.Name))
	if view.Card.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", telegram.EscapeMarkdown(view.Card.Description))
	}
	fmt.Fprintf(&b, "📌 Статус: %s\n", view.ListName)
	if view.Priority != "" {
		fmt.Fprintf(&b, "⚡ Приоритет: %s\n", view.Priority)
	}
	if view.Assignee != nil {
		fmt.Fprintf(&b, "👤 Исполнитель: %s\n", view.Assignee.Name)
	}
	if view.Card.DueDate != nil {
		fmt.Fprintf(&b, "⏰ Срок: %s\n", view.Card.DueDate.Format("02.01.2006 15:04"))
	}
	if len(view.Attachments) > 0 {
		fmt.Fprintf(&b, "📎 Файлов: %d\n", len(view.Attachments))
	}
	return b.String()
}

// cardKeyboard builds a role-dependent menu: the owner gets the edit menu,
// everyone else gets status moves. Both get a link to the board.
func (h *Handler) cardKeyboard(ctx context.Context, view *service.CardView, cardURL string) *models.InlineKeyboardMarkup {
	open := telegram.ButtonRow(telegram.URLButton("🔗 Открыть в Planka", cardURL))
	if middleware.IsOwner(ctx) {
		return telegram.InlineKeyboard(
			telegram.ButtonRow(telegram.InlineButton("✏️ Редактировать", "edit_task_"+view.Card.ID)),
			telegram.ButtonRow(telegram.InlineButton("🗑 Удалить", "delete_task_"+view.Card.ID)),
			open,
		)
	}
	return telegram.InlineKeyboard(
		telegram.ButtonRow(telegram.InlineButton("📌 Сменить статус", "move_card_"+view.Card.ID)),
		open,
	)
}

func (h *Handler) handleMoveCard(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := callbackOrigin(update)
	if !ok {
		return
	}
	telegram.AnswerCallback(ctx, b, update.CallbackQuery.ID, "", false)
	payload := strings.TrimPrefix(update.CallbackQuery.Data, "move_card_")

	// Two forms: "move_card_<cardID>" shows the list menu,
	// "move_card_<cardID>_<listID>" performs the move.
	if cardID, listID, found := strings.Cut(payload, "_"); found {
		if err := h.planka.MoveCard(ctx, cardID, listID); err != nil {
			slog.Error("move card", "error", err, "card_id", cardID)
			h.replyError(ctx, b, chatID, "Не удалось переместить задачу.")
			return
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "✅ Задача перемещена.",
		})
		return
	}

	lists, err := h.planka.Lists(ctx)
	if err != nil {
		slog.Error("load lists for move", "error", err)
		h.replyError(ctx, b, chatID, "Не удалось загрузить статусы.")
		return
	}

	var rows [][]models.InlineKeyboardButton
	for _, list := range lists {
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton(list.Name, fmt.Sprintf("move_card_%s_%s", payload, list.ID)),
		))
	}
	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, "📌 Куда переместить задачу?", telegram.InlineKeyboard(rows...)); err != nil {
		slog.Error("send move menu", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleCompleteCard(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := callbackOrigin(update)
	if !ok {
		return
	}
	telegram.AnswerCallback(ctx, b, update.CallbackQuery.ID, "", false)
	cardID := strings.TrimPrefix(update.CallbackQuery.Data, "complete_card_")

	lists, err := h.planka.Lists(ctx)
	if err != nil {
		slog.Error("load lists for completion", "error", err)
		h.replyError(ctx, b, chatID, "Не удалось загрузить статусы.")
		return
	}

	var doneListID string
	for _, list := range lists {
		if service.IsCompletedList(list.Name) {
			doneListID = list.ID
			break
		}
	}
	if doneListID == "" {
		h.replyError(ctx, b, chatID, "На доске нет колонки для завершённых задач.")
		return
	}

	if err := h.planka.MoveCard(ctx, cardID, doneListID); err != nil {
		slog.Error("complete card", "error", err, "card_id", cardID)
		h.replyError(ctx, b, chatID, "Не удалось завершить задачу.")
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🎉 Задача завершена!",
	})
}
