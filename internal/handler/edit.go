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

const (
	editFieldName        = "name"
	editFieldDescription = "description"
	editFieldDueDate     = "duedate"
)

// ownerCallback answers the callback and enforces owner-only access.
func (h *Handler) ownerCallback(ctx context.Context, b *bot.Bot, update *models.Update) (chatID, userID int64, ok bool) {
	chatID, userID, ok = callbackOrigin(update)
	if !ok {
		return 0, 0, false
	}
	if !middleware.IsOwner(ctx) {
		telegram.AnswerCallback(ctx, b, update.CallbackQuery.ID, "Доступно только владельцу", true)
		return 0, 0, false
	}
	telegram.AnswerCallback(ctx, b, update.CallbackQuery.ID, "", false)
	return chatID, userID, true
}

func (h *Handler) handleEditTask(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := h.ownerCallback(ctx, b, update)
	if !ok {
		return
	}
	cardID := strings.TrimPrefix(update.CallbackQuery.Data, "edit_task_")

	keyboard := telegram.InlineKeyboard(
		telegram.ButtonRow(telegram.InlineButton("📝 Название", "edit_name_"+cardID)),
		telegram.ButtonRow(telegram.InlineButton("📄 Описание", "edit_desc_"+cardID)),
		telegram.ButtonRow(telegram.InlineButton("⚡ Приоритет", "edit_priority_"+cardID)),
		telegram.ButtonRow(telegram.InlineButton("⏰ Срок", "edit_duedate_"+cardID)),
		telegram.ButtonRow(telegram.InlineButton("📎 Файлы", "manage_files_"+cardID)),
		telegram.ButtonRow(telegram.InlineButton("📌 Статус", "move_card_"+cardID)),
	)
	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, "✏️ Что изменить?", keyboard); err != nil {
		slog.Error("send edit menu", "error", err, "card_id", cardID)
	}
}

func (h *Handler) handleEditName(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.promptEdit(ctx, b, update, "edit_name_", editFieldName, "📝 Отправьте новое название задачи:")
}

func (h *Handler) handleEditDescription(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.promptEdit(ctx, b, update, "edit_desc_", editFieldDescription, "📄 Отправьте новое описание задачи:")
}

func (h *Handler) handleEditDueDate(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.promptEdit(ctx, b, update, "edit_duedate_", editFieldDueDate,
		"⏰ Отправьте новый срок в формате ГГГГ-ММ-ДД или ДД.ММ.ГГГГ:")
}

func (h *Handler) promptEdit(ctx context.Context, b *bot.Bot, update *models.Update, prefix, field, prompt string) {
	chatID, userID, ok := h.ownerCallback(ctx, b, update)
	if !ok {
		return
	}
	cardID := strings.TrimPrefix(update.CallbackQuery.Data, prefix)

	h.setPendingEdit(userID, editState{CardID: cardID, Field: field})
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   prompt,
	})
}

// applyEdit consumes the pending-edit text message.
func (h *Handler) applyEdit(ctx context.Context, b *bot.Bot, chatID int64, st editState, value string) {
	value = strings.TrimSpace(value)

	var patch service.CardPatch
	switch st.Field {
	case editFieldName:
		patch.Name = &value
	case editFieldDescription:
		patch.Description = &value
	case editFieldDueDate:
		due, err := service.ParseDueDate(value)
		if errors.Is(err, domain.ErrInvalidDueDate) {
			h.replyError(ctx, b, chatID, "Неверный формат даты. Используйте ГГГГ-ММ-ДД или ДД.ММ.ГГГГ.")
			return
		}
		if err != nil {
			slog.Error("parse due date", "error", err)
			return
		}
		patch.DueDate = due
	default:
		return
	}

	if err := h.planka.UpdateCard(ctx, st.CardID, patch); err != nil {
		slog.Error("update card", "error", err, "card_id", st.CardID)
		h.replyError(ctx, b, chatID, "Не удалось обновить задачу.")
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "✅ Задача обновлена.",
	})
}

func (h *Handler) handleEditPriority(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := h.ownerCallback(ctx, b, update)
	if !ok {
		return
	}
	cardID := strings.TrimPrefix(update.CallbackQuery.Data, "edit_priority_")

	labels, err := h.planka.PriorityLabels(ctx)
	if err != nil {
		slog.Error("load priority labels", "error", err)
		h.replyError(ctx, b, chatID, "Не удалось загрузить метки приоритета.")
		return
	}
	if len(labels) == 0 {
		h.replyError(ctx, b, chatID, "На доске нет меток приоритета.")
		return
	}

	var rows [][]models.InlineKeyboardButton
	for _, label := range labels {
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton(label.Name, fmt.Sprintf("set_priority_%s_%s", cardID, label.ID)),
		))
	}
	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, "⚡ Выберите приоритет:", telegram.InlineKeyboard(rows...)); err != nil {
		slog.Error("send priority menu", "error", err, "card_id", cardID)
	}
}

func (h *Handler) handleSetPriority(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := h.ownerCallback(ctx, b, update)
	if !ok {
		return
	}
	payload := strings.TrimPrefix(update.CallbackQuery.Data, "set_priority_")
	cardID, labelID, found := strings.Cut(payload, "_")
	if !found {
		return
	}

	// Swap: drop existing priority labels, then attach the chosen one.
	assigned, err := h.planka.CardLabels(ctx, cardID)
	if err != nil {
		slog.Error("load card labels", "error", err, "card_id", cardID)
		h.replyError(ctx, b, chatID, "Не удалось изменить приоритет.")
		return
	}
	labels, err := h.planka.Labels(ctx)
	if err != nil {
		slog.Error("load board labels", "error", err)
		h.replyError(ctx, b, chatID, "Не удалось изменить приоритет.")
		return
	}
	labelNames := make(map[string]string, len(labels))
	for _, l := range labels {
		labelNames[l.ID] = l.Name
	}
	for _, cl := range assigned {
		if service.IsPriorityLabel(labelNames[cl.LabelID]) {
			if err := h.planka.RemoveCardLabel(ctx, cardID, cl.LabelID); err != nil {
				slog.Error("remove priority label", "error", err, "card_id", cardID)
			}
		}
	}

	if err := h.planka.AddCardLabel(ctx, cardID, labelID); err != nil {
		slog.Error("add priority label", "error", err, "card_id", cardID)
		h.replyError(ctx, b, chatID, "Не удалось изменить приоритет.")
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "✅ Приоритет обновлён.",
	})
}

func (h *Handler) handleManageFiles(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := h.ownerCallback(ctx, b, update)
	if !ok {
		return
	}
	cardID := strings.TrimPrefix(update.CallbackQuery.Data, "manage_files_")

	attachments, err := h.planka.CardAttachments(ctx, cardID)
	if err != nil {
		slog.Error("load card attachments", "error", err, "card_id", cardID)
		h.replyError(ctx, b, chatID, "Не удалось загрузить файлы задачи.")
		return
	}

	var rows [][]models.InlineKeyboardButton
	for _, att := range attachments {
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton("🗑 "+att.Name, "remove_file_"+att.ID),
		))
	}
	rows = append(rows, telegram.ButtonRow(telegram.InlineButton("➕ Добавить файлы", "add_file_"+cardID)))

	text := "📎 Нажмите на файл, чтобы удалить его, или добавьте новые:"
	if len(attachments) == 0 {
		text = "📎 У задачи нет файлов."
	}
	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, text, telegram.InlineKeyboard(rows...)); err != nil {
		slog.Error("send files menu", "error", err, "card_id", cardID)
	}
}

// handleAddCardFile switches the owner into file-collection mode for an
// existing card: every following document or photo is uploaded to it.
func (h *Handler) handleAddCardFile(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, userID, ok := h.ownerCallback(ctx, b, update)
	if !ok {
		return
	}
	cardID := strings.TrimPrefix(update.CallbackQuery.Data, "add_file_")

	h.setPendingFiles(userID, cardID)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "📎 Отправьте файлы или фото — они будут добавлены к задаче. Любое текстовое сообщение завершит добавление.",
	})
}

// uploadToCard attaches a single received file to an existing card.
func (h *Handler) uploadToCard(ctx context.Context, b *bot.Bot, chatID int64, cardID string, msg *models.Message) {
	fileID, name, _, ok := messageFile(msg)
	if !ok {
		return
	}

	url, err := telegram.GetFileURL(ctx, b, fileID)
	if err != nil {
		slog.Error("get file url", "error", err, "chat_id", chatID)
		h.replyError(ctx, b, chatID, fmt.Sprintf("Не удалось принять файл %q.", name))
		return
	}
	body, err := telegram.FetchFile(ctx, url)
	if err != nil {
		slog.Error("download file", "error", err, "chat_id", chatID)
		h.replyError(ctx, b, chatID, fmt.Sprintf("Не удалось загрузить файл %q.", name))
		return
	}
	defer body.Close()

	if err := h.planka.UploadAttachment(ctx, cardID, name, body); err != nil {
		slog.Error("upload attachment", "error", err, "card_id", cardID, "name", name)
		h.replyError(ctx, b, chatID, fmt.Sprintf("Не удалось прикрепить файл %q.", name))
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("📎 Файл %q добавлен к задаче. Отправьте ещё или откройте задачу.", name),
	})
}

func (h *Handler) handleRemoveFile(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := h.ownerCallback(ctx, b, update)
	if !ok {
		return
	}
	attachmentID := strings.TrimPrefix(update.CallbackQuery.Data, "remove_file_")

	if err := h.planka.DeleteAttachment(ctx, attachmentID); err != nil {
		slog.Error("delete attachment", "error", err, "attachment_id", attachmentID)
		h.replyError(ctx, b, chatID, "Не удалось удалить файл.")
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🗑 Файл удалён.",
	})
}

func (h *Handler) handleDeleteTask(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := h.ownerCallback(ctx, b, update)
	if !ok {
		return
	}
	cardID := strings.TrimPrefix(update.CallbackQuery.Data, "delete_task_")

	keyboard := telegram.InlineKeyboard(
		telegram.ConfirmRow("🗑 Да, удалить", "confirm_delete_"+cardID, "view_task_"+cardID),
	)
	if _, err := telegram.ReplyWithKeyboard(ctx, b, chatID, "⚠️ Удалить задачу безвозвратно?", keyboard); err != nil {
		slog.Error("send delete confirmation", "error", err, "card_id", cardID)
	}
}

func (h *Handler) handleConfirmDelete(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := h.ownerCallback(ctx, b, update)
	if !ok {
		return
	}
	cardID := strings.TrimPrefix(update.CallbackQuery.Data, "confirm_delete_")

	if err := h.planka.DeleteCard(ctx, cardID); err != nil {
		slog.Error("delete card", "error", err, "card_id", cardID)
		h.replyError(ctx, b, chatID, "Не удалось удалить задачу.")
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🗑 Задача удалена.",
	})
}
