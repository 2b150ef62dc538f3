package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/swifty-uz/taskbot/internal/domain"
	"github.com/swifty-uz/taskbot/internal/telegram"
)

// HandleMessage is the default route for non-command updates: onboarding
// steps, pending edits, staged attachments, voice messages and free text.
func (h *Handler) HandleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	from := msg.From

	if msg.Chat.Type != "private" && h.cfg.IsOwner(from.Username) {
		h.rememberOwnerGroup(msg)
	}

	if _, active := h.registration.Active(from.ID); active && msg.Text != "" {
		h.handleRegistrationStep(ctx, b, chatID, from, msg.Text)
		return
	}

	if st, ok := h.takePendingEdit(from.ID); ok && msg.Text != "" {
		h.applyEdit(ctx, b, chatID, st, msg.Text)
		return
	}

	// Files go to an open session or to the card the owner is extending.
	if msg.Document != nil || len(msg.Photo) > 0 {
		if cardID, ok := h.pendingFilesCard(from.ID); ok {
			h.uploadToCard(ctx, b, chatID, cardID, msg)
			return
		}
		h.stageAttachment(ctx, b, chatID, from, msg)
		return
	}

	if msg.Voice != nil {
		h.handleVoice(ctx, b, chatID, from, msg)
		return
	}

	if msg.Text == "" || strings.HasPrefix(msg.Text, "/") {
		return
	}

	// Any text message ends file collection for an existing card.
	h.clearPendingFiles(from.ID)

	// Free text is a task description: owner only, private chat only.
	if msg.Chat.Type != "private" {
		return
	}
	if err := ownerGate(ctx); err != nil {
		h.replyError(ctx, b, chatID, "Создание задач доступно только владельцу.")
		return
	}
	h.startCreation(ctx, b, chatID, from, msg.Text)
}

// rememberOwnerGroup records the group the owner talks in, so onboarding can
// hand out an invite link to it.
func (h *Handler) rememberOwnerGroup(msg *models.Message) {
	owner, err := h.store.FirstOwner()
	if err != nil || owner.GroupID == msg.Chat.ID {
		return
	}
	if err := h.store.SetOwnerGroup(owner.ID, msg.Chat.ID, msg.Chat.Title); err != nil {
		slog.Error("record owner group", "error", err, "group_id", msg.Chat.ID)
	}
}

func (h *Handler) handleVoice(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, msg *models.Message) {
	// Voice follows the same rules as free text: owner only, private only.
	if msg.Chat.Type != "private" {
		return
	}
	if err := ownerGate(ctx); err != nil {
		h.replyError(ctx, b, chatID, "Создание задач доступно только владельцу.")
		return
	}

	stopTyping := telegram.StartTyping(ctx, b, chatID)
	data, _, err := telegram.DownloadFile(ctx, b, msg.Voice.FileID)
	if err != nil {
		stopTyping()
		slog.Error("download voice", "error", err, "chat_id", chatID)
		h.replyError(ctx, b, chatID, "Не удалось загрузить голосовое сообщение.")
		return
	}

	transcript, err := h.analyzer.Transcribe(ctx, "voice.ogg", bytes.NewReader(data))
	stopTyping()
	if err != nil {
		slog.Error("transcribe voice", "error", err, "chat_id", chatID)
		h.replyError(ctx, b, chatID, "Не удалось распознать голосовое сообщение.")
		return
	}
	if transcript == "" {
		h.replyError(ctx, b, chatID, "Голосовое сообщение пустое.")
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🎤 Распознано: " + transcript,
	})
	h.startCreation(ctx, b, chatID, from, transcript)
}

// messageFile extracts the attachable file from a message: a document as-is,
// or the largest size of a photo.
func messageFile(msg *models.Message) (fileID, name string, size int64, ok bool) {
	switch {
	case msg.Document != nil:
		name = msg.Document.FileName
		if name == "" {
			name = "file"
		}
		return msg.Document.FileID, name, int64(msg.Document.FileSize), true
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		return photo.FileID, fmt.Sprintf("photo_%s.jpg", photo.FileUniqueID), int64(photo.FileSize), true
	}
	return "", "", 0, false
}

func (h *Handler) stageAttachment(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, msg *models.Message) {
	sess, err := h.flow.Session(chatID, from.ID)
	if err != nil || sess.Stage != domain.StageAwaitingAttachments {
		return
	}

	fileID, name, size, ok := messageFile(msg)
	if !ok {
		return
	}

	url, err := telegram.GetFileURL(ctx, b, fileID)
	if err != nil {
		slog.Error("get file url", "error", err, "chat_id", chatID)
		h.replyError(ctx, b, chatID, fmt.Sprintf("Не удалось принять файл %q.", name))
		return
	}

	updated, err := h.flow.AddAttachment(sess.SessionID, domain.Attachment{
		Name:      name,
		SourceURL: url,
		Size:      size,
	})
	if err != nil {
		slog.Error("stage attachment", "error", err, "session_id", sess.SessionID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("📎 Файл добавлен (%d). Отправьте ещё или нажмите «Создать задачу».", len(updated.Attachments)),
	})
}
