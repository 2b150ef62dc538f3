package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/swifty-uz/taskbot/internal/domain"
	"github.com/swifty-uz/taskbot/internal/middleware"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	from := update.Message.From

	// Deep link: /start <ownerLinkID> opens employee onboarding.
	parts := strings.SplitN(update.Message.Text, " ", 2)
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		h.beginRegistration(ctx, b, chatID, from, strings.TrimSpace(parts[1]))
		return
	}

	if h.cfg.IsOwner(from.Username) {
		h.startOwner(ctx, b, chatID, from)
		return
	}

	if emp := middleware.GetEmployee(ctx); emp != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text: fmt.Sprintf("👋 С возвращением, %s!\n\n"+
				"📋 /my_tasks — мои задачи\n"+
				"🔍 /search_tasks <запрос> — поиск\n"+
				"❓ /help — все команды", emp.Name),
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: "👋 Привет! Я помощник для управления задачами.\n\n" +
			"Чтобы начать работу, попросите у руководителя ссылку для регистрации.",
	})
}

// startOwner makes sure an owner record exists and shows the invite link.
func (h *Handler) startOwner(ctx context.Context, b *bot.Bot, chatID int64, from *models.User) {
	owner, err := h.store.FirstOwner()
	if errors.Is(err, domain.ErrOwnerNotFound) {
		owner = &domain.Owner{
			ID:       uuid.NewString(),
			ChatID:   chatID,
			Username: from.Username,
		}
		if err := h.store.AddOwner(*owner); err != nil {
			slog.Error("register owner", "error", err)
			h.replyError(ctx, b, chatID, "Не удалось сохранить данные владельца.")
			return
		}
		slog.Info("owner registered", "username", from.Username)
	} else if err != nil {
		slog.Error("load owner", "error", err)
		return
	}

	link := fmt.Sprintf("https://t.me/%s?start=%s", h.botUsername, owner.ID)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("👑 Здравствуйте, %s!\n\n"+
			"🔗 Ссылка для регистрации сотрудников:\n%s\n\n"+
			"📝 /create_task — создать задачу\n"+
			"📊 /stats — статистика\n"+
			"⏰ /deadlines — дедлайны\n"+
			"❓ /help — все команды", from.FirstName, link),
	})
}

func (h *Handler) beginRegistration(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, linkID string) {
	_, err := h.registration.Begin(from.ID, linkID)
	if errors.Is(err, domain.ErrOwnerNotFound) {
		h.replyError(ctx, b, chatID, "Ссылка регистрации недействительна.")
		return
	}
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "✅ Вы уже зарегистрированы. Используйте /my_tasks или /help.",
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: "👋 Добро пожаловать! Начнём регистрацию.\n\n" +
			"📧 Отправьте ваш рабочий email:",
	})
}

func (h *Handler) replyError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "❌ " + text,
	})
}
