package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/swifty-uz/taskbot/internal/service"
)

// handleRegistrationStep routes a text message into the open onboarding
// conversation.
func (h *Handler) handleRegistrationStep(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, text string) {
	state, ok := h.registration.Active(from.ID)
	if !ok {
		return
	}

	switch state.Stage {
	case service.RegStageEmail:
		h.registrationEmail(ctx, b, chatID, from, text)
	case service.RegStagePassword:
		h.registrationPassword(ctx, b, chatID, from, text)
	case service.RegStageName:
		if err := h.registration.SubmitName(from.ID, text); err != nil {
			h.replyError(ctx, b, chatID, "Имя не может быть пустым. Отправьте ваше полное имя:")
			return
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "💼 Укажите вашу должность:",
		})
	case service.RegStagePosition:
		h.registrationPosition(ctx, b, chatID, from, text)
	}
}

func (h *Handler) registrationEmail(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, email string) {
	next, err := h.registration.SubmitEmail(ctx, from.ID, email)
	if err != nil {
		slog.Warn("onboarding email rejected", "error", err, "user_id", from.ID)
		h.replyError(ctx, b, chatID, "Похоже, это не email. Отправьте адрес вида name@company.com:")
		return
	}

	if next == service.RegStagePassword {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🔐 Аккаунт с таким email уже есть на доске. Введите пароль от него:",
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "👤 Отправьте ваше полное имя (например: Иван Петров):",
	})
}

func (h *Handler) registrationPassword(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, password string) {
	emp, verified, err := h.registration.SubmitPassword(ctx, from.ID, chatID, from.Username, password)
	if err != nil {
		slog.Error("verify board password", "error", err, "user_id", from.ID)
		h.replyError(ctx, b, chatID, "Не удалось проверить пароль. Попробуйте ещё раз.")
		return
	}
	if !verified {
		h.replyError(ctx, b, chatID, "Неверный пароль. Попробуйте ещё раз:")
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("🎉 Регистрация завершена, %s!\n\n"+
			"📋 /my_tasks — мои задачи\n❓ /help — все команды", emp.Name),
	})
	h.sendGroupInvite(ctx, b, chatID, emp.GroupID)
	h.notifyOwnerAboutRegistration(ctx, b, emp.Name, emp.Email)
}

func (h *Handler) registrationPosition(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, position string) {
	emp, password, err := h.registration.SubmitPosition(ctx, from.ID, chatID, from.Username, position)
	if err != nil {
		slog.Error("finish onboarding", "error", err, "user_id", from.ID)
		h.replyError(ctx, b, chatID, "Не удалось создать аккаунт на доске. Сообщите руководителю.")
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("🎉 Регистрация завершена, %s!\n\n"+
			"🔑 Доступ к доске %s\nЛогин: %s\nПароль: %s\n\n"+
			"Сохраните пароль — он показывается один раз.\n\n"+
			"📋 /my_tasks — мои задачи\n❓ /help — все команды",
			emp.Name, h.cfg.PlankaPublicURL, emp.Email, password),
	})
	h.sendGroupInvite(ctx, b, chatID, emp.GroupID)
	h.notifyOwnerAboutRegistration(ctx, b, emp.Name, emp.Email)
}

// sendGroupInvite shares a one-off invite link to the team group. The bot must
// be an admin of the group for this to work, so a failure is only logged.
func (h *Handler) sendGroupInvite(ctx context.Context, b *bot.Bot, chatID, groupID int64) {
	if groupID == 0 {
		return
	}
	link, err := b.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{ChatID: groupID})
	if err != nil {
		slog.Warn("create group invite link", "error", err, "group_id", groupID)
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "💬 Рабочая группа команды: " + link.InviteLink,
	})
}

func (h *Handler) notifyOwnerAboutRegistration(ctx context.Context, b *bot.Bot, name, email string) {
	owner, err := h.store.FirstOwner()
	if err != nil {
		return
	}
	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: owner.ChatID,
		Text:   fmt.Sprintf("👤 Новый сотрудник зарегистрировался:\n%s (%s)", name, email),
	})
	if err != nil {
		slog.Error("notify owner about registration", "error", err)
	}
}
