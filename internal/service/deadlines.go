package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
)

// DeadlineStore is the persistence surface of the scheduler: roster, owner
// and notification deduplication keys.
type DeadlineStore interface {
	ListEmployees() []domain.Employee
	FirstOwner() (*domain.Owner, error)
	NotificationSent(key string) bool
	MarkNotificationSent(key string, retention time.Duration) error
}

// DeadlineService watches card due dates: it reminds assignees about
// approaching deadlines, tells the owner about overdue cards, and sends a
// daily digest. Each notification fires at most once per card per day.
type DeadlineService struct {
	cfg      *config.Config
	board    BoardFetcher
	store    DeadlineStore
	notifier Notifier
	now      func() time.Time
}

func NewDeadlineService(cfg *config.Config, board BoardFetcher, store DeadlineStore, notifier Notifier) *DeadlineService {
	return &DeadlineService{cfg: cfg, board: board, store: store, notifier: notifier, now: time.Now}
}

// Run checks deadlines on a fixed interval until the context is canceled.
func (d *DeadlineService) Run(ctx context.Context) {
	ticker := time.NewTicker(config.DeadlineCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Check(ctx); err != nil {
				slog.Error("deadline check", "error", err)
			}
		}
	}
}

// DueCard is a card with a deadline, enriched for display.
type DueCard struct {
	Card     Card
	ListName string
	Assignee *domain.Employee
	Until    time.Duration
}

// Check runs one scheduler pass: reminders, overdue notices and, at the
// configured hour, the daily digest.
func (d *DeadlineService) Check(ctx context.Context) error {
	cards, err := d.dueCards(ctx)
	if err != nil {
		return err
	}

	now := d.now()
	day := now.UTC().Format("2006-01-02")

	for _, dc := range cards {
		switch {
		case dc.Until > 0 && dc.Until <= config.ReminderWindow:
			d.remindAssignee(ctx, dc, day)
		case dc.Until <= 0:
			d.notifyOwnerOverdue(ctx, dc, day)
		}
	}

	if now.UTC().Hour() == d.cfg.DigestHourUTC {
		d.sendDigest(ctx, cards, day)
	}
	return nil
}

// Upcoming returns open cards with due dates, soonest first.
func (d *DeadlineService) Upcoming(ctx context.Context) ([]DueCard, error) {
	return d.dueCards(ctx)
}

func (d *DeadlineService) dueCards(ctx context.Context) ([]DueCard, error) {
	snap, err := d.board.Board(ctx)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}

	listNames := make(map[string]string, len(snap.Lists))
	completed := make(map[string]bool, len(snap.Lists))
	for _, l := range snap.Lists {
		listNames[l.ID] = l.Name
		completed[l.ID] = IsCompletedList(l.Name)
	}

	byPlankaID := make(map[string]*domain.Employee)
	employees := d.store.ListEmployees()
	for i := range employees {
		byPlankaID[employees[i].PlankaUserID] = &employees[i]
	}
	cardAssignee := make(map[string]*domain.Employee)
	for _, m := range snap.CardMemberships {
		if _, taken := cardAssignee[m.CardID]; taken {
			continue
		}
		cardAssignee[m.CardID] = byPlankaID[m.UserID]
	}

	now := d.now()
	var out []DueCard
	for _, card := range snap.Cards {
		if card.DueDate == nil || card.IsDueDateCompleted || completed[card.ListID] {
			continue
		}
		out = append(out, DueCard{
			Card:     card,
			ListName: listNames[card.ListID],
			Assignee: cardAssignee[card.ID],
			Until:    card.DueDate.Sub(now),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Card.DueDate.Before(*out[j].Card.DueDate)
	})
	return out, nil
}

func (d *DeadlineService) remindAssignee(ctx context.Context, dc DueCard, day string) {
	if dc.Assignee == nil || dc.Assignee.TelegramChatID == 0 {
		return
	}
	key := fmt.Sprintf("reminder_%s_%s", dc.Card.ID, day)
	if d.store.NotificationSent(key) {
		return
	}

	icon := "📅"
	switch {
	case dc.Until <= config.ReminderUrgentWindow:
		icon = "🚨"
	case dc.Until <= config.ReminderWarnWindow:
		icon = "⚠️"
	}

	text := fmt.Sprintf("%s Напоминание о дедлайне!\n\n📝 %s\n📌 Статус: %s\n⏰ Срок: %s (через %s)\n\n🔗 %s",
		icon, dc.Card.Name, dc.ListName,
		dc.Card.DueDate.Format("02.01.2006 15:04"), formatDuration(dc.Until),
		d.cfg.CardURL(dc.Card.ID))

	if err := d.notifier.Notify(ctx, dc.Assignee.TelegramChatID, text); err != nil {
		slog.Error("send deadline reminder", "error", err, "card_id", dc.Card.ID)
		return
	}
	if err := d.store.MarkNotificationSent(key, config.NotificationRetention); err != nil {
		slog.Error("mark notification sent", "error", err, "key", key)
	}
}

func (d *DeadlineService) notifyOwnerOverdue(ctx context.Context, dc DueCard, day string) {
	owner, err := d.store.FirstOwner()
	if err != nil {
		return
	}
	key := fmt.Sprintf("overdue_%s_%s", dc.Card.ID, day)
	if d.store.NotificationSent(key) {
		return
	}

	assignee := "не назначен"
	if dc.Assignee != nil {
		assignee = dc.Assignee.Name
	}
	text := fmt.Sprintf("🔴 Просроченная задача!\n\n📝 %s\n👤 Исполнитель: %s\n⏰ Срок был: %s\n\n🔗 %s",
		dc.Card.Name, assignee,
		dc.Card.DueDate.Format("02.01.2006 15:04"),
		d.cfg.CardURL(dc.Card.ID))

	if err := d.notifier.Notify(ctx, owner.ChatID, text); err != nil {
		slog.Error("send overdue notice", "error", err, "card_id", dc.Card.ID)
		return
	}
	if err := d.store.MarkNotificationSent(key, config.NotificationRetention); err != nil {
		slog.Error("mark notification sent", "error", err, "key", key)
	}
}

// sendDigest delivers the today/tomorrow overview to the owner once per day.
func (d *DeadlineService) sendDigest(ctx context.Context, cards []DueCard, day string) {
	owner, err := d.store.FirstOwner()
	if err != nil {
		return
	}
	key := "digest_" + day
	if d.store.NotificationSent(key) {
		return
	}

	var today, tomorrow []DueCard
	for _, dc := range cards {
		switch {
		case dc.Until <= 0:
			continue
		case dc.Until <= 24*time.Hour:
			today = append(today, dc)
		case dc.Until <= 48*time.Hour:
			tomorrow = append(tomorrow, dc)
		}
	}
	if len(today) == 0 && len(tomorrow) == 0 {
		return
	}

	text := "🌅 Дайджест дедлайнов\n"
	if len(today) > 0 {
		text += "\n📌 Сегодня:\n"
		for _, dc := range today {
			text += fmt.Sprintf("• %s — %s\n", dc.Card.Name, dc.Card.DueDate.Format("15:04"))
		}
	}
	if len(tomorrow) > 0 {
		text += "\n📋 Завтра:\n"
		for _, dc := range tomorrow {
			text += fmt.Sprintf("• %s — %s\n", dc.Card.Name, dc.Card.DueDate.Format("02.01 15:04"))
		}
	}

	if err := d.notifier.Notify(ctx, owner.ChatID, text); err != nil {
		slog.Error("send deadline digest", "error", err)
		return
	}
	if err := d.store.MarkNotificationSent(key, config.NotificationRetention); err != nil {
		slog.Error("mark notification sent", "error", err, "key", key)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%d мин", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%d ч", int(d.Hours()))
	}
	return fmt.Sprintf("%d дн", int(d.Hours()/24))
}
