package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
)

type fakeDeadlineStore struct {
	employees []domain.Employee
	owner     *domain.Owner
	sent      map[string]bool
}

func (f *fakeDeadlineStore) ListEmployees() []domain.Employee { return f.employees }

func (f *fakeDeadlineStore) FirstOwner() (*domain.Owner, error) {
	if f.owner == nil {
		return nil, domain.ErrOwnerNotFound
	}
	return f.owner, nil
}

func (f *fakeDeadlineStore) NotificationSent(key string) bool { return f.sent[key] }

func (f *fakeDeadlineStore) MarkNotificationSent(key string, retention time.Duration) error {
	f.sent[key] = true
	return nil
}

type recordingNotifier struct {
	messages map[int64][]string
}

func (r *recordingNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	if r.messages == nil {
		r.messages = make(map[int64][]string)
	}
	r.messages[chatID] = append(r.messages[chatID], text)
	return nil
}

func deadlineBoard(now time.Time) *BoardSnapshot {
	soon := now.Add(90 * time.Minute)
	overdue := now.Add(-3 * time.Hour)
	farAway := now.Add(100 * time.Hour)
	return &BoardSnapshot{
		Lists: []List{
			{ID: "todo", Name: "Входящие"},
			{ID: "done", Name: "Готово"},
		},
		Cards: []Card{
			{ID: "c-soon", Name: "Срочная", ListID: "todo", DueDate: &soon},
			{ID: "c-late", Name: "Просроченная", ListID: "todo", DueDate: &overdue},
			{ID: "c-far", Name: "Далёкая", ListID: "todo", DueDate: &farAway},
			{ID: "c-done", Name: "Сделанная", ListID: "done", DueDate: &overdue},
			{ID: "c-nodue", Name: "Без срока", ListID: "todo"},
		},
		CardMemberships: []CardMembership{
			{CardID: "c-soon", UserID: "u1"},
			{CardID: "c-late", UserID: "u1"},
		},
	}
}

func deadlineService(now time.Time, st *fakeDeadlineStore, n Notifier) *DeadlineService {
	cfg := &config.Config{PlankaPublicURL: "https://swifty.uz", DigestHourUTC: 4}
	svc := NewDeadlineService(cfg, &fakeBoardFetcher{snap: deadlineBoard(now)}, st, n)
	svc.now = func() time.Time { return now }
	return svc
}

func TestDeadlineCheckRemindsAndReportsOverdue(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	st := &fakeDeadlineStore{
		employees: []domain.Employee{{Name: "Иван Петров", PlankaUserID: "u1", TelegramChatID: 77}},
		owner:     &domain.Owner{ID: "o1", ChatID: 5},
		sent:      map[string]bool{},
	}
	notifier := &recordingNotifier{}
	svc := deadlineService(now, st, notifier)

	require.NoError(t, svc.Check(context.Background()))

	// Assignee got one urgent reminder, the owner one overdue notice.
	require.Len(t, notifier.messages[77], 1)
	assert.Contains(t, notifier.messages[77][0], "🚨")
	assert.Contains(t, notifier.messages[77][0], "Срочная")
	require.Len(t, notifier.messages[5], 1)
	assert.Contains(t, notifier.messages[5][0], "Просроченная")

	// A second pass the same day is deduplicated.
	require.NoError(t, svc.Check(context.Background()))
	assert.Len(t, notifier.messages[77], 1)
	assert.Len(t, notifier.messages[5], 1)
}

func TestDeadlineDigestFiresAtConfiguredHour(t *testing.T) {
	now := time.Date(2026, 8, 28, 4, 10, 0, 0, time.UTC)
	st := &fakeDeadlineStore{
		owner: &domain.Owner{ID: "o1", ChatID: 5},
		sent:  map[string]bool{},
	}
	notifier := &recordingNotifier{}
	svc := deadlineService(now, st, notifier)

	require.NoError(t, svc.Check(context.Background()))

	var digest string
	for _, msg := range notifier.messages[5] {
		if strings.HasPrefix(msg, "🌅") {
			digest = msg
		}
	}
	require.NotEmpty(t, digest)
	assert.Contains(t, digest, "Срочная")
	assert.True(t, st.sent["digest_2026-08-28"])
}

func TestUpcomingSortsAndFilters(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	st := &fakeDeadlineStore{sent: map[string]bool{}}
	svc := deadlineService(now, st, &recordingNotifier{})

	cards, err := svc.Upcoming(context.Background())
	require.NoError(t, err)

	// Completed and due-less cards are excluded, remainder sorted by due date.
	require.Len(t, cards, 3)
	assert.Equal(t, "c-late", cards[0].Card.ID)
	assert.Equal(t, "c-soon", cards[1].Card.ID)
	assert.Equal(t, "c-far", cards[2].Card.ID)
}
