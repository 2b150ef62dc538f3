package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swifty-uz/taskbot/internal/domain"
)

type fakeBoardFetcher struct {
	snap *BoardSnapshot
	err  error
}

func (f *fakeBoardFetcher) Board(ctx context.Context) (*BoardSnapshot, error) {
	return f.snap, f.err
}

type fakeDirectory struct {
	employees []domain.Employee
}

func (f *fakeDirectory) ListEmployees() []domain.Employee { return f.employees }

func statsBoard(now time.Time) *BoardSnapshot {
	overdue := now.Add(-72 * time.Hour)
	upcoming := now.Add(12 * time.Hour)
	return &BoardSnapshot{
		Lists: []List{
			{ID: "todo", Name: "Входящие"},
			{ID: "done", Name: "Готово"},
		},
		Labels: []Label{
			{ID: "lab-high", Name: "Высокий"},
			{ID: "lab-misc", Name: "Маркетинг"},
		},
		Cards: []Card{
			{ID: "c1", Name: "Отчёт", ListID: "todo", CreatedAt: now.Add(-24 * time.Hour), DueDate: &overdue},
			{ID: "c2", Name: "Сайт", ListID: "done", CreatedAt: now.Add(-48 * time.Hour)},
			{ID: "c3", Name: "Презентация", ListID: "todo", CreatedAt: now.Add(-2 * time.Hour), DueDate: &upcoming},
			{ID: "c4", Name: "Старая", ListID: "done", CreatedAt: now.Add(-40 * 24 * time.Hour)},
		},
		CardMemberships: []CardMembership{
			{CardID: "c1", UserID: "u1"},
			{CardID: "c3", UserID: "u1"},
		},
		CardLabels: []CardLabel{
			{CardID: "c1", LabelID: "lab-high"},
			{CardID: "c2", LabelID: "lab-misc"},
		},
	}
}

func TestCollectStatistics(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc := NewStatsService(
		&fakeBoardFetcher{snap: statsBoard(now)},
		&fakeDirectory{employees: []domain.Employee{{Name: "Иван Петров", PlankaUserID: "u1"}}},
	)
	svc.now = func() time.Time { return now }

	stats, err := svc.Collect(context.Background(), "7d")
	require.NoError(t, err)

	// The 40-day-old card falls outside the window.
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 33, stats.CompletionRate())
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 1, stats.ByPriority["высокий"])
	assert.Equal(t, 2, stats.ByEmployee["Иван Петров"])
	assert.Equal(t, 2, stats.ByList["Входящие"])

	require.Len(t, stats.OverdueCards, 1)
	assert.Equal(t, "Отчёт", stats.OverdueCards[0].Name)
	assert.Equal(t, 3, stats.OverdueCards[0].OverdueDays)
	assert.Equal(t, "Иван Петров", stats.OverdueCards[0].Assignee)
}

func TestCollectStatisticsAllTime(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc := NewStatsService(&fakeBoardFetcher{snap: statsBoard(now)}, &fakeDirectory{})
	svc.now = func() time.Time { return now }

	stats, err := svc.Collect(context.Background(), "all")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Completed)
}

func TestCollectStatisticsBoardError(t *testing.T) {
	svc := NewStatsService(&fakeBoardFetcher{err: errors.New("down")}, &fakeDirectory{})
	_, err := svc.Collect(context.Background(), "7d")
	assert.Error(t, err)
}

func TestIsCompletedList(t *testing.T) {
	assert.True(t, IsCompletedList("Готово"))
	assert.True(t, IsCompletedList("Done ✅"))
	assert.False(t, IsCompletedList("Входящие"))
}
