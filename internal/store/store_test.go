package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swifty-uz/taskbot/internal/domain"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestOpenCreatesFile(t *testing.T) {
	s, path := tempStore(t)
	assert.Equal(t, path, s.Path())

	// Reopening an existing file works.
	_, err := Open(path)
	require.NoError(t, err)
}

func TestEmployeesRoundtrip(t *testing.T) {
	s, path := tempStore(t)

	emp := domain.Employee{
		Name:           "Иван Петров",
		Email:          "ivan@swifty.uz",
		PlankaUserID:   "u1",
		TelegramUserID: 10,
		TelegramChatID: 10,
		RegisteredAt:   time.Now(),
	}
	require.NoError(t, s.AddEmployee(emp))

	// Data survives a reopen.
	reopened, err := Open(path)
	require.NoError(t, err)

	got, err := reopened.FindEmployeeByTelegramID(10)
	require.NoError(t, err)
	assert.Equal(t, "Иван Петров", got.Name)

	got, err = reopened.FindEmployeeByEmail("IVAN@swifty.uz")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.PlankaUserID)

	got, err = reopened.FindEmployeeByPlankaID("u1")
	require.NoError(t, err)
	assert.Equal(t, "ivan@swifty.uz", got.Email)

	_, err = reopened.FindEmployeeByTelegramID(99)
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
}

func TestOwners(t *testing.T) {
	s, _ := tempStore(t)

	_, err := s.FirstOwner()
	assert.ErrorIs(t, err, domain.ErrOwnerNotFound)

	require.NoError(t, s.AddOwner(domain.Owner{ID: "link-1", ChatID: 5, Username: "boss"}))

	owner, err := s.FindOwner("link-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), owner.ChatID)

	_, err = s.FindOwner("nope")
	assert.ErrorIs(t, err, domain.ErrOwnerNotFound)

	first, err := s.FirstOwner()
	require.NoError(t, err)
	assert.Equal(t, "boss", first.Username)
}

func TestSetOwnerGroup(t *testing.T) {
	s, path := tempStore(t)

	require.NoError(t, s.AddOwner(domain.Owner{ID: "link-1", ChatID: 5}))
	require.NoError(t, s.SetOwnerGroup("link-1", -100200, "Команда Swifty"))

	reopened, err := Open(path)
	require.NoError(t, err)
	owner, err := reopened.FirstOwner()
	require.NoError(t, err)
	assert.Equal(t, int64(-100200), owner.GroupID)
	assert.Equal(t, "Команда Swifty", owner.GroupTitle)

	assert.ErrorIs(t, s.SetOwnerGroup("nope", 1, ""), domain.ErrOwnerNotFound)
}

func TestSessionSnapshots(t *testing.T) {
	s, _ := tempStore(t)

	sess := domain.TaskSession{SessionID: "1_2_3", ChatID: 1, UserID: 2}
	require.NoError(t, s.SnapshotSession(sess))

	// A second snapshot with the same id replaces the first.
	sess.SelectedStatusID = "l1"
	require.NoError(t, s.SnapshotSession(sess))

	snaps := s.SessionSnapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, "l1", snaps[0].SelectedStatusID)

	require.NoError(t, s.RemoveSessionSnapshot("1_2_3"))
	assert.Empty(t, s.SessionSnapshots())

	require.NoError(t, s.SnapshotSession(sess))
	require.NoError(t, s.ClearSessionSnapshots())
	assert.Empty(t, s.SessionSnapshots())
}

func TestHistory(t *testing.T) {
	s, path := tempStore(t)

	require.NoError(t, s.AppendHistory(domain.HistoryRecord{CardID: "c1", Title: "отчёт"}))
	require.NoError(t, s.AppendHistory(domain.HistoryRecord{CardID: "c2", Title: "презентация"}))

	reopened, err := Open(path)
	require.NoError(t, err)
	history := reopened.ListHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "c1", history[0].CardID)
}

func TestNotificationDedup(t *testing.T) {
	s, _ := tempStore(t)

	assert.False(t, s.NotificationSent("reminder_c1_2026-08-28"))
	require.NoError(t, s.MarkNotificationSent("reminder_c1_2026-08-28", 7*24*time.Hour))
	assert.True(t, s.NotificationSent("reminder_c1_2026-08-28"))

	// A zero retention prunes old keys on the next write.
	require.NoError(t, s.MarkNotificationSent("other", 0))
	assert.False(t, s.NotificationSent("reminder_c1_2026-08-28"))
}
