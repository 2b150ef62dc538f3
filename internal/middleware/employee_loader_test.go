package middleware

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swifty-uz/taskbot/internal/domain"
)

type fakeDirectory struct {
	emp *domain.Employee
}

func (f *fakeDirectory) FindEmployeeByTelegramID(userID int64) (*domain.Employee, error) {
	if f.emp != nil && f.emp.TelegramUserID == userID {
		return f.emp, nil
	}
	return nil, domain.ErrEmployeeNotFound
}

func TestEmployeeLoader(t *testing.T) {
	dir := &fakeDirectory{emp: &domain.Employee{Name: "Иван Петров", TelegramUserID: 10}}
	isOwner := func(username string) bool { return username == "boss" }

	var got context.Context
	next := func(ctx context.Context, b *bot.Bot, update *models.Update) { got = ctx }
	loader := EmployeeLoader(dir, isOwner)(next)

	loader(context.Background(), nil, &models.Update{
		Message: &models.Message{From: &models.User{ID: 10, Username: "boss"}},
	})
	require.NotNil(t, GetEmployee(got))
	assert.Equal(t, "Иван Петров", GetEmployee(got).Name)
	assert.True(t, IsOwner(got))

	// Unknown sender: no employee, no owner flag.
	loader(context.Background(), nil, &models.Update{
		Message: &models.Message{From: &models.User{ID: 99, Username: "someone"}},
	})
	assert.Nil(t, GetEmployee(got))
	assert.False(t, IsOwner(got))

	// Callbacks resolve through CallbackQuery.From.
	loader(context.Background(), nil, &models.Update{
		CallbackQuery: &models.CallbackQuery{From: models.User{ID: 10, Username: "boss"}},
	})
	require.NotNil(t, GetEmployee(got))
	assert.True(t, IsOwner(got))
}
