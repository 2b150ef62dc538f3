package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swifty-uz/taskbot/internal/domain"
)

type fakeRegBoard struct {
	existing map[string]*BoardUser
	password string
	created  []BoardUser
	onBoard  []string
}

func (f *fakeRegBoard) FindUserByEmail(ctx context.Context, email string) (*BoardUser, error) {
	return f.existing[email], nil
}

func (f *fakeRegBoard) VerifyPassword(ctx context.Context, email, password string) (bool, error) {
	return password == f.password, nil
}

func (f *fakeRegBoard) CreateUser(ctx context.Context, email, password, name, username string) (*BoardUser, error) {
	user := BoardUser{ID: "new-user", Name: name, Email: email, Username: username}
	f.created = append(f.created, user)
	return &user, nil
}

func (f *fakeRegBoard) AddUserToBoard(ctx context.Context, userID string) error {
	f.onBoard = append(f.onBoard, userID)
	return nil
}

type fakeRegStore struct {
	owners    map[string]domain.Owner
	employees []domain.Employee
}

func (f *fakeRegStore) FindOwner(id string) (*domain.Owner, error) {
	o, ok := f.owners[id]
	if !ok {
		return nil, domain.ErrOwnerNotFound
	}
	return &o, nil
}

func (f *fakeRegStore) FindEmployeeByTelegramID(userID int64) (*domain.Employee, error) {
	for i := range f.employees {
		if f.employees[i].TelegramUserID == userID {
			return &f.employees[i], nil
		}
	}
	return nil, domain.ErrEmployeeNotFound
}

func (f *fakeRegStore) AddEmployee(emp domain.Employee) error {
	f.employees = append(f.employees, emp)
	return nil
}

func regService(board *fakeRegBoard) (*RegistrationService, *fakeRegStore) {
	st := &fakeRegStore{owners: map[string]domain.Owner{
		"link-1": {ID: "link-1", ChatID: 5, GroupID: -100},
	}}
	return NewRegistrationService(board, st), st
}

func TestRegistrationNewAccountFlow(t *testing.T) {
	board := &fakeRegBoard{}
	svc, st := regService(board)

	_, err := svc.Begin(10, "link-1")
	require.NoError(t, err)

	next, err := svc.SubmitEmail(context.Background(), 10, "Ivan@Swifty.uz")
	require.NoError(t, err)
	assert.Equal(t, RegStageName, next)

	require.NoError(t, svc.SubmitName(10, "Иван Петров"))

	emp, password, err := svc.SubmitPosition(context.Background(), 10, 10, "ivan_tg", "разработчик")
	require.NoError(t, err)
	assert.NotEmpty(t, password)
	assert.Equal(t, "ivan@swifty.uz", emp.Email)
	assert.Equal(t, "new-user", emp.PlankaUserID)
	assert.Equal(t, int64(-100), emp.GroupID)

	require.Len(t, board.created, 1)
	assert.True(t, strings.HasPrefix(board.created[0].Username, "ivan"))
	assert.Equal(t, []string{"new-user"}, board.onBoard)
	require.Len(t, st.employees, 1)

	// The conversation is closed.
	_, active := svc.Active(10)
	assert.False(t, active)
}

func TestRegistrationExistingAccountFlow(t *testing.T) {
	board := &fakeRegBoard{
		existing: map[string]*BoardUser{
			"ivan@swifty.uz": {ID: "u1", Name: "Иван Петров", Email: "ivan@swifty.uz"},
		},
		password: "secret",
	}
	svc, st := regService(board)

	_, err := svc.Begin(10, "link-1")
	require.NoError(t, err)

	next, err := svc.SubmitEmail(context.Background(), 10, "ivan@swifty.uz")
	require.NoError(t, err)
	assert.Equal(t, RegStagePassword, next)

	// Wrong password keeps the conversation open.
	_, ok, err := svc.SubmitPassword(context.Background(), 10, 10, "ivan_tg", "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	_, active := svc.Active(10)
	assert.True(t, active)

	emp, ok, err := svc.SubmitPassword(context.Background(), 10, 10, "ivan_tg", "secret")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", emp.PlankaUserID)
	assert.Empty(t, board.created)
	require.Len(t, st.employees, 1)
}

func TestRegistrationRejectsBadLinkAndDuplicates(t *testing.T) {
	svc, st := regService(&fakeRegBoard{})

	_, err := svc.Begin(10, "wrong-link")
	assert.ErrorIs(t, err, domain.ErrOwnerNotFound)

	st.employees = append(st.employees, domain.Employee{Name: "Иван", TelegramUserID: 10})
	_, err = svc.Begin(10, "link-1")
	assert.Error(t, err)
}

func TestRegistrationRejectsInvalidEmail(t *testing.T) {
	svc, _ := regService(&fakeRegBoard{})
	_, err := svc.Begin(10, "link-1")
	require.NoError(t, err)

	_, err = svc.SubmitEmail(context.Background(), 10, "не email")
	assert.Error(t, err)

	// Still waiting for an email.
	state, active := svc.Active(10)
	require.True(t, active)
	assert.Equal(t, RegStageEmail, state.Stage)
}
