package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
)

// RegStage is the current step of an onboarding conversation.
type RegStage string

const (
	RegStageEmail    RegStage = "awaiting_email"
	RegStagePassword RegStage = "awaiting_password"
	RegStageName     RegStage = "awaiting_name"
	RegStagePosition RegStage = "awaiting_position"
)

// RegState is the in-memory state of one onboarding conversation, keyed by
// the registering user's id.
type RegState struct {
	OwnerID   string
	Stage     RegStage
	Email     string
	BoardUser *BoardUser
	Name      string
	UpdatedAt time.Time
}

// RegistrationBoard is the slice of the board adapter onboarding needs.
type RegistrationBoard interface {
	FindUserByEmail(ctx context.Context, email string) (*BoardUser, error)
	VerifyPassword(ctx context.Context, email, password string) (bool, error)
	CreateUser(ctx context.Context, email, password, name, username string) (*BoardUser, error)
	AddUserToBoard(ctx context.Context, userID string) error
}

// RegistrationStore is the persistence surface of onboarding.
type RegistrationStore interface {
	FindOwner(id string) (*domain.Owner, error)
	FindEmployeeByTelegramID(userID int64) (*domain.Employee, error)
	AddEmployee(emp domain.Employee) error
}

// RegistrationService walks a new employee through the /start deep-link flow:
// email, then either a password check against an existing board account or
// name and position to create one.
type RegistrationService struct {
	mu     sync.Mutex
	states map[int64]*RegState
	board  RegistrationBoard
	store  RegistrationStore
	now    func() time.Time
}

func NewRegistrationService(board RegistrationBoard, store RegistrationStore) *RegistrationService {
	return &RegistrationService{
		states: make(map[int64]*RegState),
		board:  board,
		store:  store,
		now:    time.Now,
	}
}

// Begin opens an onboarding conversation from an owner deep link. Fails with
// domain.ErrOwnerNotFound for an unknown link id.
func (r *RegistrationService) Begin(userID int64, ownerLinkID string) (*domain.Owner, error) {
	owner, err := r.store.FindOwner(ownerLinkID)
	if err != nil {
		return nil, err
	}
	if emp, err := r.store.FindEmployeeByTelegramID(userID); err == nil {
		return nil, fmt.Errorf("already registered as %s", emp.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[userID] = &RegState{OwnerID: owner.ID, Stage: RegStageEmail, UpdatedAt: r.now()}
	return owner, nil
}

// Active returns the onboarding state for a user, if one is open.
func (r *RegistrationService) Active(userID int64) (RegState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[userID]
	if !ok {
		return RegState{}, false
	}
	return *st, true
}

// Cancel drops the onboarding conversation.
func (r *RegistrationService) Cancel(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
}

// SubmitEmail records the email and decides the next step: a password check
// when a board account with that email exists, otherwise name collection.
func (r *RegistrationService) SubmitEmail(ctx context.Context, userID int64, email string) (RegStage, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("invalid email %q", email)
	}

	existing, err := r.board.FindUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[userID]
	if !ok || st.Stage != RegStageEmail {
		return "", domain.ErrSessionNotFound
	}
	st.Email = email
	st.UpdatedAt = r.now()
	if existing != nil {
		st.BoardUser = existing
		st.Stage = RegStagePassword
	} else {
		st.Stage = RegStageName
	}
	return st.Stage, nil
}

// SubmitPassword verifies the password of the existing board account and, on
// success, registers the employee. ok=false means a wrong password; the
// conversation stays open for a retry.
func (r *RegistrationService) SubmitPassword(ctx context.Context, userID, chatID int64, tgUsername, password string) (*domain.Employee, bool, error) {
	r.mu.Lock()
	st, open := r.states[userID]
	if !open || st.Stage != RegStagePassword || st.BoardUser == nil {
		r.mu.Unlock()
		return nil, false, domain.ErrSessionNotFound
	}
	state := *st
	r.mu.Unlock()

	ok, err := r.board.VerifyPassword(ctx, state.Email, password)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	emp, err := r.register(state, state.BoardUser, userID, chatID, tgUsername, state.BoardUser.Name, "")
	if err != nil {
		return nil, false, err
	}
	r.Cancel(userID)
	return emp, true, nil
}

// SubmitName records the employee's full name.
func (r *RegistrationService) SubmitName(userID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[userID]
	if !ok || st.Stage != RegStageName {
		return domain.ErrSessionNotFound
	}
	st.Name = name
	st.Stage = RegStagePosition
	st.UpdatedAt = r.now()
	return nil
}

// SubmitPosition creates the board account with a generated password, grants
// board access and registers the employee. Returns the generated password so
// the handler can deliver the credentials.
func (r *RegistrationService) SubmitPosition(ctx context.Context, userID, chatID int64, tgUsername, position string) (*domain.Employee, string, error) {
	r.mu.Lock()
	st, open := r.states[userID]
	if !open || st.Stage != RegStagePosition {
		r.mu.Unlock()
		return nil, "", domain.ErrSessionNotFound
	}
	state := *st
	r.mu.Unlock()

	password := uuid.NewString()
	username := boardUsername(state.Email)
	user, err := r.board.CreateUser(ctx, state.Email, password, state.Name, username)
	if err != nil {
		return nil, "", fmt.Errorf("create board account: %w", err)
	}
	if err := r.board.AddUserToBoard(ctx, user.ID); err != nil {
		// The account exists; board access can be granted by hand.
		slog.Error("add user to board", "error", err, "board_user_id", user.ID)
	}

	emp, err := r.register(state, user, userID, chatID, tgUsername, state.Name, strings.TrimSpace(position))
	if err != nil {
		return nil, "", err
	}
	r.Cancel(userID)
	return emp, password, nil
}

func (r *RegistrationService) register(state RegState, user *BoardUser, userID, chatID int64, tgUsername, name, position string) (*domain.Employee, error) {
	emp := domain.Employee{
		Name:           name,
		Email:          state.Email,
		Position:       position,
		PlankaUserID:   user.ID,
		PlankaUsername: user.Username,
		TelegramUserID: userID,
		TelegramChatID: chatID,
		Username:       tgUsername,
		RegisteredAt:   r.now(),
	}
	if owner, err := r.store.FindOwner(state.OwnerID); err == nil {
		emp.GroupID = owner.GroupID
	}
	if err := r.store.AddEmployee(emp); err != nil {
		return nil, fmt.Errorf("save employee: %w", err)
	}
	return &emp, nil
}

// RunCleanup drops abandoned onboarding conversations on an interval.
func (r *RegistrationService) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(config.StateCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanupStale()
		}
	}
}

func (r *RegistrationService) cleanupStale() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-config.StateMaxAge)
	for userID, st := range r.states {
		if st.UpdatedAt.Before(cutoff) {
			delete(r.states, userID)
			slog.Info("dropped stale onboarding state", "user_id", userID)
		}
	}
}

// boardUsername derives a unique board username from the email local part.
func boardUsername(email string) string {
	local := email
	if i := strings.Index(email, "@"); i > 0 {
		local = email[:i]
	}
	var b strings.Builder
	for _, ch := range strings.ToLower(local) {
		if ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String() + uuid.NewString()[:8]
}
