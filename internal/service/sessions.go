package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/swifty-uz/taskbot/internal/domain"
)

// SessionSnapshotter persists session snapshots for crash forensics.
// Snapshot failures are logged and never fail the session operation.
type SessionSnapshotter interface {
	SnapshotSession(sess domain.TaskSession) error
	RemoveSessionSnapshot(sessionID string) error
}

// SessionStore holds live task-creation sessions in memory. All access goes
// through the store's mutex, so two updates for the same user never
// interleave: callback handlers read-modify-write via Update.
type SessionStore struct {
	mu        sync.Mutex
	byID      map[string]*domain.TaskSession
	byOwner   map[string]string // "chatID:userID" -> session id
	snapshots SessionSnapshotter
}

func NewSessionStore(snapshots SessionSnapshotter) *SessionStore {
	return &SessionStore{
		byID:      make(map[string]*domain.TaskSession),
		byOwner:   make(map[string]string),
		snapshots: snapshots,
	}
}

func ownerKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

// Create registers a new session. A user may hold at most one open session
// per chat; a second Create returns domain.ErrSessionExists.
func (s *SessionStore) Create(sess domain.TaskSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerKey(sess.ChatID, sess.UserID)
	if _, open := s.byOwner[key]; open {
		return domain.ErrSessionExists
	}

	copied := sess
	s.byID[sess.SessionID] = &copied
	s.byOwner[key] = sess.SessionID
	s.snapshot(copied)
	return nil
}

// Get returns a copy of the session with the given id.
func (s *SessionStore) Get(sessionID string) (domain.TaskSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return domain.TaskSession{}, domain.ErrSessionNotFound
	}
	return *sess, nil
}

// FindByOwner returns a copy of the open session for a (chat, user) pair.
func (s *SessionStore) FindByOwner(chatID, userID int64) (domain.TaskSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byOwner[ownerKey(chatID, userID)]
	if !ok {
		return domain.TaskSession{}, domain.ErrSessionNotFound
	}
	return *s.byID[id], nil
}

// Update applies a mutation to the session under the store lock and returns
// the updated copy. Concurrent updates to the same session serialize here.
func (s *SessionStore) Update(sessionID string, mutate func(*domain.TaskSession)) (domain.TaskSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return domain.TaskSession{}, domain.ErrSessionNotFound
	}
	mutate(sess)
	s.snapshot(*sess)
	return *sess, nil
}

// Delete closes a session. Deleting an already-closed session is a no-op.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return
	}
	delete(s.byID, sessionID)
	delete(s.byOwner, ownerKey(sess.ChatID, sess.UserID))

	if s.snapshots != nil {
		if err := s.snapshots.RemoveSessionSnapshot(sessionID); err != nil {
			slog.Error("remove session snapshot", "error", err, "session_id", sessionID)
		}
	}
}

// Len reports the number of open sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *SessionStore) snapshot(sess domain.TaskSession) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.SnapshotSession(sess); err != nil {
		slog.Error("snapshot session", "error", err, "session_id", sess.SessionID)
	}
}
