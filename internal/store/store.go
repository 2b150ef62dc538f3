// Package store persists bot state in a single JSON file. The file is the
// system of record for employees, owners and task history; task-session
// snapshots are best-effort crash forensics and are never read back.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/swifty-uz/taskbot/internal/domain"
)

type fileData struct {
	Owners            []domain.Owner        `json:"owners"`
	Employees         []domain.Employee     `json:"employees"`
	TaskSessions      []domain.TaskSession  `json:"taskSessions"`
	TaskHistory       []domain.HistoryRecord `json:"taskHistory"`
	SentNotifications []sentNotification    `json:"sentNotifications"`
}

type sentNotification struct {
	Key    string    `json:"key"`
	SentAt time.Time `json:"sentAt"`
}

// Store is a mutex-guarded flat-file datastore. Every mutation rewrites the
// whole file atomically (temp file + rename).
type Store struct {
	mu   sync.Mutex
	path string
	data fileData
}

// Open loads the store file, creating an empty one if it does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.persist(); err != nil {
			return nil, fmt.Errorf("init store file: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}

	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("parse store file %s: %w", path, err)
		}
	}
	return s, nil
}

func (s *Store) persist() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write store temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// ListEmployees returns the full roster in registration order.
func (s *Store) ListEmployees() []domain.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Employee, len(s.data.Employees))
	copy(out, s.data.Employees)
	return out
}

// FindEmployeeByTelegramID returns the employee bound to a transport user id.
func (s *Store) FindEmployeeByTelegramID(userID int64) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Employees {
		if s.data.Employees[i].TelegramUserID == userID {
			emp := s.data.Employees[i]
			return &emp, nil
		}
	}
	return nil, domain.ErrEmployeeNotFound
}

// FindEmployeeByPlankaID returns the employee bound to a board user id.
func (s *Store) FindEmployeeByPlankaID(plankaUserID string) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Employees {
		if s.data.Employees[i].PlankaUserID == plankaUserID {
			emp := s.data.Employees[i]
			return &emp, nil
		}
	}
	return nil, domain.ErrEmployeeNotFound
}

// FindEmployeeByEmail matches case-insensitively.
func (s *Store) FindEmployeeByEmail(email string) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Employees {
		if strings.EqualFold(s.data.Employees[i].Email, email) {
			emp := s.data.Employees[i]
			return &emp, nil
		}
	}
	return nil, domain.ErrEmployeeNotFound
}

// AddEmployee appends a new employee record.
func (s *Store) AddEmployee(emp domain.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Employees = append(s.data.Employees, emp)
	return s.persist()
}

// FindOwner returns the owner with the given registration-link id.
func (s *Store) FindOwner(id string) (*domain.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Owners {
		if s.data.Owners[i].ID == id {
			o := s.data.Owners[i]
			return &o, nil
		}
	}
	return nil, domain.ErrOwnerNotFound
}

// FirstOwner returns the primary owner, if any is registered.
func (s *Store) FirstOwner() (*domain.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data.Owners) == 0 {
		return nil, domain.ErrOwnerNotFound
	}
	o := s.data.Owners[0]
	return &o, nil
}

// AddOwner appends an owner record.
func (s *Store) AddOwner(o domain.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Owners = append(s.data.Owners, o)
	return s.persist()
}

// SetOwnerGroup binds an owner to their team group chat. New employees are
// invited into this group after onboarding.
func (s *Store) SetOwnerGroup(ownerID string, groupID int64, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Owners {
		if s.data.Owners[i].ID == ownerID {
			s.data.Owners[i].GroupID = groupID
			s.data.Owners[i].GroupTitle = title
			return s.persist()
		}
	}
	return domain.ErrOwnerNotFound
}

// AppendHistory appends an immutable record of a created task.
func (s *Store) AppendHistory(rec domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.TaskHistory = append(s.data.TaskHistory, rec)
	return s.persist()
}

// ListHistory returns all history records in insertion order.
func (s *Store) ListHistory() []domain.HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.HistoryRecord, len(s.data.TaskHistory))
	copy(out, s.data.TaskHistory)
	return out
}

// SnapshotSession records the current state of a live session. Snapshots
// replace any previous snapshot with the same session id.
func (s *Store) SnapshotSession(sess domain.TaskSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data.TaskSessions[:0]
	for _, snap := range s.data.TaskSessions {
		if snap.SessionID != sess.SessionID {
			kept = append(kept, snap)
		}
	}
	s.data.TaskSessions = append(kept, sess)
	return s.persist()
}

// RemoveSessionSnapshot drops the snapshot of a closed session.
func (s *Store) RemoveSessionSnapshot(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data.TaskSessions[:0]
	for _, snap := range s.data.TaskSessions {
		if snap.SessionID != sessionID {
			kept = append(kept, snap)
		}
	}
	s.data.TaskSessions = kept
	return s.persist()
}

// ClearSessionSnapshots discards all snapshots. Called on startup: in-flight
// sessions do not survive a restart, so leftover snapshots are stale.
func (s *Store) ClearSessionSnapshots() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data.TaskSessions) == 0 {
		return nil
	}
	s.data.TaskSessions = nil
	return s.persist()
}

// SessionSnapshots returns the recorded snapshots, oldest first.
func (s *Store) SessionSnapshots() []domain.TaskSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TaskSession, len(s.data.TaskSessions))
	copy(out, s.data.TaskSessions)
	return out
}

// NotificationSent reports whether the deduplication key was already recorded.
func (s *Store) NotificationSent(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.data.SentNotifications {
		if n.Key == key {
			return true
		}
	}
	return false
}

// MarkNotificationSent records a deduplication key and prunes entries older
// than the retention window.
func (s *Store) MarkNotificationSent(key string, retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	kept := s.data.SentNotifications[:0]
	for _, n := range s.data.SentNotifications {
		if now.Sub(n.SentAt) <= retention {
			kept = append(kept, n)
		}
	}
	s.data.SentNotifications = append(kept, sentNotification{Key: key, SentAt: now})
	return s.persist()
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return filepath.Clean(s.path)
}
