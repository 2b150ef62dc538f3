package domain

import (
	"fmt"
	"time"
)

// Stage is the current step of a task-creation session. It is a closed set;
// transitions outside AllowedNext are programming errors.
type Stage string

const (
	StageSelectStatus        Stage = "select_status"
	StageSelectAssignee      Stage = "select_assignee"
	StageAskAttachments      Stage = "ask_attachments"
	StageAwaitingAttachments Stage = "awaiting_attachments"
)

func (s Stage) Valid() bool {
	switch s {
	case StageSelectStatus, StageSelectAssignee, StageAskAttachments, StageAwaitingAttachments:
		return true
	}
	return false
}

// AssigneeNone is the sentinel for an explicit "no assignee" choice,
// distinct from an assignee that was never selected.
const AssigneeNone = "none"

// Attachment is a file staged during task creation. Files are uploaded to the
// board in staging order.
type Attachment struct {
	Name      string `json:"name"`
	SourceURL string `json:"sourceUrl"`
	Size      int64  `json:"size"`
}

// TaskSession is the in-memory state of one in-progress task-creation
// conversation. A session is owned by its (ChatID, UserID) pair and mutated
// only through the session store.
type TaskSession struct {
	SessionID       string        `json:"sessionId"`
	ChatID          int64         `json:"chatId"`
	UserID          int64         `json:"userId"`
	Username        string        `json:"username"`
	OriginalMessage string        `json:"originalMessage"`
	Proposal        *TaskProposal `json:"proposal"`
	Stage           Stage         `json:"stage"`

	// SelectedStatusID is the board list chosen in StageSelectStatus.
	SelectedStatusID string `json:"selectedStatusId,omitempty"`
	// SelectedAssigneeID is a board user id, AssigneeNone, or empty (unset).
	SelectedAssigneeID string `json:"selectedAssigneeId,omitempty"`
	// ResolvedAssignee is the employee matched automatically from the
	// proposal's mention, if any.
	ResolvedAssignee *Employee `json:"resolvedAssignee,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// NewSessionID derives a session id from the owning chat, user and creation
// instant. Two concurrently open sessions never share an id because at most
// one session may be open per (chat, user).
func NewSessionID(chatID, userID int64, at time.Time) string {
	return fmt.Sprintf("%d_%d_%d", chatID, userID, at.UnixNano())
}
