package domain

import "time"

// HistoryRecord is an append-only entry written after a task is successfully
// created on the board. Records are never mutated after insertion.
type HistoryRecord struct {
	SessionID string    `json:"sessionId"`
	CardID    string    `json:"cardId"`
	CreatedAt time.Time `json:"createdAt"`
	Creator   string    `json:"creator"`
	Title     string    `json:"title"`
	Priority  string    `json:"priority"`
	Category  string    `json:"category"`
}
