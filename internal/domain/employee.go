package domain

import "time"

// Employee is a registered team member. Records are created by the
// registration flow and are read-only to the task workflow.
type Employee struct {
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Position       string    `json:"position"`
	PlankaUserID   string    `json:"plankaUserId"`
	PlankaUsername string    `json:"plankaUsername,omitempty"`
	TelegramUserID int64     `json:"telegramUserId"`
	TelegramChatID int64     `json:"telegramChatId"`
	Username       string    `json:"username"`
	GroupID        int64     `json:"groupId"`
	RegisteredAt   time.Time `json:"registrationDate"`
}

// Owner is a workspace owner who issues registration links.
type Owner struct {
	ID         string `json:"id"`
	ChatID     int64  `json:"chatId"`
	Username   string `json:"username"`
	GroupID    int64  `json:"telegramGroupId"`
	GroupTitle string `json:"groupTitle"`
}
