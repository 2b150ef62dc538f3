package domain

import "time"

// TaskProposal is the structured task draft produced by the analysis service
// from a free-text (or voice-transcribed) message. It is immutable once
// produced; the workflow never re-derives it.
type TaskProposal struct {
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Priority      string           `json:"priority"`
	Category      string           `json:"category"`
	Assignee      AssigneeMention  `json:"assigneeInfo"`
	NeedsMoreInfo bool             `json:"needsMoreInfo"`

	// PriorityLabel is resolved against the board's labels right after
	// analysis. Nil when no label on the board matches the priority text.
	PriorityLabel *PriorityLabel `json:"-"`
}

// AssigneeMention describes how the analyzed message referred to an assignee.
type AssigneeMention struct {
	Mentioned   bool       `json:"mentioned"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	DueDate     *time.Time `json:"dueDate"`
	SearchTerms []string   `json:"searchTerms"`
}

// PriorityLabel is a board label matched to a priority tier.
type PriorityLabel struct {
	LabelID   string
	Priority  string
	LabelName string
}
