package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
)

// BoardFetcher provides the full board snapshot.
type BoardFetcher interface {
	Board(ctx context.Context) (*BoardSnapshot, error)
}

// EmployeeDirectory exposes the registered roster.
type EmployeeDirectory interface {
	ListEmployees() []domain.Employee
}

// Statistics is an aggregate over board cards for a period.
type Statistics struct {
	Period     string
	Total      int
	Completed  int
	Overdue    int
	ByPriority map[string]int
	ByList     map[string]int
	ByEmployee map[string]int
	// OverdueCards holds the oldest overdue cards, capped for display.
	OverdueCards []OverdueCard
}

type OverdueCard struct {
	Name        string
	ListName    string
	Assignee    string
	DueDate     time.Time
	OverdueDays int
}

// CompletionRate returns completed/total as a percentage.
func (s *Statistics) CompletionRate() int {
	if s.Total == 0 {
		return 0
	}
	return s.Completed * 100 / s.Total
}

// StatsService aggregates board state for the owner's reports.
type StatsService struct {
	board     BoardFetcher
	directory EmployeeDirectory
	now       func() time.Time
}

func NewStatsService(board BoardFetcher, directory EmployeeDirectory) *StatsService {
	return &StatsService{board: board, directory: directory, now: time.Now}
}

// Collect builds statistics for a period key ("7d", "30d", "90d" or "all").
func (s *StatsService) Collect(ctx context.Context, period string) (*Statistics, error) {
	snap, err := s.board.Board(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect statistics: %w", err)
	}

	now := s.now()
	var since time.Time
	if window, ok := config.StatsPeriods[period]; ok {
		since = now.Add(-window)
	}

	listNames := make(map[string]string, len(snap.Lists))
	completedLists := make(map[string]bool, len(snap.Lists))
	for _, l := range snap.Lists {
		listNames[l.ID] = l.Name
		completedLists[l.ID] = IsCompletedList(l.Name)
	}

	labelNames := make(map[string]string, len(snap.Labels))
	for _, l := range snap.Labels {
		labelNames[l.ID] = l.Name
	}

	cardLabels := make(map[string][]string)
	for _, cl := range snap.CardLabels {
		cardLabels[cl.CardID] = append(cardLabels[cl.CardID], cl.LabelID)
	}

	employeeByPlankaID := make(map[string]string)
	for _, e := range s.directory.ListEmployees() {
		employeeByPlankaID[e.PlankaUserID] = e.Name
	}
	cardAssignees := make(map[string][]string)
	for _, m := range snap.CardMemberships {
		name := employeeByPlankaID[m.UserID]
		if name == "" {
			name = m.UserID
		}
		cardAssignees[m.CardID] = append(cardAssignees[m.CardID], name)
	}

	stats := &Statistics{
		Period:     period,
		ByPriority: make(map[string]int),
		ByList:     make(map[string]int),
		ByEmployee: make(map[string]int),
	}

	for _, card := range snap.Cards {
		if !since.IsZero() && card.CreatedAt.Before(since) {
			continue
		}
		stats.Total++

		done := completedLists[card.ListID]
		if done {
			stats.Completed++
		}
		stats.ByList[listNames[card.ListID]]++

		for _, labelID := range cardLabels[card.ID] {
			if name := labelNames[labelID]; IsPriorityLabel(name) {
				stats.ByPriority[PriorityTier(name)]++
			}
		}
		for _, name := range cardAssignees[card.ID] {
			stats.ByEmployee[name]++
		}

		if !done && card.DueDate != nil && card.DueDate.Before(now) && !card.IsDueDateCompleted {
			stats.Overdue++
			assignee := ""
			if names := cardAssignees[card.ID]; len(names) > 0 {
				assignee = names[0]
			}
			stats.OverdueCards = append(stats.OverdueCards, OverdueCard{
				Name:        card.Name,
				ListName:    listNames[card.ListID],
				Assignee:    assignee,
				DueDate:     *card.DueDate,
				OverdueDays: int(now.Sub(*card.DueDate).Hours() / 24),
			})
		}
	}

	sort.Slice(stats.OverdueCards, func(i, j int) bool {
		return stats.OverdueCards[i].DueDate.Before(stats.OverdueCards[j].DueDate)
	})
	if len(stats.OverdueCards) > config.MaxOverdueDetails {
		stats.OverdueCards = stats.OverdueCards[:config.MaxOverdueDetails]
	}
	return stats, nil
}

// IsCompletedList reports whether a list name counts as a "done" status.
func IsCompletedList(name string) bool {
	lower := strings.ToLower(name)
	for _, done := range config.CompletedListNames {
		if strings.Contains(lower, done) {
			return true
		}
	}
	return false
}
