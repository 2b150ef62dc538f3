package service

import (
	"context"
	"sort"
	"strings"

	"github.com/swifty-uz/taskbot/internal/domain"
)

// CardView is a board card enriched for display.
type CardView struct {
	Card        Card
	ListName    string
	Completed   bool
	Priority    string
	Assignee    *domain.Employee
	Attachments []AttachmentInfo
}

// TaskBrowser reads existing cards for the browsing commands.
type TaskBrowser struct {
	board     BoardFetcher
	directory EmployeeDirectory
}

func NewTaskBrowser(board BoardFetcher, directory EmployeeDirectory) *TaskBrowser {
	return &TaskBrowser{board: board, directory: directory}
}

// MyTasks returns the open cards assigned to a board user, soonest deadline
// first, cards without deadlines last.
func (b *TaskBrowser) MyTasks(ctx context.Context, plankaUserID string) ([]CardView, error) {
	views, err := b.views(ctx)
	if err != nil {
		return nil, err
	}

	var out []CardView
	for _, v := range views {
		if v.Completed || v.Assignee == nil || v.Assignee.PlankaUserID != plankaUserID {
			continue
		}
		out = append(out, v)
	}
	sortByDueDate(out)
	return out, nil
}

// Search matches the query against card names and descriptions,
// case-insensitively.
func (b *TaskBrowser) Search(ctx context.Context, query string) ([]CardView, error) {
	views, err := b.views(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var out []CardView
	for _, v := range views {
		if strings.Contains(strings.ToLower(v.Card.Name), q) ||
			strings.Contains(strings.ToLower(v.Card.Description), q) {
			out = append(out, v)
		}
	}
	sortByDueDate(out)
	return out, nil
}

// Detail returns one card's view, or domain.ErrCardNotFound.
func (b *TaskBrowser) Detail(ctx context.Context, cardID string) (*CardView, error) {
	views, err := b.views(ctx)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].Card.ID == cardID {
			return &views[i], nil
		}
	}
	return nil, domain.ErrCardNotFound
}

func (b *TaskBrowser) views(ctx context.Context) ([]CardView, error) {
	snap, err := b.board.Board(ctx)
	if err != nil {
		return nil, err
	}

	listNames := make(map[string]string, len(snap.Lists))
	completed := make(map[string]bool, len(snap.Lists))
	for _, l := range snap.Lists {
		listNames[l.ID] = l.Name
		completed[l.ID] = IsCompletedList(l.Name)
	}

	labelNames := make(map[string]string, len(snap.Labels))
	for _, l := range snap.Labels {
		labelNames[l.ID] = l.Name
	}
	priorityByCard := make(map[string]string)
	for _, cl := range snap.CardLabels {
		if name := labelNames[cl.LabelID]; IsPriorityLabel(name) {
			priorityByCard[cl.CardID] = PriorityTier(name)
		}
	}

	byPlankaID := make(map[string]*domain.Employee)
	employees := b.directory.ListEmployees()
	for i := range employees {
		byPlankaID[employees[i].PlankaUserID] = &employees[i]
	}
	assigneeByCard := make(map[string]*domain.Employee)
	for _, m := range snap.CardMemberships {
		if _, taken := assigneeByCard[m.CardID]; taken {
			continue
		}
		assigneeByCard[m.CardID] = byPlankaID[m.UserID]
	}

	attachmentsByCard := make(map[string][]AttachmentInfo)
	for _, a := range snap.Attachments {
		attachmentsByCard[a.CardID] = append(attachmentsByCard[a.CardID], a)
	}

	out := make([]CardView, 0, len(snap.Cards))
	for _, card := range snap.Cards {
		out = append(out, CardView{
			Card:        card,
			ListName:    listNames[card.ListID],
			Completed:   completed[card.ListID],
			Priority:    priorityByCard[card.ID],
			Assignee:    assigneeByCard[card.ID],
			Attachments: attachmentsByCard[card.ID],
		})
	}
	return out, nil
}

func sortByDueDate(views []CardView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].Card.DueDate, views[j].Card.DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
