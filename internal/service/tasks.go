package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
)

// Board is the slice of the kanban adapter the task workflow needs.
type Board interface {
	Lists(ctx context.Context) ([]List, error)
	Labels(ctx context.Context) ([]Label, error)
	CreateCard(ctx context.Context, listID string, card CardInput) (*Card, error)
	AddCardLabel(ctx context.Context, cardID, labelID string) error
	AssignCardMember(ctx context.Context, cardID, userID string) error
	UploadAttachment(ctx context.Context, cardID, name string, file io.Reader) error
}

// TaskAnalyzer produces a task proposal from free text.
type TaskAnalyzer interface {
	Analyze(ctx context.Context, text string, employees []domain.Employee) (*domain.TaskProposal, error)
}

// Notifier delivers a plain message to a chat outside the current update.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// TaskRecorder is the persistence surface the workflow writes through.
type TaskRecorder interface {
	ListEmployees() []domain.Employee
	FindEmployeeByPlankaID(plankaUserID string) (*domain.Employee, error)
	AppendHistory(rec domain.HistoryRecord) error
}

// FileFetcher downloads a staged attachment from its transport URL.
type FileFetcher func(ctx context.Context, url string) (io.ReadCloser, error)

// TaskFlow drives the task-creation session workflow: analyze, collect
// choices through session stages, then finalize on the board.
type TaskFlow struct {
	cfg      *config.Config
	board    Board
	analyzer TaskAnalyzer
	resolver *AssigneeResolver
	sessions *SessionStore
	recorder TaskRecorder
	notifier Notifier
	fetch    FileFetcher
	now      func() time.Time
}

type TaskFlowDeps struct {
	Config   *config.Config
	Board    Board
	Analyzer TaskAnalyzer
	Resolver *AssigneeResolver
	Sessions *SessionStore
	Recorder TaskRecorder
	Notifier Notifier
	Fetch    FileFetcher
}

func NewTaskFlow(deps TaskFlowDeps) *TaskFlow {
	return &TaskFlow{
		cfg:      deps.Config,
		board:    deps.Board,
		analyzer: deps.Analyzer,
		resolver: deps.Resolver,
		sessions: deps.Sessions,
		recorder: deps.Recorder,
		notifier: deps.Notifier,
		fetch:    deps.Fetch,
		now:      time.Now,
	}
}

// StartResult is what the handler needs to render the status keyboard.
type StartResult struct {
	Session domain.TaskSession
	Lists   []List
}

// Start analyzes the message and opens a session in the status-selection
// stage. Fails without opening a session when the user already has one, the
// analysis yields nothing, or the board has no lists.
func (f *TaskFlow) Start(ctx context.Context, chatID, userID int64, username, text string) (*StartResult, error) {
	if _, err := f.sessions.FindByOwner(chatID, userID); err == nil {
		return nil, domain.ErrSessionExists
	}

	employees := f.recorder.ListEmployees()

	proposal, err := f.analyzer.Analyze(ctx, text, employees)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, domain.ErrEmptyAnalysis
	}

	lists, err := f.board.Lists(ctx)
	if err != nil {
		return nil, fmt.Errorf("load board lists: %w", err)
	}
	if len(lists) == 0 {
		return nil, domain.ErrNoLists
	}

	// Priority label is an enrichment: a label fetch failure downgrades the
	// card to unlabeled, it never blocks creation.
	if labels, err := f.board.Labels(ctx); err != nil {
		slog.Error("load board labels", "error", err)
	} else {
		proposal.PriorityLabel = PriorityFromLabels(labels, proposal.Priority)
	}

	now := f.now()
	sess := domain.TaskSession{
		SessionID:        domain.NewSessionID(chatID, userID, now),
		ChatID:           chatID,
		UserID:           userID,
		Username:         username,
		OriginalMessage:  text,
		Proposal:         proposal,
		Stage:            domain.StageSelectStatus,
		ResolvedAssignee: f.resolver.Resolve(proposal.Assignee, employees),
		CreatedAt:        now,
	}
	if err := f.sessions.Create(sess); err != nil {
		return nil, err
	}
	return &StartResult{Session: sess, Lists: lists}, nil
}

// SelectStatus records the chosen board list. When the analysis already
// resolved an assignee the assignee stage is skipped.
func (f *TaskFlow) SelectStatus(sessionID, listID string) (domain.TaskSession, error) {
	return f.sessions.Update(sessionID, func(s *domain.TaskSession) {
		s.SelectedStatusID = listID
		if s.ResolvedAssignee != nil {
			s.SelectedAssigneeID = s.ResolvedAssignee.PlankaUserID
			s.Stage = domain.StageAskAttachments
		} else {
			s.Stage = domain.StageSelectAssignee
		}
	})
}

// SelectAssignee records the chosen board user (or domain.AssigneeNone).
func (f *TaskFlow) SelectAssignee(sessionID, assigneeID string) (domain.TaskSession, error) {
	return f.sessions.Update(sessionID, func(s *domain.TaskSession) {
		s.SelectedAssigneeID = assigneeID
		s.Stage = domain.StageAskAttachments
	})
}

// RequestAttachments moves the session into file-collection mode.
func (f *TaskFlow) RequestAttachments(sessionID string) (domain.TaskSession, error) {
	return f.sessions.Update(sessionID, func(s *domain.TaskSession) {
		s.Stage = domain.StageAwaitingAttachments
	})
}

// AddAttachment stages a file for upload during finalize.
func (f *TaskFlow) AddAttachment(sessionID string, att domain.Attachment) (domain.TaskSession, error) {
	return f.sessions.Update(sessionID, func(s *domain.TaskSession) {
		s.Attachments = append(s.Attachments, att)
	})
}

// Session returns the open session for a (chat, user) pair.
func (f *TaskFlow) Session(chatID, userID int64) (domain.TaskSession, error) {
	return f.sessions.FindByOwner(chatID, userID)
}

// Cancel closes the session without creating anything.
func (f *TaskFlow) Cancel(sessionID string) {
	f.sessions.Delete(sessionID)
}

// FinalizeResult is the outcome of card creation. Warnings list the
// enrichment steps that failed; the card itself exists whenever err is nil.
type FinalizeResult struct {
	Card     *Card
	CardURL  string
	Assignee *domain.Employee
	Uploaded int
	Warnings []string
}

// Finalize creates the card and applies the session's choices in order:
// card first (the only fatal step), then label, assignee, attachments. Every
// enrichment failure is isolated into Warnings. The session is closed on
// success and kept open on failure so the user may retry.
func (f *TaskFlow) Finalize(ctx context.Context, sessionID string) (*FinalizeResult, error) {
	sess, err := f.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.SelectedStatusID == "" || sess.Proposal == nil {
		return nil, fmt.Errorf("session %s is not ready to finalize", sessionID)
	}

	card, err := f.board.CreateCard(ctx, sess.SelectedStatusID, CardInput{
		Name:        sess.Proposal.Title,
		Description: f.cardDescription(sess),
		Position:    1,
		DueDate:     sess.Proposal.Assignee.DueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}

	result := &FinalizeResult{Card: card, CardURL: f.cfg.CardURL(card.ID)}

	if pl := sess.Proposal.PriorityLabel; pl != nil {
		if err := f.board.AddCardLabel(ctx, card.ID, pl.LabelID); err != nil {
			slog.Error("add priority label", "error", err, "card_id", card.ID)
			result.Warnings = append(result.Warnings, "метка приоритета не добавлена")
		}
	}

	if sess.SelectedAssigneeID != "" && sess.SelectedAssigneeID != domain.AssigneeNone {
		if err := f.board.AssignCardMember(ctx, card.ID, sess.SelectedAssigneeID); err != nil {
			slog.Error("assign card member", "error", err, "card_id", card.ID)
			result.Warnings = append(result.Warnings, "исполнитель не назначен")
		} else {
			result.Assignee = f.notifyAssignee(ctx, sess, card)
		}
	}

	for _, att := range sess.Attachments {
		if err := f.uploadAttachment(ctx, card.ID, att); err != nil {
			slog.Error("upload attachment", "error", err, "card_id", card.ID, "name", att.Name)
			result.Warnings = append(result.Warnings, fmt.Sprintf("файл %q не загружен", att.Name))
			continue
		}
		result.Uploaded++
	}

	if err := f.recorder.AppendHistory(domain.HistoryRecord{
		SessionID: sess.SessionID,
		CardID:    card.ID,
		CreatedAt: f.now(),
		Creator:   sess.Username,
		Title:     sess.Proposal.Title,
		Priority:  sess.Proposal.Priority,
		Category:  sess.Proposal.Category,
	}); err != nil {
		slog.Error("append task history", "error", err, "card_id", card.ID)
	}

	f.sessions.Delete(sessionID)
	return result, nil
}

func (f *TaskFlow) uploadAttachment(ctx context.Context, cardID string, att domain.Attachment) error {
	if f.fetch == nil {
		return fmt.Errorf("no file fetcher configured")
	}
	body, err := f.fetch(ctx, att.SourceURL)
	if err != nil {
		return fmt.Errorf("download file: %w", err)
	}
	defer body.Close()
	return f.board.UploadAttachment(ctx, cardID, att.Name, body)
}

// notifyAssignee sends a direct message to the assigned employee. Returns the
// employee for the success summary; delivery failures are only logged.
func (f *TaskFlow) notifyAssignee(ctx context.Context, sess domain.TaskSession, card *Card) *domain.Employee {
	emp, err := f.recorder.FindEmployeeByPlankaID(sess.SelectedAssigneeID)
	if err != nil {
		return nil
	}
	if f.notifier == nil || emp.TelegramChatID == 0 {
		return emp
	}

	text := fmt.Sprintf("📋 Вам назначена новая задача!\n\n📝 %s\n⚡ Приоритет: %s\n\n🔗 %s",
		sess.Proposal.Title, PriorityTier(sess.Proposal.Priority), f.cfg.CardURL(card.ID))
	if err := f.notifier.Notify(ctx, emp.TelegramChatID, text); err != nil {
		slog.Error("notify assignee", "error", err, "employee", emp.Name)
	}
	return emp
}

func (f *TaskFlow) cardDescription(sess domain.TaskSession) string {
	p := sess.Proposal
	desc := p.Description
	if p.Category != "" {
		desc += fmt.Sprintf("\n\n📂 Категория: %s", p.Category)
	}
	desc += fmt.Sprintf("\n⚡ Приоритет: %s", PriorityTier(p.Priority))
	if sess.Username != "" {
		desc += fmt.Sprintf("\n👤 Создал: @%s", sess.Username)
	}
	if sess.OriginalMessage != "" {
		desc += fmt.Sprintf("\n\n💬 Исходное сообщение:\n%s", sess.OriginalMessage)
	}
	return desc
}
