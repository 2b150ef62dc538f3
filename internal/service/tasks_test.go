package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
)

type fakeBoard struct {
	lists     []List
	listsErr  error
	labels    []Label
	labelsErr error

	createErr  error
	labelErr   error
	assignErr  error
	uploadErr  error
	failUpload string

	calls   []string
	created *CardInput
}

func (f *fakeBoard) Lists(ctx context.Context) ([]List, error) {
	return f.lists, f.listsErr
}

func (f *fakeBoard) Labels(ctx context.Context) ([]Label, error) {
	return f.labels, f.labelsErr
}

func (f *fakeBoard) CreateCard(ctx context.Context, listID string, card CardInput) (*Card, error) {
	f.calls = append(f.calls, "create:"+listID)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &card
	return &Card{ID: "card1", Name: card.Name, ListID: listID}, nil
}

func (f *fakeBoard) AddCardLabel(ctx context.Context, cardID, labelID string) error {
	f.calls = append(f.calls, "label:"+labelID)
	return f.labelErr
}

func (f *fakeBoard) AssignCardMember(ctx context.Context, cardID, userID string) error {
	f.calls = append(f.calls, "assign:"+userID)
	return f.assignErr
}

func (f *fakeBoard) UploadAttachment(ctx context.Context, cardID, name string, file io.Reader) error {
	f.calls = append(f.calls, "upload:"+name)
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if name == f.failUpload {
		return errors.New("upload rejected")
	}
	return nil
}

type fakeAnalyzer struct {
	proposal *domain.TaskProposal
	err      error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string, employees []domain.Employee) (*domain.TaskProposal, error) {
	return f.proposal, f.err
}

type fakeRecorder struct {
	employees []domain.Employee
	history   []domain.HistoryRecord
}

func (f *fakeRecorder) ListEmployees() []domain.Employee { return f.employees }

func (f *fakeRecorder) FindEmployeeByPlankaID(id string) (*domain.Employee, error) {
	for i := range f.employees {
		if f.employees[i].PlankaUserID == id {
			return &f.employees[i], nil
		}
	}
	return nil, domain.ErrEmployeeNotFound
}

func (f *fakeRecorder) AppendHistory(rec domain.HistoryRecord) error {
	f.history = append(f.history, rec)
	return nil
}

type fakeNotifier struct {
	sent []int64
}

func (f *fakeNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	f.sent = append(f.sent, chatID)
	return nil
}

func testFlow(board *fakeBoard, analyzer *fakeAnalyzer, recorder *fakeRecorder, notifier *fakeNotifier) *TaskFlow {
	cfg := &config.Config{PlankaPublicURL: "https://swifty.uz"}
	return NewTaskFlow(TaskFlowDeps{
		Config:   cfg,
		Board:    board,
		Analyzer: analyzer,
		Resolver: NewAssigneeResolver(),
		Sessions: NewSessionStore(nil),
		Recorder: recorder,
		Notifier: notifier,
		Fetch: func(ctx context.Context, url string) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("data")), nil
		},
	})
}

func proposal() *domain.TaskProposal {
	return &domain.TaskProposal{
		Title:    "Подготовить отчёт",
		Priority: "высокий",
	}
}

func TestStartOpensSession(t *testing.T) {
	board := &fakeBoard{
		lists:  []List{{ID: "l1", Name: "Входящие"}},
		labels: []Label{{ID: "lab1", Name: "Высокий"}},
	}
	flow := testFlow(board, &fakeAnalyzer{proposal: proposal()}, &fakeRecorder{}, nil)

	result, err := flow.Start(context.Background(), 1, 10, "boss", "сделать отчёт")
	require.NoError(t, err)
	assert.Equal(t, domain.StageSelectStatus, result.Session.Stage)
	assert.Len(t, result.Lists, 1)
	require.NotNil(t, result.Session.Proposal.PriorityLabel)
	assert.Equal(t, "lab1", result.Session.Proposal.PriorityLabel.LabelID)

	_, err = flow.Session(1, 10)
	assert.NoError(t, err)
}

func TestStartRejectsSecondSession(t *testing.T) {
	board := &fakeBoard{lists: []List{{ID: "l1", Name: "Входящие"}}}
	flow := testFlow(board, &fakeAnalyzer{proposal: proposal()}, &fakeRecorder{}, nil)

	_, err := flow.Start(context.Background(), 1, 10, "boss", "раз")
	require.NoError(t, err)

	_, err = flow.Start(context.Background(), 1, 10, "boss", "два")
	assert.ErrorIs(t, err, domain.ErrSessionExists)
}

func TestStartAnalysisFailureOpensNothing(t *testing.T) {
	board := &fakeBoard{lists: []List{{ID: "l1", Name: "Входящие"}}}
	flow := testFlow(board, &fakeAnalyzer{err: domain.ErrEmptyAnalysis}, &fakeRecorder{}, nil)

	_, err := flow.Start(context.Background(), 1, 10, "boss", "ааа")
	assert.ErrorIs(t, err, domain.ErrEmptyAnalysis)

	_, err = flow.Session(1, 10)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStartNilProposalOpensNothing(t *testing.T) {
	board := &fakeBoard{lists: []List{{ID: "l1", Name: "Входящие"}}}
	flow := testFlow(board, &fakeAnalyzer{}, &fakeRecorder{}, nil)

	// An analyzer yielding neither proposal nor error still means "no task".
	_, err := flow.Start(context.Background(), 1, 10, "boss", "ааа")
	assert.ErrorIs(t, err, domain.ErrEmptyAnalysis)

	_, err = flow.Session(1, 10)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStartNoLists(t *testing.T) {
	flow := testFlow(&fakeBoard{}, &fakeAnalyzer{proposal: proposal()}, &fakeRecorder{}, nil)

	_, err := flow.Start(context.Background(), 1, 10, "boss", "отчёт")
	assert.ErrorIs(t, err, domain.ErrNoLists)
}

func TestStartLabelFetchFailureIsNotFatal(t *testing.T) {
	board := &fakeBoard{
		lists:     []List{{ID: "l1", Name: "Входящие"}},
		labelsErr: errors.New("boom"),
	}
	flow := testFlow(board, &fakeAnalyzer{proposal: proposal()}, &fakeRecorder{}, nil)

	result, err := flow.Start(context.Background(), 1, 10, "boss", "отчёт")
	require.NoError(t, err)
	assert.Nil(t, result.Session.Proposal.PriorityLabel)
}

func TestSelectStatusSkipsAssigneeWhenResolved(t *testing.T) {
	board := &fakeBoard{lists: []List{{ID: "l1", Name: "Входящие"}}}
	recorder := &fakeRecorder{employees: []domain.Employee{
		{Name: "Иван Петров", Email: "ivan@swifty.uz", PlankaUserID: "u1"},
	}}
	p := proposal()
	p.Assignee = domain.AssigneeMention{Mentioned: true, Name: "Иван"}
	flow := testFlow(board, &fakeAnalyzer{proposal: p}, recorder, nil)

	result, err := flow.Start(context.Background(), 1, 10, "boss", "отчёт для Ивана")
	require.NoError(t, err)
	require.NotNil(t, result.Session.ResolvedAssignee)

	updated, err := flow.SelectStatus(result.Session.SessionID, "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageAskAttachments, updated.Stage)
	assert.Equal(t, "u1", updated.SelectedAssigneeID)
}

func TestSelectStatusAsksAssigneeWhenUnresolved(t *testing.T) {
	board := &fakeBoard{lists: []List{{ID: "l1", Name: "Входящие"}}}
	flow := testFlow(board, &fakeAnalyzer{proposal: proposal()}, &fakeRecorder{}, nil)

	result, err := flow.Start(context.Background(), 1, 10, "boss", "отчёт")
	require.NoError(t, err)

	updated, err := flow.SelectStatus(result.Session.SessionID, "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageSelectAssignee, updated.Stage)
	assert.Empty(t, updated.SelectedAssigneeID)
}

func TestFinalizeAppliesStepsInOrder(t *testing.T) {
	board := &fakeBoard{
		lists:  []List{{ID: "l1", Name: "Входящие"}},
		labels: []Label{{ID: "lab1", Name: "Высокий"}},
	}
	recorder := &fakeRecorder{employees: []domain.Employee{
		{Name: "Иван Петров", Email: "ivan@swifty.uz", PlankaUserID: "u1", TelegramChatID: 77},
	}}
	notifier := &fakeNotifier{}
	p := proposal()
	p.Assignee = domain.AssigneeMention{Mentioned: true, Email: "ivan@swifty.uz"}
	flow := testFlow(board, &fakeAnalyzer{proposal: p}, recorder, notifier)

	result, err := flow.Start(context.Background(), 1, 10, "boss", "отчёт для Ивана")
	require.NoError(t, err)
	_, err = flow.SelectStatus(result.Session.SessionID, "l1")
	require.NoError(t, err)
	_, err = flow.RequestAttachments(result.Session.SessionID)
	require.NoError(t, err)
	_, err = flow.AddAttachment(result.Session.SessionID, domain.Attachment{Name: "a.pdf", SourceURL: "http://x/a"})
	require.NoError(t, err)
	_, err = flow.AddAttachment(result.Session.SessionID, domain.Attachment{Name: "b.pdf", SourceURL: "http://x/b"})
	require.NoError(t, err)

	final, err := flow.Finalize(context.Background(), result.Session.SessionID)
	require.NoError(t, err)

	assert.Equal(t, []string{"create:l1", "label:lab1", "assign:u1", "upload:a.pdf", "upload:b.pdf"}, board.calls)
	assert.Empty(t, final.Warnings)
	assert.Equal(t, 2, final.Uploaded)
	assert.Equal(t, "https://swifty.uz/cards/card1", final.CardURL)
	require.NotNil(t, final.Assignee)
	assert.Equal(t, []int64{77}, notifier.sent)
	require.Len(t, recorder.history, 1)
	assert.Equal(t, "card1", recorder.history[0].CardID)

	// Session is closed.
	_, err = flow.Session(1, 10)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestFinalizeCardFailureKeepsSession(t *testing.T) {
	board := &fakeBoard{
		lists:     []List{{ID: "l1", Name: "Входящие"}},
		createErr: errors.New("planka down"),
	}
	flow := testFlow(board, &fakeAnalyzer{proposal: proposal()}, &fakeRecorder{}, nil)

	result, err := flow.Start(context.Background(), 1, 10, "boss", "отчёт")
	require.NoError(t, err)
	_, err = flow.SelectStatus(result.Session.SessionID, "l1")
	require.NoError(t, err)
	_, err = flow.SelectAssignee(result.Session.SessionID, domain.AssigneeNone)
	require.NoError(t, err)

	_, err = flow.Finalize(context.Background(), result.Session.SessionID)
	require.Error(t, err)

	// The user may retry: the session survives a fatal create failure.
	_, err = flow.Session(1, 10)
	assert.NoError(t, err)
}

func TestFinalizeIsolatesEnrichmentFailures(t *testing.T) {
	board := &fakeBoard{
		lists:     []List{{ID: "l1", Name: "Входящие"}},
		labels:    []Label{{ID: "lab1", Name: "Высокий"}},
		labelErr:  errors.New("label boom"),
		assignErr: errors.New("assign boom"),
		uploadErr: errors.New("upload boom"),
	}
	recorder := &fakeRecorder{employees: []domain.Employee{
		{Name: "Иван Петров", Email: "ivan@swifty.uz", PlankaUserID: "u1"},
	}}
	p := proposal()
	p.Assignee = domain.AssigneeMention{Mentioned: true, Email: "ivan@swifty.uz"}
	flow := testFlow(board, &fakeAnalyzer{proposal: p}, recorder, nil)

	result, err := flow.Start(context.Background(), 1, 10, "boss", "отчёт")
	require.NoError(t, err)
	_, err = flow.SelectStatus(result.Session.SessionID, "l1")
	require.NoError(t, err)
	_, err = flow.AddAttachment(result.Session.SessionID, domain.Attachment{Name: "a.pdf", SourceURL: "http://x/a"})
	require.NoError(t, err)

	final, err := flow.Finalize(context.Background(), result.Session.SessionID)
	require.NoError(t, err)

	// Card exists, every enrichment failure is reported, none aborts.
	require.NotNil(t, final.Card)
	assert.Len(t, final.Warnings, 3)
	assert.Equal(t, 0, final.Uploaded)

	_, err = flow.Session(1, 10)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestFinalizeUploadsRemainingAttachmentsAfterFailure(t *testing.T) {
	board := &fakeBoard{
		lists:      []List{{ID: "l1", Name: "Входящие"}},
		failUpload: "a.pdf",
	}
	recorder := &fakeRecorder{}
	flow := testFlow(board, &fakeAnalyzer{proposal: proposal()}, recorder, nil)

	result, err := flow.Start(context.Background(), 1, 10, "boss", "отчёт")
	require.NoError(t, err)
	_, err = flow.SelectStatus(result.Session.SessionID, "l1")
	require.NoError(t, err)
	_, err = flow.SelectAssignee(result.Session.SessionID, domain.AssigneeNone)
	require.NoError(t, err)
	_, err = flow.AddAttachment(result.Session.SessionID, domain.Attachment{Name: "a.pdf", SourceURL: "http://x/a"})
	require.NoError(t, err)
	_, err = flow.AddAttachment(result.Session.SessionID, domain.Attachment{Name: "b.pdf", SourceURL: "http://x/b"})
	require.NoError(t, err)

	final, err := flow.Finalize(context.Background(), result.Session.SessionID)
	require.NoError(t, err)

	// One upload failed, the other still landed on the card.
	assert.Contains(t, board.calls, "upload:a.pdf")
	assert.Contains(t, board.calls, "upload:b.pdf")
	assert.Equal(t, 1, final.Uploaded)
	require.Len(t, final.Warnings, 1)
	assert.Contains(t, final.Warnings[0], "a.pdf")
	require.Len(t, recorder.history, 1)
}

func TestFinalizeSkipsAssignForNoneSentinel(t *testing.T) {
	board := &fakeBoard{lists: []List{{ID: "l1", Name: "Входящие"}}}
	flow := testFlow(board, &fakeAnalyzer{proposal: proposal()}, &fakeRecorder{}, nil)

	result, err := flow.Start(context.Background(), 1, 10, "boss", "отчёт")
	require.NoError(t, err)
	_, err = flow.SelectStatus(result.Session.SessionID, "l1")
	require.NoError(t, err)
	_, err = flow.SelectAssignee(result.Session.SessionID, domain.AssigneeNone)
	require.NoError(t, err)

	final, err := flow.Finalize(context.Background(), result.Session.SessionID)
	require.NoError(t, err)
	assert.Nil(t, final.Assignee)
	assert.Equal(t, []string{"create:l1"}, board.calls)
}

func TestCancelClosesSession(t *testing.T) {
	board := &fakeBoard{lists: []List{{ID: "l1", Name: "Входящие"}}}
	flow := testFlow(board, &fakeAnalyzer{proposal: proposal()}, &fakeRecorder{}, nil)

	result, err := flow.Start(context.Background(), 1, 10, "boss", "отчёт")
	require.NoError(t, err)

	flow.Cancel(result.Session.SessionID)
	_, err = flow.Session(1, 10)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Empty(t, board.calls)
}
