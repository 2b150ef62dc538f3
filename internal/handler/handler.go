package handler

import (
	"sync"

	"github.com/go-telegram/bot"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/service"
	"github.com/swifty-uz/taskbot/internal/store"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot          *bot.Bot
	cfg          *config.Config
	store        *store.Store
	flow         *service.TaskFlow
	browser      *service.TaskBrowser
	stats        *service.StatsService
	deadlines    *service.DeadlineService
	registration *service.RegistrationService
	planka       *service.PlankaService
	analyzer     *service.Analyzer
	botUsername  string

	// pendingEdits tracks users whose next text message is an edit value
	// (new card name, description or due date). pendingFiles tracks the card
	// an owner is currently adding attachments to.
	editMu       sync.Mutex
	pendingEdits map[int64]editState
	pendingFiles map[int64]string
}

type editState struct {
	CardID string
	Field  string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot          *bot.Bot
	Cfg          *config.Config
	Store        *store.Store
	Flow         *service.TaskFlow
	Browser      *service.TaskBrowser
	Stats        *service.StatsService
	Deadlines    *service.DeadlineService
	Registration *service.RegistrationService
	Planka       *service.PlankaService
	Analyzer     *service.Analyzer
	BotUsername  string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:          deps.Bot,
		cfg:          deps.Cfg,
		store:        deps.Store,
		flow:         deps.Flow,
		browser:      deps.Browser,
		stats:        deps.Stats,
		deadlines:    deps.Deadlines,
		registration: deps.Registration,
		planka:       deps.Planka,
		analyzer:     deps.Analyzer,
		botUsername:  deps.BotUsername,
		pendingEdits: make(map[int64]editState),
		pendingFiles: make(map[int64]string),
	}
}

func (h *Handler) setPendingEdit(userID int64, st editState) {
	h.editMu.Lock()
	defer h.editMu.Unlock()
	h.pendingEdits[userID] = st
}

func (h *Handler) takePendingEdit(userID int64) (editState, bool) {
	h.editMu.Lock()
	defer h.editMu.Unlock()
	st, ok := h.pendingEdits[userID]
	if ok {
		delete(h.pendingEdits, userID)
	}
	return st, ok
}

func (h *Handler) setPendingFiles(userID int64, cardID string) {
	h.editMu.Lock()
	defer h.editMu.Unlock()
	h.pendingFiles[userID] = cardID
}

// pendingFilesCard does not consume the entry: several files in a row all go
// to the same card.
func (h *Handler) pendingFilesCard(userID int64) (string, bool) {
	h.editMu.Lock()
	defer h.editMu.Unlock()
	cardID, ok := h.pendingFiles[userID]
	return cardID, ok
}

func (h *Handler) clearPendingFiles(userID int64) {
	h.editMu.Lock()
	defer h.editMu.Unlock()
	delete(h.pendingFiles, userID)
}
