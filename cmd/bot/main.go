package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/handler"
	"github.com/swifty-uz/taskbot/internal/middleware"
	"github.com/swifty-uz/taskbot/internal/service"
	"github.com/swifty-uz/taskbot/internal/store"
	"github.com/swifty-uz/taskbot/internal/telegram"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the flat-file store
	st, err := store.Open(cfg.DBFile)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	// In-flight sessions do not survive a restart; leftover snapshots are stale.
	if err := st.ClearSessionSnapshots(); err != nil {
		slog.Error("failed to clear session snapshots", "error", err)
	}

	// Initialize services
	planka := service.NewPlankaService(cfg)
	analyzer := service.NewAnalyzer(cfg)
	resolver := service.NewAssigneeResolver()
	sessions := service.NewSessionStore(st)
	registration := service.NewRegistrationService(planka, st)
	statsService := service.NewStatsService(planka, st)
	browser := service.NewTaskBrowser(planka, st)

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.EmployeeLoader(st, cfg.IsOwner),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleMessage(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Error("failed to drop pending updates", "error", err)
		}
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	notifier := telegram.NewNotifier(b)
	flow := service.NewTaskFlow(service.TaskFlowDeps{
		Config:   cfg,
		Board:    planka,
		Analyzer: analyzer,
		Resolver: resolver,
		Sessions: sessions,
		Recorder: st,
		Notifier: notifier,
		Fetch:    telegram.FetchFile,
	})
	deadlines := service.NewDeadlineService(cfg, planka, st, notifier)

	// Initialize handler
	h = handler.New(handler.Deps{
		Bot:          b,
		Cfg:          cfg,
		Store:        st,
		Flow:         flow,
		Browser:      browser,
		Stats:        statsService,
		Deadlines:    deadlines,
		Registration: registration,
		Planka:       planka,
		Analyzer:     analyzer,
		BotUsername:  me.Username,
	})

	// Register all handlers
	h.Register()

	// Background workers
	go deadlines.Run(ctx)
	go registration.RunCleanup(ctx)

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	// Graceful shutdown
	slog.Info("bot stopped gracefully")
}
