// Package app wires the Moneta components together and runs the
// message loop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/moneta-bot/moneta/common/crypto"
	"github.com/moneta-bot/moneta/internal/moneta/auth"
	"github.com/moneta-bot/moneta/internal/moneta/commands"
	"github.com/moneta-bot/moneta/internal/moneta/config"
	"github.com/moneta-bot/moneta/internal/moneta/confirm"
	"github.com/moneta-bot/moneta/internal/moneta/dedupe"
	"github.com/moneta-bot/moneta/internal/moneta/handlers"
	"github.com/moneta-bot/moneta/internal/moneta/kvstore"
	"github.com/moneta-bot/moneta/internal/moneta/matrix"
	"github.com/moneta-bot/moneta/internal/moneta/payments"
	"github.com/moneta-bot/moneta/internal/moneta/ratelimit"
)

// App is the assembled assistant.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	store  kvstore.Store
	sqlite *kvstore.SQLite
	matrix *matrix.Client
	engine *Engine
	stats  *handlers.StatsCollector
}

// New assembles the application from configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	key, err := crypto.ParseMasterKey(cfg.Store.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	cipher, err := crypto.New(key)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}

	var (
		store  kvstore.Store
		sqlite *kvstore.SQLite
	)
	switch cfg.Store.Backend {
	case "redis":
		store, err = kvstore.OpenRedis(ctx, kvstore.RedisConfig{
			URL:      cfg.Store.URL,
			Password: cfg.Store.Password,
			DB:       cfg.Store.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
	default:
		sqlite, err = kvstore.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store = sqlite
	}
	encrypted := kvstore.NewEncrypted(store, cipher)

	paymentsClient := payments.NewHTTPClient(payments.HTTPConfig{
		BaseURL: cfg.Payments.BaseURL,
		APIKey:  cfg.Payments.APIKey,
		Timeout: cfg.Payments.Timeout.Std(),
	})
	sessions := auth.NewCachingResolver(paymentsClient, encrypted, 0, logger)

	rules := make(map[string]ratelimit.Rule, len(cfg.Limits))
	for name, limit := range cfg.Limits {
		rules[name] = ratelimit.Rule{
			Window:        limit.Window.Std(),
			MaxPerUser:    limit.MaxPerUser,
			MaxPerGroup:   limit.MaxPerGroup,
			BlockDuration: limit.BlockDuration.Std(),
		}
	}

	stats := handlers.NewStatsCollector()
	deps := &handlers.Deps{
		Payments:      paymentsClient,
		Accounts:      paymentsClient,
		Confirmations: confirm.New(encrypted, cfg.Confirm.TTL.Std(), logger),
		Deduper:       dedupe.New(store, logger),
		Preferences:   handlers.NewPreferences(encrypted, logger),
		Sessions:      sessions,
		Stats:         stats,
		Logger:        logger,
	}

	registry := commands.NewRegistry()
	handlers.Register(registry, deps)

	executor := commands.NewExecutor(registry, auth.StaticAdmins(cfg.Admins),
		fanoutSink{stats, &commands.LogSink{Logger: logger}}, logger)

	engine := NewEngine(EngineConfig{
		Parser:        commands.NewParser(logger),
		Executor:      executor,
		Limiter:       ratelimit.New(store, rules, logger),
		Sessions:      sessions,
		Confirmations: deps.Confirmations,
		Preferences:   deps.Preferences,
		Logger:        logger,
	})

	matrixClient, err := matrix.New(&matrix.Config{
		Homeserver:  cfg.Matrix.Homeserver,
		UserID:      cfg.Matrix.UserID,
		AccessToken: cfg.Matrix.AccessToken,
		DeviceID:    cfg.Matrix.DeviceID,
		SyncStore:   store,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("matrix client: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		sqlite: sqlite,
		matrix: matrixClient,
		engine: engine,
		stats:  stats,
	}, nil
}

// Run starts the message loop and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.sqlite != nil {
		go a.pruneLoop(ctx)
	}

	if err := a.matrix.Start(ctx, a.onMessage); err != nil {
		return fmt.Errorf("matrix start: %w", err)
	}
	a.logger.Info("moneta is running", "user", a.cfg.Matrix.UserID)

	<-ctx.Done()
	a.logger.Info("shutting down")
	a.matrix.Stop()
	return a.store.Close()
}

func (a *App) onMessage(ctx context.Context, msg *matrix.Message) {
	// Show typing while the command executes; payments round-trips can
	// take a moment.
	if err := a.matrix.SetTyping(ctx, msg.RoomID, true, 10*time.Second); err != nil {
		a.logger.Debug("typing indicator failed", "room", msg.RoomID, "err", err)
	}
	defer func() {
		if err := a.matrix.SetTyping(ctx, msg.RoomID, false, 0); err != nil {
			a.logger.Debug("typing indicator failed", "room", msg.RoomID, "err", err)
		}
	}()

	res := a.engine.Handle(ctx, &Inbound{
		MessageID:      msg.EventID,
		ConversationID: msg.RoomID,
		SenderID:       msg.Sender,
		GroupID:        msg.RoomID,
		Text:           msg.Body,
		Voice:          msg.Voice,
		Timestamp:      msg.Timestamp,
	})

	text := renderResult(res)
	if text == "" {
		return
	}
	if err := a.matrix.ReplyToMessage(ctx, msg.RoomID, msg.EventID, text); err != nil {
		a.logger.Error("failed to send reply",
			"room", msg.RoomID, "event", msg.EventID, "err", err)
	}
}

// renderResult flattens a result to markdown. Matrix has no quick-reply
// buttons, so they become a numbered list; voice-only results still
// render as text because no speech synthesis is wired.
func renderResult(res *commands.Result) string {
	text := res.Message
	if len(res.Buttons) > 0 {
		var b strings.Builder
		b.WriteString(text)
		for i, btn := range res.Buttons {
			fmt.Fprintf(&b, "\n%d. %s", i+1, btn.Title)
		}
		text = b.String()
	}
	return text
}

// pruneLoop sweeps expired keys out of the SQLite store. Redis expires
// keys natively and never reaches here.
func (a *App) pruneLoop(ctx context.Context) {
	interval := a.cfg.Store.PruneInterval.Std()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.sqlite.Prune(ctx)
			if err != nil {
				a.logger.Warn("store prune failed", "err", err)
				continue
			}
			if n > 0 {
				a.logger.Debug("store pruned", "expired_keys", n)
			}
		}
	}
}

// fanoutSink delivers each event to every sink.
type fanoutSink []commands.EventSink

func (f fanoutSink) Emit(ctx context.Context, ev commands.Event) {
	for _, sink := range f {
		sink.Emit(ctx, ev)
	}
}

func newLogger(cfg config.Logging) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
