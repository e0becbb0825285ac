package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/bill-reconciler/internal/adapters/ai"
	"github.com/eshaffer321/bill-reconciler/internal/adapters/notify"
	"github.com/eshaffer321/bill-reconciler/internal/adapters/rules"
	"github.com/eshaffer321/bill-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/bill-reconciler/internal/domain/gate"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/logging"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/settings"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/storage"
)

// App holds every long-lived component of a running reconciler
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *storage.Storage
	Settings *settings.Provider
	Rules    *rules.Engine
	Service  *reconcile.Service
}

// NewApp opens storage, loads settings and rule files, and wires the
// pipeline. Close releases everything.
func NewApp(ctx context.Context, cfg *config.Config, verbose bool) (*App, error) {
	loggingCfg := cfg.Observability.Logging
	if verbose {
		loggingCfg.Level = "debug"
	}
	logger, level := logging.NewLogger(loggingCfg)
	configured := level.Level()

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	provider := settings.New(store, settings.Defaults(cfg.Reconcile))
	if err := provider.Load(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	applyDebug := func(on bool) {
		if on {
			level.Set(slog.LevelDebug)
		} else {
			level.Set(configured)
		}
	}
	applyDebug(provider.DebugMode())
	provider.OnChange(func(key, _ string) {
		if key == settings.KeyDebugMode {
			applyDebug(provider.DebugMode())
		}
	})

	engine := rules.NewEngine(logger)
	if err := loadRules(engine, cfg.Rules); err != nil {
		_ = store.Close()
		return nil, err
	}

	deps := reconcile.Deps{
		Store:         store,
		Settings:      provider,
		Gate:          gate.New(time.Duration(cfg.Reconcile.GateTTLSeconds) * time.Second),
		Rules:         engine,
		CategoryRules: engine,
		Notifier:      newNotifier(cfg.Notify, logger),
		Logger:        logger,
		QueueSize:     cfg.Reconcile.QueueSize,
	}

	model, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to configure ai provider: %w", err)
	}
	if model != nil {
		deps.BillAI = ai.NewBillClassifier(model, store, logger)
		deps.CategoryAI = ai.NewCategoryClassifier(model, store, ai.NewMemoryCache(), logger)
		deps.AssetAI = ai.NewAssetClassifier(model, store, logger)
		logger.Info("ai classifiers enabled", "provider", cfg.AI.Provider, "model", model.Name())
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Settings: provider,
		Rules:    engine,
		Service:  reconcile.NewService(deps),
	}, nil
}

// Close stops the pipeline and closes storage
func (a *App) Close() error {
	a.Service.Close()
	return a.Store.Close()
}

func loadRules(engine *rules.Engine, cfg config.RulesConfig) error {
	for _, path := range cfg.SystemFiles {
		if err := engine.LoadFile(path, rules.ScopeSystem); err != nil {
			return err
		}
	}
	for _, path := range cfg.UserFiles {
		if err := engine.LoadFile(path, rules.ScopeUser); err != nil {
			return err
		}
	}
	return nil
}

func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) notify.Notifier {
	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.WebhookURL, time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	return notifiers
}
