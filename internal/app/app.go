package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"portfolio-alerts/internal/alerting"
	"portfolio-alerts/internal/broker"
	"portfolio-alerts/internal/config"
	"portfolio-alerts/internal/history"
	"portfolio-alerts/internal/monitor"
	"portfolio-alerts/internal/scheduler"
	"portfolio-alerts/internal/state"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newGateway() *broker.Gateway {
	return broker.NewGateway(broker.GatewayOptions{
		BaseURL:   a.Config.Broker.BaseURL,
		AuthToken: a.Config.Broker.AuthToken,
		Timeout:   a.Config.Broker.RequestTimeout,
		UserAgent: a.Config.Broker.UserAgent,
	}, a.Logger)
}

func (a *App) newStateFile() *state.File {
	return state.NewFile(a.Config.State.Path, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Telegram.Enabled {
		cfg := a.Config.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openHistory(ctx context.Context) (*history.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := history.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := history.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newMonitor(store *history.Store) *monitor.Monitor {
	gw := a.newGateway()

	var snapshots broker.SnapshotFetcher
	var quotes broker.QuoteFetcher
	var closes broker.HistoryFetcher
	if a.Config.Broker.BaseURL != "" {
		snapshots, quotes, closes = gw, gw, gw
	}

	var alertStore history.AlertStore
	if store != nil {
		alertStore = store
	}

	return monitor.New(a.Config, a.newStateFile(), snapshots, quotes, closes, alertStore, a.Logger)
}

// Check executes a single evaluation pass and prints the rendered batch to
// stdout. Empty output means no alert; cron payloads forward non-empty
// stdout as-is. Exit status is zero even when nothing fires.
func (a *App) Check(ctx context.Context) error {
	store, closeStore, err := a.openHistory(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("audit store unavailable; continuing without it")
	}
	if closeStore != nil {
		defer closeStore()
	}

	m := a.newMonitor(store)
	alerts, err := m.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("evaluation pass: %w", err)
	}

	msg := alerting.RenderBatch(alerts)
	if msg != "" {
		if notifier := a.newNotifier(); notifier != nil {
			if nerr := notifier.Notify(ctx, msg); nerr != nil {
				a.Logger.Error().Err(nerr).Msg("failed to dispatch alert")
			}
		}
	}

	fmt.Println(msg)
	return nil
}

// Run executes the long-running daemon: an aligned scheduler invoking the
// same pass the check command performs.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openHistory(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("audit store unavailable; continuing without it")
	}
	if closeStore != nil {
		defer closeStore()
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; alert audit trail disabled")
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	m := a.newMonitor(store)
	notifier := a.newNotifier()

	a.Logger.Info().Msg("starting portfolio alert monitor")
	err = sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		unlock, proceed, lockErr := a.acquireAdvisoryLock(ctx, store)
		if lockErr != nil {
			return lockErr
		}
		if !proceed {
			a.Logger.Debug().Time("at", at).Msg("skip pass because advisory lock held elsewhere")
			return nil
		}
		if unlock != nil {
			defer unlock()
		}

		alerts, runErr := m.RunOnce(ctx)
		if runErr != nil {
			return runErr
		}

		if msg := alerting.RenderBatch(alerts); msg != "" && notifier != nil {
			if nerr := notifier.Notify(ctx, msg); nerr != nil {
				a.Logger.Error().Err(nerr).Time("at", at).Msg("failed to dispatch alert")
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("monitor terminated with error")
		return err
	}

	a.Logger.Info().Msg("portfolio alert monitor stopped")
	return nil
}

// acquireAdvisoryLock guards multi-host daemon deployments sharing one
// database. Hosts without a database rely on the state file lock alone.
func (a *App) acquireAdvisoryLock(ctx context.Context, store *history.Store) (func(), bool, error) {
	key := a.Config.Scheduler.AdvisoryLockKey
	if key == 0 || store == nil {
		return nil, true, nil
	}
	unlock, acquired, err := store.TryAdvisoryLock(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
