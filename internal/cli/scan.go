package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"market-scanner/internal/conflict"
	"market-scanner/internal/config"
	"market-scanner/internal/filter"
	"market-scanner/internal/health"
	"market-scanner/internal/lifecycle"
	"market-scanner/internal/models"
	"market-scanner/internal/notify"
	"market-scanner/internal/orchestrator"
	"market-scanner/internal/scanner"
	"market-scanner/internal/store"
	"market-scanner/internal/strategy"
)

func newScanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the evaluation loop",
		Long: `Continuously evaluate every configured symbol/timeframe pair.

Market data is read from CSV replay files in the directory given by
--data; each file is named <symbol>_<timeframe>.csv with columns
timestamp,open,high,low,close,volume plus indicator columns.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data")
			if dataDir == "" {
				return fmt.Errorf("--data directory is required")
			}
			return runScan(cmd.Context(), app, dataDir)
		},
	}

	cmd.Flags().String("data", "", "directory of CSV replay files")
	return cmd
}

func runScan(ctx context.Context, app *App, dataDir string) error {
	cfg := app.Config
	logger := app.Logger

	registry := strategy.NewDefaultRegistry()
	for name, sc := range cfg.Strategies {
		params := sc.Apply(strategy.DefaultParams())
		if err := registry.SetDefaults(name, params); err != nil {
			return fmt.Errorf("strategy %s: %w", name, err)
		}
		if sc.Enabled != nil {
			if err := registry.SetEnabled(name, *sc.Enabled); err != nil {
				return fmt.Errorf("strategy %s: %w", name, err)
			}
		}
	}

	var st store.Store = store.NewNopStore()
	if cfg.Store.Enabled {
		sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer sqlStore.Close()
		st = sqlStore
	}

	notifier := buildNotifier(cfg, app)

	intraday, daily := cfg.HistoryRetention()
	history := filter.NewHistory(intraday, daily)

	healthEvents := make(chan health.Event, 16)
	guard := health.New(cfg.HealthConfig(), logger, healthEvents)
	tracker := lifecycle.New(cfg.LifecycleConfig(), logger)
	resolver := conflict.New(cfg.ConflictConfig(), tracker, logger)

	sc := scanner.New(scanner.Deps{
		Registry:   registry,
		Orch:       orchestrator.New(registry, logger),
		Thresholds: cfg.RegimeThresholds(),
		Filter:     filter.New(cfg.FilterConfig(), history, logger),
		Resolver:   resolver,
		Tracker:    tracker,
		Guard:      guard,
		Notifier:   notifier,
		Store:      st,
	}, logger)

	if err := sc.SeedHistory(ctx, cfg.Scanner.Symbols, time.Now()); err != nil {
		logger.Warn().Err(err).Msg("seeding signal history failed")
	}

	timeframes := make([]models.Timeframe, 0, len(cfg.Scanner.Timeframes))
	for _, tf := range cfg.Scanner.Timeframes {
		timeframes = append(timeframes, models.Timeframe(tf))
	}

	provider := scanner.NewReplayProvider(dataDir, strategy.DefaultParams().MinHistory)
	scheduler := scanner.NewScheduler(sc, provider, scanner.Schedule{
		Symbols:    cfg.Scanner.Symbols,
		Timeframes: timeframes,
		Poll:       time.Duration(cfg.Scanner.PollSeconds) * time.Second,
	}, healthEvents, logger)

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info().
		Strs("symbols", cfg.Scanner.Symbols).
		Strs("timeframes", cfg.Scanner.Timeframes).
		Int("poll_seconds", cfg.Scanner.PollSeconds).
		Msg("scanner starting")

	scheduler.Run(runCtx)

	logger.Info().Msg("scanner stopped")
	return nil
}

func buildNotifier(cfg *config.Config, app *App) notify.Notifier {
	if !cfg.Notifications.Enabled {
		return notify.NewNoOpNotifier()
	}

	mn := notify.NewMultiNotifier(notify.Level(cfg.Notifications.Level))
	mn.AddChannel(notify.NewLogChannel(app.Logger))
	if cfg.Notifications.Webhook.Enabled {
		mn.AddChannel(notify.NewWebhookChannel(cfg.Notifications.Webhook.URL, true))
	}
	if cfg.Notifications.Telegram.Enabled {
		mn.AddChannel(notify.NewTelegramChannel(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
			true,
		))
	}
	return mn
}
