package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"market-scanner/internal/config"
	"market-scanner/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "scanner",
		Short: "Multi-strategy market signal scanner",
		Long: `Market Scanner evaluates OHLCV snapshots across symbols and timeframes,
runs regime-aware pattern-detection strategies, quality-filters the
resulting signals, resolves cross-timeframe conflicts, and tracks trade
exits with grace-period and profit-giveback rules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/market-scanner)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newSignalsCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Market Scanner v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate scanner configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Scanner")
	output.Printf("  Symbols:      %v\n", cfg.Scanner.Symbols)
	output.Printf("  Timeframes:   %v\n", cfg.Scanner.Timeframes)
	output.Printf("  Poll:         %ds\n", cfg.Scanner.PollSeconds)
	output.Println()

	output.Bold("Regime")
	output.Printf("  Strong Trend: %.1f\n", cfg.Regime.StrongTrend)
	output.Printf("  Weak Trend:   %.1f\n", cfg.Regime.WeakTrend)
	output.Printf("  High Vol:     %.2f\n", cfg.Regime.HighVolRatio)
	output.Printf("  Low Vol:      %.2f\n", cfg.Regime.LowVolRatio)
	output.Println()

	output.Bold("Filter")
	output.Printf("  Min Confluence:   %d\n", cfg.Filter.MinConfluence)
	output.Printf("  Risk/Reward:      %.2f / %.2f / %.2f\n",
		cfg.Filter.MinRiskReward, cfg.Filter.GoodRiskReward, cfg.Filter.HighRiskReward)
	output.Printf("  Duplicate Window: %d min\n", cfg.Filter.DuplicateWindowMinutes)
	output.Println()

	output.Bold("Lifecycle")
	output.Printf("  Grace:        %d / %d min\n", cfg.Lifecycle.GraceIntradayMinutes, cfg.Lifecycle.GraceDailyMinutes)
	output.Printf("  Breakeven:    %.0f%% of target\n", cfg.Lifecycle.BreakevenFraction*100)
	output.Printf("  Max Giveback: %.0f%%\n", cfg.Lifecycle.MaxGiveback*100)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:  %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:    %s\n", cfg.Notifications.Level)
	output.Printf("  Webhook:  %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram: %v\n", cfg.Notifications.Telegram.Enabled)

	return nil
}
