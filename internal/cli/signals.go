package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"market-scanner/internal/store"
)

func newSignalsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals <symbol>",
		Short: "Show recently confirmed signals for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			hours, _ := cmd.Flags().GetInt("hours")

			if !app.Config.Store.Enabled {
				return fmt.Errorf("store is disabled in configuration")
			}
			st, err := store.NewSQLiteStore(app.Config.Store.Path)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			since := time.Now().Add(-time.Duration(hours) * time.Hour)
			records, err := st.RecentSignals(cmd.Context(), args[0], since)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}
			if len(records) == 0 {
				output.Dim("No signals for %s in the last %dh", args[0], hours)
				return nil
			}

			output.Bold("%s — %d signal(s)", args[0], len(records))
			for _, r := range records {
				output.Printf("  %s  %-5s %-16s %s  conf %d  rr %.2f  entry %.2f\n",
					r.CreatedAt.Format("02-Jan 15:04"),
					r.Direction, r.Strategy, r.Timeframe, r.Confidence, r.RR, r.Entry)
				if len(r.Factors) > 0 {
					output.Dim("    factors: %s", strings.Join(r.Factors, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().Int("hours", 24, "lookback window in hours")
	return cmd
}
