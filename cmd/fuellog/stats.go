package main

import (
	"encoding/json"
	"fmt"

	"fuellog/internal/app"
	"fuellog/internal/domain"

	"github.com/spf13/cobra"
)

var (
	statsDays int
	statsUnit string
)

var statsCmd = &cobra.Command{
	Use:   "stats <username>",
	Short: "Print a user's statistics summary as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = st.close() }()

		user, err := st.users.GetByUsername(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("look up %q: %w", args[0], err)
		}
		if user == nil {
			return fmt.Errorf("no user named %q", args[0])
		}

		summary, err := app.NewStatsService(st.fuel, statsPolicy(cfg)).Summary(cmd.Context(), user.ID, statsDays, statsUnit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 0, "window length in days (default STATS_WINDOW_DAYS)")
	statsCmd.Flags().StringVar(&statsUnit, "unit", domain.UnitKmPerLiter, "efficiency unit: km/L, L/100km or mpg")
}
