package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Backfill coordinates for leads without them",
	Long: `Resolve coordinates for every lead in a division that has none.

Lookups hit the persistent address cache first; only cache misses reach the
geocoding provider, at the provider's rate limit. Addresses the provider
cannot resolve stay without coordinates.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		division, _ := cmd.Flags().GetString("division")
		if division == "" {
			return eris.New("geocode: --division is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		scanner := initScanner(st)

		resolved, err := scanner.GeocodeLeads(ctx, division)
		if err != nil {
			return eris.Wrap(err, "geocode backfill")
		}

		assigned, err := scanner.AssignAreas(ctx, division)
		if err != nil {
			return eris.Wrap(err, "geocode backfill: area matching")
		}

		zap.L().Info("geocode backfill complete",
			zap.String("division", division),
			zap.Int("resolved", resolved),
			zap.Int("areas_assigned", assigned),
		)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().String("division", "", "division to backfill")
	rootCmd.AddCommand(geocodeCmd)
}
