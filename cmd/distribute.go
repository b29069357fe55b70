package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/distribution"
	"github.com/sells-group/lead-pipeline/internal/store"
)

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Assign pooled leads to employees",
}

var distributeTopupCmd = &cobra.Command{
	Use:   "topup",
	Short: "Fill one employee up to the lead target",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		email, _ := cmd.Flags().GetString("employee")
		division, _ := cmd.Flags().GetString("division")
		if email == "" || division == "" {
			return eris.New("distribute topup: --employee and --division are required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		engine := newEngine(st)
		result, err := engine.DirectTopUp(ctx, email, division)
		if err != nil {
			return eris.Wrap(err, "distribute topup")
		}

		zap.L().Info("top-up finished",
			zap.String("employee", email),
			zap.Bool("success", result.Success),
			zap.Int("assigned", result.Assigned),
			zap.Int("current_count", result.CurrentCount),
			zap.String("message", result.Message),
		)
		return nil
	},
}

var distributeSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Top up every under-threshold employee in a division",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		division, _ := cmd.Flags().GetString("division")
		if division == "" {
			return eris.New("distribute sweep: --division is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		engine := newEngine(st)
		result, err := engine.BatchSweep(ctx, division)
		if err != nil {
			return eris.Wrap(err, "distribute sweep")
		}

		for _, entry := range result.Results {
			zap.L().Info("employee topped up",
				zap.String("employee", entry.Employee),
				zap.Int("had_leads", entry.HadLeads),
				zap.Int("assigned", entry.Assigned),
				zap.Int("now_has", entry.NowHas),
			)
		}
		zap.L().Info("sweep finished",
			zap.String("division", division),
			zap.Int("employees_topped_up", len(result.Results)),
		)
		return nil
	},
}

func newEngine(st store.Store) *distribution.Engine {
	opts := []distribution.Option{}
	if cfg.Distribution.Target > 0 {
		opts = append(opts, distribution.WithTarget(cfg.Distribution.Target))
	}
	if cfg.Distribution.TriggerThreshold > 0 {
		opts = append(opts, distribution.WithTrigger(cfg.Distribution.TriggerThreshold))
	}
	return distribution.NewEngine(st, opts...)
}

func init() {
	distributeTopupCmd.Flags().String("employee", "", "employee email")
	distributeTopupCmd.Flags().String("division", "", "division to top up from")
	distributeSweepCmd.Flags().String("division", "", "division to sweep")
	distributeCmd.AddCommand(distributeTopupCmd)
	distributeCmd.AddCommand(distributeSweepCmd)
	rootCmd.AddCommand(distributeCmd)
}
