package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/pipeline"
	"github.com/sells-group/lead-pipeline/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		out, _ := cmd.Flags().GetString("out")
		division, _ := cmd.Flags().GetString("division")
		poolStatus, _ := cmd.Flags().GetString("pool-status")
		if out == "" {
			return eris.New("export: --out is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Division:   division,
			PoolStatus: model.PoolStatus(poolStatus),
		})
		if err != nil {
			return eris.Wrap(err, "export: list leads")
		}

		if err := pipeline.ExportXLSX(out, leads); err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("file", out), zap.Int("leads", len(leads)))
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output .xlsx path")
	exportCmd.Flags().String("division", "", "restrict to a division")
	exportCmd.Flags().String("pool-status", "", "restrict to a pool status: in_pool, assigned, processed")
	rootCmd.AddCommand(exportCmd)
}
