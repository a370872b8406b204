package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// updateCmd applies the rows flagged by indexed_status to the index
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "增量更新：按 rank 处理 indexed_status 标记的行",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, logger, cleanupLog, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanupLog()
		svc, cleanup, err := wireIndexer(bc.Data, bc.Index, bc.Import, bc.Update, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		stats, err := svc.Update(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "places: %d updated, %d deleted; interpolations: %d updated, %d deleted, %d documents\n",
			stats.UpdatedPlaces, stats.DeletedPlaces,
			stats.UpdatedInterpolations, stats.DeletedInterpolations, stats.InterpolationDocuments)
		return err
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
