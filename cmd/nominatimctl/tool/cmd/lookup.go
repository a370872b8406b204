package cmd

import (
	"encoding/json"

	"nominatim-indexer/internal/service"

	"github.com/spf13/cobra"
)

// lookupCmd prints the documents an OSM object would produce
var lookupCmd = &cobra.Command{
	Use:   "lookup <N|W|R><id>",
	Short: "打印单个 OSM 对象补全后的索引文档（调试用）",
	Args:  cobra.ExactArgs(1),
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
		reply, err := svc.Lookup(cmd.Context(), &service.LookupRequest{OSMID: args[0]})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
