package cmd

import (
	"context"
	"fmt"
	"io"

	"nominatim-indexer/internal/biz"
	"nominatim-indexer/internal/service"

	"github.com/spf13/cobra"
)

var importCountryCodes string

// importCmd reads the whole Nominatim database into the index
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "全量导入：读取 placex 与插值线，写入索引",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, logger, cleanupLog, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanupLog()
		codes := bc.Import.CountryCodes
		if cmd.Flags().Changed("country-codes") {
			codes = biz.SplitCSV(importCountryCodes)
		}
		svc, cleanup, err := wireIndexer(bc.Data, bc.Index, bc.Import, bc.Update, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		return runImport(cmd.Context(), cmd.OutOrStdout(), svc, codes)
	},
}

func init() {
	importCmd.Flags().StringVar(&importCountryCodes, "country-codes", "", "逗号分隔的国家代码，如 de,ch；为空导入全部")
	rootCmd.AddCommand(importCmd)
}

func runImport(ctx context.Context, w io.Writer, svc *service.IndexerService, codes []string) error {
	reply, err := svc.Import(ctx, codes)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "imported %d documents, index holds %d\n", reply.Documents, reply.Indexed)
	return err
}
