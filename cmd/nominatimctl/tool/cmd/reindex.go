package cmd

import (
	"fmt"
	"os"

	"nominatim-indexer/internal/biz"

	"github.com/spf13/cobra"
)

var reindexCountryCodes string

// reindexCmd drops the on-disk index and runs a fresh import
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "删除本地索引目录后重新全量导入",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, logger, cleanupLog, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanupLog()
		codes := bc.Import.CountryCodes
		if cmd.Flags().Changed("country-codes") {
			codes = biz.SplitCSV(reindexCountryCodes)
		}
		// 先校验过滤条件与源库，再删除旧索引
		if codes, err = biz.NormalizeCountryCodes(codes); err != nil {
			return err
		}
		svc, cleanup, err := wireIndexer(bc.Data, bc.Index, bc.Import, bc.Update, logger)
		if err != nil {
			return err
		}
		if bc.Index.Path != "" {
			// 索引已被打开，关闭后删除再重新装配
			cleanup()
			if err := os.RemoveAll(bc.Index.Path); err != nil {
				return fmt.Errorf("remove index %s: %w", bc.Index.Path, err)
			}
			if svc, cleanup, err = wireIndexer(bc.Data, bc.Index, bc.Import, bc.Update, logger); err != nil {
				return err
			}
		}
		defer cleanup()
		return runImport(cmd.Context(), cmd.OutOrStdout(), svc, codes)
	},
}

func init() {
	reindexCmd.Flags().StringVar(&reindexCountryCodes, "country-codes", "", "逗号分隔的国家代码")
	rootCmd.AddCommand(reindexCmd)
}
