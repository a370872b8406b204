package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nominatim-indexer/internal/conf"
	"nominatim-indexer/internal/logger"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"
)

var (
	// Name is the name of the compiled software.
	Name = "nominatim-indexer"
	// Version is the version of the compiled software.
	Version = "dev"

	cfgPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nominatimctl",
	Short: "Nominatim 到搜索索引的导入与增量更新工具",
	Long:  `nominatimctl 从 Nominatim 数据库读取 placex/插值线，补全地址后写入本地 bleve 索引，并支持按 indexed_status 增量更新。`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "conf", "c", "./configs", "config path (directory or file)")
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// bootstrap 加载配置并创建进程 logger。
func bootstrap() (*conf.Bootstrap, log.Logger, func(), error) {
	bc, err := conf.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	zl, cleanup, err := logger.NewLogger(bc.Log, Name, Version)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}
	l := log.With(zl,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
	)
	return bc, l, cleanup, nil
}
