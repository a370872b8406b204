package cmd

import (
	"context"
	"os"

	"nominatim-indexer/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/spf13/cobra"
)

// serveCmd runs the admin HTTP server (update trigger, status, metrics)
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动管理端 HTTP 服务：/nominatim-update、/status、/metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, logger, cleanupLog, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanupLog()
		app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Index, bc.Import, bc.Update, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		return app.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newApp(logger log.Logger, hs *http.Server, indexer *service.IndexerService) *kratos.App {
	id, _ := os.Hostname()
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs),
		kratos.AfterStop(func(context.Context) error {
			// 等待后台更新写完 batch 再关闭索引
			indexer.Wait()
			return nil
		}),
	)
}
