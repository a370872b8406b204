package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nominatim-indexer/internal/service"

	"github.com/spf13/cobra"
)

var (
	waitURL      string
	waitTimeout  time.Duration
	waitInterval time.Duration
	waitIdle     bool
)

// waitreadyCmd polls the admin server until it reports ready
var waitreadyCmd = &cobra.Command{
	Use:   "waitready",
	Short: "等待管理端 /status 就绪（部署编排用）",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
		defer cancel()
		ticker := time.NewTicker(waitInterval)
		defer ticker.Stop()
		for {
			if ready(ctx, waitURL, waitIdle) {
				return nil
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("waitready 超时：%s", waitURL)
			case <-ticker.C:
			}
		}
	},
}

func init() {
	waitreadyCmd.Flags().StringVar(&waitURL, "url", "http://127.0.0.1:2322/status", "就绪探针 URL")
	waitreadyCmd.Flags().DurationVar(&waitTimeout, "timeout", 10*time.Minute, "等待超时")
	waitreadyCmd.Flags().DurationVar(&waitInterval, "interval", 2*time.Second, "探测间隔")
	waitreadyCmd.Flags().BoolVar(&waitIdle, "idle", false, "同时等待当前增量更新结束")
	rootCmd.AddCommand(waitreadyCmd)
}

// ready reports whether the status endpoint answers 200 with a reachable
// database, and with no update running when idle is set.
func ready(ctx context.Context, url string, idle bool) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var st service.StatusReply
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return false
	}
	if st.DBStatus != "ok" {
		return false
	}
	return !idle || !st.UpdateRunning
}
