package server

import (
	"nominatim-indexer/internal/conf"
	"nominatim-indexer/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 编码相关逻辑已拆分到 encoders.go

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, indexer *service.IndexerService, reg *prometheus.Registry, logger log.Logger) *http.Server {
	mws := []middleware.Middleware{
		recovery.Recovery(),
		logging.Server(logger),
	}
	if c.Http.RateLimit > 0 {
		// 只限制触发更新，状态与查询不受影响
		mws = append(mws, selector.Server(limiterMiddleware(newTokenBucket(c.Http.RateLimit))).
			Path(OperationIndexerTriggerUpdate).
			Build())
	}
	var opts = []http.ServerOption{
		http.Middleware(mws...),
		http.ResponseEncoder(func(w http.ResponseWriter, r *http.Request, v any) error {
			if r != nil && r.URL.Query().Get("format") == "geojson" {
				return encodeGeoJSON(w, r, v)
			}
			return http.DefaultResponseEncoder(w, r, v)
		}),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout > 0 {
		opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
	}
	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	RegisterIndexerHTTPServer(srv, indexer)
	return srv
}
