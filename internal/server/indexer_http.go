package server

import (
	"context"

	"nominatim-indexer/internal/service"

	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationIndexerTriggerUpdate = "/indexer.Indexer/TriggerUpdate"
	OperationIndexerStatus        = "/indexer.Indexer/Status"
	OperationIndexerLookup        = "/indexer.Indexer/Lookup"
)

// RegisterIndexerHTTPServer 注册管理端路由。
func RegisterIndexerHTTPServer(s *http.Server, srv *service.IndexerService) {
	r := s.Route("/")
	r.POST("/nominatim-update", _Indexer_TriggerUpdate0_HTTP_Handler(srv))
	r.GET("/nominatim-update", _Indexer_TriggerUpdate0_HTTP_Handler(srv))
	r.GET("/status", _Indexer_Status0_HTTP_Handler(srv))
	r.GET("/lookup/{osm_id}", _Indexer_Lookup0_HTTP_Handler(srv))
}

func _Indexer_TriggerUpdate0_HTTP_Handler(srv *service.IndexerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.UpdateRequest
		http.SetOperation(ctx, OperationIndexerTriggerUpdate)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.TriggerUpdate(ctx, req.(*service.UpdateRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*service.UpdateReply))
	}
}

func _Indexer_Status0_HTTP_Handler(srv *service.IndexerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.StatusRequest
		http.SetOperation(ctx, OperationIndexerStatus)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.Status(ctx, req.(*service.StatusRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*service.StatusReply))
	}
}

func _Indexer_Lookup0_HTTP_Handler(srv *service.IndexerService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := service.LookupRequest{OSMID: ctx.Vars().Get("osm_id")}
		http.SetOperation(ctx, OperationIndexerLookup)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.Lookup(ctx, req.(*service.LookupRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*service.LookupReply))
	}
}
