package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"nominatim-indexer/internal/biz"
	"nominatim-indexer/internal/conf"
	"nominatim-indexer/internal/data"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// DocumentCounter 返回索引中的文档总数。
type DocumentCounter interface {
	Count() (uint64, error)
}

// HealthChecker 检查源库可用性。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type UpdateRequest struct{}

type UpdateReply struct {
	Message string `json:"message"`
}

type StatusRequest struct{}

type StatusReply struct {
	Status        string `json:"status"`
	DBStatus      string `json:"db_status"`
	UpdateRunning bool   `json:"update_running"`
	Documents     uint64 `json:"documents"`
	Uptime        string `json:"uptime"`
}

type LookupRequest struct {
	OSMID string `json:"osm_id"`
}

type LookupReply struct {
	Documents []map[string]any `json:"documents"`

	docs []*biz.Document
}

// Docs returns the documents the reply was built from.
func (r *LookupReply) Docs() []*biz.Document { return r.docs }

type ImportReply struct {
	Documents int64  `json:"documents"`
	Indexed   uint64 `json:"indexed"`
}

var serviceStartTime = time.Now()

// IndexerService 导入、更新、状态与单条查询的入口，HTTP 与 CLI 共用。
type IndexerService struct {
	importer  *biz.Importer
	updater   *biz.Updater
	builder   *biz.DocumentBuilder
	counter   DocumentCounter
	health    HealthChecker
	languages []string
	log       *log.Helper

	wg sync.WaitGroup
}

func NewIndexerService(
	importer *biz.Importer,
	updater *biz.Updater,
	builder *biz.DocumentBuilder,
	counter DocumentCounter,
	health HealthChecker,
	c *conf.Index,
	logger log.Logger) *IndexerService {
	return &IndexerService{
		importer:  importer,
		updater:   updater,
		builder:   builder,
		counter:   counter,
		health:    health,
		languages: c.Languages,
		log:       log.NewHelper(log.With(logger, "module", "service/indexer")),
	}
}

// TriggerUpdate starts an update in the background and returns immediately.
func (s *IndexerService) TriggerUpdate(ctx context.Context, _ *UpdateRequest) (*UpdateReply, error) {
	if s.updater.Running() {
		return nil, biz.ErrUpdateInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// 请求结束后继续运行
		s.runUpdate(context.WithoutCancel(ctx))
	}()
	return &UpdateReply{Message: "update started"}, nil
}

// Wait blocks until background updates started by TriggerUpdate return.
func (s *IndexerService) Wait() {
	s.wg.Wait()
}

func (s *IndexerService) runUpdate(ctx context.Context) {
	stats, started, err := s.updater.Update(ctx)
	if err != nil {
		s.log.WithContext(ctx).Errorf("background update failed: %v", err)
		return
	}
	if started {
		s.log.WithContext(ctx).Infof("background update done: %+v", stats)
	}
}

// Update runs an update in the caller's goroutine.
func (s *IndexerService) Update(ctx context.Context) (biz.UpdateStats, error) {
	stats, started, err := s.updater.Update(ctx)
	if err != nil {
		return stats, err
	}
	if !started {
		return stats, biz.ErrUpdateInProgress
	}
	return stats, nil
}

func (s *IndexerService) Import(ctx context.Context, countryCodes []string) (*ImportReply, error) {
	n, err := s.importer.Import(ctx, countryCodes)
	if err != nil {
		return nil, err
	}
	reply := &ImportReply{Documents: n}
	if s.counter != nil {
		if reply.Indexed, err = s.counter.Count(); err != nil {
			s.log.WithContext(ctx).Warnf("count documents: %v", err)
		}
	}
	return reply, nil
}

func (s *IndexerService) Status(ctx context.Context, _ *StatusRequest) (*StatusReply, error) {
	dbStatus := "unknown"
	if s.health != nil {
		if err := s.health.Ping(ctx); err == nil {
			dbStatus = "ok"
		} else {
			dbStatus = "unavailable"
		}
	}
	reply := &StatusReply{
		Status:        "Ok",
		DBStatus:      dbStatus,
		UpdateRunning: s.updater.Running(),
		Uptime:        time.Since(serviceStartTime).Round(time.Second).String(),
	}
	if s.counter != nil {
		n, err := s.counter.Count()
		if err != nil {
			return nil, biz.ErrInternalServer.WithCause(err)
		}
		reply.Documents = n
	}
	return reply, nil
}

// Lookup builds the current documents of one OSM object, e.g. "N123".
func (s *IndexerService) Lookup(ctx context.Context, req *LookupRequest) (*LookupReply, error) {
	osmType, osmID, err := ParseOSMRef(req.OSMID)
	if err != nil {
		return nil, err
	}
	docs, err := s.builder.LookupOSM(ctx, osmType, osmID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.NotFound(biz.PlaceNotFound, fmt.Sprintf("no documents for %s", req.OSMID))
	}
	reply := &LookupReply{Documents: make([]map[string]any, 0, len(docs)), docs: docs}
	for _, doc := range docs {
		reply.Documents = append(reply.Documents, data.ConvertDocument(doc, s.languages))
	}
	return reply, nil
}

// ParseOSMRef splits "N123" style references into type letter and id.
func ParseOSMRef(ref string) (string, int64, error) {
	ref = strings.TrimSpace(ref)
	if len(ref) < 2 {
		return "", 0, errors.BadRequest(biz.BadRequest, fmt.Sprintf("invalid osm id %q", ref))
	}
	osmType := strings.ToUpper(ref[:1])
	switch osmType {
	case "N", "W", "R":
	default:
		return "", 0, errors.BadRequest(biz.BadRequest, fmt.Sprintf("invalid osm type in %q", ref))
	}
	id, err := strconv.ParseInt(ref[1:], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, errors.BadRequest(biz.BadRequest, fmt.Sprintf("invalid osm id %q", ref))
	}
	return osmType, id, nil
}
