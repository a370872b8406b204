package biz

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"

	"nominatim-indexer/internal/metrics"
)

const (
	// importQueueSize 扫描与写入之间的有界队列容量，满时阻塞扫描（背压）。
	importQueueSize = 20
	// importProgressInterval 每多少篇文档打印一次进度。
	importProgressInterval = 50000
)

// Importer 全量导入：顺序扫描 placex 与插值线，经有界 channel 交给单个写入协程。
type Importer struct {
	repo    PlaceRepo
	builder *DocumentBuilder
	sink    IndexSink
	metrics *metrics.Metrics
	log     *log.Helper
}

func NewImporter(repo PlaceRepo, builder *DocumentBuilder, sink IndexSink, m *metrics.Metrics, logger log.Logger) *Importer {
	return &Importer{
		repo:    repo,
		builder: builder,
		sink:    sink,
		metrics: m,
		log:     log.NewHelper(log.With(logger, "module", "biz/importer")),
	}
}

// Import reads the entire source, optionally filtered to country codes, and
// streams every resulting document into the sink. It returns the number of
// documents handed over.
func (im *Importer) Import(ctx context.Context, countryCodes []string) (int64, error) {
	codes, err := NormalizeCountryCodes(countryCodes)
	if err != nil {
		return 0, err
	}
	scope := "global"
	if len(codes) > 0 {
		scope = strings.Join(codes, ",")
	}
	im.log.WithContext(ctx).Infof("start importing documents from nominatim (%s)", scope)
	im.builder.ResetCache()
	defer im.builder.ResetCache()

	docs := make(chan *Document, importQueueSize)
	var g errgroup.Group
	g.Go(func() error {
		return im.drain(ctx, docs)
	})

	p := &producer{im: im, docs: docs, start: time.Now()}
	err = im.repo.ScanPlaces(ctx, codes, func(rec *PlaceRecord) error {
		return p.handle(ctx, rec)
	})
	if err == nil {
		err = im.repo.ScanInterpolations(ctx, codes, func(rec *InterpolationRecord) error {
			return p.handle(ctx, rec)
		})
	}
	close(docs)
	if ferr := g.Wait(); ferr != nil {
		im.metrics.SinkFailures.Inc()
		im.log.WithContext(ctx).Errorf("error while finishing import: %v", ferr)
	}

	n := p.count.Load()
	if err != nil {
		im.log.WithContext(ctx).Errorf("import aborted after %d documents: %v", n, err)
		return n, err
	}
	im.log.WithContext(ctx).Infof("finished import of %d documents", n)
	return n, nil
}

// drain forwards queued documents to the sink until the queue is closed, then
// finishes it. Add failures are logged per document; the Finish error is returned.
func (im *Importer) drain(ctx context.Context, docs <-chan *Document) error {
	for doc := range docs {
		if err := im.sink.Add(ctx, doc); err != nil {
			im.metrics.SinkFailures.Inc()
			im.log.WithContext(ctx).Errorf("could not add document %s: %v", doc.UID(), err)
		}
	}
	return im.sink.Finish(ctx)
}

type producer struct {
	im    *Importer
	docs  chan<- *Document
	start time.Time
	count atomic.Int64
}

func (p *producer) handle(ctx context.Context, row SourceRow) error {
	docs, ok, err := p.im.builder.Build(ctx, row)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	for _, doc := range docs {
		p.docs <- doc
		p.im.metrics.ImportedDocuments.Inc()
		if n := p.count.Add(1); n%importProgressInterval == 0 {
			rate := float64(n) / time.Since(p.start).Seconds()
			p.im.log.WithContext(ctx).Infof("imported %d documents [%.1f/second]", n, rate)
		}
	}
	return nil
}
