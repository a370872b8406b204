package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"nominatim-indexer/internal/biz"
	"nominatim-indexer/internal/conf"
	"nominatim-indexer/internal/metrics"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/go-kratos/kratos/v2/log"
)

// keywordFields 精确匹配字段，不做分词。
var keywordFields = []string{
	"place_id", "osm_id", "osm_type", "osm_key", "osm_value",
	"housenumber", "postcode", "countrycode",
}

// BleveSink 基于 bleve 的本地索引写入端，操作先进入 batch，达到 batch_size 或 Finish 时刷新。
type BleveSink struct {
	mu        sync.Mutex
	index     bleve.Index
	batch     *bleve.Batch
	batchSize int
	languages []string
	metrics   *metrics.Metrics
	log       *log.Helper
}

// NewBleveSink opens the index at c.Path, creating it if needed; an empty
// path gives an in-memory index.
func NewBleveSink(c *conf.Index, m *metrics.Metrics, logger log.Logger) (*BleveSink, func(), error) {
	idx, err := openIndex(c.Path)
	if err != nil {
		return nil, nil, err
	}
	s := &BleveSink{
		index:     idx,
		batch:     idx.NewBatch(),
		batchSize: c.BatchSize,
		languages: c.Languages,
		metrics:   m,
		log:       log.NewHelper(log.With(logger, "module", "data/bleve")),
	}
	if s.batchSize <= 0 {
		s.batchSize = 10000
	}
	cleanup := func() {
		if err := s.Close(); err != nil {
			s.log.Errorf("close index: %v", err)
		}
	}
	return s, cleanup, nil
}

func openIndex(path string) (bleve.Index, error) {
	im := newIndexMapping()
	if path == "" {
		return bleve.NewMemOnly(im)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}
	return idx, nil
}

func newIndexMapping() *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentMapping()
	for _, f := range keywordFields {
		doc.AddFieldMappingsAt(f, bleve.NewKeywordFieldMapping())
	}
	doc.AddFieldMappingsAt("coordinate", bleve.NewGeoPointFieldMapping())
	doc.AddFieldMappingsAt("importance", bleve.NewNumericFieldMapping())

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

func (s *BleveSink) Add(ctx context.Context, doc *biz.Document) error {
	return s.index1(ctx, "add", doc)
}

func (s *BleveSink) Create(ctx context.Context, doc *biz.Document) error {
	return s.index1(ctx, "create", doc)
}

// Update replaces the stored document with the same composite id.
func (s *BleveSink) Update(ctx context.Context, doc *biz.Document) error {
	return s.index1(ctx, "update", doc)
}

func (s *BleveSink) UpdateOrCreate(ctx context.Context, doc *biz.Document) error {
	exists, err := s.Exists(doc.UID())
	if err != nil {
		return err
	}
	if exists {
		return s.Update(ctx, doc)
	}
	return s.Create(ctx, doc)
}

// Delete removes every document of placeID, housenumber variants included.
func (s *BleveSink) Delete(ctx context.Context, placeID int64) error {
	ids, err := s.idsOfPlace(placeID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch.Delete(strconv.FormatInt(placeID, 10))
	for _, id := range ids {
		s.batch.Delete(id)
	}
	s.metrics.SinkOperations.WithLabelValues("delete").Inc()
	return s.flushIfFullLocked(ctx)
}

func (s *BleveSink) Finish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch.Size() == 0 {
		s.log.WithContext(ctx).Info("update empty")
		return nil
	}
	return s.flushLocked(ctx)
}

// Exists reports whether a document with the composite id is indexed.
func (s *BleveSink) Exists(uid string) (bool, error) {
	d, err := s.index.Document(uid)
	if err != nil {
		return false, err
	}
	return d != nil, nil
}

// Count returns the number of indexed documents.
func (s *BleveSink) Count() (uint64, error) {
	return s.index.DocCount()
}

func (s *BleveSink) Close() error {
	return s.index.Close()
}

func (s *BleveSink) index1(ctx context.Context, op string, doc *biz.Document) error {
	fields := ConvertDocument(doc, s.languages)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.batch.Index(doc.UID(), fields); err != nil {
		return fmt.Errorf("could not bulk add document %s: %w", doc.UID(), err)
	}
	s.metrics.SinkOperations.WithLabelValues(op).Inc()
	return s.flushIfFullLocked(ctx)
}

func (s *BleveSink) flushIfFullLocked(ctx context.Context) error {
	if s.batch.Size() < s.batchSize {
		return nil
	}
	return s.flushLocked(ctx)
}

// flushLocked writes the batch; a failed batch is logged and dropped.
func (s *BleveSink) flushLocked(ctx context.Context) error {
	n := s.batch.Size()
	err := s.index.Batch(s.batch)
	s.batch = s.index.NewBatch()
	if err != nil {
		s.log.WithContext(ctx).Errorf("error while bulk write of %d operations: %v", n, err)
		return err
	}
	return nil
}

func (s *BleveSink) idsOfPlace(placeID int64) ([]string, error) {
	const pageSize = 1000
	q := bleve.NewTermQuery(strconv.FormatInt(placeID, 10))
	q.SetField("place_id")
	var ids []string
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		res, err := s.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("lookup documents of place %d: %w", placeID, err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < pageSize {
			return ids, nil
		}
	}
}

// ConvertDocument flattens a document into index fields; names are kept
// per configured language next to the default name.
func ConvertDocument(doc *biz.Document, languages []string) map[string]any {
	f := map[string]any{
		"place_id":   strconv.FormatInt(doc.PlaceID, 10),
		"osm_id":     strconv.FormatInt(doc.OSMID, 10),
		"osm_type":   doc.OSMType,
		"osm_key":    doc.TagKey,
		"osm_value":  doc.TagValue,
		"importance": doc.Importance,
	}
	if doc.HouseNumber != "" {
		f["housenumber"] = doc.HouseNumber
	}
	if doc.Postcode != "" {
		f["postcode"] = doc.Postcode
	}
	if doc.CountryCode != "" {
		f["countrycode"] = strings.ToUpper(doc.CountryCode)
	}
	if doc.Centroid != nil {
		f["coordinate"] = map[string]float64{"lon": doc.Centroid.Lon(), "lat": doc.Centroid.Lat()}
	}
	if doc.BBox != nil {
		f["extent"] = []float64{doc.BBox.Min.Lon(), doc.BBox.Max.Lat(), doc.BBox.Max.Lon(), doc.BBox.Min.Lat()}
	}
	if name := localized(doc.Name, languages); len(name) > 0 {
		f["name"] = name
	}
	for field, names := range map[string]map[string]string{
		"street": doc.Street, "city": doc.City, "state": doc.State, "country": doc.Country,
	} {
		if v := localized(names, languages); len(v) > 0 {
			f[field] = v
		}
	}
	if ctx := contextField(doc.Context, languages); len(ctx) > 0 {
		f["context"] = ctx
	}
	return f
}

// localized maps name/name:xx tags to default and per-language values.
func localized(names map[string]string, languages []string) map[string]string {
	if len(names) == 0 {
		return nil
	}
	out := map[string]string{}
	if v, ok := names["name"]; ok {
		out["default"] = v
	}
	for _, lang := range languages {
		if v, ok := names["name:"+lang]; ok {
			out[lang] = v
		}
	}
	return out
}

// contextField joins every context entry per language with ", ".
func contextField(set *biz.NameSet, languages []string) map[string]string {
	parts := map[string][]string{}
	for _, names := range set.Names() {
		for k, v := range localized(names, languages) {
			parts[k] = append(parts[k], v)
		}
	}
	out := make(map[string]string, len(parts))
	for k, vs := range parts {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}
