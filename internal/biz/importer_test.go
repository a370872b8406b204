package biz

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImporter(repo *fakePlaceRepo, sink *recordingSink) *Importer {
	builder := NewDocumentBuilder(repo, NewRowMapper(testCountries))
	return NewImporter(repo, builder, sink, newTestMetrics(), testLogger())
}

func TestImporter_Import(t *testing.T) {
	c := orb.Point{1, 1}
	repo := &fakePlaceRepo{
		places: []*PlaceRecord{
			{PlaceID: 1, OSMType: "N", OSMID: 1, Class: "amenity", Type: "cafe", Name: names("Café"), RankSearch: 30, ParentPlaceID: 20, Centroid: &c},
			// useless: no name, no housenumber
			{PlaceID: 2, OSMType: "N", OSMID: 2, Class: "amenity", Type: "bench", RankSearch: 30, Centroid: &c},
			{PlaceID: 3, OSMType: "W", OSMID: 3, Class: "building", Type: "yes", HouseNumber: "5;7", RankSearch: 30, Centroid: &c},
		},
		interpolations: []*InterpolationRecord{
			{PlaceID: 4, OSMID: 4, StartNumber: 10, EndNumber: 20, InterpolationType: "even", Line: orb.LineString{{0, 0}, {10, 0}}},
		},
	}
	sink := &recordingSink{}
	im := newTestImporter(repo, sink)

	n, err := im.Import(context.Background(), []string{"DE", " ", "ch"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, []string{
		"add 1", "add 3.5", "add 3.7",
		"add 4.12", "add 4.14", "add 4.16", "add 4.18",
	}, sink.ops())
	assert.Equal(t, 1, sink.finished)
	assert.Equal(t, [][]string{{"de", "ch"}}, repo.scanCodes)
	// three useful rows resolved, the bench never was
	assert.Equal(t, 3, repo.termCalls)
	assert.Equal(t, 2, repo.purged)
	assert.Equal(t, 7.0, testutil.ToFloat64(im.metrics.ImportedDocuments))
}

func TestImporter_InvalidCountryCode(t *testing.T) {
	repo := &fakePlaceRepo{}
	sink := &recordingSink{}
	im := newTestImporter(repo, sink)

	_, err := im.Import(context.Background(), []string{"de", "deu"})
	require.Error(t, err)
	assert.Equal(t, InvalidCountryCode, errors.Reason(err))
	assert.Equal(t, 400, int(errors.Code(err)))
	assert.False(t, repo.scanCalled)
	assert.Equal(t, 0, sink.finished)
}

func TestImporter_SinkFailuresDoNotAbort(t *testing.T) {
	c := orb.Point{1, 1}
	repo := &fakePlaceRepo{
		places: []*PlaceRecord{
			{PlaceID: 1, Class: "amenity", Type: "cafe", Name: names("a"), Centroid: &c},
			{PlaceID: 2, Class: "amenity", Type: "cafe", Name: names("b"), Centroid: &c},
		},
	}
	sink := &recordingSink{failOn: "add"}
	im := newTestImporter(repo, sink)

	n, err := im.Import(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, sink.finished)
	assert.Equal(t, 2.0, testutil.ToFloat64(im.metrics.SinkFailures))
}

func TestImporter_FinishFailureLogged(t *testing.T) {
	c := orb.Point{1, 1}
	repo := &fakePlaceRepo{
		places: []*PlaceRecord{{PlaceID: 1, Class: "amenity", Type: "cafe", Name: names("a"), Centroid: &c}},
	}
	sink := &recordingSink{failOn: "finish"}
	im := newTestImporter(repo, sink)

	n, err := im.Import(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{"add 1"}, sink.ops())
	assert.Equal(t, 1.0, testutil.ToFloat64(im.metrics.SinkFailures))
}

// gatedSink blocks every Add until gate is closed and records whether
// Finish saw all documents.
type gatedSink struct {
	recordingSink
	gate       chan struct{}
	addedAtEnd int
}

func (s *gatedSink) Add(ctx context.Context, doc *Document) error {
	<-s.gate
	return s.recordingSink.Add(ctx, doc)
}

func (s *gatedSink) Finish(ctx context.Context) error {
	s.mu.Lock()
	s.addedAtEnd = len(s.calls)
	s.mu.Unlock()
	return s.recordingSink.Finish(ctx)
}

func TestImporter_BoundedQueue(t *testing.T) {
	const rows = 60
	c := orb.Point{1, 1}
	repo := &fakePlaceRepo{}
	for i := 1; i <= rows; i++ {
		repo.places = append(repo.places, &PlaceRecord{
			PlaceID: int64(i), OSMType: "N", OSMID: int64(i), Class: "amenity", Type: "cafe",
			Name: names(fmt.Sprintf("Café %d", i)), RankSearch: 30, Centroid: &c,
		})
	}
	sink := &gatedSink{gate: make(chan struct{})}
	builder := NewDocumentBuilder(repo, NewRowMapper(testCountries))
	im := NewImporter(repo, builder, sink, newTestMetrics(), testLogger())

	var (
		wg  sync.WaitGroup
		n   int64
		err error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err = im.Import(context.Background(), nil)
	}()

	// one document held by the blocked Add, the rest fill the queue
	produced := func() float64 { return testutil.ToFloat64(im.metrics.ImportedDocuments) }
	require.Eventually(t, func() bool { return produced() >= importQueueSize+1 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, produced(), float64(importQueueSize+2))
	assert.Empty(t, sink.ops())
	assert.Equal(t, 0, sink.finished)

	close(sink.gate)
	wg.Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(rows), n)
	assert.Equal(t, 1, sink.finished)
	assert.Equal(t, rows, sink.addedAtEnd)

	ops := sink.ops()
	require.Len(t, ops, rows)
	for i, op := range ops {
		assert.Equal(t, fmt.Sprintf("add %d", i+1), op)
	}
}
