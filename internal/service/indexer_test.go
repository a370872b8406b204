package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"nominatim-indexer/internal/biz"
	"nominatim-indexer/internal/conf"
	"nominatim-indexer/internal/metrics"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() log.Logger {
	return log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelFatal))
}

type countries map[string]map[string]string

func (c countries) CountryName(code string) map[string]string { return c[code] }

type memPlaces struct {
	places []*biz.PlaceRecord
}

func (r *memPlaces) ScanPlaces(_ context.Context, _ []string, fn func(*biz.PlaceRecord) error) error {
	for _, p := range r.places {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *memPlaces) ScanInterpolations(context.Context, []string, func(*biz.InterpolationRecord) error) error {
	return nil
}

func (r *memPlaces) GetPlace(_ context.Context, id int64) (*biz.PlaceRecord, error) {
	for _, p := range r.places {
		if p.PlaceID == id {
			return p, nil
		}
	}
	return nil, biz.ErrPlaceNotFound("placex", id)
}

func (r *memPlaces) GetInterpolation(_ context.Context, id int64) (*biz.InterpolationRecord, error) {
	return nil, biz.ErrPlaceNotFound("location_property_osmline", id)
}

func (r *memPlaces) FindPlacesByOSM(_ context.Context, osmType string, osmID int64) ([]*biz.PlaceRecord, error) {
	var out []*biz.PlaceRecord
	for _, p := range r.places {
		if p.OSMType == osmType && p.OSMID == osmID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPlaces) AddressTerms(context.Context, int64) ([]*biz.AddressTerm, error) { return nil, nil }
func (r *memPlaces) PlaceTerm(context.Context, int64) (*biz.AddressTerm, error)      { return nil, nil }

// blockingUpdates parks the first sector query until release is closed.
type blockingUpdates struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingUpdates) PlaceSectors(ctx context.Context, _ int) ([]int, error) {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return nil, nil
}

func (r *blockingUpdates) PlacesInSector(context.Context, int, int) ([]biz.UpdateStatusRow, error) {
	return nil, nil
}
func (r *blockingUpdates) ClearPlaceStatus(context.Context, int64) error           { return nil }
func (r *blockingUpdates) InterpolationSectors(context.Context) ([]int, error)     { return nil, nil }
func (r *blockingUpdates) ClearInterpolationStatus(context.Context, int64) error   { return nil }
func (r *blockingUpdates) MarkIndexed(context.Context) error                       { return nil }
func (r *blockingUpdates) InterpolationsInSector(context.Context, int) ([]biz.UpdateStatusRow, error) {
	return nil, nil
}

type nopSink struct{ added int }

func (s *nopSink) Add(context.Context, *biz.Document) error            { s.added++; return nil }
func (s *nopSink) Create(context.Context, *biz.Document) error         { return nil }
func (s *nopSink) Update(context.Context, *biz.Document) error         { return nil }
func (s *nopSink) UpdateOrCreate(context.Context, *biz.Document) error { return nil }
func (s *nopSink) Delete(context.Context, int64) error                 { return nil }
func (s *nopSink) Finish(context.Context) error                        { return nil }

type fixedCounter struct {
	n   uint64
	err error
}

func (c fixedCounter) Count() (uint64, error) { return c.n, c.err }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newTestService(places *memPlaces, updates biz.UpdateRepo, counter DocumentCounter, health HealthChecker) (*IndexerService, *nopSink) {
	m := metrics.New(nil)
	sink := &nopSink{}
	builder := biz.NewDocumentBuilder(places, biz.NewRowMapper(countries{"de": {"name": "Deutschland"}}))
	importer := biz.NewImporter(places, builder, sink, m, testLogger())
	updater := biz.NewUpdater(updates, builder, sink, nil, m, testLogger())
	svc := NewIndexerService(importer, updater, builder, counter, health, &conf.Index{Languages: []string{"de", "en"}}, testLogger())
	return svc, sink
}

func newBlockingUpdates() *blockingUpdates {
	return &blockingUpdates{entered: make(chan struct{}), release: make(chan struct{})}
}

func TestParseOSMRef(t *testing.T) {
	tests := []struct {
		ref     string
		osmType string
		id      int64
		wantErr bool
	}{
		{ref: "N123", osmType: "N", id: 123},
		{ref: "w42", osmType: "W", id: 42},
		{ref: " R7 ", osmType: "R", id: 7},
		{ref: "X1", wantErr: true},
		{ref: "N", wantErr: true},
		{ref: "Nabc", wantErr: true},
		{ref: "N-5", wantErr: true},
		{ref: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			osmType, id, err := ParseOSMRef(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, 400, int(errors.Code(err)))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.osmType, osmType)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestIndexerService_Status(t *testing.T) {
	svc, _ := newTestService(&memPlaces{}, newBlockingUpdates(), fixedCounter{n: 12}, pinger{})
	reply, err := svc.Status(context.Background(), &StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Ok", reply.Status)
	assert.Equal(t, "ok", reply.DBStatus)
	assert.Equal(t, uint64(12), reply.Documents)
	assert.False(t, reply.UpdateRunning)

	svc, _ = newTestService(&memPlaces{}, newBlockingUpdates(), fixedCounter{}, pinger{err: assert.AnError})
	reply, err = svc.Status(context.Background(), &StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, "unavailable", reply.DBStatus)

	svc, _ = newTestService(&memPlaces{}, newBlockingUpdates(), fixedCounter{err: assert.AnError}, nil)
	_, err = svc.Status(context.Background(), &StatusRequest{})
	assert.Equal(t, 500, int(errors.Code(err)))
}

func TestIndexerService_TriggerUpdateConflict(t *testing.T) {
	updates := newBlockingUpdates()
	svc, _ := newTestService(&memPlaces{}, updates, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	reply, err := svc.TriggerUpdate(ctx, &UpdateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "update started", reply.Message)
	// the run outlives the request
	cancel()

	select {
	case <-updates.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("update did not start")
	}

	_, err = svc.TriggerUpdate(context.Background(), &UpdateRequest{})
	assert.Equal(t, 409, int(errors.Code(err)))
	assert.Equal(t, biz.UpdateInProgress, errors.Reason(err))

	_, err = svc.Update(context.Background())
	assert.Equal(t, biz.UpdateInProgress, errors.Reason(err))

	status, err := svc.Status(context.Background(), &StatusRequest{})
	require.NoError(t, err)
	assert.True(t, status.UpdateRunning)

	close(updates.release)
	svc.Wait()

	_, err = svc.Update(context.Background())
	assert.NoError(t, err)
}

func TestIndexerService_ImportAndLookup(t *testing.T) {
	c := orb.Point{13.4, 52.5}
	places := &memPlaces{places: []*biz.PlaceRecord{
		{PlaceID: 1, OSMType: "N", OSMID: 100, Class: "amenity", Type: "cafe",
			Name: map[string]string{"name": "Café", "name:en": "Coffee"}, RankSearch: 30, CountryCode: "de", Centroid: &c},
	}}
	svc, sink := newTestService(places, newBlockingUpdates(), fixedCounter{n: 1}, nil)

	reply, err := svc.Import(context.Background(), []string{"DE"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reply.Documents)
	assert.Equal(t, uint64(1), reply.Indexed)
	assert.Equal(t, 1, sink.added)

	lookup, err := svc.Lookup(context.Background(), &LookupRequest{OSMID: "N100"})
	require.NoError(t, err)
	require.Len(t, lookup.Documents, 1)
	assert.Equal(t, "1", lookup.Documents[0]["place_id"])
	assert.Equal(t, map[string]string{"default": "Café", "en": "Coffee"}, lookup.Documents[0]["name"])
	assert.Len(t, lookup.Docs(), 1)

	_, err = svc.Lookup(context.Background(), &LookupRequest{OSMID: "W100"})
	assert.Equal(t, biz.PlaceNotFound, errors.Reason(err))
}
