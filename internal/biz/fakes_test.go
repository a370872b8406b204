package biz

import (
	"context"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"nominatim-indexer/internal/metrics"
)

type countryTable map[string]map[string]string

func (c countryTable) CountryName(code string) map[string]string { return c[code] }

// fakePlaceRepo serves records and hierarchies from memory.
type fakePlaceRepo struct {
	places         []*PlaceRecord
	interpolations []*InterpolationRecord
	terms          map[int64][]*AddressTerm
	placeTerms     map[int64]*AddressTerm

	mu         sync.Mutex
	termCalls  int
	scanCodes  [][]string
	scanCalled bool
	purged     int
}

func (r *fakePlaceRepo) ScanPlaces(_ context.Context, codes []string, fn func(*PlaceRecord) error) error {
	r.mu.Lock()
	r.scanCalled = true
	r.scanCodes = append(r.scanCodes, codes)
	r.mu.Unlock()
	for _, p := range r.places {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakePlaceRepo) ScanInterpolations(_ context.Context, _ []string, fn func(*InterpolationRecord) error) error {
	for _, p := range r.interpolations {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakePlaceRepo) GetPlace(_ context.Context, id int64) (*PlaceRecord, error) {
	for _, p := range r.places {
		if p.PlaceID == id {
			return p, nil
		}
	}
	return nil, ErrPlaceNotFound("placex", id)
}

func (r *fakePlaceRepo) GetInterpolation(_ context.Context, id int64) (*InterpolationRecord, error) {
	for _, p := range r.interpolations {
		if p.PlaceID == id {
			return p, nil
		}
	}
	return nil, ErrPlaceNotFound("location_property_osmline", id)
}

func (r *fakePlaceRepo) FindPlacesByOSM(_ context.Context, osmType string, osmID int64) ([]*PlaceRecord, error) {
	var out []*PlaceRecord
	for _, p := range r.places {
		if p.OSMType == osmType && p.OSMID == osmID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePlaceRepo) AddressTerms(_ context.Context, id int64) ([]*AddressTerm, error) {
	r.mu.Lock()
	r.termCalls++
	r.mu.Unlock()
	return r.terms[id], nil
}

func (r *fakePlaceRepo) PlaceTerm(_ context.Context, id int64) (*AddressTerm, error) {
	return r.placeTerms[id], nil
}

func (r *fakePlaceRepo) PurgeAddressCache() {
	r.mu.Lock()
	r.purged++
	r.mu.Unlock()
}

type sinkCall struct {
	op  string
	uid string
	id  int64
}

// recordingSink keeps every call in order.
type recordingSink struct {
	mu       sync.Mutex
	calls    []sinkCall
	finished int
	failOn   string
}

func (s *recordingSink) record(op string, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{op: op, uid: doc.UID(), id: doc.PlaceID})
	if s.failOn == op {
		return ErrInternalServer
	}
	return nil
}

func (s *recordingSink) Add(_ context.Context, doc *Document) error    { return s.record("add", doc) }
func (s *recordingSink) Create(_ context.Context, doc *Document) error { return s.record("create", doc) }
func (s *recordingSink) Update(_ context.Context, doc *Document) error { return s.record("update", doc) }
func (s *recordingSink) UpdateOrCreate(_ context.Context, doc *Document) error {
	return s.record("upsert", doc)
}

func (s *recordingSink) Delete(_ context.Context, placeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{op: "delete", id: placeID})
	return nil
}

func (s *recordingSink) Finish(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished++
	if s.failOn == "finish" {
		return ErrInternalServer
	}
	return nil
}

func (s *recordingSink) ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		if c.uid != "" {
			out = append(out, c.op+" "+c.uid)
		} else {
			out = append(out, c.op)
		}
	}
	return out
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(nil)
}

func testLogger() log.Logger {
	return log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelFatal))
}

func ptr[T any](v T) *T { return &v }
