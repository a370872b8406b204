package data

import (
	"context"
	"database/sql"
	"testing"

	"nominatim-indexer/internal/biz"
	"nominatim-indexer/internal/conf"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placeCols = []string{
	"place_id", "osm_type", "osm_id", "class", "type", "name", "housenumber", "postcode",
	"extratags", "bbox", "parent_place_id", "linked_place_id", "rank_search", "importance",
	"country_code", "centroid",
}

var termCols = []string{
	"place_id", "osm_type", "osm_id", "name", "class", "type", "rank_address", "admin_level", "postcode", "place",
}

func testLogger() log.Logger {
	return log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelFatal))
}

func setupMockData(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Data) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, newDataForDB(db, testLogger())
}

func mustWKB(t *testing.T, g orb.Geometry) []byte {
	b, err := wkb.Marshal(g)
	require.NoError(t, err)
	return b
}

func TestPlaceRepo_ScanPlaces(t *testing.T) {
	db, mock, d := setupMockData(t)
	defer db.Close()
	repo := NewPlaceRepo(d, nil)

	poly := orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}
	rows := sqlmock.NewRows(placeCols).
		AddRow(1, "N", 100, "amenity", "cafe", `{"name":"Café","name:de":"Kaffee"}`, "3;5", "10115",
			`{"place":"town"}`, mustWKB(t, poly), 20, 0, 30, 0.4, "de", mustWKB(t, orb.Point{1, 1})).
		AddRow(2, "W", 200, "highway", "residential", `{}`, nil, nil,
			`{}`, nil, 0, 0, 26, nil, nil, nil)

	mock.ExpectQuery(`FROM "placex" WHERE .*"country_code" IN`).
		WithArgs("de", "ch").
		WillReturnRows(rows)

	var got []*biz.PlaceRecord
	err := repo.ScanPlaces(context.Background(), []string{"de", "ch"}, func(rec *biz.PlaceRecord) error {
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "Kaffee", first.Name["name:de"])
	assert.Equal(t, "town", first.ExtraTags["place"])
	assert.Equal(t, "3;5", first.HouseNumber)
	assert.Equal(t, int64(20), first.ParentPlaceID)
	require.NotNil(t, first.Importance)
	assert.Equal(t, 0.4, *first.Importance)
	require.NotNil(t, first.Centroid)
	assert.Equal(t, orb.Point{1, 1}, *first.Centroid)
	require.NotNil(t, first.BBox)
	assert.Equal(t, orb.Point{2, 2}, first.BBox.Max)

	second := got[1]
	assert.Nil(t, second.Importance)
	assert.Nil(t, second.Centroid)
	assert.Nil(t, second.BBox)
	assert.Empty(t, second.HouseNumber)
	assert.NotNil(t, second.Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceRepo_ScanInterpolations(t *testing.T) {
	db, mock, d := setupMockData(t)
	defer db.Close()
	repo := NewPlaceRepo(d, nil)

	line := orb.LineString{{0, 0}, {10, 0}}
	mock.ExpectQuery(`FROM "location_property_osmline"`).
		WillReturnRows(sqlmock.NewRows([]string{"place_id", "osm_id", "parent_place_id", "startnumber", "endnumber", "interpolationtype", "postcode", "country_code", "linegeo"}).
			AddRow(5, 50, 4, 10, 20, "even", "80331", "de", mustWKB(t, line)))

	var got []*biz.InterpolationRecord
	err := repo.ScanInterpolations(context.Background(), nil, func(rec *biz.InterpolationRecord) error {
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "even", got[0].InterpolationType)
	assert.Equal(t, line, got[0].Line)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceRepo_GetPlaceNotFound(t *testing.T) {
	db, mock, d := setupMockData(t)
	defer db.Close()
	repo := NewPlaceRepo(d, nil)

	mock.ExpectQuery(`FROM "placex" WHERE "place_id" = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(placeCols))

	_, err := repo.GetPlace(context.Background(), 9)
	require.Error(t, err)
	assert.Equal(t, biz.PlaceNotFound, errors.Reason(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceRepo_AddressTermsCached(t *testing.T) {
	db, mock, d := setupMockData(t)
	defer db.Close()
	repo := NewPlaceRepo(d, &conf.Import{AddressCacheSize: 16})

	mock.ExpectQuery(`FROM placex p, place_addressline pa`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(termCols).
			AddRow(11, "R", 110, `{"name":"Berlin"}`, "boundary", "administrative", 16, 4, nil, "city").
			AddRow(12, "W", 120, `{"name":"Hauptstraße"}`, "highway", "residential", 26, nil, "10115", nil))

	terms, err := repo.AddressTerms(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	require.NotNil(t, terms[0].AdminLevel)
	assert.Equal(t, 4, *terms[0].AdminLevel)
	assert.Equal(t, "city", terms[0].Place)
	assert.Nil(t, terms[1].AdminLevel)
	assert.Equal(t, "10115", terms[1].Postcode)

	// second lookup served from the cache
	again, err := repo.AddressTerms(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, terms, again)
	require.NoError(t, mock.ExpectationsWereMet())

	repo.(biz.AddressCache).PurgeAddressCache()
	mock.ExpectQuery(`FROM placex p, place_addressline pa`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(termCols))
	terms, err = repo.AddressTerms(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, terms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceRepo_PlaceTermMissing(t *testing.T) {
	db, mock, d := setupMockData(t)
	defer db.Close()
	repo := NewPlaceRepo(d, nil)

	mock.ExpectQuery(`FROM placex p WHERE p.place_id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(termCols))

	term, err := repo.PlaceTerm(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, term)
	assert.NoError(t, mock.ExpectationsWereMet())
}
