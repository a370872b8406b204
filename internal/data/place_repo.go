package data

import (
	"context"
	"database/sql"
	"errors"

	"nominatim-indexer/internal/biz"
	"nominatim-indexer/internal/conf"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	lru "github.com/hashicorp/golang-lru/v2"
)

var placeColumns = []string{
	"place_id", "osm_type", "osm_id", "class", "type",
	"COALESCE(hstore_to_json(name)::text, '{}') AS name",
	"housenumber", "postcode",
	"COALESCE(hstore_to_json(extratags)::text, '{}') AS extratags",
	"ST_AsBinary(ST_Envelope(geometry)) AS bbox",
	"COALESCE(parent_place_id, 0) AS parent_place_id",
	"COALESCE(linked_place_id, 0) AS linked_place_id",
	"rank_search", "importance", "country_code",
	"ST_AsBinary(centroid) AS centroid",
}

var osmlineColumns = []string{
	"place_id", "osm_id",
	"COALESCE(parent_place_id, 0) AS parent_place_id",
	"startnumber", "endnumber", "interpolationtype", "postcode", "country_code",
	"ST_AsBinary(linegeo) AS linegeo",
}

const addressColumns = `p.place_id, p.osm_type, p.osm_id,
  COALESCE(hstore_to_json(p.name)::text, '{}') AS name,
  p.class, p.type, p.rank_address, p.admin_level, p.postcode, p.extratags->'place' AS place`

const addressTermsQuery = `
SELECT ` + addressColumns + `
FROM placex p, place_addressline pa
WHERE p.place_id = pa.address_place_id
  AND pa.place_id = $1
  AND pa.cached_rank_address > 4
  AND pa.address_place_id != $1
  AND pa.isaddress
ORDER BY rank_address DESC, fromarea DESC, distance ASC, rank_search DESC`

const placeTermQuery = `SELECT ` + addressColumns + ` FROM placex p WHERE p.place_id = $1`

// NewPlaceRepo 源库读路径实现；address_cache_size > 0 时对地址层级做 LRU 缓存。
func NewPlaceRepo(d *Data, c *conf.Import) biz.PlaceRepo {
	r := &placeRepo{data: d}
	if c != nil && c.AddressCacheSize > 0 {
		r.terms, _ = lru.New[termKey, []*biz.AddressTerm](c.AddressCacheSize)
	}
	return r
}

type placeRepo struct {
	data  *Data
	terms *lru.Cache[termKey, []*biz.AddressTerm]
}

type termKey struct {
	placeID int64
	self    bool
}

func (r *placeRepo) sqlDB() *sql.DB {
	return r.data.SQLDB()
}

// PurgeAddressCache drops every cached hierarchy.
func (r *placeRepo) PurgeAddressCache() {
	if r.terms != nil {
		r.terms.Purge()
	}
}

func (r *placeRepo) ScanPlaces(ctx context.Context, countryCodes []string, fn func(*biz.PlaceRecord) error) error {
	preds := []*entsql.Predicate{entsql.IsNull("linked_place_id"), entsql.NotNull("centroid")}
	if len(countryCodes) > 0 {
		preds = append(preds, entsql.In("country_code", toArgs(countryCodes)...))
	}
	q, args := entsql.Dialect(dialect.Postgres).
		Select(placeColumns...).
		From(entsql.Table("placex")).
		Where(entsql.And(preds...)).
		OrderBy("geometry_sector").
		Query()
	rows, err := r.sqlDB().QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanPlace(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *placeRepo) ScanInterpolations(ctx context.Context, countryCodes []string, fn func(*biz.InterpolationRecord) error) error {
	s := entsql.Dialect(dialect.Postgres).
		Select(osmlineColumns...).
		From(entsql.Table("location_property_osmline"))
	if len(countryCodes) > 0 {
		s.Where(entsql.In("country_code", toArgs(countryCodes)...))
	}
	q, args := s.OrderBy("geometry_sector").Query()
	rows, err := r.sqlDB().QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanInterpolation(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *placeRepo) GetPlace(ctx context.Context, placeID int64) (*biz.PlaceRecord, error) {
	q, args := entsql.Dialect(dialect.Postgres).
		Select(placeColumns...).
		From(entsql.Table("placex")).
		Where(entsql.EQ("place_id", placeID)).
		Query()
	rec, err := scanPlace(r.sqlDB().QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, biz.ErrPlaceNotFound("placex", placeID)
	}
	return rec, err
}

func (r *placeRepo) GetInterpolation(ctx context.Context, placeID int64) (*biz.InterpolationRecord, error) {
	q, args := entsql.Dialect(dialect.Postgres).
		Select(osmlineColumns...).
		From(entsql.Table("location_property_osmline")).
		Where(entsql.EQ("place_id", placeID)).
		Query()
	rec, err := scanInterpolation(r.sqlDB().QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, biz.ErrPlaceNotFound("location_property_osmline", placeID)
	}
	return rec, err
}

func (r *placeRepo) FindPlacesByOSM(ctx context.Context, osmType string, osmID int64) ([]*biz.PlaceRecord, error) {
	q, args := entsql.Dialect(dialect.Postgres).
		Select(placeColumns...).
		From(entsql.Table("placex")).
		Where(entsql.And(entsql.EQ("osm_id", osmID), entsql.EQ("osm_type", osmType))).
		Query()
	rows, err := r.sqlDB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*biz.PlaceRecord
	for rows.Next() {
		rec, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *placeRepo) AddressTerms(ctx context.Context, placeID int64) ([]*biz.AddressTerm, error) {
	key := termKey{placeID: placeID}
	if r.terms != nil {
		if terms, ok := r.terms.Get(key); ok {
			return terms, nil
		}
	}
	rows, err := r.sqlDB().QueryContext(ctx, addressTermsQuery, placeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*biz.AddressTerm
	for rows.Next() {
		t, err := scanAddressTerm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if r.terms != nil {
		r.terms.Add(key, out)
	}
	return out, nil
}

func (r *placeRepo) PlaceTerm(ctx context.Context, placeID int64) (*biz.AddressTerm, error) {
	key := termKey{placeID: placeID, self: true}
	if r.terms != nil {
		if terms, ok := r.terms.Get(key); ok {
			return firstTerm(terms), nil
		}
	}
	t, err := scanAddressTerm(r.sqlDB().QueryRowContext(ctx, placeTermQuery, placeID))
	var terms []*biz.AddressTerm
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		terms = []*biz.AddressTerm{t}
	}
	if r.terms != nil {
		r.terms.Add(key, terms)
	}
	return firstTerm(terms), nil
}

func firstTerm(terms []*biz.AddressTerm) *biz.AddressTerm {
	if len(terms) == 0 {
		return nil
	}
	return terms[0]
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlace(s scanner) (*biz.PlaceRecord, error) {
	var (
		rec                       biz.PlaceRecord
		osmType, class, typ       sql.NullString
		housenumber, postcode, cc sql.NullString
		nameJSON, extraJSON       string
		bbox, centroid            []byte
		importance                sql.NullFloat64
	)
	if err := s.Scan(&rec.PlaceID, &osmType, &rec.OSMID, &class, &typ, &nameJSON, &housenumber, &postcode,
		&extraJSON, &bbox, &rec.ParentPlaceID, &rec.LinkedPlaceID, &rec.RankSearch, &importance, &cc, &centroid); err != nil {
		return nil, err
	}
	rec.OSMType = osmType.String
	rec.Class = class.String
	rec.Type = typ.String
	rec.Name = decodeHstore(nameJSON)
	rec.HouseNumber = housenumber.String
	rec.Postcode = postcode.String
	rec.ExtraTags = decodeHstore(extraJSON)
	rec.BBox = decodeBound(bbox)
	rec.CountryCode = cc.String
	rec.Centroid = decodePoint(centroid)
	if importance.Valid {
		v := importance.Float64
		rec.Importance = &v
	}
	return &rec, nil
}

func scanInterpolation(s scanner) (*biz.InterpolationRecord, error) {
	var (
		rec                 biz.InterpolationRecord
		start, end          sql.NullInt64
		itype, postcode, cc sql.NullString
		line                []byte
	)
	if err := s.Scan(&rec.PlaceID, &rec.OSMID, &rec.ParentPlaceID, &start, &end, &itype, &postcode, &cc, &line); err != nil {
		return nil, err
	}
	rec.StartNumber = start.Int64
	rec.EndNumber = end.Int64
	rec.InterpolationType = itype.String
	rec.Postcode = postcode.String
	rec.CountryCode = cc.String
	rec.Line = decodeGeometry(line)
	return &rec, nil
}

func scanAddressTerm(s scanner) (*biz.AddressTerm, error) {
	var (
		t                 biz.AddressTerm
		osmType, postcode sql.NullString
		class, typ, place sql.NullString
		nameJSON          string
		adminLevel        sql.NullInt64
	)
	if err := s.Scan(&t.PlaceID, &osmType, &t.OSMID, &nameJSON, &class, &typ, &t.RankAddress, &adminLevel, &postcode, &place); err != nil {
		return nil, err
	}
	t.OSMType = osmType.String
	t.Name = decodeHstore(nameJSON)
	t.Class = class.String
	t.Type = typ.String
	t.Postcode = postcode.String
	t.Place = place.String
	if adminLevel.Valid {
		v := int(adminLevel.Int64)
		t.AdminLevel = &v
	}
	return &t, nil
}

func toArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
