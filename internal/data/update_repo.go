package data

import (
	"context"
	"database/sql"

	"nominatim-indexer/internal/biz"
)

const (
	placeSectorsQuery = `SELECT geometry_sector FROM placex
WHERE rank_search = $1 AND indexed_status > 0
GROUP BY geometry_sector ORDER BY geometry_sector`
	placesInSectorQuery = `SELECT place_id, indexed_status FROM placex
WHERE rank_search = $1 AND geometry_sector = $2 AND indexed_status > 0`
	clearPlaceStatusQuery = `UPDATE placex SET indexed_status = 0 WHERE place_id = $1`

	interpolationSectorsQuery = `SELECT geometry_sector FROM location_property_osmline
WHERE indexed_status > 0
GROUP BY geometry_sector ORDER BY geometry_sector`
	interpolationsInSectorQuery = `SELECT place_id, indexed_status FROM location_property_osmline
WHERE geometry_sector = $1 AND indexed_status > 0`
	clearInterpolationStatusQuery = `UPDATE location_property_osmline SET indexed_status = 0 WHERE place_id = $1`

	markIndexedQuery = `UPDATE import_status SET indexed = true`
)

// NewUpdateRepo indexed_status 读写实现。
func NewUpdateRepo(d *Data) biz.UpdateRepo {
	return &updateRepo{data: d}
}

type updateRepo struct {
	data *Data
}

func (r *updateRepo) sqlDB() *sql.DB {
	return r.data.SQLDB()
}

func (r *updateRepo) PlaceSectors(ctx context.Context, rank int) ([]int, error) {
	return r.sectors(ctx, placeSectorsQuery, rank)
}

func (r *updateRepo) PlacesInSector(ctx context.Context, rank, sector int) ([]biz.UpdateStatusRow, error) {
	return r.statusRows(ctx, placesInSectorQuery, rank, sector)
}

func (r *updateRepo) ClearPlaceStatus(ctx context.Context, placeID int64) error {
	_, err := r.sqlDB().ExecContext(ctx, clearPlaceStatusQuery, placeID)
	return err
}

func (r *updateRepo) InterpolationSectors(ctx context.Context) ([]int, error) {
	return r.sectors(ctx, interpolationSectorsQuery)
}

func (r *updateRepo) InterpolationsInSector(ctx context.Context, sector int) ([]biz.UpdateStatusRow, error) {
	return r.statusRows(ctx, interpolationsInSectorQuery, sector)
}

func (r *updateRepo) ClearInterpolationStatus(ctx context.Context, placeID int64) error {
	_, err := r.sqlDB().ExecContext(ctx, clearInterpolationStatusQuery, placeID)
	return err
}

func (r *updateRepo) MarkIndexed(ctx context.Context) error {
	_, err := r.sqlDB().ExecContext(ctx, markIndexedQuery)
	return err
}

func (r *updateRepo) sectors(ctx context.Context, q string, args ...any) ([]int, error) {
	rows, err := r.sqlDB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var sector int
		if err := rows.Scan(&sector); err != nil {
			return nil, err
		}
		out = append(out, sector)
	}
	return out, rows.Err()
}

func (r *updateRepo) statusRows(ctx context.Context, q string, args ...any) ([]biz.UpdateStatusRow, error) {
	rows, err := r.sqlDB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []biz.UpdateStatusRow
	for rows.Next() {
		var row biz.UpdateStatusRow
		if err := rows.Scan(&row.PlaceID, &row.Status); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
