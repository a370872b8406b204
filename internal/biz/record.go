package biz

import "github.com/paulmach/orb"

// SourceRow 源库中的一行：*PlaceRecord 或 *InterpolationRecord。
type SourceRow interface {
	sourcePlaceID() int64
}

// PlaceRecord placex 表中的一行快照。
type PlaceRecord struct {
	PlaceID       int64
	OSMType       string
	OSMID         int64
	Class         string
	Type          string
	Name          map[string]string
	HouseNumber   string // 可能以 ; 分隔多个门牌
	Postcode      string
	ExtraTags     map[string]string
	BBox          *orb.Bound
	ParentPlaceID int64
	LinkedPlaceID int64
	RankSearch    int
	Importance    *float64 // nil 表示列为空
	CountryCode   string
	Centroid      *orb.Point
}

func (r *PlaceRecord) sourcePlaceID() int64 { return r.PlaceID }

// InterpolationRecord location_property_osmline 表中的一行快照。
type InterpolationRecord struct {
	PlaceID           int64
	OSMID             int64
	ParentPlaceID     int64
	StartNumber       int64
	EndNumber         int64
	InterpolationType string // odd/even/all
	Postcode          string
	CountryCode       string
	Line              orb.Geometry // LineString 或 MultiLineString，可为空
}

func (r *InterpolationRecord) sourcePlaceID() int64 { return r.PlaceID }

// Status codes of the indexed_status column.
const (
	StatusCreate = 1
	StatusUpdate = 2
	StatusDelete = 100
)

// UpdateStatusRow 待处理行及其 indexed_status。
type UpdateStatusRow struct {
	PlaceID int64
	Status  int
}
