package biz

import (
	"context"
	"fmt"
)

// PlaceRepo 抽象关系型源库（Nominatim schema）的读路径。
type PlaceRepo interface {
	AddressRepo
	// ScanPlaces 按 geometry_sector 顺序遍历 placex（排除 linked 与无质心的行）。
	ScanPlaces(ctx context.Context, countryCodes []string, fn func(*PlaceRecord) error) error
	// ScanInterpolations 按 geometry_sector 顺序遍历插值线。
	ScanInterpolations(ctx context.Context, countryCodes []string, fn func(*InterpolationRecord) error) error
	GetPlace(ctx context.Context, placeID int64) (*PlaceRecord, error)
	GetInterpolation(ctx context.Context, placeID int64) (*InterpolationRecord, error)
	FindPlacesByOSM(ctx context.Context, osmType string, osmID int64) ([]*PlaceRecord, error)
}

// AddressCache is implemented by repositories that cache hierarchy lookups.
type AddressCache interface {
	PurgeAddressCache()
}

// DocumentBuilder 导入与更新共用的解析路径：映射 -> 地址补全 -> 门牌展开。
type DocumentBuilder struct {
	repo     PlaceRepo
	mapper   *RowMapper
	resolver *AddressResolver
}

func NewDocumentBuilder(repo PlaceRepo, mapper *RowMapper) *DocumentBuilder {
	return &DocumentBuilder{repo: repo, mapper: mapper, resolver: NewAddressResolver(repo)}
}

// ResetCache drops cached hierarchies so a new pass sees current source data.
func (b *DocumentBuilder) ResetCache() {
	if c, ok := b.repo.(AddressCache); ok {
		c.PurgeAddressCache()
	}
}

// Build maps and completes one row. Rows that are not useful are returned
// with ok=false and without paying for hierarchy resolution.
func (b *DocumentBuilder) Build(ctx context.Context, row SourceRow) (docs []*Document, ok bool, err error) {
	res, err := b.mapper.Map(row)
	if err != nil {
		return nil, false, err
	}
	if !res.IsUsefulForIndex() {
		return nil, false, nil
	}
	if err := b.resolver.Complete(ctx, res.BaseDoc()); err != nil {
		return nil, false, err
	}
	return res.Documents(), true, nil
}

// PlaceDocuments returns the fresh documents of a placex row.
func (b *DocumentBuilder) PlaceDocuments(ctx context.Context, placeID int64) ([]*Document, error) {
	rec, err := b.repo.GetPlace(ctx, placeID)
	if err != nil {
		return nil, err
	}
	return b.complete(ctx, b.mapper.MapPlace(rec))
}

// InterpolationDocuments returns the fresh documents of an interpolation line.
func (b *DocumentBuilder) InterpolationDocuments(ctx context.Context, placeID int64) ([]*Document, error) {
	rec, err := b.repo.GetInterpolation(ctx, placeID)
	if err != nil {
		return nil, err
	}
	return b.complete(ctx, b.mapper.MapInterpolation(rec))
}

// LookupOSM returns the completed base documents of an OSM object.
func (b *DocumentBuilder) LookupOSM(ctx context.Context, osmType string, osmID int64) ([]*Document, error) {
	recs, err := b.repo.FindPlacesByOSM(ctx, osmType, osmID)
	if err != nil {
		return nil, err
	}
	out := make([]*Document, 0, len(recs))
	for _, rec := range recs {
		doc := b.mapper.MapPlace(rec).BaseDoc()
		if err := b.resolver.Complete(ctx, doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (b *DocumentBuilder) complete(ctx context.Context, res *NominatimResult) ([]*Document, error) {
	if err := b.resolver.Complete(ctx, res.BaseDoc()); err != nil {
		return nil, fmt.Errorf("complete place %d: %w", res.BaseDoc().PlaceID, err)
	}
	return res.Documents(), nil
}
