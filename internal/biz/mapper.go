package biz

import (
	"fmt"
)

// CountryNameLookup 国家代码 -> 多语言国家名，需在映射开始前完成预热。
type CountryNameLookup interface {
	CountryName(code string) map[string]string
}

// RowMapper 将源库行映射为 NominatimResult。
type RowMapper struct {
	countries CountryNameLookup
}

func NewRowMapper(countries CountryNameLookup) *RowMapper {
	return &RowMapper{countries: countries}
}

// Map dispatches on the closed set of source row kinds.
func (m *RowMapper) Map(row SourceRow) (*NominatimResult, error) {
	switch r := row.(type) {
	case *PlaceRecord:
		return m.MapPlace(r), nil
	case *InterpolationRecord:
		return m.MapInterpolation(r), nil
	default:
		return nil, fmt.Errorf("unsupported source row %T", row)
	}
}

// DefaultImportance 与 rank_search 对应的缺省重要性。
func DefaultImportance(rankSearch int) float64 {
	return 0.75 - float64(rankSearch)/40
}

func (m *RowMapper) MapPlace(r *PlaceRecord) *NominatimResult {
	importance := DefaultImportance(r.RankSearch)
	if r.Importance != nil {
		importance = *r.Importance
	}
	doc := NewDocument(r.PlaceID, r.OSMType, r.OSMID, r.Class, r.Type, r.Name, r.ExtraTags)
	doc.BBox = r.BBox
	doc.ParentPlaceID = r.ParentPlaceID
	doc.Importance = importance
	doc.CountryCode = r.CountryCode
	doc.Centroid = r.Centroid
	doc.LinkedPlaceID = r.LinkedPlaceID
	doc.RankSearch = r.RankSearch
	doc.Postcode = r.Postcode
	doc.Country = m.countryName(r.CountryCode)

	res := NewNominatimResult(doc)
	res.AddHouseNumbersFromString(r.HouseNumber)
	return res
}

func (m *RowMapper) MapInterpolation(r *InterpolationRecord) *NominatimResult {
	doc := NewDocument(r.PlaceID, "W", r.OSMID, "place", "house_number", nil, nil)
	doc.ParentPlaceID = r.ParentPlaceID
	doc.CountryCode = r.CountryCode
	doc.RankSearch = 30
	doc.Postcode = r.Postcode
	doc.Country = m.countryName(r.CountryCode)

	res := NewNominatimResult(doc)
	res.AddHouseNumbersFromInterpolation(r.StartNumber, r.EndNumber, r.InterpolationType, r.Line)
	return res
}

func (m *RowMapper) countryName(code string) map[string]string {
	if m.countries == nil || code == "" {
		return nil
	}
	return m.countries.CountryName(code)
}
