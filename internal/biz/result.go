package biz

import (
	"maps"
	"slices"
	"strings"

	"github.com/paulmach/orb"
)

// NominatimResult 一行源数据映射后的中间结果：基础文档 + 门牌号位置表。
// 门牌表只归属于结果本身，Documents() 之后产出的变体各自持有副本。
type NominatimResult struct {
	doc          *Document
	housenumbers map[string]*orb.Point
}

func NewNominatimResult(doc *Document) *NominatimResult {
	return &NominatimResult{doc: doc}
}

// BaseDoc returns the document still being completed by the resolver.
func (r *NominatimResult) BaseDoc() *Document {
	return r.doc
}

// HouseNumbers returns a copy of the housenumber table.
func (r *NominatimResult) HouseNumbers() map[string]*orb.Point {
	return maps.Clone(r.housenumbers)
}

func (r *NominatimResult) IsUsefulForIndex() bool {
	return len(r.housenumbers) > 0 || r.doc.IsUsefulForIndex()
}

// Documents expands the base document into one variant per housenumber.
// Without housenumbers the base document is returned as is.
func (r *NominatimResult) Documents() []*Document {
	if len(r.housenumbers) == 0 {
		return []*Document{r.doc}
	}
	out := make([]*Document, 0, len(r.housenumbers))
	for _, hn := range slices.Sorted(maps.Keys(r.housenumbers)) {
		c := r.doc.Clone()
		c.HouseNumber = hn
		c.Centroid = nil
		if p := r.housenumbers[hn]; p != nil {
			pt := *p
			c.Centroid = &pt
		}
		out = append(out, c)
	}
	return out
}

// AddHouseNumbersFromString adds every ';' separated number at the base centroid.
func (r *NominatimResult) AddHouseNumbersFromString(s string) {
	if s == "" {
		return
	}
	for _, part := range strings.Split(s, ";") {
		h := strings.TrimSpace(part)
		if h == "" {
			continue
		}
		r.put(h, r.doc.Centroid)
	}
}

// AddHouseNumbersFromInterpolation adds the numbers strictly between first and last.
func (r *NominatimResult) AddHouseNumbersFromInterpolation(first, last int64, interpolationType string, line orb.Geometry) {
	for hn, p := range Interpolate(first, last, interpolationType, line) {
		pt := p
		r.put(hn, &pt)
	}
}

func (r *NominatimResult) put(hn string, p *orb.Point) {
	if r.housenumbers == nil {
		r.housenumbers = make(map[string]*orb.Point)
	}
	r.housenumbers[hn] = p
}
