package biz

import (
	"maps"
	"strconv"

	"github.com/paulmach/orb"
)

// Document 去规范化后的索引文档，是管道产出、sink 消费的最小单位。
type Document struct {
	PlaceID       int64             // 源库 place_id
	OSMType       string            // N/W/R
	OSMID         int64             // OSM 对象 ID
	TagKey        string            // 主标签 key（class）
	TagValue      string            // 主标签 value（type）
	Name          map[string]string // 名称（language -> name）
	HouseNumber   string            // 门牌号，按门牌变体设置
	ExtraTags     map[string]string // 额外标签
	BBox          *orb.Bound        // 边界框，可为空
	ParentPlaceID int64             // 0 表示无
	Importance    float64           // 重要性
	CountryCode   string            // 国家代码（小写）
	Centroid      *orb.Point        // 质心，可为空
	LinkedPlaceID int64             // 0 表示无
	RankSearch    int               // search rank 0-30

	Postcode string            // 邮编
	Street   map[string]string // 街道
	City     map[string]string // 城市
	Country  map[string]string // 国家名
	State    map[string]string // 州/省
	Context  *NameSet          // 其余有用的地址上下文
}

// NewDocument builds a document and applies the extratags place override.
func NewDocument(placeID int64, osmType string, osmID int64, tagKey, tagValue string, name, extraTags map[string]string) *Document {
	if place, ok := extraTags["place"]; ok {
		tagKey = "place"
		tagValue = place
	}
	if name == nil {
		name = map[string]string{}
	}
	if extraTags == nil {
		extraTags = map[string]string{}
	}
	return &Document{
		PlaceID:   placeID,
		OSMType:   osmType,
		OSMID:     osmID,
		TagKey:    tagKey,
		TagValue:  tagValue,
		Name:      name,
		ExtraTags: extraTags,
		Context:   NewNameSet(),
	}
}

// UID 返回索引内的复合 ID：placeId 或 placeId.houseNumber。
func (d *Document) UID() string {
	if d.HouseNumber == "" {
		return strconv.FormatInt(d.PlaceID, 10)
	}
	return strconv.FormatInt(d.PlaceID, 10) + "." + d.HouseNumber
}

// IsUsefulForIndex reports whether the document deserves an index entry.
func (d *Document) IsUsefulForIndex() bool {
	if d.TagKey == "place" && d.TagValue == "houses" {
		return false
	}
	if d.HouseNumber != "" {
		return true
	}
	if len(d.Name) == 0 {
		return false
	}
	return d.LinkedPlaceID <= 0
}

// Clone returns a deep copy; the variant owns its maps, context and centroid.
func (d *Document) Clone() *Document {
	c := *d
	c.Name = maps.Clone(d.Name)
	c.ExtraTags = maps.Clone(d.ExtraTags)
	c.Street = maps.Clone(d.Street)
	c.City = maps.Clone(d.City)
	c.Country = maps.Clone(d.Country)
	c.State = maps.Clone(d.State)
	c.Context = d.Context.Clone()
	if d.BBox != nil {
		b := *d.BBox
		c.BBox = &b
	}
	if d.Centroid != nil {
		p := *d.Centroid
		c.Centroid = &p
	}
	return &c
}
