package biz

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// AddressTerm 地址层级中的一行（place_addressline 关联 placex）。
type AddressTerm struct {
	AdminLevel  *int              // 行政等级，可为空
	PlaceID     int64             // 地址对象 place_id
	Name        map[string]string // 名称
	Class       string            // class
	Type        string            // type
	RankAddress int               // address rank
	Postcode    string            // 邮编
	Place       string            // extratags->'place'
	OSMType     string
	OSMID       int64
}

var (
	cityTypes         = []string{"city", "town", "village", "hamlet"}
	curatedCityPlaces = []string{"city", "town"}
)

func (a *AddressTerm) adminLevel() int {
	if a.AdminLevel == nil {
		return 0
	}
	return *a.AdminLevel
}

func (a *AddressTerm) IsCity() bool {
	return a.Class == "place" && a.RankAddress > 14 && slices.Contains(cityTypes, a.Type)
}

// IsCuratedCity 行政边界形式的城市（市级边界或带 place=city/town 的边界），
// 可能同时是州级单位，如城市州。
func (a *AddressTerm) IsCuratedCity() bool {
	if a.Class != "boundary" || a.Type != "administrative" {
		return false
	}
	return a.adminLevel() == 8 || slices.Contains(curatedCityPlaces, a.Place)
}

func (a *AddressTerm) IsStreet() bool {
	return a.RankAddress >= 26 && a.RankAddress < 28
}

func (a *AddressTerm) IsState() bool {
	if a.Class == "place" && a.Type == "state" {
		return true
	}
	return a.Class == "boundary" && a.Type == "administrative" && a.adminLevel() == 4
}

func (a *AddressTerm) HasPostcode() bool { return a.Postcode != "" }

func (a *AddressTerm) HasPlace() bool { return a.Place != "" }

func (a *AddressTerm) IsPostcode() bool {
	return (a.Class == "place" && a.Type == "postcode") ||
		(a.Class == "boundary" && a.Type == "postal_code")
}

func (a *AddressTerm) IsUsefulForContext() bool {
	return len(a.Name) > 0 && !a.IsPostcode()
}

// AddressRepo 地址层级读取。
type AddressRepo interface {
	// AddressTerms 按 rank_address DESC, fromarea DESC, distance ASC, rank_search DESC 返回。
	AddressTerms(ctx context.Context, placeID int64) ([]*AddressTerm, error)
	// PlaceTerm 将 placex 中的单个对象作为地址项返回，不存在时返回 nil。
	PlaceTerm(ctx context.Context, placeID int64) (*AddressTerm, error)
}

// AddressResolver 用地址层级补全文档的 postcode/city/street/state/context。
type AddressResolver struct {
	repo AddressRepo
}

func NewAddressResolver(repo AddressRepo) *AddressResolver {
	return &AddressResolver{repo: repo}
}

// Terms returns the hierarchy for doc; POIs resolve against their parent.
func (r *AddressResolver) Terms(ctx context.Context, doc *Document) ([]*AddressTerm, error) {
	isPOI := doc.RankSearch > 28
	anchor := doc.PlaceID
	if isPOI {
		anchor = doc.ParentPlaceID
	}
	terms, err := r.repo.AddressTerms(ctx, anchor)
	if err != nil {
		return nil, fmt.Errorf("address terms of %d: %w", anchor, err)
	}
	if isPOI {
		parent, err := r.repo.PlaceTerm(ctx, anchor)
		if err != nil {
			return nil, fmt.Errorf("parent term %d: %w", anchor, err)
		}
		if parent != nil {
			terms = append([]*AddressTerm{parent}, terms...)
		}
	}
	return terms, nil
}

// Complete fetches the hierarchy of doc and folds it in.
func (r *AddressResolver) Complete(ctx context.Context, doc *Document) error {
	terms, err := r.Terms(ctx, doc)
	if err != nil {
		return err
	}
	FoldAddress(doc, terms)
	return nil
}

// FoldAddress applies terms to doc in order, first match wins per field.
func FoldAddress(doc *Document, terms []*AddressTerm) {
	if doc.Context == nil {
		doc.Context = NewNameSet()
	}
	for _, a := range terms {
		if a.HasPostcode() && doc.Postcode == "" {
			doc.Postcode = a.Postcode
		}

		if a.IsCity() {
			switch {
			case doc.City == nil:
				doc.City = maps.Clone(a.Name)
			case a.HasPlace():
				doc.Context.Add(doc.City)
				doc.City = maps.Clone(a.Name)
			default:
				doc.Context.Add(a.Name)
			}
			continue
		}

		// curated cities fall through, they may be states too
		if a.IsCuratedCity() {
			if doc.City != nil {
				doc.Context.Add(doc.City)
			}
			doc.City = maps.Clone(a.Name)
		}

		if a.IsStreet() && doc.Street == nil {
			doc.Street = maps.Clone(a.Name)
			continue
		}

		if a.IsState() && doc.State == nil {
			doc.State = maps.Clone(a.Name)
			continue
		}

		if a.IsUsefulForContext() {
			doc.Context.Add(a.Name)
		}
	}
}
