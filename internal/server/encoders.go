package server

import (
	"maps"

	"nominatim-indexer/internal/biz"
	"nominatim-indexer/internal/service"

	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// encodeGeoJSON 将 lookup 结果编码为 FeatureCollection，其余响应走默认编码。
func encodeGeoJSON(w http.ResponseWriter, r *http.Request, v any) error {
	reply, ok := v.(*service.LookupReply)
	if !ok {
		return http.DefaultResponseEncoder(w, r, v)
	}
	fc := lookupFeatureCollection(reply)
	body, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, err = w.Write(body)
	return err
}

func lookupFeatureCollection(reply *service.LookupReply) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, doc := range reply.Docs() {
		f := geojson.NewFeature(docGeometry(doc))
		if doc.BBox != nil {
			f.BBox = geojson.NewBBox(*doc.BBox)
		}
		if i < len(reply.Documents) {
			f.Properties = maps.Clone(reply.Documents[i])
			delete(f.Properties, "coordinate")
			delete(f.Properties, "extent")
		}
		fc.Append(f)
	}
	return fc
}

func docGeometry(doc *biz.Document) orb.Geometry {
	if doc.Centroid != nil {
		return *doc.Centroid
	}
	if doc.BBox != nil {
		return doc.BBox.Center()
	}
	return nil
}
