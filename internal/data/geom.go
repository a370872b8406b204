package data

import (
	"encoding/json"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// decodeGeometry 解析 ST_AsBinary 输出；为空或损坏时返回 nil，不中断扫描。
func decodeGeometry(b []byte) orb.Geometry {
	if len(b) == 0 {
		return nil
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return nil
	}
	return g
}

func decodePoint(b []byte) *orb.Point {
	p, ok := decodeGeometry(b).(orb.Point)
	if !ok {
		return nil
	}
	return &p
}

func decodeBound(b []byte) *orb.Bound {
	g := decodeGeometry(b)
	if g == nil {
		return nil
	}
	bound := g.Bound()
	return &bound
}

// decodeHstore 解析 hstore_to_json 的输出；损坏时整列置空，不保留部分结果。
func decodeHstore(s string) map[string]string {
	m := map[string]string{}
	if s == "" {
		return m
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		log.Debugf("decode hstore %q: %v", s, err)
		return map[string]string{}
	}
	return m
}
