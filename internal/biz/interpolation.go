package biz

import (
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// maxInterpolationRange 单条插值线最多覆盖的门牌号跨度。
const maxInterpolationRange = 1000

// Interpolate 沿线等距推导 first 与 last 之间（不含两端）的门牌号位置。
// interpolationType 为 odd/even 时只产出对应奇偶的号码，否则产出全部整数。
func Interpolate(first, last int64, interpolationType string, geom orb.Geometry) map[string]orb.Point {
	if last <= first || last-first > maxInterpolationRange {
		return nil
	}
	line := newLengthIndexedLine(geom)
	if line == nil {
		return nil
	}

	step, num := int64(2), int64(1)
	switch interpolationType {
	case "odd":
		if first%2 != 0 {
			num++
		}
	case "even":
		if first%2 == 0 {
			num++
		}
	default:
		step = 1
	}

	lstep := line.length / float64(last-first)
	out := make(map[string]orb.Point)
	// first and last are separate OSM nodes, indexed on their own
	for ; first+num < last; num += step {
		out[strconv.FormatInt(first+num, 10)] = line.extractPoint(lstep * float64(num))
	}
	return out
}

// lengthIndexedLine parameterizes a (multi)line by planar length from its start.
type lengthIndexedLine struct {
	parts  []orb.LineString
	length float64
}

func newLengthIndexedLine(geom orb.Geometry) *lengthIndexedLine {
	var parts []orb.LineString
	switch g := geom.(type) {
	case orb.LineString:
		parts = []orb.LineString{g}
	case orb.MultiLineString:
		parts = g
	default:
		return nil
	}
	l := &lengthIndexedLine{}
	for _, ls := range parts {
		if len(ls) == 0 {
			continue
		}
		l.parts = append(l.parts, ls)
		l.length += planar.Length(ls)
	}
	if len(l.parts) == 0 {
		return nil
	}
	return l
}

func (l *lengthIndexedLine) extractPoint(index float64) orb.Point {
	if index <= 0 {
		return l.parts[0][0]
	}
	remaining := index
	for _, ls := range l.parts {
		for i := 1; i < len(ls); i++ {
			seg := planar.Distance(ls[i-1], ls[i])
			if remaining <= seg {
				if seg == 0 {
					return ls[i]
				}
				f := remaining / seg
				return orb.Point{
					ls[i-1][0] + f*(ls[i][0]-ls[i-1][0]),
					ls[i-1][1] + f*(ls[i][1]-ls[i-1][1]),
				}
			}
			remaining -= seg
		}
	}
	last := l.parts[len(l.parts)-1]
	return last[len(last)-1]
}
