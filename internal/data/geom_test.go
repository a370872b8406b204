package data

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestDecodeHstore(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]string
	}{
		{"empty column", "", map[string]string{}},
		{"names", `{"name":"Berlin","name:en":"Berlin"}`, map[string]string{"name": "Berlin", "name:en": "Berlin"}},
		{"truncated", `{"name":"Berlin",`, map[string]string{}},
		// json would keep "name" and fail on the number
		{"wrong value type", `{"name":"Berlin","admin_level":4}`, map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeHstore(tt.in))
		})
	}
}

func TestDecodeGeometry(t *testing.T) {
	assert.Nil(t, decodeGeometry(nil))
	assert.Nil(t, decodeGeometry([]byte{0x01, 0x02}))
	assert.Nil(t, decodePoint(mustWKB(t, orb.LineString{{0, 0}, {1, 1}})))

	p := decodePoint(mustWKB(t, orb.Point{8.5, 47.3}))
	if assert.NotNil(t, p) {
		assert.Equal(t, orb.Point{8.5, 47.3}, *p)
	}
	b := decodeBound(mustWKB(t, orb.LineString{{0, 1}, {2, 3}}))
	if assert.NotNil(t, b) {
		assert.Equal(t, orb.Bound{Min: orb.Point{0, 1}, Max: orb.Point{2, 3}}, *b)
	}
}
