package biz

import (
	"maps"
	"slices"
	"strings"
)

// NameSet 无序、去重的名称映射集合（用于 context）。
type NameSet struct {
	items map[string]map[string]string
}

func NewNameSet() *NameSet {
	return &NameSet{items: make(map[string]map[string]string)}
}

// Add inserts a name mapping; equal mappings collapse into one entry.
func (s *NameSet) Add(name map[string]string) {
	if name == nil {
		return
	}
	k := nameKey(name)
	if _, ok := s.items[k]; ok {
		return
	}
	s.items[k] = maps.Clone(name)
}

func (s *NameSet) Contains(name map[string]string) bool {
	if s == nil {
		return false
	}
	_, ok := s.items[nameKey(name)]
	return ok
}

func (s *NameSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Names returns the mappings in a stable order.
func (s *NameSet) Names() []map[string]string {
	if s == nil {
		return nil
	}
	keys := slices.Sorted(maps.Keys(s.items))
	out := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.items[k])
	}
	return out
}

func (s *NameSet) Clone() *NameSet {
	c := NewNameSet()
	if s == nil {
		return c
	}
	for k, v := range s.items {
		c.items[k] = maps.Clone(v)
	}
	return c
}

func nameKey(name map[string]string) string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(name)) {
		b.WriteString(k)
		b.WriteByte('\x1f')
		b.WriteString(name[k])
		b.WriteByte('\x1e')
	}
	return b.String()
}
