// Package idmap records which destination message each forwarded source message became.
package idmap

// Map is a run-scoped, write-once mapping from source to destination message ids.
// It is owned by a single run and is not safe for concurrent use.
type Map struct {
	ids map[int]int
}

// New creates an empty map.
func New() *Map {
	return &Map{ids: make(map[int]int)}
}

// Get returns the destination id of a source message.
func (m *Map) Get(src int) (int, bool) {
	dst, ok := m.ids[src]

	return dst, ok
}

// Put records src -> dst. An existing entry is never overwritten; Put reports
// whether the entry was added. Zero ids are ignored.
func (m *Map) Put(src, dst int) bool {
	if src == 0 || dst == 0 {
		return false
	}

	if _, exists := m.ids[src]; exists {
		return false
	}

	m.ids[src] = dst

	return true
}

// PutAll maps every source id to the same destination id.
func (m *Map) PutAll(srcs []int, dst int) {
	for _, src := range srcs {
		m.Put(src, dst)
	}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.ids)
}
