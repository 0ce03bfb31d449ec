package indexmap

type entry[T any] struct {
	value T
	live  bool
}

// Map assigns small stable integer ids to values of type T.
// The zero Map is not usable; construct with New.
type Map[T any] struct {
	entries  []entry[T]
	freeList []uint32
	capacity int
	count    int
}

// New creates a map that will hand out at most capacity ids, 0 through
// capacity-1.
func New[T any](capacity int) *Map[T] {
	return &Map[T]{
		capacity: capacity,
	}
}

// Add stores v under the next free id and returns it.
// Returns false when all ids are in use.
func (m *Map[T]) Add(v T) (uint32, bool) {
	if m.count == m.capacity {
		return 0, false
	}

	if n := len(m.freeList); n > 0 {
		id := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		m.entries[id] = entry[T]{value: v, live: true}
		m.count++
		return id, true
	}

	id := uint32(len(m.entries))
	m.entries = append(m.entries, entry[T]{value: v, live: true})
	m.count++
	return id, true
}

// InsertAt stores v under a caller-chosen id.
// Returns false if the id is outside the map's capacity or already live;
// the map is unchanged in that case.
func (m *Map[T]) InsertAt(id uint32, v T) bool {
	if int(id) >= m.capacity {
		return false
	}

	if int(id) < len(m.entries) {
		if m.entries[id].live {
			return false
		}
		// The slot is on the free list; unlink it.
		for i, free := range m.freeList {
			if free == id {
				m.freeList = append(m.freeList[:i], m.freeList[i+1:]...)
				break
			}
		}
		m.entries[id] = entry[T]{value: v, live: true}
		m.count++
		return true
	}

	// Grow the dense region up to id, parking the skipped slots on the
	// free list so Add can still find them.
	for next := uint32(len(m.entries)); next < id; next++ {
		m.entries = append(m.entries, entry[T]{})
		m.freeList = append(m.freeList, next)
	}
	m.entries = append(m.entries, entry[T]{value: v, live: true})
	m.count++
	return true
}

// Get returns the value stored under id.
func (m *Map[T]) Get(id uint32) (T, bool) {
	if int(id) >= len(m.entries) || !m.entries[id].live {
		var zero T
		return zero, false
	}
	return m.entries[id].value, true
}

// Remove deletes the value stored under id and returns it.
// The id becomes eligible for reuse by a later Add.
func (m *Map[T]) Remove(id uint32) (T, bool) {
	if int(id) >= len(m.entries) || !m.entries[id].live {
		var zero T
		return zero, false
	}

	v := m.entries[id].value
	m.entries[id] = entry[T]{}
	m.freeList = append(m.freeList, id)
	m.count--
	return v, true
}

// Len returns the number of live entries.
func (m *Map[T]) Len() int {
	return m.count
}

// Capacity returns the maximum number of ids the map can hand out.
func (m *Map[T]) Capacity() int {
	return m.capacity
}

// Each calls fn for every live entry in ascending id order until fn
// returns false.
func (m *Map[T]) Each(fn func(id uint32, v T) bool) {
	for id := range m.entries {
		if m.entries[id].live {
			if !fn(uint32(id), m.entries[id].value) {
				return
			}
		}
	}
}
