package runtime

import "sync"

// Process-wide registry of live memories across all compartments. The
// mutex guards only this flat list; it is never held across a backend
// call or any operation that can fault, so IsAddressOwnedByMemory is
// safe to reach from a fault handler's restricted context.
var (
	memoriesMu sync.Mutex
	memories   []*Memory
)

func registerMemory(m *Memory) {
	memoriesMu.Lock()
	memories = append(memories, m)
	memoriesMu.Unlock()
}

func unregisterMemory(m *Memory) {
	memoriesMu.Lock()
	for i, cur := range memories {
		if cur == m {
			memories = append(memories[:i], memories[i+1:]...)
			break
		}
	}
	memoriesMu.Unlock()
}

// IsAddressOwnedByMemory reports whether addr falls inside the reserved
// range of any live memory, in any compartment. The trap layer uses it
// to classify a faulting address as a sandbox's guard or uncommitted
// space rather than an unrelated host fault. The scan only compares
// addresses; it does not log, allocate, or call the backend.
func IsAddressOwnedByMemory(addr uintptr) bool {
	memoriesMu.Lock()
	defer memoriesMu.Unlock()
	for _, m := range memories {
		base := m.base.Load()
		if base != 0 && addr >= base && addr < base+m.reservationSize {
			return true
		}
	}
	return false
}
