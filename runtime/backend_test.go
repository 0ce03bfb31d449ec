package runtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/BitEnterprise/wasm-jit-prototype/vmem"
)

var errInjected = fmt.Errorf("injected backend failure")

// testBackend wraps the system backend, recording reservation and
// per-page commit state and optionally injecting failures. Recording the
// commit state lets tests verify decommits without touching pages that
// are no longer mapped.
type testBackend struct {
	inner vmem.Backend

	mu            sync.Mutex
	reserveBudget int // -1 = unlimited, otherwise remaining successful reserves
	failCommit    bool
	reserved      map[uintptr]uint64 // reservation base -> page count
	committed     map[uintptr]bool   // backend page address -> committed
}

func newTestBackend() *testBackend {
	return &testBackend{
		inner:         vmem.System(),
		reserveBudget: -1,
		reserved:      make(map[uintptr]uint64),
		committed:     make(map[uintptr]bool),
	}
}

func (b *testBackend) PageSizeLog2() uint { return b.inner.PageSizeLog2() }

func (b *testBackend) Reserve(numPages uint64) (uintptr, error) {
	b.mu.Lock()
	if b.reserveBudget == 0 {
		b.mu.Unlock()
		return 0, errInjected
	}
	if b.reserveBudget > 0 {
		b.reserveBudget--
	}
	b.mu.Unlock()

	addr, err := b.inner.Reserve(numPages)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	b.reserved[addr] = numPages
	b.mu.Unlock()
	return addr, nil
}

func (b *testBackend) Commit(addr uintptr, numPages uint64) error {
	b.mu.Lock()
	fail := b.failCommit
	b.mu.Unlock()
	if fail {
		return errInjected
	}
	if err := b.inner.Commit(addr, numPages); err != nil {
		return err
	}
	b.mu.Lock()
	for i := uint64(0); i < numPages; i++ {
		b.committed[addr+uintptr(i)<<b.inner.PageSizeLog2()] = true
	}
	b.mu.Unlock()
	return nil
}

func (b *testBackend) Decommit(addr uintptr, numPages uint64) {
	b.inner.Decommit(addr, numPages)
	b.mu.Lock()
	for i := uint64(0); i < numPages; i++ {
		delete(b.committed, addr+uintptr(i)<<b.inner.PageSizeLog2())
	}
	b.mu.Unlock()
}

func (b *testBackend) Release(addr uintptr, numPages uint64) {
	b.inner.Release(addr, numPages)
	b.mu.Lock()
	delete(b.reserved, addr)
	size := uintptr(numPages) << b.inner.PageSizeLog2()
	for page := range b.committed {
		if page >= addr && page < addr+size {
			delete(b.committed, page)
		}
	}
	b.mu.Unlock()
}

// committedRange reports whether every backend page in
// [addr, addr+numBytes) is recorded as committed.
func (b *testBackend) committedRange(addr uintptr, numBytes uint64) bool {
	pageSize := uintptr(1) << b.inner.PageSizeLog2()
	b.mu.Lock()
	defer b.mu.Unlock()
	for p := addr; p < addr+uintptr(numBytes); p += pageSize {
		if !b.committed[p] {
			return false
		}
	}
	return true
}

// decommittedRange reports whether no backend page in
// [addr, addr+numBytes) is recorded as committed.
func (b *testBackend) decommittedRange(addr uintptr, numBytes uint64) bool {
	pageSize := uintptr(1) << b.inner.PageSizeLog2()
	b.mu.Lock()
	defer b.mu.Unlock()
	for p := addr; p < addr+uintptr(numBytes); p += pageSize {
		if b.committed[p] {
			return false
		}
	}
	return true
}

func (b *testBackend) numReservations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reserved)
}

func (b *testBackend) setReserveBudget(n int) {
	b.mu.Lock()
	b.reserveBudget = n
	b.mu.Unlock()
}

func (b *testBackend) setFailCommit(fail bool) {
	b.mu.Lock()
	b.failCommit = fail
	b.mu.Unlock()
}

func newTestCompartment(t *testing.T) (*Compartment, *testBackend) {
	t.Helper()
	tb := newTestBackend()
	c := NewCompartmentWithConfig(&CompartmentConfig{Backend: tb})
	t.Cleanup(c.Close)
	return c, tb
}

func mustCreate(t *testing.T, c *Compartment, typ MemoryType) *Memory {
	t.Helper()
	m, err := CreateMemory(c, typ)
	if err != nil {
		t.Fatalf("CreateMemory(%+v): %v", typ, err)
	}
	return m
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}
