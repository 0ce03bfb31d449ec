package runtime

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/BitEnterprise/wasm-jit-prototype/errors"
	"github.com/BitEnterprise/wasm-jit-prototype/vmem"
)

const (
	// PageSizeLog2 is the base-2 log of the WebAssembly page size.
	PageSizeLog2 = 16
	// PageSize is the WebAssembly page size in bytes.
	PageSize = 1 << PageSizeLog2
	// MaxMemoryPages is the page count that covers the full 32-bit index
	// space; no memory type may declare a larger maximum.
	MaxMemoryPages = 1 << (32 - PageSizeLog2)
)

// MemoryType declares a memory's size bounds in WebAssembly pages. It is
// fixed at creation time.
type MemoryType struct {
	MinPages uint64
	MaxPages uint64
}

func (t MemoryType) validate() error {
	if t.MinPages > t.MaxPages {
		return errors.LimitExceeded(errors.PhaseCreate,
			"min pages %d exceeds max pages %d", t.MinPages, t.MaxPages)
	}
	if t.MaxPages > MaxMemoryPages {
		return errors.LimitExceeded(errors.PhaseCreate,
			"max pages %d exceeds the addressable limit of %d", t.MaxPages, MaxMemoryPages)
	}
	return nil
}

// Memory is one sandboxed linear memory: an exclusively owned 8 GiB
// address-space reservation of which the first NumPages pages are
// committed. The base address never changes between creation and
// destruction.
//
// Concurrent Grow and Shrink calls on the same Memory must be serialized
// by the caller; every reader-facing method is safe without that.
type Memory struct {
	id          uint32
	compartment *Compartment
	typ         MemoryType
	backend     vmem.Backend

	// base is atomic so the ownership scan and ValidateRange can read it
	// without taking any lock. It is written at creation and zeroed at
	// destruction, never reassigned in between.
	base            atomic.Uintptr
	reservationSize uintptr
	numPages        atomic.Uint64
}

// wasmToBackendPages converts a count of WebAssembly pages to backend
// pages. Backend pages are never larger than wasm pages, which
// NewCompartmentWithConfig enforces.
func wasmToBackendPages(numWasmPages uint64, backendPageSizeLog2 uint) uint64 {
	return numWasmPages << (PageSizeLog2 - backendPageSizeLog2)
}

// reserveBackendPages returns the size of the full mapping in backend
// pages: the fixed reservation plus one trailing guard page.
func reserveBackendPages(backendPageSizeLog2 uint) uint64 {
	return vmem.BytesToPages(reservationBytes, backendPageSizeLog2) + 1
}

// newMemory reserves address space for a memory and commits its first
// numCommitPages pages. The instance is registered globally but not yet
// inserted into any compartment. On failure nothing is left behind.
func newMemory(c *Compartment, t MemoryType, numCommitPages uint64, phase errors.Phase) (*Memory, error) {
	backend := c.backend
	backendPageLog2 := backend.PageSizeLog2()

	numReservePages := reserveBackendPages(backendPageLog2)
	base, err := backend.Reserve(numReservePages)
	if err != nil {
		return nil, errors.ReservationExhausted(phase, numReservePages, err)
	}

	m := &Memory{
		compartment:     c,
		typ:             t,
		backend:         backend,
		reservationSize: reservationBytes,
	}
	m.base.Store(base)

	if numCommitPages > 0 {
		if err := backend.Commit(base, wasmToBackendPages(numCommitPages, backendPageLog2)); err != nil {
			backend.Release(base, numReservePages)
			m.base.Store(0)
			return nil, errors.CommitFailed(phase, numCommitPages, err)
		}
		m.numPages.Store(numCommitPages)
	}

	registerMemory(m)
	return m, nil
}

// CreateMemory creates a memory of type t, commits its MinPages, and
// inserts it into c under a freshly assigned id. On any failure no
// instance is observable anywhere.
func CreateMemory(c *Compartment, t MemoryType) (*Memory, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	m, err := newMemory(c, t, t.MinPages, errors.PhaseCreate)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	id, ok := c.memories.Add(m)
	if !ok {
		c.mu.Unlock()
		m.Destroy()
		return nil, errors.IndexExhausted(errors.PhaseCreate, c.memories.Capacity())
	}
	m.id = id
	c.memoryBases[id].Store(m.base.Load())
	c.mu.Unlock()

	Logger().Debug("memory created",
		zap.Uint32("id", m.id),
		zap.Uint64("pages", t.MinPages),
		zap.Uint64("maxPages", t.MaxPages))
	return m, nil
}

// CloneMemory creates a memory in target with the same type and the same
// current page count as m, registered under the id m holds in its own
// compartment. The clone owns a fresh reservation; committed byte
// contents are not copied.
//
// The id slot must be free in target; a clone into an occupied slot is a
// contract violation and panics. The caller must ensure m is not
// concurrently grown, shrunk, or finalized.
func CloneMemory(m *Memory, target *Compartment) (*Memory, error) {
	clone, err := newMemory(target, m.typ, m.NumPages(), errors.PhaseClone)
	if err != nil {
		return nil, err
	}

	target.mu.Lock()
	clone.id = m.id
	if !target.memories.InsertAt(clone.id, clone) {
		target.mu.Unlock()
		clone.Destroy()
		panic(fmt.Sprintf("runtime: memory id %d is already occupied in the target compartment", m.id))
	}
	target.memoryBases[clone.id].Store(clone.base.Load())
	target.mu.Unlock()

	Logger().Debug("memory cloned",
		zap.Uint32("id", clone.id),
		zap.Uint64("pages", clone.NumPages()))
	return clone, nil
}

// Finalize removes m from its owning compartment: the id mapping is
// deleted and the base-address table slot zeroed, while the instance
// itself stays alive. Must be called exactly once, before Destroy, and
// only while the compartment still exists. Panics if the compartment's
// slot does not hold m.
func (m *Memory) Finalize() {
	c := m.compartment
	c.mu.Lock()
	if cur, ok := c.memories.Get(m.id); !ok || cur != m {
		c.mu.Unlock()
		panic(fmt.Sprintf("runtime: finalize of memory not registered under id %d", m.id))
	}
	c.memories.Remove(m.id)
	c.memoryBases[m.id].Store(0)
	c.mu.Unlock()

	Logger().Debug("memory finalized", zap.Uint32("id", m.id))
}

// Destroy decommits m's committed pages, releases the whole reservation
// including the guard page, and removes m from the global ownership
// registry. For a memory that was inserted into a compartment, Finalize
// must have completed first; destroying while the compartment still maps
// the instance is a contract violation and panics.
func (m *Memory) Destroy() {
	c := m.compartment
	c.mu.Lock()
	cur, ok := c.memories.Get(m.id)
	c.mu.Unlock()
	if ok && cur == m {
		panic(fmt.Sprintf("runtime: destroy of memory %d before finalize", m.id))
	}

	base := m.base.Load()
	if base != 0 {
		backendPageLog2 := m.backend.PageSizeLog2()
		if n := m.numPages.Load(); n > 0 {
			m.backend.Decommit(base, wasmToBackendPages(n, backendPageLog2))
		}
		m.backend.Release(base, reserveBackendPages(backendPageLog2))
		m.base.Store(0)
	}
	unregisterMemory(m)

	Logger().Debug("memory destroyed", zap.Uint32("id", m.id))
}

// Grow commits numNewPages additional pages at the end of the committed
// region and returns the page count from before the call. Growing by 0
// always succeeds. On failure the committed size is unchanged.
func (m *Memory) Grow(numNewPages uint64) (uint64, error) {
	previousNumPages := m.numPages.Load()
	if numNewPages == 0 {
		return previousNumPages, nil
	}

	// Headroom is checked by subtraction so the comparison cannot wrap.
	if numNewPages > m.typ.MaxPages || previousNumPages > m.typ.MaxPages-numNewPages {
		return 0, errors.LimitExceeded(errors.PhaseGrow,
			"growing by %d pages from %d exceeds max %d", numNewPages, previousNumPages, m.typ.MaxPages)
	}

	addr := m.base.Load() + uintptr(previousNumPages)<<PageSizeLog2
	if err := m.backend.Commit(addr, wasmToBackendPages(numNewPages, m.backend.PageSizeLog2())); err != nil {
		return 0, errors.CommitFailed(errors.PhaseGrow, numNewPages, err)
	}

	m.numPages.Store(previousNumPages + numNewPages)
	return previousNumPages, nil
}

// Shrink decommits numPagesToShrink pages from the end of the committed
// region and returns the page count from before the call. Shrinking by 0
// always succeeds. On failure the committed size is unchanged.
func (m *Memory) Shrink(numPagesToShrink uint64) (uint64, error) {
	previousNumPages := m.numPages.Load()
	if numPagesToShrink == 0 {
		return previousNumPages, nil
	}

	if numPagesToShrink > previousNumPages || previousNumPages-numPagesToShrink < m.typ.MinPages {
		return 0, errors.LimitExceeded(errors.PhaseShrink,
			"shrinking by %d pages from %d would drop below min %d", numPagesToShrink, previousNumPages, m.typ.MinPages)
	}

	newNumPages := previousNumPages - numPagesToShrink
	m.numPages.Store(newNumPages)
	m.backend.Decommit(m.base.Load()+uintptr(newNumPages)<<PageSizeLog2,
		wasmToBackendPages(numPagesToShrink, m.backend.PageSizeLog2()))
	return previousNumPages, nil
}

// UnmapPages decommits numPages pages starting at pageIndex without
// changing the committed-page accounting. The range must lie strictly
// inside the committed region, not touching its upper bound; violating
// that is a contract violation and panics. The caller must not let the
// pages be accessed again before they are re-committed.
func (m *Memory) UnmapPages(pageIndex, numPages uint64) {
	committed := m.numPages.Load()
	end := pageIndex + numPages
	if numPages == 0 || end < pageIndex || end >= committed {
		panic(fmt.Sprintf("runtime: unmap of pages [%d, %d) not strictly inside %d committed pages",
			pageIndex, end, committed))
	}
	m.backend.Decommit(m.base.Load()+uintptr(pageIndex)<<PageSizeLog2,
		wasmToBackendPages(numPages, m.backend.PageSizeLog2()))
}

// ValidateRange resolves [offset, offset+numBytes) against m's reserved
// range and returns the host address of its first byte. The check is
// against the reservation, not the committed size: a range past the
// committed pages still validates and faults in hardware when accessed,
// which is the backstop the guard region exists for. Takes no locks and
// never logs; safe on a nil or destroyed receiver, which fails.
func (m *Memory) ValidateRange(offset, numBytes uint64) (uintptr, error) {
	if m == nil {
		return 0, errors.AccessViolation(offset, numBytes)
	}
	base := m.base.Load()
	if base == 0 {
		return 0, errors.AccessViolation(offset, numBytes)
	}

	// Saturate the offset before adding so the sum cannot wrap.
	saturated := offset
	if saturated > uint64(m.reservationSize) {
		saturated = uint64(m.reservationSize)
	}
	addr := base + uintptr(saturated)
	end := addr + uintptr(numBytes)
	if addr < base || end < addr || end > base+m.reservationSize {
		return 0, errors.AccessViolation(offset, numBytes)
	}
	return addr, nil
}

// ID returns the id assigned at insertion into the owning compartment.
func (m *Memory) ID() uint32 { return m.id }

// NumPages returns the committed page count. Safe to call concurrently
// with Grow and Shrink.
func (m *Memory) NumPages() uint64 { return m.numPages.Load() }

// MinPages returns the type's minimum page count.
func (m *Memory) MinPages() uint64 { return m.typ.MinPages }

// MaxPages returns the type's maximum page count.
func (m *Memory) MaxPages() uint64 { return m.typ.MaxPages }

// Type returns the memory's type.
func (m *Memory) Type() MemoryType { return m.typ }

// Base returns the start of the reserved range, or 0 after Destroy.
func (m *Memory) Base() uintptr { return m.base.Load() }

// ReservationSize returns the size of the reserved range in bytes,
// excluding the trailing guard page.
func (m *Memory) ReservationSize() uintptr { return m.reservationSize }
