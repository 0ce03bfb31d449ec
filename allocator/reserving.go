// Package allocator integrates the module's reservation discipline with
// wazero: memories allocated through it reserve their maximum size up
// front and commit pages on demand, so a growing wazero memory never
// moves its base address.
package allocator

import (
	"errors"
	"unsafe"

	"github.com/tetratelabs/wazero/experimental"

	memerrors "github.com/BitEnterprise/wasm-jit-prototype/errors"
	"github.com/BitEnterprise/wasm-jit-prototype/vmem"
)

var errInvalidReallocation = errors.New("allocator: invalid memory reallocation")

// NewReserving returns a wazero memory allocator whose memories reserve
// their maximum size plus one guard page through backend. A nil backend
// selects vmem.System().
//
// Install it with experimental.WithMemoryAllocator:
//
//	ctx = experimental.WithMemoryAllocator(ctx, allocator.NewReserving(nil))
func NewReserving(backend vmem.Backend) experimental.MemoryAllocator {
	if backend == nil {
		backend = vmem.System()
	}
	return reservingAllocator{backend: backend}
}

type reservingAllocator struct {
	backend vmem.Backend
}

// Allocate reserves address space for max bytes. Committing happens in
// Reallocate; wazero calls it with the initial size right after.
func (a reservingAllocator) Allocate(_, max uint64) experimental.LinearMemory {
	log2 := a.backend.PageSizeLog2()
	numPages := vmem.BytesToPages(max, log2)

	// One trailing guard page, excluded from the usable slice.
	base, err := a.backend.Reserve(numPages + 1)
	if err != nil {
		panic(memerrors.ReservationExhausted(memerrors.PhaseReserve, numPages+1, err))
	}

	full := unsafe.Slice((*byte)(unsafe.Pointer(base)), vmem.PagesToBytes(numPages, log2))
	return &reservedMemory{
		backend:       a.backend,
		base:          base,
		reservedPages: numPages + 1,
		buf:           full[:0],
		max:           max,
	}
}

// The slice covers the usable reservation:
//   - len(buf) is the already committed memory,
//   - cap(buf) is the reserved space excluding the guard page.
type reservedMemory struct {
	backend       vmem.Backend
	base          uintptr
	reservedPages uint64
	buf           []byte
	max           uint64
}

func (m *reservedMemory) Reallocate(size uint64) []byte {
	if size > m.max {
		panic(errInvalidReallocation)
	}

	log2 := m.backend.PageSizeLog2()
	committed := uint64(len(m.buf))
	if committed < size {
		// Commit whole pages up to size. committed is always a page
		// multiple, so the page counts subtract cleanly.
		fromPage := committed >> log2
		toPage := vmem.BytesToPages(size, log2)
		if err := m.backend.Commit(m.base+uintptr(fromPage)<<log2, toPage-fromPage); err != nil {
			panic(memerrors.CommitFailed(memerrors.PhaseCommit, toPage-fromPage, err))
		}
		m.buf = m.buf[:vmem.PagesToBytes(toPage, log2)]
	}
	// Limit returned capacity because bytes beyond len(m.buf) have not
	// been committed.
	return m.buf[:size:len(m.buf)]
}

func (m *reservedMemory) Free() {
	if m.base == 0 {
		return
	}
	m.backend.Release(m.base, m.reservedPages)
	m.base = 0
	m.buf = nil
}
