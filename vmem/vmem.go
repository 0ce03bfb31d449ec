package vmem

// Backend provides page-granular virtual-memory management. All sizes are
// in backend pages of 1<<PageSizeLog2 bytes, and all addresses must be
// backend-page aligned.
//
// Implementations are safe for concurrent use: they hold no state beyond
// what the kernel tracks per mapping. Callers are responsible for never
// operating on overlapping ranges concurrently.
type Backend interface {
	// PageSizeLog2 returns the base-2 log of the backend page size.
	PageSizeLog2() uint

	// Reserve claims numPages of contiguous address space without
	// committing it. The returned address is backend-page aligned and
	// inaccessible until committed.
	Reserve(numPages uint64) (uintptr, error)

	// Commit makes numPages starting at addr readable and writable.
	// The range must lie within a reservation. Newly committed pages
	// read as zero.
	Commit(addr uintptr, numPages uint64) error

	// Decommit returns numPages starting at addr to the reserved,
	// inaccessible state, discarding their contents. The range must be
	// committed. Panics if the host refuses.
	Decommit(addr uintptr, numPages uint64)

	// Release unmaps an entire reservation previously returned by
	// Reserve. addr and numPages must match the original reservation.
	// Panics if the host refuses.
	Release(addr uintptr, numPages uint64)
}

// System returns the host backend for this platform. On platforms
// without virtual-memory support its Reserve and Commit always fail
// with an errors.KindUnsupported error.
func System() Backend { return systemBackend }

// PagesToBytes converts a page count to a byte count for the given page
// size.
func PagesToBytes(numPages uint64, pageSizeLog2 uint) uint64 {
	return numPages << pageSizeLog2
}

// BytesToPages converts a byte count to the number of pages needed to
// hold it, rounding up.
func BytesToPages(numBytes uint64, pageSizeLog2 uint) uint64 {
	return (numBytes + (1<<pageSizeLog2 - 1)) >> pageSizeLog2
}
