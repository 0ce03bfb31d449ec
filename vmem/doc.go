// Package vmem abstracts the host's virtual-memory primitives behind a
// page-granular Backend: reserve address space without committing it,
// commit and decommit page runs inside a reservation, and release the
// reservation as a whole.
//
// The distinction between reserving and committing is what the memory
// subsystem is built on. A reservation claims a contiguous address range
// that no other mapping can occupy but consumes no memory; committing a
// prefix of it makes those pages readable and writable. Touching reserved
// but uncommitted space faults, which the runtime layer relies on for its
// guard regions.
//
// # Platform support
//
//	unix     mmap(PROT_NONE) to reserve, mprotect to commit, a fresh
//	         MAP_FIXED PROT_NONE mapping to decommit, munmap to release
//	windows  VirtualAlloc MEM_RESERVE/MEM_COMMIT, VirtualFree
//	other    a stub whose Reserve always fails
//
// Backend sizes are expressed in the backend's own pages (PageSizeLog2),
// not WebAssembly pages; callers convert.
//
// # Failure contract
//
// Only Reserve and Commit may fail: the first when address space is
// exhausted, the second when the host cannot back the pages. Decommit and
// Release operate on space the backend already granted and are defined to
// succeed; a syscall error there indicates state corruption and panics.
package vmem
