//go:build unix

package vmem

import (
	"fmt"
	"math/bits"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

var systemBackend Backend = &mmapBackend{
	pageSizeLog2: uint(bits.TrailingZeros(uint(syscall.Getpagesize()))),
}

// mmapBackend implements Backend with anonymous private mappings.
// Reservations are PROT_NONE, so uncommitted pages fault on access.
//
// Addresses handled here come from the kernel's mmap, never from the Go
// heap, so converting them through unsafe.Pointer does not interact with
// the garbage collector.
type mmapBackend struct {
	pageSizeLog2 uint
}

func (b *mmapBackend) PageSizeLog2() uint { return b.pageSizeLog2 }

func (b *mmapBackend) Reserve(numPages uint64) (uintptr, error) {
	length := uintptr(numPages) << b.pageSizeLog2
	p, err := unix.MmapPtr(-1, 0, nil, length, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, fmt.Errorf("vmem: reserve %d pages: %w", numPages, err)
	}
	return uintptr(p), nil
}

func (b *mmapBackend) Commit(addr uintptr, numPages uint64) error {
	buf := unsafe.Slice((*byte)(unsafe.Pointer(addr)), uintptr(numPages)<<b.pageSizeLog2)
	if err := unix.Mprotect(buf, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("vmem: commit %d pages: %w", numPages, err)
	}
	return nil
}

// Decommit replaces the range with a fresh PROT_NONE mapping rather than
// calling mprotect, so the kernel frees the backing pages instead of
// merely protecting them. A later Commit of the same range sees zeroes.
func (b *mmapBackend) Decommit(addr uintptr, numPages uint64) {
	length := uintptr(numPages) << b.pageSizeLog2
	_, err := unix.MmapPtr(-1, 0, unsafe.Pointer(addr), length, unix.PROT_NONE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_FIXED)
	if err != nil {
		panic(fmt.Sprintf("vmem: decommit %d pages at %#x: %v", numPages, addr, err))
	}
}

func (b *mmapBackend) Release(addr uintptr, numPages uint64) {
	length := uintptr(numPages) << b.pageSizeLog2
	if err := unix.MunmapPtr(unsafe.Pointer(addr), length); err != nil {
		panic(fmt.Sprintf("vmem: release %d pages at %#x: %v", numPages, addr, err))
	}
}
