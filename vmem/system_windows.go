//go:build windows

package vmem

import (
	"fmt"
	"math/bits"
	"syscall"

	"golang.org/x/sys/windows"
)

var systemBackend Backend = &virtualAllocBackend{
	pageSizeLog2: uint(bits.TrailingZeros(uint(syscall.Getpagesize()))),
}

// virtualAllocBackend implements Backend with VirtualAlloc/VirtualFree.
// Reservations use PAGE_NOACCESS so uncommitted pages fault on access.
type virtualAllocBackend struct {
	pageSizeLog2 uint
}

func (b *virtualAllocBackend) PageSizeLog2() uint { return b.pageSizeLog2 }

func (b *virtualAllocBackend) Reserve(numPages uint64) (uintptr, error) {
	size := uintptr(numPages) << b.pageSizeLog2
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return 0, fmt.Errorf("vmem: reserve %d pages: %w", numPages, err)
	}
	return addr, nil
}

func (b *virtualAllocBackend) Commit(addr uintptr, numPages uint64) error {
	size := uintptr(numPages) << b.pageSizeLog2
	if _, err := windows.VirtualAlloc(addr, size, windows.MEM_COMMIT, windows.PAGE_READWRITE); err != nil {
		return fmt.Errorf("vmem: commit %d pages: %w", numPages, err)
	}
	return nil
}

func (b *virtualAllocBackend) Decommit(addr uintptr, numPages uint64) {
	size := uintptr(numPages) << b.pageSizeLog2
	if err := windows.VirtualFree(addr, size, windows.MEM_DECOMMIT); err != nil {
		panic(fmt.Sprintf("vmem: decommit %d pages at %#x: %v", numPages, addr, err))
	}
}

// Release frees the whole allocation starting at addr. VirtualFree with
// MEM_RELEASE requires a zero size, so numPages is not passed through.
func (b *virtualAllocBackend) Release(addr uintptr, numPages uint64) {
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		panic(fmt.Sprintf("vmem: release at %#x: %v", addr, err))
	}
}
