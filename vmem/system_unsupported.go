//go:build !unix && !windows

package vmem

import "github.com/BitEnterprise/wasm-jit-prototype/errors"

var systemBackend Backend = unsupportedBackend{}

type unsupportedBackend struct{}

func (unsupportedBackend) PageSizeLog2() uint { return 12 }

func (unsupportedBackend) Reserve(numPages uint64) (uintptr, error) {
	return 0, errors.Unsupported(errors.PhaseReserve, "virtual memory is not supported on this platform")
}

func (unsupportedBackend) Commit(addr uintptr, numPages uint64) error {
	return errors.Unsupported(errors.PhaseCommit, "virtual memory is not supported on this platform")
}

func (unsupportedBackend) Decommit(addr uintptr, numPages uint64) {
	panic("vmem: decommit on unsupported platform")
}

func (unsupportedBackend) Release(addr uintptr, numPages uint64) {
	panic("vmem: release on unsupported platform")
}
