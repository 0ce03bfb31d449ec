package runtime

import (
	"encoding/binary"
	"unsafe"

	wasmjit "github.com/BitEnterprise/wasm-jit-prototype"
	"github.com/BitEnterprise/wasm-jit-prototype/errors"
)

var (
	_ wasmjit.Memory      = (*Memory)(nil)
	_ wasmjit.MemorySizer = (*Memory)(nil)
)

// Host-side accessors. Unlike sandboxed code, which validates against the
// reservation and lets the guard region fault, host code is bounded
// against the committed region: a host read or write may never touch an
// uncommitted page. All multi-byte values are little-endian, matching
// WebAssembly's memory order.

// slice bounds [offset, offset+numBytes) against the committed region and
// returns it as a view. Callers pass values far below 1<<63, so the sum
// cannot wrap.
func (m *Memory) slice(offset, numBytes uint64) ([]byte, error) {
	committedBytes := m.numPages.Load() << PageSizeLog2
	if offset+numBytes > committedBytes {
		return nil, errors.HostAccessViolation(offset, numBytes, committedBytes)
	}
	if numBytes == 0 {
		return nil, nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(m.base.Load()+uintptr(offset))), numBytes), nil
}

// Size returns the committed size in bytes.
func (m *Memory) Size() uint64 {
	return m.numPages.Load() << PageSizeLog2
}

// Bytes returns the whole committed region as a byte slice aliasing the
// memory's pages, or nil when nothing is committed. The slice is
// invalidated by Shrink, UnmapPages, Finalize, and Destroy.
func (m *Memory) Bytes() []byte {
	n := m.numPages.Load() << PageSizeLog2
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(m.base.Load())), n)
}

// Read returns length bytes at offset as a view of the committed region,
// not a copy. The view is invalidated by Shrink, UnmapPages, Finalize,
// and Destroy.
func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	return m.slice(uint64(offset), uint64(length))
}

// Write copies data into the committed region at offset.
func (m *Memory) Write(offset uint32, data []byte) error {
	view, err := m.slice(uint64(offset), uint64(len(data)))
	if err != nil {
		return err
	}
	copy(view, data)
	return nil
}

// ReadU8 reads a byte at offset.
func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	view, err := m.slice(uint64(offset), 1)
	if err != nil {
		return 0, err
	}
	return view[0], nil
}

// ReadU16 reads a little-endian uint16 at offset.
func (m *Memory) ReadU16(offset uint32) (uint16, error) {
	view, err := m.slice(uint64(offset), 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(view), nil
}

// ReadU32 reads a little-endian uint32 at offset.
func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	view, err := m.slice(uint64(offset), 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(view), nil
}

// ReadU64 reads a little-endian uint64 at offset.
func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	view, err := m.slice(uint64(offset), 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(view), nil
}

// WriteU8 writes a byte at offset.
func (m *Memory) WriteU8(offset uint32, value uint8) error {
	view, err := m.slice(uint64(offset), 1)
	if err != nil {
		return err
	}
	view[0] = value
	return nil
}

// WriteU16 writes a little-endian uint16 at offset.
func (m *Memory) WriteU16(offset uint32, value uint16) error {
	view, err := m.slice(uint64(offset), 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(view, value)
	return nil
}

// WriteU32 writes a little-endian uint32 at offset.
func (m *Memory) WriteU32(offset uint32, value uint32) error {
	view, err := m.slice(uint64(offset), 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(view, value)
	return nil
}

// WriteU64 writes a little-endian uint64 at offset.
func (m *Memory) WriteU64(offset uint32, value uint64) error {
	view, err := m.slice(uint64(offset), 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(view, value)
	return nil
}
