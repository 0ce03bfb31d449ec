package wasmjit

// Memory represents WASM linear memory as seen by host code. Offsets are
// guest addresses; implementations bound every access against the
// committed region and report violations as errors rather than faulting.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current committed size of WASM linear memory
// in bytes.
type MemorySizer interface {
	Size() uint64
}
