// Package wasmjit provides the linear-memory foundation of a WebAssembly
// engine: reservation-backed sandbox memories whose bounds checks are
// elided through address-space layout rather than per-access arithmetic.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	wasmjit/             Root package with the host-facing Memory interfaces
//	├── runtime/         Memory instances, compartments, address ownership
//	├── vmem/            Virtual-memory backend (reserve/commit/decommit)
//	├── indexmap/        Id-indexed collection backing compartment registries
//	├── errors/          Structured error types for debugging
//	├── allocator/       wazero memory allocator backed by vmem reservations
//	└── cmd/memprobe/    CLI for exercising and inspecting live memories
//
// # Quick Start
//
// Create a compartment and a memory, then work with it:
//
//	c := runtime.NewCompartment()
//	defer c.Close()
//
//	mem, err := runtime.CreateMemory(c, runtime.MemoryType{MinPages: 1, MaxPages: 16})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := mem.WriteU32(0x100, 0xdeadbeef); err != nil {
//	    log.Fatal(err)
//	}
//	prev, err := mem.Grow(2)
//
// # The reservation trick
//
// Every memory reserves 8 GiB of address space and commits only what its
// current page count covers. A 32-bit index plus a 32-bit offset can
// never escape the reservation, so generated code needs no upper-bound
// compare: out-of-range accesses hit reserved-but-uncommitted pages and
// fault. runtime.IsAddressOwnedByMemory then classifies the faulting
// address, letting the engine turn sandbox guard hits into traps while
// leaving genuine host faults fatal.
package wasmjit
