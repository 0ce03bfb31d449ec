// Package runtime implements the linear-memory subsystem of a WebAssembly
// engine: sandboxed memory instances backed by large address-space
// reservations, per-compartment registries with a lock-free base-address
// table, and a process-wide ownership registry for fault classification.
//
// # Quick Start
//
//	c := runtime.NewCompartment()
//	defer c.Close()
//
//	mem, err := runtime.CreateMemory(c, runtime.MemoryType{MinPages: 1, MaxPages: 16})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	prev, err := mem.Grow(2) // commit two more pages; returns the old count
//	addr, err := mem.ValidateRange(0x1000, 8)
//	if err := mem.WriteU64(0x1000, 42); err != nil {
//	    log.Fatal(err)
//	}
//
// # Address-space reservation
//
// Every memory reserves a fixed 8 GiB range up front, plus one trailing
// guard page, and commits only a prefix of it. Any 32-bit index plus any
// 32-bit offset resolves inside the reservation, so generated code can
// omit explicit upper-bound checks: an access past the committed pages
// lands in reserved-but-uncommitted space and faults in hardware. The
// trap layer then calls IsAddressOwnedByMemory to tell a sandbox fault
// apart from host-process corruption.
//
// Because the reservation covers the full 32-bit range regardless of the
// type's maximum, Grow never moves the base address. A memory's base is
// fixed from creation to destruction.
//
// # Compartments
//
// A Compartment groups memories under one mutex and one id space. Ids are
// small integers that double as indexes into the compartment's
// base-address table, which the execution layer reads without taking any
// lock. Cloning a memory into another compartment preserves its id, so a
// compartment's full memory set can be duplicated with positionally
// identical ids.
//
// # Lifecycle
//
// A memory is created standalone, inserted into exactly one compartment,
// and torn down in two steps: Finalize unlinks it from the compartment
// while the instance is still alive, and Destroy then releases its pages
// and reservation. The two steps are always sequential, never concurrent.
// Compartment.Close performs both for every remaining memory.
//
// # Concurrency
//
// NumPages, ValidateRange, MemoryBase, and IsAddressOwnedByMemory are
// safe to call concurrently with everything else. Grow and Shrink on the
// same memory must be serialized by the caller; the package does not
// lock per-instance state on those paths.
//
// # Logging
//
// The package logs lifecycle events at Debug level through a zap logger,
// configured with SetLogger. The default is a no-op logger, and the
// validation and ownership paths never log.
package runtime
