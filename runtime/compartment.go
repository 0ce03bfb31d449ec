package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/BitEnterprise/wasm-jit-prototype/indexmap"
	"github.com/BitEnterprise/wasm-jit-prototype/vmem"
)

// MaxMemories is the number of memory id slots per compartment; ids run
// in [0, MaxMemories) and index the base-address table directly.
const MaxMemories = 256

// Compartment groups memories under one mutex and one id space. The
// base-address table is read lock-free by the execution layer; the id map
// and all table writes are guarded by the mutex.
type Compartment struct {
	mu          sync.Mutex
	memories    *indexmap.Map[*Memory]
	memoryBases [MaxMemories]atomic.Uintptr
	backend     vmem.Backend
}

// CompartmentConfig configures a compartment. The zero value selects the
// system virtual-memory backend.
type CompartmentConfig struct {
	// Backend supplies virtual memory for the compartment's memories.
	// Nil means vmem.System().
	Backend vmem.Backend
}

// NewCompartment creates a compartment backed by the system
// virtual-memory backend.
func NewCompartment() *Compartment {
	return NewCompartmentWithConfig(nil)
}

// NewCompartmentWithConfig creates a compartment with explicit
// configuration. Panics if the backend's pages are larger than the
// WebAssembly page size, since page-count conversion relies on wasm
// pages being whole multiples of backend pages.
func NewCompartmentWithConfig(cfg *CompartmentConfig) *Compartment {
	backend := vmem.System()
	if cfg != nil && cfg.Backend != nil {
		backend = cfg.Backend
	}
	if backend.PageSizeLog2() > PageSizeLog2 {
		panic(fmt.Sprintf("runtime: backend page size 1<<%d exceeds the wasm page size 1<<%d",
			backend.PageSizeLog2(), PageSizeLog2))
	}
	return &Compartment{
		memories: indexmap.New[*Memory](MaxMemories),
		backend:  backend,
	}
}

// Memory returns the memory registered under id.
func (c *Compartment) Memory(id uint32) (*Memory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memories.Get(id)
}

// MemoryBase returns the base address of the memory registered under id,
// or 0 for an empty slot. It reads the base-address table without taking
// the compartment lock; this is the execution layer's address-resolution
// path.
func (c *Compartment) MemoryBase(id uint32) uintptr {
	if id >= MaxMemories {
		return 0
	}
	return c.memoryBases[id].Load()
}

// NumMemories returns the number of memories currently registered.
func (c *Compartment) NumMemories() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memories.Len()
}

// Memories returns a snapshot of the registered memories in id order.
func (c *Compartment) Memories() []*Memory {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Memory, 0, c.memories.Len())
	c.memories.Each(func(_ uint32, m *Memory) bool {
		out = append(out, m)
		return true
	})
	return out
}

// CloneInto clones every memory in c into target, preserving ids. The
// cloned set is the snapshot of c's memories at the time of the call;
// target must be a different compartment with the relevant id slots
// free. The two compartments' locks are never held at the same time, so
// reciprocal clones between a pair of compartments cannot deadlock. On
// the first failure the error is returned and clones already made
// remain in target.
func (c *Compartment) CloneInto(target *Compartment) error {
	if target == c {
		panic("runtime: compartment cannot be cloned into itself")
	}

	for _, m := range c.Memories() {
		if _, err := CloneMemory(m, target); err != nil {
			return err
		}
	}
	return nil
}

// Close finalizes and destroys every memory remaining in the
// compartment. Memories already torn down by their owner are unaffected,
// and closing an empty compartment is a no-op, so Close is idempotent.
func (c *Compartment) Close() {
	victims := c.Memories()
	for _, m := range victims {
		m.Finalize()
		m.Destroy()
	}
	Logger().Debug("compartment closed", zap.Int("memories", len(victims)))
}
