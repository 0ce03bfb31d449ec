package runtime

import (
	"sync"
	"testing"

	"github.com/BitEnterprise/wasm-jit-prototype/errors"
)

// fixedPageBackend reports an arbitrary page size and fails everything
// else; it only exists to exercise compartment construction checks.
type fixedPageBackend struct{ log2 uint }

func (b fixedPageBackend) PageSizeLog2() uint              { return b.log2 }
func (b fixedPageBackend) Reserve(uint64) (uintptr, error) { return 0, errInjected }
func (b fixedPageBackend) Commit(uintptr, uint64) error    { return errInjected }
func (b fixedPageBackend) Decommit(uintptr, uint64)        {}
func (b fixedPageBackend) Release(uintptr, uint64)         {}

func TestNewCompartmentWithConfig(t *testing.T) {
	// A nil config and a config without a backend both select the system
	// backend.
	if c := NewCompartmentWithConfig(nil); c == nil {
		t.Fatal("NewCompartmentWithConfig(nil) = nil")
	}
	if c := NewCompartmentWithConfig(&CompartmentConfig{}); c == nil {
		t.Fatal("NewCompartmentWithConfig(&CompartmentConfig{}) = nil")
	}

	// Backend pages up to the wasm page size are accepted; larger ones
	// cannot be converted and are rejected at construction.
	cfg := &CompartmentConfig{Backend: fixedPageBackend{log2: PageSizeLog2}}
	if c := NewCompartmentWithConfig(cfg); c == nil {
		t.Fatal("backend with wasm-sized pages rejected")
	}
	mustPanic(t, "oversized backend pages", func() {
		NewCompartmentWithConfig(&CompartmentConfig{Backend: fixedPageBackend{log2: PageSizeLog2 + 1}})
	})
}

func TestCompartment_Lookup(t *testing.T) {
	c, _ := newTestCompartment(t)

	if _, ok := c.Memory(0); ok {
		t.Error("Memory(0) = ok on an empty compartment")
	}
	if got := c.MemoryBase(0); got != 0 {
		t.Errorf("MemoryBase(0) = %#x on an empty compartment, want 0", got)
	}
	if got := c.MemoryBase(MaxMemories); got != 0 {
		t.Errorf("MemoryBase(%d) = %#x, want 0 for an out-of-range id", MaxMemories, got)
	}

	m := mustCreate(t, c, MemoryType{MinPages: 1, MaxPages: 2})
	if got, ok := c.Memory(m.ID()); !ok || got != m {
		t.Errorf("Memory(%d) = %v, %v, want the created memory", m.ID(), got, ok)
	}
}

func TestCompartment_Memories(t *testing.T) {
	c, _ := newTestCompartment(t)

	want := []uint64{1, 2, 3}
	for _, pages := range want {
		mustCreate(t, c, MemoryType{MinPages: pages, MaxPages: 8})
	}

	ms := c.Memories()
	if len(ms) != len(want) {
		t.Fatalf("Memories() returned %d entries, want %d", len(ms), len(want))
	}
	for i, m := range ms {
		if got := m.ID(); got != uint32(i) {
			t.Errorf("Memories()[%d].ID() = %d, want %d", i, got, i)
		}
		if got := m.NumPages(); got != want[i] {
			t.Errorf("Memories()[%d].NumPages() = %d, want %d", i, got, want[i])
		}
	}
}

func TestCompartment_CloneInto(t *testing.T) {
	c1, _ := newTestCompartment(t)
	c2, _ := newTestCompartment(t)

	pages := []uint64{1, 2, 3}
	for _, p := range pages {
		mustCreate(t, c1, MemoryType{MinPages: p, MaxPages: 8})
	}

	if err := c1.CloneInto(c2); err != nil {
		t.Fatalf("CloneInto: %v", err)
	}
	if got := c2.NumMemories(); got != len(pages) {
		t.Fatalf("target NumMemories() = %d, want %d", got, len(pages))
	}
	for id, want := range pages {
		src, _ := c1.Memory(uint32(id))
		clone, ok := c2.Memory(uint32(id))
		if !ok {
			t.Fatalf("target has no memory under id %d", id)
		}
		if got := clone.NumPages(); got != want {
			t.Errorf("clone %d NumPages() = %d, want %d", id, got, want)
		}
		if clone.Base() == src.Base() {
			t.Errorf("clone %d shares the source base address", id)
		}
	}

	mustPanic(t, "CloneInto self", func() { _ = c1.CloneInto(c1) })
}

func TestCompartment_CloneIntoPartialFailure(t *testing.T) {
	c1, _ := newTestCompartment(t)
	c2, tb2 := newTestCompartment(t)

	for i := 0; i < 3; i++ {
		mustCreate(t, c1, MemoryType{MinPages: 1, MaxPages: 2})
	}

	// Two reservations succeed, the third fails; the first two clones
	// stay in the target.
	tb2.setReserveBudget(2)
	err := c1.CloneInto(c2)
	if !errors.IsKind(err, errors.KindReservationExhausted) {
		t.Fatalf("CloneInto error = %v, want kind %q", err, errors.KindReservationExhausted)
	}
	if got := c2.NumMemories(); got != 2 {
		t.Errorf("target NumMemories() = %d after partial clone, want 2", got)
	}
}

func TestCompartment_ReciprocalCloneInto(t *testing.T) {
	c1, _ := newTestCompartment(t)
	c2, _ := newTestCompartment(t)

	// Disjoint id ranges: c1 occupies ids 0..2, c2 only id 3, so the two
	// clone directions cannot collide.
	for i := 0; i < 3; i++ {
		mustCreate(t, c1, MemoryType{MinPages: 1, MaxPages: 2})
	}
	var victims []*Memory
	for i := 0; i < 4; i++ {
		m := mustCreate(t, c2, MemoryType{MinPages: 1, MaxPages: 2})
		if i < 3 {
			victims = append(victims, m)
		}
	}
	for _, m := range victims {
		m.Finalize()
		m.Destroy()
	}

	// Both directions at once must complete rather than deadlock.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- c1.CloneInto(c2)
	}()
	go func() {
		defer wg.Done()
		errs <- c2.CloneInto(c1)
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("reciprocal CloneInto: %v", err)
		}
	}

	if got := c1.NumMemories(); got != 4 {
		t.Errorf("c1 NumMemories() = %d, want 4", got)
	}
	if got := c2.NumMemories(); got != 4 {
		t.Errorf("c2 NumMemories() = %d, want 4", got)
	}
	if _, ok := c1.Memory(3); !ok {
		t.Error("clone of id 3 missing from c1")
	}
	for id := uint32(0); id < 3; id++ {
		if _, ok := c2.Memory(id); !ok {
			t.Errorf("clone of id %d missing from c2", id)
		}
	}
}

func TestCompartment_Close(t *testing.T) {
	tb := newTestBackend()
	c := NewCompartmentWithConfig(&CompartmentConfig{Backend: tb})

	var bases []uintptr
	for i := 0; i < 2; i++ {
		m := mustCreate(t, c, MemoryType{MinPages: 1, MaxPages: 2})
		bases = append(bases, m.Base())
	}

	c.Close()
	if got := c.NumMemories(); got != 0 {
		t.Errorf("NumMemories() = %d after close, want 0", got)
	}
	for _, base := range bases {
		if IsAddressOwnedByMemory(base) {
			t.Errorf("address %#x still owned after close", base)
		}
	}
	if got := tb.numReservations(); got != 0 {
		t.Errorf("%d reservations left after close", got)
	}

	// Close is idempotent.
	c.Close()
}

func TestCompartment_BaseTableTracksLifecycle(t *testing.T) {
	c, _ := newTestCompartment(t)

	m := mustCreate(t, c, MemoryType{MinPages: 1, MaxPages: 4})
	id := m.ID()
	if got := c.MemoryBase(id); got != m.Base() {
		t.Fatalf("MemoryBase(%d) = %#x, want %#x", id, got, m.Base())
	}

	// Growing never moves the base: the table entry stays valid without
	// any republication.
	if _, err := m.Grow(2); err != nil {
		t.Fatalf("Grow(2): %v", err)
	}
	if got := c.MemoryBase(id); got != m.Base() {
		t.Errorf("MemoryBase(%d) = %#x after grow, want %#x", id, got, m.Base())
	}

	m.Finalize()
	if got := c.MemoryBase(id); got != 0 {
		t.Errorf("MemoryBase(%d) = %#x after finalize, want 0", id, got)
	}
	m.Destroy()
}
