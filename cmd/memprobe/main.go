package main

import (
	"flag"
	"fmt"
	"os"
	"unsafe"

	"go.uber.org/zap"

	"github.com/BitEnterprise/wasm-jit-prototype/runtime"
	"github.com/BitEnterprise/wasm-jit-prototype/vmem"
)

func main() {
	var (
		numMemories = flag.Int("memories", 2, "Number of memories to create")
		minPages    = flag.Uint64("min", 1, "Minimum pages per memory")
		maxPages    = flag.Uint64("max", 16, "Maximum pages per memory")
		growSteps   = flag.Int("grow", 3, "Single-page grow steps per memory")
		doClone     = flag.Bool("clone", false, "Clone the compartment and compare")
		verbose     = flag.Bool("v", false, "Verbose lifecycle logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *numMemories < 1 || *numMemories > runtime.MaxMemories {
		fmt.Fprintln(os.Stderr, "Usage: memprobe [-memories N] [-min P] [-max P] [-grow STEPS] [-clone] [-v]")
		fmt.Fprintln(os.Stderr, "       memprobe -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		runtime.SetLogger(logger)
	}

	typ := runtime.MemoryType{MinPages: *minPages, MaxPages: *maxPages}

	if *interactive {
		if err := runInteractive(typ, *numMemories); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(typ, *numMemories, *growSteps, *doClone); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(typ runtime.MemoryType, numMemories, growSteps int, doClone bool) error {
	c := runtime.NewCompartment()
	defer c.Close()

	fmt.Printf("Backend page size: %d bytes\n", 1<<vmem.System().PageSizeLog2())

	// Create
	fmt.Printf("\nCreating %d memories with {min: %d, max: %d} pages...\n",
		numMemories, typ.MinPages, typ.MaxPages)
	for i := 0; i < numMemories; i++ {
		m, err := runtime.CreateMemory(c, typ)
		if err != nil {
			return fmt.Errorf("create memory %d: %w", i, err)
		}
		fmt.Printf("  memory %d: base=%#x pages=%d reservation=%d GiB\n",
			m.ID(), m.Base(), m.NumPages(), m.ReservationSize()>>30)
	}

	// Grow
	fmt.Printf("\nGrowing each memory by 1 page, %d times...\n", growSteps)
	for _, m := range c.Memories() {
		for step := 0; step < growSteps; step++ {
			if _, err := m.Grow(1); err != nil {
				fmt.Printf("  memory %d: grow stopped: %v\n", m.ID(), err)
				break
			}
		}
		fmt.Printf("  memory %d: pages=%d (%d KiB committed), base unchanged at %#x\n",
			m.ID(), m.NumPages(), m.Size()>>10, m.Base())
	}

	// Host access
	fmt.Printf("\nHost access probe:\n")
	for _, m := range c.Memories() {
		if err := m.WriteU32(0x80, 0xfeedface); err != nil {
			return fmt.Errorf("write memory %d: %w", m.ID(), err)
		}
		v, err := m.ReadU32(0x80)
		if err != nil {
			return fmt.Errorf("read memory %d: %w", m.ID(), err)
		}
		fmt.Printf("  memory %d: wrote 0xfeedface at 0x80, read back %#x\n", m.ID(), v)
	}

	// Range validation
	first := c.Memories()[0]
	committed := first.Size()
	fmt.Printf("\nRange validation on memory %d (checked against the reservation, not the committed size):\n", first.ID())
	probes := []struct {
		offset, numBytes uint64
		note             string
	}{
		{0, 8, "start of committed region"},
		{committed + runtime.PageSize, 8, "beyond committed pages"},
		{uint64(first.ReservationSize()), 1, "past the reservation"},
	}
	for _, p := range probes {
		addr, err := first.ValidateRange(p.offset, p.numBytes)
		if err != nil {
			fmt.Printf("  [%#x, +%d) %-26s -> %v\n", p.offset, p.numBytes, p.note, err)
		} else {
			fmt.Printf("  [%#x, +%d) %-26s -> %#x\n", p.offset, p.numBytes, p.note, addr)
		}
	}

	// Ownership classification
	fmt.Printf("\nAddress ownership:\n")
	for _, m := range c.Memories() {
		mid := m.Base() + m.ReservationSize()/2
		fmt.Printf("  %#x (inside memory %d's reservation) -> %v\n",
			mid, m.ID(), runtime.IsAddressOwnedByMemory(mid))
	}
	var hostByte byte
	hostAddr := uintptr(unsafe.Pointer(&hostByte))
	fmt.Printf("  %#x (host stack)                     -> %v\n",
		hostAddr, runtime.IsAddressOwnedByMemory(hostAddr))

	// Clone
	if doClone {
		scratch := runtime.NewCompartment()
		defer scratch.Close()
		if err := c.CloneInto(scratch); err != nil {
			return fmt.Errorf("clone compartment: %w", err)
		}
		fmt.Printf("\nCloned compartment holds %d memories:\n", scratch.NumMemories())
		for _, clone := range scratch.Memories() {
			src, _ := c.Memory(clone.ID())
			fmt.Printf("  id %d: source base=%#x, clone base=%#x, pages=%d\n",
				clone.ID(), src.Base(), clone.Base(), clone.NumPages())
		}
	}

	// Shrink back
	fmt.Printf("\nShrinking back to %d pages...\n", typ.MinPages)
	for _, m := range c.Memories() {
		surplus := m.NumPages() - typ.MinPages
		if _, err := m.Shrink(surplus); err != nil {
			return fmt.Errorf("shrink memory %d: %w", m.ID(), err)
		}
		fmt.Printf("  memory %d: pages=%d\n", m.ID(), m.NumPages())
	}

	fmt.Printf("\nDone.\n")
	return nil
}
