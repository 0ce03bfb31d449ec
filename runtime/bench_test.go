package runtime

import "testing"

func BenchmarkValidateRange(b *testing.B) {
	c := NewCompartment()
	defer c.Close()
	m, err := CreateMemory(c, MemoryType{MinPages: 1, MaxPages: 16})
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.ValidateRange(uint64(i)&0xffff, 8); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMemoryBase(b *testing.B) {
	c := NewCompartment()
	defer c.Close()
	m, err := CreateMemory(c, MemoryType{MinPages: 1, MaxPages: 16})
	if err != nil {
		b.Fatal(err)
	}
	id := m.ID()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if c.MemoryBase(id) == 0 {
			b.Fatal("empty base slot")
		}
	}
}

func BenchmarkIsAddressOwnedByMemory(b *testing.B) {
	c := NewCompartment()
	defer c.Close()
	var addr uintptr
	for i := 0; i < 8; i++ {
		m, err := CreateMemory(c, MemoryType{MinPages: 1, MaxPages: 16})
		if err != nil {
			b.Fatal(err)
		}
		addr = m.Base()
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !IsAddressOwnedByMemory(addr + uintptr(i)&0xfff) {
			b.Fatal("live address not owned")
		}
	}
}
