package imem

import "testing"

func TestSetAndLookup(t *testing.T) {
	m := New()
	m.Set(0, "ADDI X1, XZR, #5", "  addi x1, xzr, #5 // comment")
	m.Set(4, "B 8", "loop: B done")

	proc, ok := m.Processed(0)
	if !ok || proc != "ADDI X1, XZR, #5" {
		t.Errorf("Processed(0) = %q, %v", proc, ok)
	}
	raw, ok := m.Raw(0)
	if !ok || raw != "  addi x1, xzr, #5 // comment" {
		t.Errorf("Raw(0) = %q, %v", raw, ok)
	}
	if _, ok := m.Processed(8); ok {
		t.Error("Processed(8) should not exist")
	}
}

func TestAddressesAscending(t *testing.T) {
	m := New()
	m.Set(0, "NOP", "NOP")
	m.Set(4, "NOP", "NOP")
	m.Set(8, "NOP", "NOP")
	addrs := m.Addresses()
	want := []uint64{0, 4, 8}
	for i, a := range want {
		if addrs[i] != a {
			t.Errorf("Addresses()[%d] = %d, want %d", i, addrs[i], a)
		}
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}

func TestBinaryOptional(t *testing.T) {
	m := New()
	m.Set(0, "NOP", "NOP")
	if _, ok := m.Binary(0); ok {
		t.Error("Binary(0) should not exist until SetBinary is called")
	}
	m.SetBinary(0, "11010101000000110010000000011111")
	bin, ok := m.Binary(0)
	if !ok || bin == "" {
		t.Error("Binary(0) should exist after SetBinary")
	}
}
