package memory

import "testing"

func TestReadUninitializedIsZero(t *testing.T) {
	m := New()
	if got := m.ReadWord(0x1000); got != 0 {
		t.Errorf("ReadWord(uninitialized) = %d, want 0", got)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := New()
	m.WriteWord(0x7FFFFFFF00, 0x2A)
	if got := m.ReadWord(0x7FFFFFFF00); got != 0x2A {
		t.Errorf("ReadWord = 0x%X, want 0x2A", got)
	}
}

func TestResetClears(t *testing.T) {
	m := New()
	m.WriteWord(8, 99)
	m.Reset()
	if got := m.ReadWord(8); got != 0 {
		t.Errorf("ReadWord after Reset = %d, want 0", got)
	}
}

func TestEnumerateNonZeroSortedAndSparse(t *testing.T) {
	m := New()
	m.WriteWord(16, 1)
	m.WriteWord(0, 2)
	m.WriteWord(8, 0) // writing zero should not create an entry
	entries := m.EnumerateNonZero()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Address != 0 || entries[1].Address != 16 {
		t.Errorf("entries not sorted: %+v", entries)
	}
}

func TestSnapshotRestore(t *testing.T) {
	m := New()
	m.WriteWord(0, 1)
	snap := m.Snapshot()
	m.WriteWord(0, 2)
	m.WriteWord(8, 3)
	m.Restore(snap)
	if got := m.ReadWord(0); got != 1 {
		t.Errorf("ReadWord(0) after restore = %d, want 1", got)
	}
	if got := m.ReadWord(8); got != 0 {
		t.Errorf("ReadWord(8) after restore = %d, want 0", got)
	}
}

func TestSnapshotNotAliased(t *testing.T) {
	m := New()
	m.WriteWord(0, 1)
	snap := m.Snapshot()
	m.WriteWord(0, 99)
	// mutating m after the snapshot must not retroactively change it
	m.Restore(snap)
	if got := m.ReadWord(0); got != 1 {
		t.Errorf("snapshot was aliased: got %d, want 1", got)
	}
}
