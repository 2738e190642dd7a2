// Package memory implements the simulator's sparse, byte-addressable data
// memory: a hashmap keyed by word-aligned address (per spec.md's "prefer
// the hashmap for simplicity" note), presenting little-endian 64-bit word
// reads and writes. Uninitialized addresses read as zero.
package memory

// Memory is a sparse 64-bit word store. The zero value is not usable; use
// New.
type Memory struct {
	words map[uint64]uint64 // word-aligned address -> 64-bit little-endian word
}

// New returns an empty data memory.
func New() *Memory {
	return &Memory{words: make(map[uint64]uint64)}
}

func align(addr uint64) uint64 {
	return addr &^ 7
}

// ReadWord reads the 64-bit word stored at addr. addr need not be 8-byte
// aligned: an unaligned addr is rounded down to the 8-byte-aligned word
// that contains it, so the access never straddles two words and never
// panics.
func (m *Memory) ReadWord(addr uint64) uint64 {
	return m.words[align(addr)]
}

// WriteWord writes value as the 64-bit word at addr, rounded down to 8-byte
// alignment exactly as ReadWord does.
func (m *Memory) WriteWord(addr uint64, value uint64) {
	a := align(addr)
	if value == 0 {
		// Keep the sparse map sparse: a zero word is indistinguishable from
		// an untouched address, so drop it instead of storing a no-op entry.
		delete(m.words, a)
		return
	}
	m.words[a] = value
}

// Reset clears all memory contents.
func (m *Memory) Reset() {
	m.words = make(map[uint64]uint64)
}

// NonZeroEntry is one (address, word) pair returned by EnumerateNonZero.
type NonZeroEntry struct {
	Address uint64
	Value   uint64
}

// EnumerateNonZero returns every word-aligned address with a nonzero value,
// sorted ascending by address, for display/inspection purposes.
func (m *Memory) EnumerateNonZero() []NonZeroEntry {
	entries := make([]NonZeroEntry, 0, len(m.words))
	for addr, value := range m.words {
		entries = append(entries, NonZeroEntry{Address: addr, Value: value})
	}
	// Simple insertion sort: memory dumps are small in an educational
	// simulator and this keeps the dependency surface to the standard
	// library's map iteration plus a stable, readable sort.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Address > entries[j].Address; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
	return entries
}

// Snapshot is an immutable copy of every stored word.
type Snapshot struct {
	words map[uint64]uint64
}

// Snapshot captures the current memory contents.
func (m *Memory) Snapshot() Snapshot {
	cp := make(map[uint64]uint64, len(m.words))
	for k, v := range m.words {
		cp[k] = v
	}
	return Snapshot{words: cp}
}

// Restore replaces the memory's contents with a previously captured
// snapshot. The snapshot itself is not aliased: a fresh copy is taken so
// further mutation of either side cannot affect the other.
func (m *Memory) Restore(s Snapshot) {
	cp := make(map[uint64]uint64, len(s.words))
	for k, v := range s.words {
		cp[k] = v
	}
	m.words = cp
}
