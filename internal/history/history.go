// Package history implements the snapshot-based rewind engine of
// spec.md §4.12: a stack of per-instruction snapshots with push/rewind/
// can-rewind/clear-future/trim-to-cap, grounded on the teacher's
// debugger/history.go CommandHistory (a maxSize-trimmed slice navigated by
// a position cursor) adapted from command strings to simulator snapshots.
package history

import (
	"sync"

	"github.com/lookbusy1344/legv8-sim/internal/cpu"
	"github.com/lookbusy1344/legv8-sim/internal/memory"
)

// DefaultCap is the default number of retained snapshots (spec.md §4.12's
// "e.g. 100").
const DefaultCap = 100

// Snapshot is an immutable copy of simulator state taken on entry to an
// instruction (micro-step index 0), per spec.md §3.
type Snapshot struct {
	PC         uint64
	Registers  cpu.Snapshot
	Memory     memory.Snapshot
	N, Z, C, V bool
	CursorAddr uint64
	CursorRaw  string
}

// History is a position-cursored stack of snapshots. It is guarded by its
// own RWMutex, matching the teacher's CommandHistory; the engine façade
// above it holds no lock of its own.
type History struct {
	mu       sync.RWMutex
	stack    []Snapshot
	position int // index of the next slot a Push will write
	cap      int
}

// New returns an empty history retaining at most capacity snapshots. A
// capacity of 0 or less uses DefaultCap.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &History{cap: capacity}
}

// Push records snap as the state at the start of the instruction about to
// run. If the engine has previously rewound, any snapshots at or beyond
// the current position are abandoned "future" history and are discarded
// first, per spec.md §4.12's clear_future contract.
func (h *History) Push(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.position < len(h.stack) {
		h.stack = h.stack[:h.position]
	}
	h.stack = append(h.stack, snap)
	h.position = len(h.stack)

	if len(h.stack) > h.cap {
		h.stack = h.stack[len(h.stack)-h.cap:]
		h.position = len(h.stack)
	}
}

// CanRewind reports whether a prior instruction-boundary snapshot exists.
func (h *History) CanRewind() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.position > 0
}

// Rewind moves the cursor back one instruction boundary and returns the
// snapshot captured there. The caller restores its live state from the
// returned snapshot; History itself holds no live state.
func (h *History) Rewind() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.position == 0 {
		return Snapshot{}, false
	}
	h.position--
	return h.stack[h.position], true
}

// TrimTo shrinks the retained capacity, immediately evicting the oldest
// snapshots if the stack currently exceeds it.
func (h *History) TrimTo(maxSize int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if maxSize <= 0 {
		maxSize = DefaultCap
	}
	h.cap = maxSize
	if len(h.stack) > h.cap {
		drop := len(h.stack) - h.cap
		h.stack = h.stack[drop:]
		h.position -= drop
		if h.position < 0 {
			h.position = 0
		}
	}
}

// Reset discards all retained snapshots.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stack = nil
	h.position = 0
}

// Len returns the number of snapshots currently retained (for inspection
// and tests, not part of the spec's contract).
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.stack)
}
