// Package cpu implements the LEGv8 general-purpose register file: 32
// 64-bit registers, X31/XZR reading as zero and discarding writes, and the
// SP/FP/LR aliases for X28/X29/X30.
package cpu

import (
	"fmt"
	"strconv"
	"strings"
)

// InitialSP is the stack pointer's reset value: a high address so a
// typical program's stack grows downward without colliding with code or
// data placed near address 0.
const InitialSP uint64 = 0x7FFFFFFF00

// XZR is the conceptual 32nd register: always reads zero, writes dropped.
const XZR = 31

// NumRegisters is the number of addressable registers, including XZR.
const NumRegisters = 32

const (
	aliasSP = 28
	aliasFP = 29
	aliasLR = 30
)

// RegisterFile holds X0-X30; index 31 (XZR) is never stored.
type RegisterFile struct {
	regs [31]uint64
}

// NewRegisterFile returns a register file in its reset state: SP seeded to
// InitialSP, everything else zero.
func NewRegisterFile() *RegisterFile {
	rf := &RegisterFile{}
	rf.regs[aliasSP] = InitialSP
	return rf
}

// Reset restores the reset state in place.
func (rf *RegisterFile) Reset() {
	for i := range rf.regs {
		rf.regs[i] = 0
	}
	rf.regs[aliasSP] = InitialSP
}

// Resolve maps a register name to its index, applying the SP/FP/LR aliases
// and case-insensitive lookup. Accepted forms: "X0".."X30", "X31"/"XZR",
// "SP", "FP", "LR".
func Resolve(name string) (int, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	switch upper {
	case "SP":
		return aliasSP, nil
	case "FP":
		return aliasFP, nil
	case "LR":
		return aliasLR, nil
	case "XZR":
		return XZR, nil
	}

	if !strings.HasPrefix(upper, "X") {
		return 0, fmt.Errorf("cpu: not a register name: %q", name)
	}
	n, err := strconv.Atoi(upper[1:])
	if err != nil || n < 0 || n >= NumRegisters {
		return 0, fmt.Errorf("cpu: not a register name: %q", name)
	}
	return n, nil
}

// Read returns the value of register index (0-31); index 31 always reads 0.
func (rf *RegisterFile) Read(index int) uint64 {
	if index == XZR {
		return 0
	}
	return rf.regs[index]
}

// ReadName resolves name and reads it.
func (rf *RegisterFile) ReadName(name string) (uint64, error) {
	idx, err := Resolve(name)
	if err != nil {
		return 0, err
	}
	return rf.Read(idx), nil
}

// Write sets register index (0-30) to value. Writes to XZR are discarded
// silently, per the architecture.
func (rf *RegisterFile) Write(index int, value uint64) {
	if index == XZR {
		return
	}
	rf.regs[index] = value
}

// WriteName resolves name and writes it.
func (rf *RegisterFile) WriteName(name string, value uint64) error {
	idx, err := Resolve(name)
	if err != nil {
		return err
	}
	rf.Write(idx, value)
	return nil
}

// Snapshot is an immutable copy of every register, suitable for the
// history engine to retain.
type Snapshot struct {
	regs [31]uint64
}

// Snapshot captures the current register values.
func (rf *RegisterFile) Snapshot() Snapshot {
	return Snapshot{regs: rf.regs}
}

// Restore replaces the register file's contents with a previously captured
// snapshot.
func (rf *RegisterFile) Restore(s Snapshot) {
	rf.regs = s.regs
}

// All returns the values of X0-X30 in order, for inspection/serialization
// by a caller (e.g. a CLI register dump). X31/XZR is not included since it
// is not a storage location.
func (rf *RegisterFile) All() [31]uint64 {
	return rf.regs
}

// Name returns the canonical "X<n>" form for a register index, or "XZR"
// for index 31.
func Name(index int) string {
	if index == XZR {
		return "XZR"
	}
	return fmt.Sprintf("X%d", index)
}
