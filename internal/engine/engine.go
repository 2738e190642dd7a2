// Package engine implements the engine façade of spec.md §4.13: the single
// entry point that coordinates the assembler, the register file, data and
// instruction memory, the flags register, the micro-step driver, and the
// history engine behind Load/Step/Rewind/Reset/Inspect.
//
// Grounded on the teacher's service/debugger_service.go DebuggerService: a
// single façade in front of the simulated machine, with a debug logger
// gated behind an environment variable. Unlike the teacher's service,
// Engine holds no mutex (see the Engine type).
package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/lookbusy1344/legv8-sim/internal/asm"
	"github.com/lookbusy1344/legv8-sim/internal/control"
	"github.com/lookbusy1344/legv8-sim/internal/cpu"
	"github.com/lookbusy1344/legv8-sim/internal/flags"
	"github.com/lookbusy1344/legv8-sim/internal/history"
	"github.com/lookbusy1344/legv8-sim/internal/imem"
	"github.com/lookbusy1344/legv8-sim/internal/memory"
	"github.com/lookbusy1344/legv8-sim/internal/micro"
	"github.com/lookbusy1344/legv8-sim/internal/stage"
	"github.com/lookbusy1344/legv8-sim/internal/trace"
)

// debugLog is the gated diagnostic logger described in SPEC_FULL.md's
// ambient-stack section, matching the teacher's ARM_EMULATOR_DEBUG/
// serviceLog pattern in service/debugger_service.go.
var debugLog *log.Logger

func init() {
	if os.Getenv("LEGV8_SIM_DEBUG") != "" {
		debugLog = log.New(os.Stderr, "ENGINE: ", log.Ltime|log.Lmicroseconds)
	} else {
		debugLog = log.New(io.Discard, "", 0)
	}
	control.Logger = debugLog
}

// ErrorKind classifies a runtime error surfaced out-of-band from Step, per
// spec.md §6/§7.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrLoad
	ErrNotLoaded
	ErrSyntax
	ErrArithmetic
	ErrMemoryAccess
	ErrInstructionFetch
	ErrRegisterWrite
)

func (k ErrorKind) String() string {
	switch k {
	case ErrLoad:
		return "LoadError"
	case ErrNotLoaded:
		return "NotLoaded"
	case ErrSyntax:
		return "SyntaxError"
	case ErrArithmetic:
		return "ArithmeticError"
	case ErrMemoryAccess:
		return "MemoryAccess"
	case ErrInstructionFetch:
		return "InstructionFetch"
	case ErrRegisterWrite:
		return "RegisterWrite"
	default:
		return "None"
	}
}

// Kind names which outcome a Step call produced: the four step() outcomes
// of spec.md §4.13 plus KindBreakpoint.
type Kind int

const (
	KindMicroStep Kind = iota
	KindInstructionComplete
	KindBreakpoint
	KindProgramFinished
	KindError
)

// StepResult is the union spec.md §4.13 describes, extended with
// breakpoints: exactly one of MicroStep/InstructionComplete/Breakpoint/
// ProgramFinished/Error, identified by Kind.
type StepResult struct {
	Kind Kind

	Record *trace.Record // populated for MicroStep and InstructionComplete

	NextPC              uint64 // populated for InstructionComplete
	NextInstructionText string

	BreakpointAddress uint64 // populated for KindBreakpoint

	FinishedReason string // populated for ProgramFinished

	ErrKind    ErrorKind
	ErrMessage string
}

// CpuState is the inspection snapshot spec.md §6 describes: PC and
// registers in hex, plus a non-zero-only view of data memory. Rendering
// (JSON shape, table layout) is left to the caller.
type CpuState struct {
	PC        uint64
	Registers map[string]uint64 // "X0".."X30", keyed by canonical name
	N, Z, C, V bool
	Memory    []memory.NonZeroEntry
	Finished  bool
	Loaded    bool
}

// Engine is the façade of spec.md §4.13. It owns the register file, data
// memory, flags, instruction memory, and the micro-step driver and history
// engine built on top of them. It holds no lock and is not safe for
// concurrent use: a caller that shares one *Engine across goroutines must
// serialize its requests.
type Engine struct {
	registers *cpu.RegisterFile
	mem       *memory.Memory
	fl        *flags.Flags
	im        *imem.Memory
	labels    map[string]uint64
	driver    *micro.Driver
	hist      *history.History

	loaded  bool
	errored bool

	breakpointArmed bool
	breakpoints     map[uint64]bool

	watched    map[string]uint64 // register name -> value at last instruction boundary
	watchHits  []string          // registers that changed on the most recent InstructionComplete

	historyCap int
}

// New returns an Engine with no program loaded. historyCap bounds the
// number of rewindable snapshots (spec.md §4.12); 0 uses history.DefaultCap.
func New(historyCap int) *Engine {
	return &Engine{
		breakpoints: make(map[uint64]bool),
		watched:     make(map[string]uint64),
		historyCap:  historyCap,
	}
}

// Load assembles source and resets the machine to run it from address 0,
// per spec.md §2's façade responsibilities. A load-time error leaves the
// engine's prior state untouched (spec.md §7: "state is restored to
// pre-load defaults" — here, simply never mutated on failure).
func (e *Engine) Load(source string) error {
	im := imem.New()
	labels, err := asm.Assemble(source, im)
	if err != nil {
		return err
	}

	e.registers = cpu.NewRegisterFile()
	e.mem = memory.New()
	e.fl = &flags.Flags{}
	e.im = im
	e.labels = labels
	e.driver = micro.NewDriver(e.registers, e.mem, e.fl, e.im)
	e.hist = history.New(e.historyCap)
	e.loaded = true
	e.errored = false
	e.breakpoints = make(map[uint64]bool)
	e.breakpointArmed = true
	e.watched = make(map[string]uint64)
	e.watchHits = nil
	return nil
}

// Reset restores the loaded program to its initial state (PC 0, registers
// and memory cleared, history cleared), per spec.md §6's reset state.
func (e *Engine) Reset() error {
	if !e.loaded {
		return &StepError{Kind: ErrNotLoaded, Message: "no program loaded"}
	}
	e.registers.Reset()
	e.mem.Reset()
	e.fl.Reset()
	e.driver.ResetToBoundary(0)
	e.hist.Reset()
	e.errored = false
	e.breakpointArmed = true
	e.watchHits = nil
	for name := range e.watched {
		e.watched[name] = 0
	}
	return nil
}

// StepError is returned by Step/Reset/Rewind for the NotLoaded class of
// spec.md §6 (Load returns the assembler's *asm.LoadError unchanged);
// Step itself reports runtime errors
// in-band via StepResult, matching the union contract of spec.md §4.13.
type StepError struct {
	Kind    ErrorKind
	Message string
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// Step advances the simulation by exactly one micro-step and reports which
// outcome occurred. When an armed breakpoint matches the PC of the
// instruction about to start, Step returns KindBreakpoint without
// advancing; the next call proceeds.
func (e *Engine) Step() (StepResult, error) {
	if !e.loaded || e.errored {
		return StepResult{}, &StepError{Kind: ErrNotLoaded, Message: "load a program before stepping"}
	}
	if e.driver.Finished {
		return StepResult{Kind: KindProgramFinished, FinishedReason: "PC left instruction memory"}, nil
	}

	if e.driver.AtInstructionStart() {
		if e.breakpointArmed && e.breakpoints[e.driver.PC] {
			e.breakpointArmed = false
			return StepResult{Kind: KindBreakpoint, BreakpointAddress: e.driver.PC}, nil
		}
		e.breakpointArmed = false
		if _, ok := e.im.Processed(e.driver.PC); ok {
			e.pushSnapshot()
		}
	}

	outcome, err := e.driver.Step()
	if err != nil {
		e.errored = true
		return StepResult{Kind: KindError, ErrKind: classifyError(err), ErrMessage: err.Error()}, nil
	}

	if outcome.ProgramFinished {
		return StepResult{Kind: KindProgramFinished, FinishedReason: "PC left instruction memory"}, nil
	}

	if outcome.InstructionComplete {
		e.breakpointArmed = true
		e.updateWatchHits()
		next, _ := e.im.Processed(e.driver.PC)
		return StepResult{
			Kind:                KindInstructionComplete,
			Record:              outcome.Record,
			NextPC:              e.driver.PC,
			NextInstructionText: next,
		}, nil
	}

	return StepResult{Kind: KindMicroStep, Record: outcome.Record}, nil
}

// pushSnapshot captures the state the machine is in right before the
// instruction at the driver's current PC begins, per spec.md §4.12.
func (e *Engine) pushSnapshot() {
	raw, _ := e.im.Raw(e.driver.PC)
	e.hist.Push(history.Snapshot{
		PC:         e.driver.PC,
		Registers:  e.registers.Snapshot(),
		Memory:     e.mem.Snapshot(),
		N:          e.fl.N,
		Z:          e.fl.Z,
		C:          e.fl.C,
		V:          e.fl.V,
		CursorAddr: e.driver.PC,
		CursorRaw:  raw,
	})
}

// updateWatchHits records which watched registers changed value across the
// instruction that just completed.
func (e *Engine) updateWatchHits() {
	e.watchHits = nil
	for name, prev := range e.watched {
		cur, err := e.registers.ReadName(name)
		if err != nil {
			continue
		}
		if cur != prev {
			e.watchHits = append(e.watchHits, name)
			e.watched[name] = cur
		}
	}
	sort.Strings(e.watchHits)
}

// classifyError maps a micro.StageError's stage to the ErrorKind table of
// spec.md §7 ("Errors by stage"): Decode -> SyntaxError, Execute ->
// ArithmeticError, WriteBack -> RegisterWrite. Fetch/Memory never produce
// an error in this implementation (absent instructions report
// ProgramFinished instead, and addressing is never bounds-checked), so
// InstructionFetch/MemoryAccess are reachable only as declared classes.
func classifyError(err error) ErrorKind {
	var stageErr *micro.StageError
	if !errors.As(err, &stageErr) {
		return ErrSyntax
	}
	switch stageErr.Stage {
	case trace.StageDecodeRegisterRead:
		return ErrSyntax
	case trace.StageExecute:
		return ErrArithmetic
	case trace.StageMemory:
		return ErrMemoryAccess
	case trace.StageWriteBack:
		return ErrRegisterWrite
	case trace.StageFetch:
		return ErrInstructionFetch
	default:
		return ErrSyntax
	}
}

// Rewind restores the machine to the most recent instruction-boundary
// snapshot, per spec.md §4.12's "return-back" contract: the start of the
// instruction in flight if one is part-way through its micro-steps,
// otherwise the start of the most recently completed instruction. Rewinding past
// a runtime error is always possible: the error state itself is not
// captured by the history engine (spec.md §7's recovery policy).
func (e *Engine) Rewind() (StepResult, error) {
	if !e.loaded {
		return StepResult{}, &StepError{Kind: ErrNotLoaded, Message: "no program loaded"}
	}
	snap, ok := e.hist.Rewind()
	if !ok {
		return StepResult{}, fmt.Errorf("engine: no history to rewind to")
	}

	e.registers.Restore(snap.Registers)
	e.mem.Restore(snap.Memory)
	e.fl.Update(snap.N, snap.Z, snap.C, snap.V)
	e.driver.ResetToBoundary(snap.PC)
	e.errored = false
	e.breakpointArmed = true
	e.watchHits = nil

	return StepResult{
		Kind:                KindInstructionComplete,
		NextPC:              snap.PC,
		NextInstructionText: snap.CursorRaw,
	}, nil
}

// Inspect returns the current observable machine state, per spec.md §6.
func (e *Engine) Inspect() CpuState {
	state := CpuState{Loaded: e.loaded}
	if !e.loaded {
		return state
	}
	state.PC = e.driver.PC
	state.Finished = e.driver.Finished
	state.N, state.Z, state.C, state.V = e.fl.N, e.fl.Z, e.fl.C, e.fl.V
	state.Memory = e.mem.EnumerateNonZero()

	regs := e.registers.All()
	state.Registers = make(map[string]uint64, len(regs))
	for i, v := range regs {
		state.Registers[cpu.Name(i)] = v
	}
	return state
}

// Labels returns the label table produced by the most recent Load.
func (e *Engine) Labels() map[string]uint64 {
	return e.labels
}

// SetBreakpoint arms a breakpoint at addr: the driver halts with
// KindBreakpoint the next time it is about to fetch the instruction there,
// per SPEC_FULL.md's breakpoint supplement.
func (e *Engine) SetBreakpoint(addr uint64) {
	e.breakpoints[addr] = true
}

// ClearBreakpoint disarms a previously set breakpoint.
func (e *Engine) ClearBreakpoint(addr uint64) {
	delete(e.breakpoints, addr)
}

// Breakpoints returns every armed breakpoint address, ascending.
func (e *Engine) Breakpoints() []uint64 {
	addrs := make([]uint64, 0, len(e.breakpoints))
	for addr := range e.breakpoints {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// WatchRegister arms a watchpoint on name: InstructionComplete results
// report whether it changed value across the instruction that just ran.
func (e *Engine) WatchRegister(name string) error {
	v, err := e.registers.ReadName(name)
	if err != nil {
		return err
	}
	e.watched[cpu.Name(mustResolve(name))] = v
	return nil
}

func mustResolve(name string) int {
	idx, err := cpu.Resolve(name)
	if err != nil {
		return 0
	}
	return idx
}

// UnwatchRegister disarms a previously armed register watchpoint.
func (e *Engine) UnwatchRegister(name string) {
	idx, err := cpu.Resolve(name)
	if err != nil {
		return
	}
	delete(e.watched, cpu.Name(idx))
}

// WatchHits returns the watched registers that changed value on the most
// recently completed instruction.
func (e *Engine) WatchHits() []string {
	return e.watchHits
}

// ALUControlBits exposes the display-only ALU control code for the
// opcode's resolved ALU operation, for a trace/inspection front end.
func ALUControlBits(opcode string) string {
	op, ok := stage.ALUOperationFor(opcode)
	if !ok {
		return "XXXX"
	}
	return stage.ALUControlBits(op)
}
