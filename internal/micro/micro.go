// Package micro implements the five-stage, step-indexed instruction
// driver of spec.md §4.11. It is a state machine advanced one micro-step
// at a time by explicit Step calls rather than a goroutine/coroutine,
// matching spec.md §9's design note, so no call stack is held across
// micro-steps. Rewinds land only on instruction boundaries (see
// ResetToBoundary).
package micro

import (
	"fmt"

	"github.com/lookbusy1344/legv8-sim/internal/alu"
	"github.com/lookbusy1344/legv8-sim/internal/bits"
	"github.com/lookbusy1344/legv8-sim/internal/control"
	"github.com/lookbusy1344/legv8-sim/internal/cpu"
	"github.com/lookbusy1344/legv8-sim/internal/decode"
	"github.com/lookbusy1344/legv8-sim/internal/flags"
	"github.com/lookbusy1344/legv8-sim/internal/imem"
	"github.com/lookbusy1344/legv8-sim/internal/memory"
	"github.com/lookbusy1344/legv8-sim/internal/stage"
	"github.com/lookbusy1344/legv8-sim/internal/trace"
)

// Outcome reports what a Step call produced.
type Outcome struct {
	Record             *trace.Record
	InstructionComplete bool
	ProgramFinished    bool
}

// StageError tags an error with the micro-step that produced it, per
// spec.md §4.11's "Errors by stage" table: Fetch -> InstructionFetch,
// Decode -> SyntaxError, Execute -> ArithmeticError, Memory ->
// MemoryAccess, WriteBack -> RegisterWrite. The engine façade switches on
// Stage to pick the right ErrorKind without needing to re-derive it from
// the wrapped error's concrete type.
type StageError struct {
	Stage trace.Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %s", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// inFlight is the working state of the instruction currently moving
// through the five micro-steps.
type inFlight struct {
	pc       uint64
	pcPlus4  uint64
	raw      string
	record   *decode.Record
	signals  control.Signals
	ops      stage.Operands
	aluOut   alu.Result
	effAddr  uint64
	memValue uint64
	branch   bool
	target   uint64
}

// Driver owns the register file, memory, flags, and instruction memory a
// program executes against, plus the in-flight state of the instruction
// currently being stepped through.
type Driver struct {
	Registers *cpu.RegisterFile
	Memory    *memory.Memory
	Flags     *flags.Flags
	IMem      *imem.Memory

	PC        uint64
	StepIndex int
	Finished  bool

	cur *inFlight
}

// NewDriver builds a driver ready to execute a freshly loaded program.
func NewDriver(rf *cpu.RegisterFile, mem *memory.Memory, fl *flags.Flags, im *imem.Memory) *Driver {
	return &Driver{Registers: rf, Memory: mem, Flags: fl, IMem: im}
}

// ResetToBoundary places the driver at the start of a fresh instruction at
// pc, discarding any in-flight micro-step state. The history engine uses
// this after a rewind or reset to land the driver on an instruction
// boundary, per spec.md §4.12 ("no partial micro-step is resumed").
func (d *Driver) ResetToBoundary(pc uint64) {
	d.PC = pc
	d.StepIndex = 0
	d.Finished = false
	d.cur = nil
}

// AtInstructionStart reports whether the driver is about to fetch a new
// instruction (micro-step index 0) rather than mid-instruction.
func (d *Driver) AtInstructionStart() bool {
	return d.StepIndex == 0 && !d.Finished
}

// Step advances exactly one micro-step and reports what happened.
func (d *Driver) Step() (Outcome, error) {
	if d.Finished {
		return Outcome{ProgramFinished: true}, nil
	}

	switch d.StepIndex {
	case 0:
		return d.fetch()
	case 1:
		return d.decodeRegisterRead()
	case 2:
		return d.execute()
	case 3:
		return d.memoryAccess()
	case 4:
		return d.writeBack()
	default:
		return Outcome{}, fmt.Errorf("micro: invalid step index %d", d.StepIndex)
	}
}

func (d *Driver) fetch() (Outcome, error) {
	processed, ok := d.IMem.Processed(d.PC)
	if !ok {
		d.Finished = true
		return Outcome{ProgramFinished: true}, nil
	}
	record, err := decode.Decode(processed)
	if err != nil {
		return Outcome{}, &StageError{Stage: trace.StageDecodeRegisterRead, Err: err}
	}
	signals := control.Lookup(record.Opcode)

	d.cur = &inFlight{
		pc:      d.PC,
		pcPlus4: bits.PCPlus4(d.PC),
		raw:     processed,
		record:  record,
		signals: signals,
	}
	rec := &trace.Record{
		Stage: trace.StageFetch, StepIndex: 0, PC: d.PC, Instruction: processed,
		Log:          fmt.Sprintf("fetched %q from 0x%X", processed, d.PC),
		ActiveBlocks: []string{"pc", "instruction_memory"},
		ActiveWires:  []string{"pc_out", "instruction_out"},
		WireValues:   map[string]uint64{"pc_out": d.PC},
		Signals:      signals,
	}
	d.StepIndex = 1
	return Outcome{Record: rec}, nil
}

func (d *Driver) decodeRegisterRead() (Outcome, error) {
	ops, err := stage.ReadOperands(d.cur.record, d.Registers, d.cur.signals)
	if err != nil {
		return Outcome{}, &StageError{Stage: trace.StageDecodeRegisterRead, Err: err}
	}
	d.cur.ops = ops

	rec := &trace.Record{
		Stage: trace.StageDecodeRegisterRead, StepIndex: 1, PC: d.cur.pc, Instruction: d.cur.raw,
		Log:          fmt.Sprintf("decoded %s, read register operands", d.cur.record.Opcode),
		ActiveBlocks: []string{"control_unit", "register_file", "sign_extend"},
		ActiveWires:  []string{"read_data_1", "read_data_2", "sign_extend_out"},
		WireValues: map[string]uint64{
			"read_data_1": ops.RnValue, "read_data_2": ops.RmValue, "sign_extend_out": ops.ImmExtended,
		},
		Signals: d.cur.signals,
	}
	d.StepIndex = 2
	return Outcome{Record: rec}, nil
}

func (d *Driver) execute() (Outcome, error) {
	cur := d.cur
	rec := cur.record
	sig := cur.signals

	switch rec.Format {
	case decode.FormatB:
		cur.branch = true
		cur.target = stage.BranchTarget(cur.pc, cur.ops.ImmExtended)
	case decode.FormatCondB:
		cond, err := flags.ParseCondition(strconvSuffix(rec.Opcode))
		if err != nil {
			return Outcome{}, &StageError{Stage: trace.StageExecute, Err: err}
		}
		cur.branch = d.Flags.Evaluate(cond)
		cur.target = stage.BranchTarget(cur.pc, cur.ops.ImmExtended)
	default:
		op, hasOp := stage.ALUOperationFor(rec.Opcode)
		if hasOp {
			var a, b uint64
			if rec.Format == decode.FormatCB {
				// Pass1 forwards its second operand; Rt is the value
				// being tested for zero.
				b = cur.ops.RtValue
			} else {
				a = cur.ops.RnValue
				b = stage.SecondALUInput(sig, cur.ops)
			}
			result, err := alu.Execute(a, b, op)
			if err != nil {
				return Outcome{}, &StageError{Stage: trace.StageExecute, Err: err}
			}
			cur.aluOut = result
			cur.effAddr = result.Value
			if sig.FlagWrite {
				d.Flags.Update(result.N, result.Z, result.C, result.V)
			}
			if sig.Branch {
				cur.branch = result.Z == (rec.Opcode == "CBZ")
				cur.target = stage.BranchTarget(cur.pc, cur.ops.ImmExtended)
			}
		}
	}

	rec2 := &trace.Record{
		Stage: trace.StageExecute, StepIndex: 2, PC: cur.pc, Instruction: cur.raw,
		Log:          fmt.Sprintf("executed %s", rec.Opcode),
		ActiveBlocks: []string{"alu", "alu_control"},
		ActiveWires:  []string{"alu_result", "zero"},
		WireValues:   map[string]uint64{"alu_result": cur.aluOut.Value},
		Signals:      sig,
	}
	d.StepIndex = 3
	return Outcome{Record: rec2}, nil
}

func (d *Driver) memoryAccess() (Outcome, error) {
	cur := d.cur
	sig := cur.signals

	if sig.MemRead {
		cur.memValue = d.Memory.ReadWord(cur.effAddr)
	}
	if sig.MemWrite {
		d.Memory.WriteWord(cur.effAddr, cur.ops.RtValue)
	}

	rec := &trace.Record{
		Stage: trace.StageMemory, StepIndex: 3, PC: cur.pc, Instruction: cur.raw,
		Log:          fmt.Sprintf("memory stage for %s", cur.record.Opcode),
		ActiveBlocks: []string{"data_memory"},
		ActiveWires:  []string{"read_data", "address"},
		WireValues:   map[string]uint64{"address": cur.effAddr, "read_data": cur.memValue},
		Signals:      sig,
	}
	d.StepIndex = 4
	return Outcome{Record: rec}, nil
}

func (d *Driver) writeBack() (Outcome, error) {
	cur := d.cur
	sig := cur.signals

	if sig.RegWrite {
		value := cur.aluOut.Value
		if sig.MemToReg == control.MemToRegMemory {
			value = cur.memValue
		}
		if err := d.Registers.WriteName(cur.record.Rd, value); err != nil {
			return Outcome{}, &StageError{Stage: trace.StageWriteBack, Err: err}
		}
	}

	nextPC := cur.pcPlus4
	if cur.branch {
		nextPC = cur.target
	}

	rec := &trace.Record{
		Stage: trace.StageWriteBack, StepIndex: 4, PC: cur.pc, Instruction: cur.raw,
		Log:          fmt.Sprintf("write-back complete for %s, next PC 0x%X", cur.record.Opcode, nextPC),
		ActiveBlocks: []string{"register_file", "pc_mux"},
		ActiveWires:  []string{"write_data", "pc_next"},
		WireValues:   map[string]uint64{"pc_next": nextPC},
		Signals:      sig,
	}

	d.PC = nextPC
	d.StepIndex = 0
	d.cur = nil

	return Outcome{Record: rec, InstructionComplete: true}, nil
}

// strconvSuffix extracts the condition mnemonic from a "B.XX" opcode.
func strconvSuffix(opcode string) string {
	if len(opcode) >= 4 && opcode[:2] == "B." {
		return opcode[2:]
	}
	return opcode
}
