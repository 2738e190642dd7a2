package stage

import (
	"fmt"

	"github.com/lookbusy1344/legv8-sim/internal/bits"
	"github.com/lookbusy1344/legv8-sim/internal/control"
	"github.com/lookbusy1344/legv8-sim/internal/cpu"
	"github.com/lookbusy1344/legv8-sim/internal/decode"
)

// Operands is what the Decode/RegisterRead micro-step produces: the
// register values an instruction needs before Execute runs. Which fields
// are meaningful depends on rec.Format; Execute only reads the ones its
// format defines.
type Operands struct {
	RnValue      uint64
	RmValue      uint64 // R-format register operand
	RtValue      uint64 // source register for STUR, comparator register for CBZ/CBNZ
	ImmExtended  uint64 // sign-extended immediate/offset, ready for the ALU
}

func readRegister(rf *cpu.RegisterFile, name string) (uint64, error) {
	idx, err := cpu.Resolve(name)
	if err != nil {
		return 0, err
	}
	return rf.Read(idx), nil
}

// secondRegisterName picks the register-file read-port-2 address bit-field
// per the Reg2Loc control signal: Rm (the R-format second-operand field)
// when clear, Rd (which decode overloads as Rt for D-store/CB formats) when
// set.
func secondRegisterName(rec *decode.Record, sig control.Signals) string {
	if sig.Reg2Loc {
		return rec.Rd
	}
	return rec.Rm
}

// ReadOperands resolves the register and immediate operands for a decoded
// instruction, per spec.md §4.8's register-read micro-step. sig is the
// control bundle control.Lookup produced for this opcode; its Reg2Loc field
// drives the register-file's second read port exactly as it does in the
// real datapath.
func ReadOperands(rec *decode.Record, rf *cpu.RegisterFile, sig control.Signals) (Operands, error) {
	var ops Operands
	var err error

	switch rec.Format {
	case decode.FormatR:
		if ops.RnValue, err = readRegister(rf, rec.Rn); err != nil {
			return ops, err
		}
		if rec.HasImmediate {
			ops.ImmExtended = bits.SignExtend(uint64(rec.Immediate), rec.ImmBits)
		} else if ops.RmValue, err = readRegister(rf, secondRegisterName(rec, sig)); err != nil {
			return ops, err
		}
	case decode.FormatI, decode.FormatDLoad, decode.FormatDStore:
		if ops.RnValue, err = readRegister(rf, rec.Rn); err != nil {
			return ops, err
		}
		ops.ImmExtended = bits.SignExtend(uint64(rec.Immediate), rec.ImmBits)
		if rec.Format == decode.FormatDStore {
			if ops.RtValue, err = readRegister(rf, secondRegisterName(rec, sig)); err != nil {
				return ops, err
			}
		}
	case decode.FormatCB:
		if ops.RtValue, err = readRegister(rf, secondRegisterName(rec, sig)); err != nil {
			return ops, err
		}
		ops.ImmExtended = bits.SignExtend(uint64(rec.Offset), rec.OffsetBits)
	case decode.FormatB, decode.FormatCondB:
		ops.ImmExtended = bits.SignExtend(uint64(rec.Offset), rec.OffsetBits)
	case decode.FormatNOP:
		// no operands
	default:
		return ops, fmt.Errorf("stage: unhandled format %v", rec.Format)
	}
	return ops, nil
}

// SecondALUInput selects the ALU's B input per the ALUSrc control signal:
// the sign-extended immediate when set, the Rm register value otherwise.
func SecondALUInput(sig control.Signals, ops Operands) uint64 {
	if sig.ALUSrc {
		return ops.ImmExtended
	}
	return ops.RmValue
}

// EffectiveAddress computes a load/store target address: base register
// plus sign-extended byte displacement. Unaligned addresses are not
// rejected (spec.md's alignment open question resolves to "not enforced").
func EffectiveAddress(rnValue, immExtended uint64) uint64 {
	return rnValue + immExtended
}

// BranchTarget computes a branch's destination PC from the instruction's
// own address and its sign-extended byte offset.
func BranchTarget(instructionPC uint64, immExtended uint64) uint64 {
	return bits.BranchTarget(instructionPC, int64(immExtended))
}
