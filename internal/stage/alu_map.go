// Package stage holds the per-opcode tables that the Execute/Memory/
// WriteBack micro-steps consult: which ALU operation an opcode selects,
// and the display-only control-bit encoding for that operation. Grounded
// on original_source/simulator/alu_mappings.py's ALU_OP_MAPPINGS and
// ALU_CONTROL_BITS tables.
package stage

import (
	"strings"

	"github.com/lookbusy1344/legv8-sim/internal/alu"
)

// aluOps maps a mnemonic to the ALU operation it selects. B and the
// conditional branches have no entry: they never reach the ALU.
var aluOps = map[string]alu.Op{
	"ADD": alu.Add, "ADDS": alu.Add,
	"SUB": alu.Sub, "SUBS": alu.Sub,
	"AND": alu.And, "ANDS": alu.And,
	"ORR": alu.Orr,
	"EOR": alu.Eor,
	"MUL": alu.Mul,
	"DIV": alu.Div,
	"LSL": alu.Lsl,
	"LSR": alu.Lsr,

	"ADDI": alu.Add, "ADDIS": alu.Add,
	"SUBI": alu.Sub, "SUBIS": alu.Sub,
	"ANDI": alu.And,
	"ORRI": alu.Orr,
	"EORI": alu.Eor,

	"LDUR": alu.Add,
	"STUR": alu.Add,

	"CBZ":  alu.Pass1,
	"CBNZ": alu.Pass1,
}

// ALUOperationFor returns the ALU operation opcode selects and whether
// one applies; B and the B.cond family return ok=false since they
// compute their target directly from the sign-extended offset.
func ALUOperationFor(opcode string) (alu.Op, bool) {
	op, ok := aluOps[strings.ToUpper(opcode)]
	return op, ok
}

// aluControlBits is the 4-bit display encoding original_source's
// visualization panel shows beside the ALU; it has no effect on
// execution and exists purely for Inspect/trace output.
var aluControlBits = map[alu.Op]string{
	alu.And:   "0000",
	alu.Orr:   "0001",
	alu.Add:   "0010",
	alu.Eor:   "0100",
	alu.Sub:   "0110",
	alu.Pass1: "0111",
	alu.Mul:   "1000",
	alu.Div:   "1001",
	alu.Lsl:   "1010",
	alu.Lsr:   "1011",
}

// ALUControlBits returns the display-only 4-bit control code for an ALU
// operation, or "XXXX" if the operation has none (matching
// original_source's get_alu_control_bits fallback).
func ALUControlBits(op alu.Op) string {
	if bits, ok := aluControlBits[op]; ok {
		return bits
	}
	return "XXXX"
}
