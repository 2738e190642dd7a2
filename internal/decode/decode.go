// Package decode implements the per-format instruction text decoders of
// spec.md §4.7: tokenizing processed instruction text on the separators
// `, ( ) [ ]` and whitespace, stripping the `#` immediate prefix, and
// producing a decoded record. The tokenizing idiom is grounded on the
// teacher's parser/lexer.go (which splits on a fixed separator set); the
// full recursive-descent lexer/parser architecture there is not reused —
// LEGv8's flat per-line grammar doesn't need it (see DESIGN.md).
package decode

import (
	"fmt"
	"strconv"
	"strings"
)

// Format names an instruction's operand shape.
type Format int

const (
	FormatR Format = iota
	FormatI
	FormatDLoad
	FormatDStore
	FormatCB
	FormatB
	FormatCondB
	FormatNOP
)

// SyntaxError reports a decode failure: wrong operand count/shape, or an
// immediate that doesn't parse.
type SyntaxError struct {
	Instruction string
	Message     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %q: %s", e.Instruction, e.Message)
}

// Record is the decoded, format-specific instruction description that
// Decode and Execute stages consume.
type Record struct {
	Opcode string
	Format Format

	Rd string // destination register name, where applicable
	Rn string // first source register name, where applicable
	Rm string // second source register name (R-format register form)

	HasImmediate bool
	Immediate    int64 // already sign-interpreted; caller sign-extends to 64 bits
	ImmBits      int

	HasOffset bool
	Offset    int64 // branch byte offset, already sign-interpreted
	OffsetBits int
}

// formats maps every mnemonic spec.md §6 lists to its operand format.
var formats = map[string]Format{
	"ADD": FormatR, "ADDS": FormatR, "SUB": FormatR, "SUBS": FormatR,
	"AND": FormatR, "ANDS": FormatR, "ORR": FormatR, "EOR": FormatR,
	"MUL": FormatR, "DIV": FormatR, "LSL": FormatR, "LSR": FormatR,

	"ADDI": FormatI, "ADDIS": FormatI, "SUBI": FormatI, "SUBIS": FormatI,
	"ANDI": FormatI, "ORRI": FormatI, "EORI": FormatI,

	"LDUR": FormatDLoad,
	"STUR": FormatDStore,

	"CBZ": FormatCB, "CBNZ": FormatCB,

	"B": FormatB,

	"B.EQ": FormatCondB, "B.NE": FormatCondB, "B.LT": FormatCondB, "B.LE": FormatCondB,
	"B.GT": FormatCondB, "B.GE": FormatCondB, "B.LO": FormatCondB, "B.LS": FormatCondB,
	"B.HI": FormatCondB, "B.HS": FormatCondB,

	"NOP": FormatNOP,
}

// FormatOf returns the operand format for opcode, case-insensitively, and
// whether the mnemonic is recognized.
func FormatOf(opcode string) (Format, bool) {
	f, ok := formats[strings.ToUpper(opcode)]
	return f, ok
}

// isShift reports whether opcode's R-format third operand is a shift
// amount immediate (LSL/LSR) rather than a register (everything else).
func isShift(opcode string) bool {
	up := strings.ToUpper(opcode)
	return up == "LSL" || up == "LSR"
}

// tokenize splits instruction text on commas, parens, brackets, and
// whitespace, discarding empty tokens, per spec.md §4.7.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', '(', ')', '[', ']', ' ', '\t':
			return true
		}
		return false
	})
	return fields
}

func parseImmediate(tok string) (int64, error) {
	tok = strings.TrimPrefix(tok, "#")
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid immediate %q", tok)
	}
	return v, nil
}

// Decode dispatches to the format-specific decoder for opcode and returns
// the decoded record, or a *SyntaxError.
func Decode(instruction string) (*Record, error) {
	toks := tokenize(instruction)
	if len(toks) == 0 {
		return nil, &SyntaxError{Instruction: instruction, Message: "empty instruction"}
	}
	opcode := strings.ToUpper(toks[0])
	format, known := FormatOf(opcode)
	if !known {
		return nil, &SyntaxError{Instruction: instruction, Message: fmt.Sprintf("unknown mnemonic %q", toks[0])}
	}
	operands := toks[1:]

	rec := &Record{Opcode: opcode, Format: format}

	switch format {
	case FormatR:
		return decodeR(rec, operands, instruction)
	case FormatI:
		return decodeI(rec, operands, instruction)
	case FormatDLoad, FormatDStore:
		return decodeD(rec, operands, instruction)
	case FormatCB:
		return decodeCB(rec, operands, instruction)
	case FormatB:
		return decodeB(rec, operands, instruction)
	case FormatCondB:
		return decodeCondB(rec, operands, instruction)
	case FormatNOP:
		return decodeNOP(rec, operands, instruction)
	default:
		return nil, &SyntaxError{Instruction: instruction, Message: "unreachable format"}
	}
}

func decodeR(rec *Record, ops []string, instr string) (*Record, error) {
	if len(ops) != 3 {
		return nil, &SyntaxError{instr, "R-format requires 3 operands"}
	}
	rec.Rd, rec.Rn = ops[0], ops[1]
	if isShift(rec.Opcode) {
		imm, err := parseImmediate(ops[2])
		if err != nil {
			return nil, &SyntaxError{instr, err.Error()}
		}
		rec.HasImmediate = true
		rec.Immediate = imm
		rec.ImmBits = 6
	} else {
		rec.Rm = ops[2]
	}
	return rec, nil
}

func decodeI(rec *Record, ops []string, instr string) (*Record, error) {
	if len(ops) != 3 {
		return nil, &SyntaxError{instr, "I-format requires 3 operands"}
	}
	rec.Rd, rec.Rn = ops[0], ops[1]
	imm, err := parseImmediate(ops[2])
	if err != nil {
		return nil, &SyntaxError{instr, err.Error()}
	}
	rec.HasImmediate = true
	rec.Immediate = imm
	rec.ImmBits = 12
	return rec, nil
}

func decodeD(rec *Record, ops []string, instr string) (*Record, error) {
	if len(ops) != 3 {
		return nil, &SyntaxError{instr, "D-format requires Rt, Rn, #imm"}
	}
	rec.Rd = ops[0] // Rt: destination for LDUR, source for STUR (caller interprets per opcode)
	rec.Rn = ops[1]
	imm, err := parseImmediate(ops[2])
	if err != nil {
		return nil, &SyntaxError{instr, err.Error()}
	}
	rec.HasImmediate = true
	rec.Immediate = imm
	rec.ImmBits = 9
	return rec, nil
}

func decodeCB(rec *Record, ops []string, instr string) (*Record, error) {
	if len(ops) != 2 {
		return nil, &SyntaxError{instr, "CB-format requires Rt, offset"}
	}
	rec.Rd = ops[0] // Rt read for the comparison, not written
	off, err := parseImmediate(ops[1])
	if err != nil {
		return nil, &SyntaxError{instr, err.Error()}
	}
	rec.HasOffset = true
	rec.Offset = off
	rec.OffsetBits = 19
	return rec, nil
}

func decodeB(rec *Record, ops []string, instr string) (*Record, error) {
	if len(ops) != 1 {
		return nil, &SyntaxError{instr, "B-format requires a single offset operand"}
	}
	off, err := parseImmediate(ops[0])
	if err != nil {
		return nil, &SyntaxError{instr, err.Error()}
	}
	rec.HasOffset = true
	rec.Offset = off
	rec.OffsetBits = 26
	return rec, nil
}

func decodeCondB(rec *Record, ops []string, instr string) (*Record, error) {
	return decodeB(rec, ops, instr)
}

func decodeNOP(rec *Record, ops []string, instr string) (*Record, error) {
	if len(ops) != 0 {
		return nil, &SyntaxError{instr, "NOP takes no operands"}
	}
	return rec, nil
}
