// Package asm implements the two-pass assembler of spec.md §4.10,
// grounded line-for-line on original_source/simulator/assembler.py: pass
// one builds the label table and the raw-instruction-by-address map,
// pass two resolves branch-instruction label operands to signed byte
// offsets. Comments starting with "//" are stripped; lines starting with
// "." or "#" are treated as directives and skipped, matching the
// original.
package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lookbusy1344/legv8-sim/internal/imem"
)

// LoadError reports an assembly failure: a duplicate or undefined label,
// or a branch operand that is neither a label nor a number.
type LoadError struct {
	Line    int
	Address uint64
	Message string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("assembler: line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("assembler: 0x%X: %s", e.Address, e.Message)
}

var labelDefRE = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*):\s*(.*)`)

// branchOpcodes names every instruction whose final operand may be a
// label instead of a numeric offset.
var branchOpcodes = map[string]bool{
	"CBZ": true, "CBNZ": true, "B": true,
	"B.EQ": true, "B.NE": true, "B.LT": true, "B.LE": true, "B.GT": true,
	"B.GE": true, "B.LO": true, "B.LS": true, "B.HI": true, "B.HS": true,
}

// cbFormat opcodes carry the label as their second operand (Rt, label);
// all other branch opcodes carry it as their sole operand.
var cbFormat = map[string]bool{"CBZ": true, "CBNZ": true}

var splitRE = regexp.MustCompile(`[,\s()\[\]]+`)

type rawInstruction struct {
	address  uint64
	text     string
	original string
	line     int
}

// Assemble runs both passes over source text and populates mem with the
// processed, raw, and (left empty; no binary encoding in this domain)
// instruction views, plus the returned label table.
func Assemble(source string, mem *imem.Memory) (map[string]uint64, error) {
	labels := map[string]uint64{}
	var rawList []rawInstruction

	var address uint64
	lineNum := 0
	for _, line := range strings.Split(source, "\n") {
		lineNum++
		cleaned := line
		if idx := strings.Index(cleaned, "//"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			continue
		}

		instructionPart := cleaned
		if m := labelDefRE.FindStringSubmatch(cleaned); m != nil {
			label := m[1]
			instructionPart = strings.TrimSpace(m[2])
			if _, exists := labels[label]; exists {
				return nil, &LoadError{Line: lineNum, Message: fmt.Sprintf("duplicate label %q", label)}
			}
			labels[label] = address
		}

		if instructionPart == "" {
			continue
		}
		if strings.HasPrefix(instructionPart, ".") || strings.HasPrefix(instructionPart, "#") {
			continue
		}

		rawList = append(rawList, rawInstruction{
			address:  address,
			text:     instructionPart,
			original: strings.TrimSpace(line),
			line:     lineNum,
		})
		address += 4
	}

	for _, instr := range rawList {
		processed, err := resolveBranchLabel(instr, labels)
		if err != nil {
			return nil, err
		}
		mem.Set(instr.address, processed, instr.original)
	}

	return labels, nil
}

func resolveBranchLabel(instr rawInstruction, labels map[string]uint64) (string, error) {
	parts := tokenizeUpper(instr.text)
	if len(parts) == 0 {
		return instr.text, nil
	}
	opcode := parts[0]
	if !branchOpcodes[opcode] {
		return instr.text, nil
	}

	minParts := 2
	if cbFormat[opcode] {
		minParts = 3
	}
	if len(parts) < minParts {
		return instr.text, nil
	}

	lastOperand := strings.TrimSpace(parts[len(parts)-1])
	if _, err := strconv.ParseInt(lastOperand, 10, 64); err == nil {
		return instr.text, nil
	}

	targetAddr, ok := lookupLabel(labels, lastOperand)
	if !ok {
		return "", &LoadError{Address: instr.address, Message: fmt.Sprintf("undefined label %q in %q", lastOperand, instr.text)}
	}
	offset := int64(targetAddr) - int64(instr.address)

	trimmed := strings.TrimRight(instr.text, " \t")
	idx := strings.LastIndex(strings.ToUpper(trimmed), strings.ToUpper(lastOperand))
	if idx < 0 {
		return "", &LoadError{Address: instr.address, Message: fmt.Sprintf("could not locate label operand %q in %q", lastOperand, instr.text)}
	}
	return trimmed[:idx] + strconv.FormatInt(offset, 10), nil
}

func lookupLabel(labels map[string]uint64, name string) (uint64, bool) {
	upper := strings.ToUpper(name)
	for k, v := range labels {
		if strings.ToUpper(k) == upper {
			return v, true
		}
	}
	return 0, false
}

func tokenizeUpper(text string) []string {
	fields := splitRE.Split(strings.ToUpper(strings.TrimSpace(text)), -1)
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
