package asm

import (
	"testing"

	"github.com/lookbusy1344/legv8-sim/internal/imem"
)

func TestAssembleResolvesForwardLabel(t *testing.T) {
	src := `
		ADDI X1, XZR, #1
	loop:
		SUBI X1, X1, #1
		CBNZ X1, loop
		B done
	done:
		NOP
	`
	mem := imem.New()
	labels, err := Assemble(src, mem)
	if err != nil {
		t.Fatal(err)
	}
	if labels["loop"] != 4 {
		t.Errorf("loop label = %d, want 4", labels["loop"])
	}
	if labels["done"] != 16 {
		t.Errorf("done label = %d, want 16", labels["done"])
	}

	cbnz, ok := mem.Processed(8)
	if !ok {
		t.Fatal("expected instruction at address 8")
	}
	if cbnz != "CBNZ X1, -4" {
		t.Errorf("CBNZ resolved to %q, want %q", cbnz, "CBNZ X1, -4")
	}

	b, ok := mem.Processed(12)
	if !ok {
		t.Fatal("expected instruction at address 12")
	}
	if b != "B 4" {
		t.Errorf("B resolved to %q, want %q", b, "B 4")
	}
}

func TestAssembleDuplicateLabel(t *testing.T) {
	src := "loop: NOP\nloop: NOP\n"
	mem := imem.New()
	_, err := Assemble(src, mem)
	if err == nil {
		t.Fatal("expected error for duplicate label")
	}
	if _, ok := err.(*LoadError); !ok {
		t.Fatalf("expected *LoadError, got %T", err)
	}
}

func TestAssembleUndefinedLabel(t *testing.T) {
	src := "B nowhere\n"
	mem := imem.New()
	_, err := Assemble(src, mem)
	if err == nil {
		t.Fatal("expected error for undefined label")
	}
}

func TestAssembleNumericOffsetPassesThrough(t *testing.T) {
	src := "B -4\n"
	mem := imem.New()
	_, err := Assemble(src, mem)
	if err != nil {
		t.Fatal(err)
	}
	text, _ := mem.Processed(0)
	if text != "B -4" {
		t.Errorf("got %q", text)
	}
}

func TestAssembleIgnoresCommentsAndDirectives(t *testing.T) {
	src := "// a comment\n.text\nNOP // trailing comment\n"
	mem := imem.New()
	_, err := Assemble(src, mem)
	if err != nil {
		t.Fatal(err)
	}
	if mem.Len() != 1 {
		t.Errorf("Len() = %d, want 1", mem.Len())
	}
	text, ok := mem.Processed(0)
	if !ok || text != "NOP" {
		t.Errorf("Processed(0) = %q,%v, want \"NOP\",true", text, ok)
	}
}

func TestAssembleConditionalBranchLabel(t *testing.T) {
	src := "start: SUBS X1, X1, XZR\nB.EQ start\n"
	mem := imem.New()
	_, err := Assemble(src, mem)
	if err != nil {
		t.Fatal(err)
	}
	text, _ := mem.Processed(4)
	if text != "B.EQ -4" {
		t.Errorf("got %q", text)
	}
}
