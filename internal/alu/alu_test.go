package alu

import "testing"

func TestAddWraps(t *testing.T) {
	r, err := Execute(^uint64(0), 2, Add)
	if err != nil {
		t.Fatal(err)
	}
	if r.Value != 1 {
		t.Errorf("Value = %d, want 1 (wrapped)", r.Value)
	}
	if !r.C {
		t.Error("C should be set on unsigned overflow")
	}
}

func TestAddWrapProperty(t *testing.T) {
	cases := [][2]uint64{{5, 7}, {0, 0}, {^uint64(0), 1}, {1 << 63, 1 << 63}}
	for _, c := range cases {
		r, err := Execute(c[0], c[1], Add)
		if err != nil {
			t.Fatal(err)
		}
		want := c[0] + c[1] // Go's uint64 addition already wraps mod 2^64
		if r.Value != want {
			t.Errorf("add(0x%X,0x%X) = 0x%X, want 0x%X", c[0], c[1], r.Value, want)
		}
	}
}

func TestSub(t *testing.T) {
	r, err := Execute(10, 7, Sub)
	if err != nil {
		t.Fatal(err)
	}
	if r.Value != 3 || !r.C || r.N || r.Z {
		t.Errorf("10-7: %+v", r)
	}

	r, err = Execute(3, 10, Sub)
	if err != nil {
		t.Fatal(err)
	}
	if !r.N {
		t.Error("3-10 should be negative")
	}
	if r.C {
		t.Error("3-10 should have C=0 (borrow occurred)")
	}
}

func TestLogicalClearsCV(t *testing.T) {
	for _, op := range []Op{And, Orr, Eor} {
		r, err := Execute(0xFF, 0x0F, op)
		if err != nil {
			t.Fatal(err)
		}
		if r.C || r.V {
			t.Errorf("%s: C/V should be cleared, got C=%v V=%v", op, r.C, r.V)
		}
	}
}

func TestPass1ForwardsSecondOperand(t *testing.T) {
	r, err := Execute(999, 0, Pass1)
	if err != nil {
		t.Fatal(err)
	}
	if r.Value != 0 || !r.Z {
		t.Errorf("pass1(999,0) = %+v, want value=0 Z=true", r)
	}
}

func TestMulOverflow(t *testing.T) {
	r, err := Execute(1<<40, 1<<40, Mul)
	if err != nil {
		t.Fatal(err)
	}
	if !r.C {
		t.Error("C should be set when product exceeds 64 bits")
	}
}

func TestDivByZero(t *testing.T) {
	_, err := Execute(10, 0, Div)
	if err == nil {
		t.Fatal("expected ArithmeticError")
	}
	var aerr *ArithmeticError
	if !asArithmeticError(err, &aerr) {
		t.Fatalf("expected *ArithmeticError, got %T", err)
	}
}

func TestDivMinInt64ByMinusOne(t *testing.T) {
	_, err := Execute(uint64(1)<<63, ^uint64(0), Div) // 1<<63 is MinInt64's bit pattern; ^uint64(0) == -1
	if err == nil {
		t.Fatal("expected ArithmeticError for MinInt64 / -1")
	}
}

func TestShifts(t *testing.T) {
	r, err := Execute(1, 4, Lsl)
	if err != nil {
		t.Fatal(err)
	}
	if r.Value != 16 {
		t.Errorf("1<<4 = %d, want 16", r.Value)
	}

	r, err = Execute(0x80, 4, Lsr)
	if err != nil {
		t.Fatal(err)
	}
	if r.Value != 8 {
		t.Errorf("0x80>>4 = %d, want 8", r.Value)
	}
}

func asArithmeticError(err error, target **ArithmeticError) bool {
	if e, ok := err.(*ArithmeticError); ok {
		*target = e
		return true
	}
	return false
}
