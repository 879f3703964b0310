package vm

import (
	"encoding/hex"
	"testing"
)

// runHex parses a program and environment from hex and reduces them.
func runHex(t *testing.T, programHex, envHex string, maxCost uint64) (uint64, NodePtr, *Allocator, error) {
	t.Helper()
	a := NewAllocator()
	program := mustParse(t, a, programHex, false)
	env := mustParse(t, a, envHex, false)
	cost, result, err := RunProgram(a, program, env, maxCost, 0)
	return cost, result, a, err
}

func TestRunQuote(t *testing.T) {
	// (q . 0x1337)
	cost, result, a, err := runHex(t, "ff01821337", "80", 1000)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if cost != QUOTE_COST {
		t.Fatalf("cost = %d, want %d", cost, QUOTE_COST)
	}
	if hex.EncodeToString(a.Atom(result)) != "1337" {
		t.Fatalf("result = %x", a.Atom(result))
	}
}

func TestRunPathLookup(t *testing.T) {
	cases := []struct {
		name    string
		program string
		env     string
		want    string
	}{
		{"whole_env", "01", "41", "41"},
		{"first", "02", "ff4142", "41"},
		{"rest", "03", "ff4142", "42"},
		{"second", "05", "ff41ff4243", "42"},
		{"zero_path", "80", "ff4142", "80"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, result, a, err := runHex(t, tc.program, tc.env, 10_000)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			got := SerializeNode(a, result)
			if hex.EncodeToString(got) != tc.want {
				t.Fatalf("result = %x, want %s", got, tc.want)
			}
		})
	}
}

func TestRunOperators(t *testing.T) {
	cases := []struct {
		name    string
		program string
		env     string
		want    string
	}{
		// (+ (q . 3) (q . 4)) => 7
		{"add", "ff10ffff0103ffff010480", "80", "07"},
		// (- (q . 10) (q . 4)) => 6
		{"sub", "ff11ffff010affff010480", "80", "06"},
		// (* (q . 6) (q . 7)) => 42
		{"mul", "ff12ffff0106ffff010780", "80", "2a"},
		// (c (q . 1) (q . 2)) => (1 . 2)
		{"cons", "ff04ffff0101ffff010280", "80", "ff0102"},
		// (f (q . (1 . 2))) => 1
		{"first", "ff05ffff01ff010280", "80", "01"},
		// (r (q . (1 . 2))) => 2
		{"rest", "ff06ffff01ff010280", "80", "02"},
		// (i (q . 1) (q . 0x41) (q . 0x42)) => 0x41
		{"if_true", "ff03ffff0101ffff0141ffff014280", "80", "41"},
		// (i (q . ()) (q . 0x41) (q . 0x42)) => 0x42
		{"if_false", "ff03ffff0180ffff0141ffff014280", "80", "42"},
		// (= (q . 5) (q . 5)) => 1
		{"eq_true", "ff09ffff0105ffff010580", "80", "01"},
		// (= (q . 5) (q . 6)) => ()
		{"eq_false", "ff09ffff0105ffff010680", "80", "80"},
		// (> (q . 5) (q . -1)) => 1
		{"gt", "ff15ffff0105ffff0181ff80", "80", "01"},
		// (l (q . (1 . 2))) => 1
		{"listp", "ff07ffff01ff010280", "80", "01"},
		// (strlen (q . 0x112233)) => 3
		{"strlen", "ff0dffff018311223380", "80", "03"},
		// (concat (q . 0x11) (q . 0x22)) => 0x1122
		{"concat", "ff0effff0111ffff012280", "80", "821122"},
		// (substr (q . 0x112233) (q . 1) (q . 2)) => 0x22
		{"substr", "ff0cffff0183112233ffff0101ffff010280", "80", "22"},
		// (lognot (q . ())) => -1
		{"lognot", "ff1bffff018080", "80", "81ff"},
		// (any (q . ()) (q . 1)) => 1
		{"any", "ff21ffff0180ffff010180", "80", "01"},
		// (all (q . ()) (q . 1)) => ()
		{"all", "ff22ffff0180ffff010180", "80", "80"},
		// (not (q . ())) => 1
		{"not", "ff20ffff018080", "80", "01"},
		// (ash (q . 1) (q . 8)) => 256
		{"ash", "ff16ffff0101ffff010880", "80", "820100"},
		// (a (q . (+ 2 5)) (q . (3 4)))? apply: (a (q + 2 5) (q 3 4)) => 7
		{"apply", "ff02ffff01ff10ff02ff0580ffff01ff03ff048080", "80", "07"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, result, a, err := runHex(t, tc.program, tc.env, 1_000_000)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			got := SerializeNode(a, result)
			if hex.EncodeToString(got) != tc.want {
				t.Fatalf("result = %x, want %s", got, tc.want)
			}
		})
	}
}

func TestRunDivmod(t *testing.T) {
	cases := []struct {
		name    string
		program string
		want    string
	}{
		// (divmod (q . 7) (q . 3)) => (2 . 1)
		{"positive", "ff14ffff0107ffff010380", "ff0201"},
		// (divmod (q . -7) (q . 3)) => (-3 . 2): floored division
		{"negative", "ff14ffff0181f9ffff010380", "ff81fd02"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, result, a, err := runHex(t, tc.program, "80", 1_000_000)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			got := SerializeNode(a, result)
			if hex.EncodeToString(got) != tc.want {
				t.Fatalf("result = %x, want %s", got, tc.want)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		name    string
		program string
	}{
		// (x)
		{"raise", "ff0880"},
		// (f (q . 1)): first of an atom
		{"first_of_atom", "ff05ffff010180"},
		// (/ (q . 1) (q . 0))
		{"div_zero", "ff13ffff0101ffff018080"},
		// (a (q . 1)): apply needs two parameters
		{"apply_arity", "ff02ffff010180"},
		// operator position holds a pair
		{"pair_operator", "ffff010180"},
		// improper operand list: (+ . 1)
		{"improper_operands", "ff1001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := runHex(t, tc.program, "80", 1_000_000)
			if err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRunCostExceeded(t *testing.T) {
	program := "ff10ffff0103ffff010480" // (+ (q . 3) (q . 4))
	cost, _, _, err := runHex(t, program, "80", 10_000_000)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	_, _, _, err = runHex(t, program, "80", cost-1)
	if !IsCostExceeded(err) {
		t.Fatalf("expected cost exceeded, got %v", err)
	}
	// exactly at the cost is fine
	if _, _, _, err = runHex(t, program, "80", cost); err != nil {
		t.Fatalf("run at exact budget: %v", err)
	}
}

func TestUnknownOperators(t *testing.T) {
	// opcode 0x4f is not part of the dialect
	program := "ff4fffff010180"
	_, result, a, err := runHex(t, program, "80", 1_000_000)
	if err != nil {
		t.Fatalf("unknown op should be ignored outside mempool mode: %v", err)
	}
	if !a.IsNil(result) {
		t.Fatalf("unknown op result should be nil")
	}

	b := NewAllocator()
	p := mustParse(t, b, program, false)
	if _, _, err := RunProgram(b, p, b.Nil(), 1_000_000, NO_UNKNOWN_OPS); err == nil {
		t.Fatalf("unknown op should fail under NO_UNKNOWN_OPS")
	}
}
