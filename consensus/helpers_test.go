package consensus

import (
	"bytes"
	"crypto/sha256"
	"math/big"
	"testing"

	"reef.dev/node/vm"
)

// test constants: mainnet values with a recognizable signing domain in
// place of the network's own.
func testConstants() *ConsensusConstants {
	c := MainnetConstants()
	c.AggSigAdditionalData = h32(0xee)
	return c
}

func h32(b byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = b
	}
	return out
}

func atom(t *testing.T, a *vm.Allocator, b []byte) vm.NodePtr {
	t.Helper()
	n, err := a.NewAtom(b)
	if err != nil {
		t.Fatalf("NewAtom: %v", err)
	}
	return n
}

func num(t *testing.T, a *vm.Allocator, v int64) vm.NodePtr {
	t.Helper()
	n, err := a.NewNumber(big.NewInt(v))
	if err != nil {
		t.Fatalf("NewNumber: %v", err)
	}
	return n
}

func list(t *testing.T, a *vm.Allocator, items ...vm.NodePtr) vm.NodePtr {
	t.Helper()
	out := a.Nil()
	for i := len(items) - 1; i >= 0; i-- {
		var err error
		out, err = a.NewPair(items[i], out)
		if err != nil {
			t.Fatalf("NewPair: %v", err)
		}
	}
	return out
}

func quote(t *testing.T, a *vm.Allocator, n vm.NodePtr) vm.NodePtr {
	t.Helper()
	q, err := a.NewPair(a.One(), n)
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	return q
}

// condition builders over a scratch allocator

func condCreateCoin(t *testing.T, a *vm.Allocator, ph [32]byte, amount int64) vm.NodePtr {
	return list(t, a, num(t, a, CREATE_COIN), atom(t, a, ph[:]), num(t, a, amount))
}

// testSpend describes one generator spend for buildGenerator.
type testSpend struct {
	parent     [32]byte
	amount     int64
	conditions []vm.NodePtr // built against the same scratch allocator
	// puzzle overrides the default (q . conditions) reveal
	puzzle vm.NodePtr
	// solution defaults to nil
	solution vm.NodePtr
}

// buildGenerator serializes a quoted generator returning the given
// spends. The returned bytes are driver input; the scratch allocator is
// throwaway.
func buildGenerator(t *testing.T, a *vm.Allocator, spends []testSpend) []byte {
	t.Helper()
	nodes := make([]vm.NodePtr, 0, len(spends))
	for _, s := range spends {
		puzzle := s.puzzle
		if puzzle == 0 {
			puzzle = quote(t, a, list(t, a, s.conditions...))
		}
		solution := s.solution
		if solution == 0 {
			solution = a.Nil()
		}
		nodes = append(nodes, list(t, a,
			atom(t, a, s.parent[:]),
			puzzle,
			num(t, a, s.amount),
			solution,
		))
	}
	program := quote(t, a, list(t, a, list(t, a, nodes...)))
	return vm.SerializeNode(a, program)
}

// puzzleHashOf computes the tree hash of the default (q . conditions)
// reveal a testSpend produces.
func puzzleHashOf(t *testing.T, a *vm.Allocator, conditions []vm.NodePtr) [32]byte {
	t.Helper()
	return vm.TreeHash(a, quote(t, a, list(t, a, conditions...)))
}

func coinIDFor(parent [32]byte, puzzleHash [32]byte, amount uint64) [32]byte {
	c := Coin{ParentCoinInfo: parent, PuzzleHash: puzzleHash, Amount: amount}
	return c.ID()
}

func announcementID(prefix [32]byte, msg []byte) [32]byte {
	h := sha256.New()
	h.Write(prefix[:])
	h.Write(msg)
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// runGenerator runs the given generator bytes under the current driver
// with signature validation disabled.
func runGenerator(t *testing.T, generator []byte, maxCost uint64, flags uint32) (*SpendBundleConditions, *vm.Allocator, error) {
	t.Helper()
	a := vm.NewAllocator()
	bundle, err := RunBlockGenerator2(a, generator, nil, maxCost, flags|DONT_VALIDATE_SIGNATURE, nil, nil, testConstants())
	return bundle, a, err
}

func requireErrCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got success", code)
	}
	if got := ErrCodeOf(err); got != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func bytesEqual(a, b []byte) bool { return bytes.Equal(a, b) }
