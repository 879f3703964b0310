package main

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"reef.dev/node/vm"
)

func TestHandleTreeHash(t *testing.T) {
	// (q . 7) — hash must match the in-allocator computation
	a := vm.NewAllocator()
	n, err := vm.ParseBytes(a, []byte{0xff, 0x01, 0x07})
	require.NoError(t, err)
	want := vm.TreeHash(a, n)

	resp := handle(Request{Op: "tree_hash", ProgramHex: "ff0107"})
	require.True(t, resp.Ok, resp.Err)
	require.Equal(t, hex.EncodeToString(want[:]), resp.TreeHashHex)
}

func TestHandleRunPuzzle(t *testing.T) {
	// puzzle `1` echoes the solution: one CREATE_COIN of amount 1
	scratch := vm.NewAllocator()
	ph := make([]byte, 32)
	for i := range ph {
		ph[i] = 0x33
	}
	phAtom, err := scratch.NewAtom(ph)
	require.NoError(t, err)
	one, err := scratch.NewU64(1)
	require.NoError(t, err)
	op, err := scratch.NewU64(51)
	require.NoError(t, err)

	nilN := scratch.Nil()
	condList, err := scratch.NewPair(op, mustCons(t, scratch, phAtom, mustCons(t, scratch, one, nilN)))
	require.NoError(t, err)
	solution, err := scratch.NewPair(condList, nilN)
	require.NoError(t, err)

	resp := handle(Request{
		Op:          "run_puzzle",
		ProgramHex:  "01",
		SolutionHex: hex.EncodeToString(vm.SerializeNode(scratch, solution)),
		ParentHex:   hex.EncodeToString(make([]byte, 32)),
		Amount:      1,
	})
	require.True(t, resp.Ok, resp.Err)
	require.Len(t, resp.Spends, 1)
	require.NotZero(t, resp.Cost)
}

func TestHandleUnknownOp(t *testing.T) {
	resp := handle(Request{Op: "mystery"})
	require.False(t, resp.Ok)
}

func mustCons(t *testing.T, a *vm.Allocator, first, rest vm.NodePtr) vm.NodePtr {
	t.Helper()
	p, err := a.NewPair(first, rest)
	require.NoError(t, err)
	return p
}
