package consensus

import (
	"reef.dev/node/vm"
)

// RunPuzzle evaluates a single puzzle reveal against its solution and
// parses the resulting condition list: the mempool-item path, outside
// any block context. The aggregate signature is the caller's to check,
// so ValidatedSignature is never set here.
func RunPuzzle(
	a *vm.Allocator,
	puzzleBytes []byte,
	solutionBytes []byte,
	parentID [32]byte,
	amount uint64,
	maxCost uint64,
	flags uint32,
	constants *ConsensusConstants,
) (*SpendBundleConditions, error) {
	puzzle, err := vm.ParseBytes(a, puzzleBytes)
	if err != nil {
		return nil, wrapVMErr(err)
	}
	solution, err := vm.ParseBytes(a, solutionBytes)
	if err != nil {
		return nil, wrapVMErr(err)
	}

	vmCost, conditions, err := vm.RunProgram(a, puzzle, solution, maxCost, flags)
	if err != nil {
		return nil, wrapVMErr(err)
	}

	puzzleHash := vm.TreeHash(a, puzzle)
	puzzleHashAtom, err := a.NewAtom(puzzleHash[:])
	if err != nil {
		return nil, wrapVMErr(err)
	}
	parentAtom, err := a.NewAtom(parentID[:])
	if err != nil {
		return nil, wrapVMErr(err)
	}
	coinID := computeCoinID(parentID[:], puzzleHash[:], vm.U64ToBytes(amount))

	p := newParser(a, flags, maxCost-vmCost, constants)
	if err := p.ParseSpend(parentAtom, puzzleHashAtom, amount, coinID, conditions); err != nil {
		return nil, err
	}
	if err := p.finish(); err != nil {
		return nil, err
	}

	bundle := p.bundle
	bundle.ExecutionCost = vmCost
	bundle.Cost = vmCost + bundle.ConditionCost
	if bundle.Cost > maxCost {
		return nil, valErr(vm.NilPtr, ERR_COST_EXCEEDED)
	}
	return bundle, nil
}
