package consensus

import (
	"reef.dev/node/vm"
)

// FastForwardSingleton rewrites a recorded singleton spend so it
// applies to a later coin of the same lineage without re-signing:
// the puzzle reveal, inner solution and delegated conditions are kept
// byte-identical, and only the solution's lineage proof is replaced so
// it describes newParent instead of the recorded parent.
//
// recCoin is the coin the solution was recorded against, newCoin the
// coin to spend now, and newParent newCoin's parent. The returned node
// is the rewritten solution.
func FastForwardSingleton(
	a *vm.Allocator,
	puzzle vm.NodePtr,
	solution vm.NodePtr,
	recCoin *Coin,
	newCoin *Coin,
	newParent *Coin,
) (vm.NodePtr, error) {
	parsed, err := parseSingletonPuzzle(a, puzzle)
	if err != nil {
		return vm.NilPtr, err
	}
	sol, err := parseSingletonSolution(a, solution)
	if err != nil {
		return vm.NilPtr, err
	}

	// singletons are lineage-identified by puzzle hash; the launcher id
	// rides inside it via the curry
	if recCoin.PuzzleHash != newCoin.PuzzleHash {
		return vm.NilPtr, valErrf(puzzle, ERR_INCOMPATIBLE_COIN, "puzzle hash changed across lineage")
	}
	if recCoin.Amount != newCoin.Amount || recCoin.Amount&1 == 0 {
		return vm.NilPtr, valErrf(puzzle, ERR_INCOMPATIBLE_COIN, "singleton amounts must match and be odd")
	}
	if newParent.PuzzleHash != recCoin.PuzzleHash || newParent.Amount != recCoin.Amount {
		return vm.NilPtr, valErrf(puzzle, ERR_INCOMPATIBLE_COIN, "parent is not part of the lineage")
	}
	if newCoin.ParentCoinInfo != newParent.ID() {
		return vm.NilPtr, valErrf(puzzle, ERR_INCOMPATIBLE_COIN, "target coin is not the parent's child")
	}
	if sol.amount != recCoin.Amount {
		return vm.NilPtr, valErrf(sol.amountNode, ERR_INCOMPATIBLE_COIN, "solution amount does not match the recorded coin")
	}

	// the recorded puzzle must actually hash to the recorded coin
	puzzleHash := vm.TreeHash(a, puzzle)
	if puzzleHash != recCoin.PuzzleHash {
		return vm.NilPtr, valErr(puzzle, ERR_NOT_A_SINGLETON)
	}

	// the recorded lineage proof must reproduce recCoin's parent id
	recParentPH := SingletonPuzzleHash(&parsed.sstruct, sol.lineage.ParentInnerPuzzleHash)
	recParent := Coin{
		ParentCoinInfo: sol.lineage.ParentParentCoinInfo,
		PuzzleHash:     recParentPH,
		Amount:         sol.lineage.ParentAmount,
	}
	if recParent.ID() != recCoin.ParentCoinInfo {
		return vm.NilPtr, valErr(sol.lineageNode, ERR_LINEAGE_PROOF_MISMATCH)
	}

	// rewrite: the proof now describes newParent, whose inner puzzle
	// hash and amount are unchanged across the lineage
	newProof := LineageProof{
		ParentParentCoinInfo:  newParent.ParentCoinInfo,
		ParentInnerPuzzleHash: sol.lineage.ParentInnerPuzzleHash,
		ParentAmount:          newParent.Amount,
	}
	proofNode, err := allocLineageProof(a, &newProof)
	if err != nil {
		return vm.NilPtr, wrapVMErr(err)
	}

	// rebuild (lineage_proof my_amount inner_solution)
	tail, err := a.NewPair(sol.innerSolution, a.Nil())
	if err != nil {
		return vm.NilPtr, wrapVMErr(err)
	}
	tail, err = a.NewPair(sol.amountNode, tail)
	if err != nil {
		return vm.NilPtr, wrapVMErr(err)
	}
	out, err := a.NewPair(proofNode, tail)
	if err != nil {
		return vm.NilPtr, wrapVMErr(err)
	}
	return out, nil
}

// allocLineageProof builds the (parent_parent_id inner_puzzle_hash
// amount) list.
func allocLineageProof(a *vm.Allocator, proof *LineageProof) (vm.NodePtr, error) {
	amount, err := a.NewU64(proof.ParentAmount)
	if err != nil {
		return vm.NilPtr, err
	}
	innerPH, err := a.NewAtom(proof.ParentInnerPuzzleHash[:])
	if err != nil {
		return vm.NilPtr, err
	}
	parent, err := a.NewAtom(proof.ParentParentCoinInfo[:])
	if err != nil {
		return vm.NilPtr, err
	}
	rest, err := a.NewPair(amount, a.Nil())
	if err != nil {
		return vm.NilPtr, err
	}
	rest, err = a.NewPair(innerPH, rest)
	if err != nil {
		return vm.NilPtr, err
	}
	return a.NewPair(parent, rest)
}
