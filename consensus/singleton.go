package consensus

import (
	"reef.dev/node/vm"
)

// SingletonStruct is the identity tuple curried into every singleton
// puzzle: the singleton module hash, the launcher coin id, and the
// launcher puzzle hash. On the wire it is
// (mod_hash . (launcher_id . launcher_puzzle_hash)).
type SingletonStruct struct {
	ModHash            [32]byte
	LauncherID         [32]byte
	LauncherPuzzleHash [32]byte
}

// LineageProof is the triple a singleton solution provides so the
// parent coin's id can be recomputed from puzzle components.
type LineageProof struct {
	ParentParentCoinInfo  [32]byte
	ParentInnerPuzzleHash [32]byte
	ParentAmount          uint64
}

// parsedSingletonPuzzle is the destructured curried form of a
// singleton's puzzle reveal.
type parsedSingletonPuzzle struct {
	modProgram  vm.NodePtr
	structNode  vm.NodePtr
	innerPuzzle vm.NodePtr
	sstruct     SingletonStruct
}

// parsedSingletonSolution is the destructured (lineage_proof amount
// inner_solution) list.
type parsedSingletonSolution struct {
	lineageNode   vm.NodePtr
	amountNode    vm.NodePtr
	innerSolution vm.NodePtr
	lineage       LineageProof
	amount        uint64
}

func atom32(a *vm.Allocator, n vm.NodePtr) ([32]byte, bool) {
	var out [32]byte
	if a.IsPair(n) || a.AtomLen(n) != 32 {
		return out, false
	}
	copy(out[:], a.Atom(n))
	return out, true
}

// parseSingletonPuzzle uncurries a puzzle reveal and destructures its
// first bound argument as a SingletonStruct.
func parseSingletonPuzzle(a *vm.Allocator, puzzle vm.NodePtr) (*parsedSingletonPuzzle, error) {
	mod, args, ok := vm.Uncurry(a, puzzle)
	if !ok || len(args) != 2 {
		return nil, valErr(puzzle, ERR_NOT_A_SINGLETON)
	}
	out := &parsedSingletonPuzzle{
		modProgram:  mod,
		structNode:  args[0],
		innerPuzzle: args[1],
	}

	modHashNode, rest, ok := splitPairC(a, args[0])
	if !ok {
		return nil, valErr(args[0], ERR_NOT_A_SINGLETON)
	}
	launcherIDNode, launcherPHNode, ok := splitPairC(a, rest)
	if !ok {
		return nil, valErr(rest, ERR_NOT_A_SINGLETON)
	}
	var okh bool
	if out.sstruct.ModHash, okh = atom32(a, modHashNode); !okh {
		return nil, valErr(modHashNode, ERR_NOT_A_SINGLETON)
	}
	if out.sstruct.LauncherID, okh = atom32(a, launcherIDNode); !okh {
		return nil, valErr(launcherIDNode, ERR_NOT_A_SINGLETON)
	}
	if out.sstruct.LauncherPuzzleHash, okh = atom32(a, launcherPHNode); !okh {
		return nil, valErr(launcherPHNode, ERR_NOT_A_SINGLETON)
	}

	// the curried module must actually be the module the struct names
	modHash := vm.TreeHash(a, mod)
	if modHash != out.sstruct.ModHash {
		return nil, valErr(mod, ERR_NOT_A_SINGLETON)
	}
	return out, nil
}

// parseSingletonSolution destructures (lineage_proof my_amount
// inner_solution), with the lineage proof itself a three-element list.
func parseSingletonSolution(a *vm.Allocator, solution vm.NodePtr) (*parsedSingletonSolution, error) {
	lineageNode, rest, ok := splitPairC(a, solution)
	if !ok {
		return nil, valErr(solution, ERR_NOT_A_SINGLETON)
	}
	amountNode, rest, ok := splitPairC(a, rest)
	if !ok {
		return nil, valErr(rest, ERR_NOT_A_SINGLETON)
	}
	innerSolution, _, ok := splitPairC(a, rest)
	if !ok {
		return nil, valErr(rest, ERR_NOT_A_SINGLETON)
	}

	out := &parsedSingletonSolution{
		lineageNode:   lineageNode,
		amountNode:    amountNode,
		innerSolution: innerSolution,
	}

	amount, overflow, err := sanitizeUint(a, amountNode, 8, ERR_INCOMPATIBLE_COIN)
	if err != nil || overflow != sanitizedOk {
		return nil, valErr(amountNode, ERR_INCOMPATIBLE_COIN)
	}
	out.amount = amount

	ppNode, lrest, ok := splitPairC(a, lineageNode)
	if !ok {
		return nil, valErr(lineageNode, ERR_LINEAGE_PROOF_MISMATCH)
	}
	innerPHNode, lrest, ok := splitPairC(a, lrest)
	if !ok {
		return nil, valErr(lrest, ERR_LINEAGE_PROOF_MISMATCH)
	}
	lamountNode, _, ok := splitPairC(a, lrest)
	if !ok {
		return nil, valErr(lrest, ERR_LINEAGE_PROOF_MISMATCH)
	}

	var okh bool
	if out.lineage.ParentParentCoinInfo, okh = atom32(a, ppNode); !okh {
		return nil, valErr(ppNode, ERR_LINEAGE_PROOF_MISMATCH)
	}
	if out.lineage.ParentInnerPuzzleHash, okh = atom32(a, innerPHNode); !okh {
		return nil, valErr(innerPHNode, ERR_LINEAGE_PROOF_MISMATCH)
	}
	lamount, overflow, err := sanitizeUint(a, lamountNode, 8, ERR_LINEAGE_PROOF_MISMATCH)
	if err != nil || overflow != sanitizedOk {
		return nil, valErr(lamountNode, ERR_LINEAGE_PROOF_MISMATCH)
	}
	out.lineage.ParentAmount = lamount
	return out, nil
}

// singletonStructHash computes the tree hash of a SingletonStruct in
// its wire shape.
func singletonStructHash(s *SingletonStruct) vm.Hash32 {
	modHash := vm.TreeHashAtomBytes(s.ModHash[:])
	launcherID := vm.TreeHashAtomBytes(s.LauncherID[:])
	launcherPH := vm.TreeHashAtomBytes(s.LauncherPuzzleHash[:])
	return vm.TreeHashPairHashes(modHash, vm.TreeHashPairHashes(launcherID, launcherPH))
}

// SingletonPuzzleHash computes the full puzzle hash of a singleton from
// its struct and inner puzzle hash, without building the curried tree.
func SingletonPuzzleHash(s *SingletonStruct, innerPuzzleHash [32]byte) [32]byte {
	return vm.CurryTreeHash(s.ModHash, []vm.Hash32{singletonStructHash(s), innerPuzzleHash})
}

func splitPairC(a *vm.Allocator, n vm.NodePtr) (vm.NodePtr, vm.NodePtr, bool) {
	if !a.IsPair(n) {
		return vm.NilPtr, vm.NilPtr, false
	}
	first, rest := a.Pair(n)
	return first, rest, true
}
