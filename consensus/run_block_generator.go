package consensus

import (
	"math"

	"reef.dev/node/crypto/bls"
	"reef.dev/node/vm"
)

// setupGeneratorArgs builds the generator's environment: a one-element
// list holding the list of referenced previous block programs, each
// materialized as an atom carrying that generator's raw bytes.
func setupGeneratorArgs(a *vm.Allocator, refPrograms [][]byte) (vm.NodePtr, error) {
	refs := a.Nil()
	for i := len(refPrograms) - 1; i >= 0; i-- {
		atom, err := a.NewAtom(refPrograms[i])
		if err != nil {
			return vm.NilPtr, wrapVMErr(err)
		}
		refs, err = a.NewPair(atom, refs)
		if err != nil {
			return vm.NilPtr, wrapVMErr(err)
		}
	}
	env, err := a.NewPair(refs, a.Nil())
	if err != nil {
		return vm.NilPtr, wrapVMErr(err)
	}
	return env, nil
}

// RunBlockGenerator is the legacy driver. It evaluates the whole block
// and enforces the cost ceiling once, at the end; for every valid block
// its normalized output is identical to RunBlockGenerator2's.
func RunBlockGenerator(
	a *vm.Allocator,
	blockProgram []byte,
	refPrograms [][]byte,
	maxCost uint64,
	flags uint32,
	signature *bls.Signature,
	blsCache *bls.Cache,
	constants *ConsensusConstants,
) (*SpendBundleConditions, error) {
	return runBlockGenerator(a, blockProgram, refPrograms, maxCost, flags, signature, blsCache, constants, false)
}

// RunBlockGenerator2 is the current driver, gated by
// hard_fork_fix_height: each spend's puzzle runs as a separate VM
// reduction and every cost is charged the moment it accrues, so
// CostExceeded can fire mid-block without evaluating the rest.
func RunBlockGenerator2(
	a *vm.Allocator,
	blockProgram []byte,
	refPrograms [][]byte,
	maxCost uint64,
	flags uint32,
	signature *bls.Signature,
	blsCache *bls.Cache,
	constants *ConsensusConstants,
) (*SpendBundleConditions, error) {
	return runBlockGenerator(a, blockProgram, refPrograms, maxCost, flags, signature, blsCache, constants, true)
}

// RunBlockGeneratorForHeight picks the driver the given block height
// must use.
func RunBlockGeneratorForHeight(
	a *vm.Allocator,
	height uint32,
	blockProgram []byte,
	refPrograms [][]byte,
	maxCost uint64,
	flags uint32,
	signature *bls.Signature,
	blsCache *bls.Cache,
	constants *ConsensusConstants,
) (*SpendBundleConditions, error) {
	if height >= constants.HardForkFixHeight {
		return RunBlockGenerator2(a, blockProgram, refPrograms, maxCost, flags, signature, blsCache, constants)
	}
	return RunBlockGenerator(a, blockProgram, refPrograms, maxCost, flags, signature, blsCache, constants)
}

func runBlockGenerator(
	a *vm.Allocator,
	blockProgram []byte,
	refPrograms [][]byte,
	maxCost uint64,
	flags uint32,
	signature *bls.Signature,
	blsCache *bls.Cache,
	constants *ConsensusConstants,
	incremental bool,
) (*SpendBundleConditions, error) {
	var execCost uint64

	byteCost := uint64(len(blockProgram)) * constants.CostPerByte
	if byteCost > maxCost {
		return nil, valErr(vm.NilPtr, ERR_COST_EXCEEDED)
	}
	execCost += byteCost

	var program vm.NodePtr
	var err error
	if flags&ALLOW_BACKREFS != 0 {
		program, err = vm.ParseBytesBackrefs(a, blockProgram)
	} else {
		program, err = vm.ParseBytes(a, blockProgram)
	}
	if err != nil {
		return nil, wrapVMErr(err)
	}

	env, err := setupGeneratorArgs(a, refPrograms)
	if err != nil {
		return nil, err
	}

	vmCost, output, err := vm.RunProgram(a, program, env, maxCost-execCost, flags)
	if err != nil {
		return nil, wrapVMErr(err)
	}
	execCost += vmCost

	// the generator returns a one-element list holding the spend list
	if !a.IsPair(output) {
		return nil, valErr(output, ERR_EXPECTED_PAIR)
	}
	spends, _ := a.Pair(output)

	// under the incremental driver the parser draws condition costs
	// from the same budget the VM draws execution costs from; the
	// legacy driver reconciles against the ceiling only at the end
	parserBudget := maxCost - execCost
	if !incremental {
		parserBudget = math.MaxUint64
	}
	p := newParser(a, flags, parserBudget, constants)

	hashCache := make(map[vm.NodePtr]vm.Hash32)
	rest := spends
	for a.IsPair(rest) {
		var spendNode vm.NodePtr
		spendNode, rest = a.Pair(rest)

		puzzleCost, err := p.parseGeneratorSpend(spendNode, maxCost, &execCost, hashCache, incremental)
		if err != nil {
			return nil, err
		}
		execCost += puzzleCost
		if incremental && execCost > maxCost {
			return nil, valErr(spendNode, ERR_COST_EXCEEDED)
		}
	}

	if err := p.finish(); err != nil {
		return nil, err
	}

	bundle := p.bundle
	bundle.ExecutionCost = execCost
	bundle.Cost = execCost + bundle.ConditionCost
	if bundle.Cost > maxCost || bundle.Cost < execCost {
		return nil, valErr(vm.NilPtr, ERR_COST_EXCEEDED)
	}

	if err := validateSignature(a, bundle, flags, signature, blsCache, constants); err != nil {
		return nil, err
	}
	return bundle, nil
}

// parseGeneratorSpend destructures one (parent puzzle amount solution
// . ignored) element, runs the puzzle against its solution, and hands
// the resulting condition list to the condition parser.
func (p *parser) parseGeneratorSpend(spendNode vm.NodePtr, maxCost uint64, execCost *uint64, hashCache map[vm.NodePtr]vm.Hash32, incremental bool) (uint64, error) {
	a := p.a

	parentNode, rest, err := p.next(spendNode)
	if err != nil {
		return 0, err
	}
	if a.IsPair(parentNode) || a.AtomLen(parentNode) != 32 {
		return 0, valErr(parentNode, ERR_INVALID_PARENT_ID)
	}
	puzzle, rest, err := p.next(rest)
	if err != nil {
		return 0, err
	}
	amountNode, rest, err := p.next(rest)
	if err != nil {
		return 0, err
	}
	amount, overflow, err := sanitizeUint(a, amountNode, 8, ERR_INVALID_COIN_AMOUNT)
	if err != nil {
		return 0, err
	}
	switch overflow {
	case sanitizedNegativeOverflow:
		return 0, valErr(amountNode, ERR_INVALID_COIN_AMOUNT)
	case sanitizedPositiveOverflow:
		return 0, valErr(amountNode, ERR_AMOUNT_EXCEEDS_MAX)
	}
	solution, _, err := p.next(rest)
	if err != nil {
		return 0, err
	}

	puzzleHash := vm.TreeHashCached(a, puzzle, hashCache)
	puzzleHashAtom, err := a.NewAtom(puzzleHash[:])
	if err != nil {
		return 0, wrapVMErr(err)
	}
	coinID := computeCoinID(a.Atom(parentNode), puzzleHash[:], vm.U64ToBytes(amount))

	budget := maxCost
	if incremental {
		budget = p.costLeft
	}
	puzzleCost, conditions, err := vm.RunProgram(a, puzzle, solution, budget, p.flags)
	if err != nil {
		return 0, wrapVMErr(err)
	}
	if incremental {
		p.costLeft -= puzzleCost
	}

	if err := p.ParseSpend(parentNode, puzzleHashAtom, amount, coinID, conditions); err != nil {
		return 0, err
	}
	return puzzleCost, nil
}

// finish reconciles everything that could only be decided once all
// spends were parsed: the absolute time window, the announcement bags,
// the concurrency assertions, ephemeral checks and message balancing.
func (p *parser) finish() error {
	b := p.bundle

	if b.BeforeHeightAbsolute != nil && *b.BeforeHeightAbsolute <= b.HeightAbsolute {
		return valErr(vm.NilPtr, ERR_ASSERT_BEFORE_HEIGHT_ABSOLUTE_FAILED)
	}
	if b.BeforeSecondsAbsolute != nil && *b.BeforeSecondsAbsolute <= b.SecondsAbsolute {
		return valErr(vm.NilPtr, ERR_ASSERT_BEFORE_SECONDS_ABSOLUTE_FAILED)
	}

	for _, assert := range p.state.assertedCoinAnnouncements {
		if _, ok := p.state.createdCoinAnnouncements[assert.id]; !ok {
			return valErr(assert.node, ERR_ASSERT_COIN_ANNOUNCEMENT_FAILED)
		}
	}
	for _, assert := range p.state.assertedPuzzleAnnouncements {
		if _, ok := p.state.createdPuzzleAnnouncements[assert.id]; !ok {
			return valErr(assert.node, ERR_ASSERT_PUZZLE_ANNOUNCEMENT_FAILED)
		}
	}
	for _, assert := range p.state.assertConcurrentSpend {
		if _, ok := p.state.spentCoinIDs[assert.id]; !ok {
			return valErr(assert.node, ERR_ASSERT_CONCURRENT_SPEND_FAILED)
		}
	}
	for _, assert := range p.state.assertConcurrentPuzzle {
		if _, ok := p.state.spentPuzzleHashes[assert.id]; !ok {
			return valErr(assert.node, ERR_ASSERT_CONCURRENT_PUZZLE_FAILED)
		}
	}

	if len(p.state.assertEphemeral) > 0 {
		created := make(map[[32]byte]struct{})
		for _, spend := range b.Spends {
			for _, coin := range spend.CreateCoin {
				child := Coin{ParentCoinInfo: spend.CoinID, PuzzleHash: coin.PuzzleHash, Amount: coin.Amount}
				created[child.ID()] = struct{}{}
			}
		}
		for _, idx := range p.state.assertEphemeral {
			spend := b.Spends[idx]
			var parent [32]byte
			copy(parent[:], p.a.Atom(spend.ParentID))
			if _, ok := created[parent]; !ok {
				return valErr(spend.ParentID, ERR_ASSERT_EPHEMERAL_FAILED)
			}
			spend.Flags |= SPEND_FLAG_EPHEMERAL
		}
	}

	for _, key := range p.state.messageOrder {
		if entry := p.state.messages[key]; entry.balance != 0 {
			return valErr(entry.node, ERR_MESSAGE_NOT_SENT_OR_RECEIVED)
		}
	}
	return nil
}
