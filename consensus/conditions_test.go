package consensus

import (
	"testing"

	"reef.dev/node/vm"
)

// runConds evaluates a (q . conditions) puzzle against a nil solution
// through RunPuzzle.
func runConds(t *testing.T, flags uint32, build func(a *vm.Allocator) []vm.NodePtr) (*SpendBundleConditions, *vm.Allocator, error) {
	t.Helper()
	scratch := vm.NewAllocator()
	puzzle := quote(t, scratch, list(t, scratch, build(scratch)...))
	puzzleBytes := vm.SerializeNode(scratch, puzzle)

	a := vm.NewAllocator()
	bundle, err := RunPuzzle(a, puzzleBytes, []byte{0x80}, h32(0x11), 1, testMaxCost, flags, testConstants())
	return bundle, a, err
}

func cond(t *testing.T, a *vm.Allocator, op int64, args ...vm.NodePtr) vm.NodePtr {
	t.Helper()
	return list(t, a, append([]vm.NodePtr{num(t, a, op)}, args...)...)
}

func TestAssertMyConditions(t *testing.T) {
	// the coin RunPuzzle spends: parent 0x11…, amount 1
	ok := func(a *vm.Allocator) []vm.NodePtr {
		parent := h32(0x11)
		return []vm.NodePtr{
			cond(t, a, ASSERT_MY_PARENT_ID, atom(t, a, parent[:])),
			cond(t, a, ASSERT_MY_AMOUNT, num(t, a, 1)),
		}
	}
	if _, _, err := runConds(t, 0, ok); err != nil {
		t.Fatalf("valid assertions failed: %v", err)
	}

	bad := func(a *vm.Allocator) []vm.NodePtr {
		wrong := h32(0x99)
		return []vm.NodePtr{cond(t, a, ASSERT_MY_PARENT_ID, atom(t, a, wrong[:]))}
	}
	_, _, err := runConds(t, 0, bad)
	requireErrCode(t, err, ERR_ASSERT_MY_PARENT_ID_FAILED)

	badAmount := func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{cond(t, a, ASSERT_MY_AMOUNT, num(t, a, 2))}
	}
	_, _, err = runConds(t, 0, badAmount)
	requireErrCode(t, err, ERR_ASSERT_MY_AMOUNT_FAILED)
}

func TestAssertMyCoinID(t *testing.T) {
	// the coin id depends on the puzzle hash, which depends on the
	// condition itself, so only the mismatch direction is testable here
	bad := func(a *vm.Allocator) []vm.NodePtr {
		wrong := h32(0x77)
		return []vm.NodePtr{cond(t, a, ASSERT_MY_COIN_ID, atom(t, a, wrong[:]))}
	}
	_, _, err := runConds(t, 0, bad)
	requireErrCode(t, err, ERR_ASSERT_MY_COIN_ID_FAILED)
}

func TestTimelockAggregation(t *testing.T) {
	bundle, _, err := runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{
			cond(t, a, ASSERT_SECONDS_RELATIVE, num(t, a, 100)),
			cond(t, a, ASSERT_SECONDS_RELATIVE, num(t, a, 300)),
			cond(t, a, ASSERT_SECONDS_RELATIVE, num(t, a, 200)),
			cond(t, a, ASSERT_BEFORE_SECONDS_RELATIVE, num(t, a, 900)),
			cond(t, a, ASSERT_BEFORE_SECONDS_RELATIVE, num(t, a, 800)),
			cond(t, a, ASSERT_HEIGHT_ABSOLUTE, num(t, a, 10)),
			cond(t, a, ASSERT_HEIGHT_ABSOLUTE, num(t, a, 50)),
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	spend := bundle.Spends[0]
	if spend.SecondsRelative == nil || *spend.SecondsRelative != 300 {
		t.Fatalf("seconds_relative should aggregate via max")
	}
	if spend.BeforeSecondsRelative == nil || *spend.BeforeSecondsRelative != 800 {
		t.Fatalf("before_seconds_relative should aggregate via min")
	}
	if bundle.HeightAbsolute != 50 {
		t.Fatalf("height_absolute should aggregate via max")
	}
	if spend.Flags&SPEND_FLAG_HAS_RELATIVE_CONDITION == 0 {
		t.Fatalf("relative-condition flag not set")
	}
}

func TestImpossibleTimeWindow(t *testing.T) {
	_, _, err := runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{
			cond(t, a, ASSERT_SECONDS_RELATIVE, num(t, a, 500)),
			cond(t, a, ASSERT_BEFORE_SECONDS_RELATIVE, num(t, a, 500)),
		}
	})
	requireErrCode(t, err, ERR_ASSERT_BEFORE_SECONDS_RELATIVE_FAILED)
}

func TestNegativeTimelockIgnored(t *testing.T) {
	bundle, _, err := runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{cond(t, a, ASSERT_SECONDS_RELATIVE, num(t, a, -5))}
	})
	if err != nil {
		t.Fatalf("negative lower-bound lock should be ignored: %v", err)
	}
	if bundle.Spends[0].SecondsRelative != nil {
		t.Fatalf("ignored condition should leave no aggregate")
	}

	// a negative before-lock can never hold
	_, _, err = runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{cond(t, a, ASSERT_BEFORE_SECONDS_RELATIVE, num(t, a, -5))}
	})
	requireErrCode(t, err, ERR_ASSERT_BEFORE_SECONDS_RELATIVE_FAILED)
}

func TestReserveFee(t *testing.T) {
	bundle, _, err := runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{
			cond(t, a, RESERVE_FEE, num(t, a, 90)),
			cond(t, a, RESERVE_FEE, num(t, a, 10)),
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if bundle.ReserveFee != 100 {
		t.Fatalf("reserve fee = %d, want 100", bundle.ReserveFee)
	}

	_, _, err = runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{cond(t, a, RESERVE_FEE, num(t, a, -1))}
	})
	requireErrCode(t, err, ERR_RESERVE_FEE_CONDITION_FAILED)
}

func TestStrictArgsCount(t *testing.T) {
	withExtra := func(a *vm.Allocator) []vm.NodePtr {
		parent := h32(0x11)
		return []vm.NodePtr{cond(t, a, ASSERT_MY_PARENT_ID, atom(t, a, parent[:]), num(t, a, 99))}
	}
	// tolerated outside mempool mode
	if _, _, err := runConds(t, 0, withExtra); err != nil {
		t.Fatalf("extra args should be tolerated: %v", err)
	}
	_, _, err := runConds(t, STRICT_ARGS_COUNT, withExtra)
	requireErrCode(t, err, ERR_INVALID_CONDITION_ARGUMENT_COUNT)

	// REMARK keeps its open grammar even in mempool mode
	remark := func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{cond(t, a, REMARK, num(t, a, 1), num(t, a, 2), num(t, a, 3))}
	}
	if _, _, err := runConds(t, STRICT_ARGS_COUNT, remark); err != nil {
		t.Fatalf("REMARK should allow trailing args: %v", err)
	}
}

func TestUnknownConditions(t *testing.T) {
	unknown := func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{cond(t, a, 211, num(t, a, 1))}
	}
	bundle, _, err := runConds(t, 0, unknown)
	if err != nil {
		t.Fatalf("unknown conditions should be ignored: %v", err)
	}
	if bundle.ConditionCost != 0 {
		t.Fatalf("ignored condition should cost nothing")
	}

	_, _, err = runConds(t, NO_UNKNOWN_CONDS, unknown)
	requireErrCode(t, err, ERR_INVALID_CONDITION_OPCODE)
}

func TestSoftfork(t *testing.T) {
	bundle, _, err := runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{cond(t, a, SOFTFORK, num(t, a, 10_000), num(t, a, 1), num(t, a, 2))}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if bundle.ConditionCost != 10_000 {
		t.Fatalf("softfork cost = %d, want 10000", bundle.ConditionCost)
	}

	// SOFTFORK stays permissive about trailing args under strict mode
	if _, _, err := runConds(t, STRICT_ARGS_COUNT, func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{cond(t, a, SOFTFORK, num(t, a, 100), num(t, a, 7))}
	}); err != nil {
		t.Fatalf("softfork should allow trailing args in mempool mode: %v", err)
	}

	_, _, err = runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{cond(t, a, SOFTFORK, num(t, a, -1))}
	})
	requireErrCode(t, err, ERR_INVALID_SOFTFORK_COST)
}

func TestCostConditionsFlag(t *testing.T) {
	build := func(a *vm.Allocator) []vm.NodePtr {
		return []vm.NodePtr{
			cond(t, a, REMARK),
			cond(t, a, ASSERT_MY_AMOUNT, num(t, a, 1)),
		}
	}
	bundle, _, err := runConds(t, COST_CONDITIONS, build)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := 2 * testConstants().ConditionCost
	if bundle.ConditionCost != want {
		t.Fatalf("condition cost = %d, want %d", bundle.ConditionCost, want)
	}
}

func TestAggSigUnsafeDomainRejection(t *testing.T) {
	constants := testConstants()
	sep := domainSeparator(constants.AggSigAdditionalData, AGG_SIG_ME)

	_, _, err := runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		pk := make([]byte, 48)
		pk[0] = 0xc0
		msg := append([]byte{0x01}, sep[:]...)
		return []vm.NodePtr{cond(t, a, AGG_SIG_UNSAFE, atom(t, a, pk), atom(t, a, msg))}
	})
	requireErrCode(t, err, ERR_INVALID_MESSAGE)

	// an unrelated suffix passes the parser
	bundle, _, err := runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		pk := make([]byte, 48)
		pk[0] = 0xc0
		return []vm.NodePtr{cond(t, a, AGG_SIG_UNSAFE, atom(t, a, pk), atom(t, a, []byte{0x01, 0x02}))}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(bundle.AggSigUnsafe) != 1 {
		t.Fatalf("unsafe signature not recorded")
	}
	if bundle.ConditionCost != testConstants().AggSigCost {
		t.Fatalf("agg sig cost not charged")
	}
}

func TestCreateCoinHint(t *testing.T) {
	hint := h32(0x55)
	bundle, _, err := runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		ph := h32(0x33)
		memos := list(t, a, atom(t, a, hint[:]))
		return []vm.NodePtr{list(t, a, num(t, a, CREATE_COIN), atom(t, a, ph[:]), num(t, a, 1), memos)}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	coin := bundle.Spends[0].CreateCoin[0]
	if !bytesEqual(coin.Hint, hint[:]) {
		t.Fatalf("hint not recorded: %x", coin.Hint)
	}

	// a non-32-byte memo yields no hint
	bundle, _, err = runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		ph := h32(0x33)
		memos := list(t, a, atom(t, a, []byte{0x01, 0x02}))
		return []vm.NodePtr{list(t, a, num(t, a, CREATE_COIN), atom(t, a, ph[:]), num(t, a, 1), memos)}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if bundle.Spends[0].CreateCoin[0].Hint != nil {
		t.Fatalf("unexpected hint")
	}
}

func TestCreateCoinBadAmount(t *testing.T) {
	_, _, err := runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		ph := h32(0x33)
		return []vm.NodePtr{cond(t, a, CREATE_COIN, atom(t, a, ph[:]), num(t, a, -1))}
	})
	requireErrCode(t, err, ERR_INVALID_COIN_AMOUNT)

	_, _, err = runConds(t, 0, func(a *vm.Allocator) []vm.NodePtr {
		ph := h32(0x33)
		big := atom(t, a, []byte{0x01, 0, 0, 0, 0, 0, 0, 0, 0}) // 2^64
		return []vm.NodePtr{cond(t, a, CREATE_COIN, atom(t, a, ph[:]), big)}
	})
	requireErrCode(t, err, ERR_AMOUNT_EXCEEDS_MAX)
}

func TestSelfAnnouncement(t *testing.T) {
	// a coin may assert its own announcement, even one it creates later
	// in its own condition list. The puzzle `1` echoes its solution, so
	// the coin id does not depend on the conditions and the
	// self-referential announcement id can be computed up front.
	puzzleBytes := []byte{0x01}
	ph := vm.TreeHashAtomBytes([]byte{0x01})
	coinID := coinIDFor(h32(0x11), ph, 1)
	msg := []byte{0xaa}
	annID := announcementID(coinID, msg)

	scratch := vm.NewAllocator()
	solution := list(t, scratch,
		cond(t, scratch, ASSERT_COIN_ANNOUNCEMENT, atom(t, scratch, annID[:])),
		cond(t, scratch, CREATE_COIN_ANNOUNCEMENT, atom(t, scratch, msg)),
	)
	solutionBytes := vm.SerializeNode(scratch, solution)

	a := vm.NewAllocator()
	bundle, err := RunPuzzle(a, puzzleBytes, solutionBytes, h32(0x11), 1, testMaxCost, 0, testConstants())
	if err != nil {
		t.Fatalf("self announcement should resolve: %v", err)
	}
	if len(bundle.Spends) != 1 {
		t.Fatalf("expected one spend")
	}
}

func TestSendReceiveMessage(t *testing.T) {
	// two spends exchange a message committed by both coin ids
	// (mode 0b111111). The generator path exercises the shared ledger.
	build := func(t *testing.T, good bool) []byte {
		scratch := vm.NewAllocator()
		msg := []byte{0x42}

		condsA := func(dst [32]byte) []vm.NodePtr {
			return []vm.NodePtr{cond(t, scratch, SEND_MESSAGE, num(t, scratch, 0x3f), atom(t, scratch, msg), atom(t, scratch, dst[:]))}
		}
		condsB := func(src [32]byte) []vm.NodePtr {
			return []vm.NodePtr{cond(t, scratch, RECEIVE_MESSAGE, num(t, scratch, 0x3f), atom(t, scratch, msg), atom(t, scratch, src[:]))}
		}

		// coin ids depend on puzzle hashes which depend on the peer's
		// coin id: break the cycle with fixed-point-free puzzles (`1`
		// echo puzzles fed through solutions)
		phEcho := vm.TreeHashAtomBytes([]byte{0x01})
		coinA := coinIDFor(h32(0x61), phEcho, 1)
		coinB := coinIDFor(h32(0x62), phEcho, 1)

		echo := func() vm.NodePtr { return scratch.One() }
		solA := list(t, scratch, condsA(coinB)...)
		dstForB := coinA
		if !good {
			dstForB = h32(0x99) // receiver names the wrong sender
		}
		solB := list(t, scratch, condsB(dstForB)...)

		spends := []testSpend{
			{parent: h32(0x61), amount: 1, puzzle: echo(), solution: solA},
			{parent: h32(0x62), amount: 1, puzzle: echo(), solution: solB},
		}
		return buildGenerator(t, scratch, spends)
	}

	if _, _, err := runGenerator(t, build(t, true), testMaxCost, 0); err != nil {
		t.Fatalf("matched send/receive failed: %v", err)
	}
	_, _, err := runGenerator(t, build(t, false), testMaxCost, 0)
	requireErrCode(t, err, ERR_MESSAGE_NOT_SENT_OR_RECEIVED)
}
