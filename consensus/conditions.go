package consensus

import (
	"crypto/sha256"

	"github.com/holiman/uint256"

	"reef.dev/node/vm"
)

// MAX_MESSAGE_SIZE bounds announcement and signature messages.
const MAX_MESSAGE_SIZE = 1024

// MAX_ANNOUNCEMENTS_PER_SPEND bounds the reconciliation bags: a spend
// may create or assert at most this many announcements.
const MAX_ANNOUNCEMENTS_PER_SPEND = 1024

// Spend flags recording observed properties of a spend.
const (
	// SPEND_FLAG_EPHEMERAL marks a spend whose input coin was created
	// earlier in the same bundle.
	SPEND_FLAG_EPHEMERAL uint32 = 1 << 0

	// SPEND_FLAG_HAS_RELATIVE_CONDITION marks a spend carrying any
	// relative time lock; such spends cannot be fast-forwarded.
	SPEND_FLAG_HAS_RELATIVE_CONDITION uint32 = 1 << 1
)

// AggSig is one AGG_SIG_* condition: both fields are atom handles into
// the bundle's allocator.
type AggSig struct {
	PublicKey vm.NodePtr
	Message   vm.NodePtr
}

// NewCoin is one CREATE_COIN output. Hint is nil when the condition
// carried no usable memo.
type NewCoin struct {
	PuzzleHash [32]byte
	Amount     uint64
	Hint       []byte
}

type newCoinKey struct {
	puzzleHash [32]byte
	amount     uint64
}

// SpendConditions is the per-coin aggregation of one spend's condition
// list. ParentID and PuzzleHash are atom handles; CoinID is derived.
type SpendConditions struct {
	ParentID   vm.NodePtr
	PuzzleHash vm.NodePtr
	CoinID     [32]byte
	CoinAmount uint64

	HeightRelative        *uint32
	SecondsRelative       *uint64
	BeforeHeightRelative  *uint32
	BeforeSecondsRelative *uint64
	BirthHeight           *uint32
	BirthSeconds          *uint64

	CreateCoin []NewCoin

	AggSigParent       []AggSig
	AggSigPuzzle       []AggSig
	AggSigAmount       []AggSig
	AggSigPuzzleAmount []AggSig
	AggSigParentAmount []AggSig
	AggSigParentPuzzle []AggSig
	AggSigMe           []AggSig

	Flags uint32

	createCoinSeen map[newCoinKey]struct{}
	announcements  int
}

// SpendBundleConditions is the normalized output of one block
// evaluation. Iteration order of every slice follows arrival order in
// the spend list, so identical inputs produce bit-identical outputs.
type SpendBundleConditions struct {
	Spends []*SpendConditions

	ReserveFee            uint64
	HeightAbsolute        uint32
	SecondsAbsolute       uint64
	BeforeHeightAbsolute  *uint32
	BeforeSecondsAbsolute *uint64

	AggSigUnsafe []AggSig

	Cost          uint64
	ExecutionCost uint64
	ConditionCost uint64

	AdditionAmount uint256.Int
	RemovalAmount  uint256.Int

	ValidatedSignature bool
}

type pendingAssert struct {
	id   [32]byte
	node vm.NodePtr
}

// messageBalance tracks SEND_MESSAGE/RECEIVE_MESSAGE pairing: sends
// increment, receives decrement, and everything must cancel.
type messageBalance struct {
	balance int
	node    vm.NodePtr
}

// ParseState is shared across all spends of one block: the two-phase
// announcement bags, the concurrency assertions and the message ledger.
type ParseState struct {
	createdCoinAnnouncements   map[[32]byte]struct{}
	createdPuzzleAnnouncements map[[32]byte]struct{}

	assertedCoinAnnouncements   []pendingAssert
	assertedPuzzleAnnouncements []pendingAssert
	assertConcurrentSpend       []pendingAssert
	assertConcurrentPuzzle      []pendingAssert

	assertEphemeral []int

	spentCoinIDs      map[[32]byte]struct{}
	spentPuzzleHashes map[[32]byte]struct{}

	messages     map[string]*messageBalance
	messageOrder []string
}

func newParseState() *ParseState {
	return &ParseState{
		createdCoinAnnouncements:   make(map[[32]byte]struct{}),
		createdPuzzleAnnouncements: make(map[[32]byte]struct{}),
		spentCoinIDs:               make(map[[32]byte]struct{}),
		spentPuzzleHashes:          make(map[[32]byte]struct{}),
		messages:                   make(map[string]*messageBalance),
	}
}

// parser walks condition lists for every spend of a block, charging
// condition costs against the shared budget.
type parser struct {
	a         *vm.Allocator
	flags     uint32
	constants *ConsensusConstants
	state     *ParseState
	bundle    *SpendBundleConditions

	// costLeft is the remaining budget; condition costs subtract from
	// it the moment they are known.
	costLeft uint64

	// domain separators of the seven per-coin AGG_SIG opcodes, for the
	// AGG_SIG_UNSAFE suffix check
	domainSeparators [][32]byte
}

func newParser(a *vm.Allocator, flags uint32, costLeft uint64, constants *ConsensusConstants) *parser {
	return &parser{
		a:                a,
		flags:            flags,
		constants:        constants,
		state:            newParseState(),
		bundle:           &SpendBundleConditions{},
		costLeft:         costLeft,
		domainSeparators: allDomainSeparators(constants.AggSigAdditionalData),
	}
}

func (p *parser) chargeCondition(cost uint64) error {
	if cost > p.costLeft {
		return valErr(vm.NilPtr, ERR_COST_EXCEEDED)
	}
	p.costLeft -= cost
	p.bundle.ConditionCost += cost
	return nil
}

// next pops one argument off a condition's argument list.
func (p *parser) next(n vm.NodePtr) (vm.NodePtr, vm.NodePtr, error) {
	if !p.a.IsPair(n) {
		return vm.NilPtr, vm.NilPtr, valErr(n, ERR_INVALID_CONDITION_ARGUMENT_COUNT)
	}
	first, rest := p.a.Pair(n)
	return first, rest, nil
}

// endArgs enforces STRICT_ARGS_COUNT: in mempool mode the argument list
// must terminate right after the named arguments.
func (p *parser) endArgs(rest vm.NodePtr) error {
	if p.flags&STRICT_ARGS_COUNT == 0 {
		return nil
	}
	if !p.a.IsNil(rest) {
		return valErr(rest, ERR_INVALID_CONDITION_ARGUMENT_COUNT)
	}
	return nil
}

func (p *parser) hash32Arg(n vm.NodePtr, code ErrorCode) ([32]byte, error) {
	var out [32]byte
	if p.a.IsPair(n) || p.a.AtomLen(n) != 32 {
		return out, valErr(n, code)
	}
	copy(out[:], p.a.Atom(n))
	return out, nil
}

func (p *parser) pubkeyArg(n vm.NodePtr) (vm.NodePtr, error) {
	if p.a.IsPair(n) || p.a.AtomLen(n) != 48 {
		return vm.NilPtr, valErr(n, ERR_INVALID_PUBLIC_KEY)
	}
	return n, nil
}

func (p *parser) messageArg(n vm.NodePtr) (vm.NodePtr, error) {
	if p.a.IsPair(n) || p.a.AtomLen(n) > MAX_MESSAGE_SIZE {
		return vm.NilPtr, valErr(n, ERR_INVALID_MESSAGE)
	}
	return n, nil
}

// parseOpcode decodes a condition opcode atom: at most four bytes,
// big-endian, minimally encoded. Anything else is unknown.
func (p *parser) parseOpcode(n vm.NodePtr) (uint32, bool) {
	if p.a.IsPair(n) {
		return 0, false
	}
	b := p.a.Atom(n)
	if len(b) == 0 || len(b) > 4 || b[0] == 0 {
		return 0, false
	}
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v, knownCondition(v)
}

// ParseSpend registers one spend and walks its condition list. The
// caller supplies the parent atom, the computed puzzle-hash atom, the
// sanitized amount, the derived coin id, and the VM's condition list.
func (p *parser) ParseSpend(parentID, puzzleHash vm.NodePtr, amount uint64, coinID [32]byte, conditions vm.NodePtr) error {
	spend := &SpendConditions{
		ParentID:       parentID,
		PuzzleHash:     puzzleHash,
		CoinID:         coinID,
		CoinAmount:     amount,
		createCoinSeen: make(map[newCoinKey]struct{}),
	}
	p.bundle.Spends = append(p.bundle.Spends, spend)

	p.state.spentCoinIDs[coinID] = struct{}{}
	var ph [32]byte
	copy(ph[:], p.a.Atom(puzzleHash))
	p.state.spentPuzzleHashes[ph] = struct{}{}
	p.bundle.RemovalAmount.AddUint64(&p.bundle.RemovalAmount, amount)

	rest := conditions
	for p.a.IsPair(rest) {
		var cond vm.NodePtr
		cond, rest = p.a.Pair(rest)
		if err := p.parseCondition(spend, cond); err != nil {
			return err
		}
	}
	// outside mempool mode any atom terminates the list
	if p.flags&STRICT_ARGS_COUNT != 0 && !p.a.IsNil(rest) {
		return valErr(rest, ERR_EXPECTED_NIL)
	}

	// a spend whose window is empty can never be valid
	if spend.BeforeHeightRelative != nil && spend.HeightRelative != nil &&
		*spend.BeforeHeightRelative <= *spend.HeightRelative {
		return valErr(conditions, ERR_ASSERT_BEFORE_HEIGHT_RELATIVE_FAILED)
	}
	if spend.BeforeSecondsRelative != nil && spend.SecondsRelative != nil &&
		*spend.BeforeSecondsRelative <= *spend.SecondsRelative {
		return valErr(conditions, ERR_ASSERT_BEFORE_SECONDS_RELATIVE_FAILED)
	}
	return nil
}

func (p *parser) parseCondition(spend *SpendConditions, cond vm.NodePtr) error {
	if !p.a.IsPair(cond) {
		return valErr(cond, ERR_EXPECTED_PAIR)
	}
	opNode, args := p.a.Pair(cond)
	op, known := p.parseOpcode(opNode)
	if !known {
		if p.flags&NO_UNKNOWN_CONDS != 0 {
			return valErr(opNode, ERR_INVALID_CONDITION_OPCODE)
		}
		return p.flatConditionCost()
	}

	var err error
	switch op {
	case REMARK:
		// no-op; trailing arguments are always allowed

	case AGG_SIG_PARENT, AGG_SIG_PUZZLE, AGG_SIG_AMOUNT, AGG_SIG_PUZZLE_AMOUNT,
		AGG_SIG_PARENT_AMOUNT, AGG_SIG_PARENT_PUZZLE, AGG_SIG_UNSAFE, AGG_SIG_ME:
		err = p.parseAggSig(spend, op, args)

	case CREATE_COIN:
		err = p.parseCreateCoin(spend, args)

	case RESERVE_FEE:
		err = p.parseReserveFee(args)

	case CREATE_COIN_ANNOUNCEMENT:
		err = p.parseCreateAnnouncement(spend, args, spend.CoinID, p.state.createdCoinAnnouncements)

	case CREATE_PUZZLE_ANNOUNCEMENT:
		var ph [32]byte
		copy(ph[:], p.a.Atom(spend.PuzzleHash))
		err = p.parseCreateAnnouncement(spend, args, ph, p.state.createdPuzzleAnnouncements)

	case ASSERT_COIN_ANNOUNCEMENT:
		err = p.parseAssertAnnouncement(spend, args, ERR_ASSERT_COIN_ANNOUNCEMENT_FAILED, &p.state.assertedCoinAnnouncements)

	case ASSERT_PUZZLE_ANNOUNCEMENT:
		err = p.parseAssertAnnouncement(spend, args, ERR_ASSERT_PUZZLE_ANNOUNCEMENT_FAILED, &p.state.assertedPuzzleAnnouncements)

	case ASSERT_CONCURRENT_SPEND:
		err = p.parseDeferredHash32(args, ERR_ASSERT_CONCURRENT_SPEND_FAILED, &p.state.assertConcurrentSpend)

	case ASSERT_CONCURRENT_PUZZLE:
		err = p.parseDeferredHash32(args, ERR_ASSERT_CONCURRENT_PUZZLE_FAILED, &p.state.assertConcurrentPuzzle)

	case SEND_MESSAGE:
		err = p.parseMessage(spend, args, true)

	case RECEIVE_MESSAGE:
		err = p.parseMessage(spend, args, false)

	case ASSERT_MY_COIN_ID:
		err = p.parseAssertMyHash(args, spend.CoinID, ERR_ASSERT_MY_COIN_ID_FAILED)

	case ASSERT_MY_PARENT_ID:
		var parent [32]byte
		copy(parent[:], p.a.Atom(spend.ParentID))
		err = p.parseAssertMyHash(args, parent, ERR_ASSERT_MY_PARENT_ID_FAILED)

	case ASSERT_MY_PUZZLEHASH:
		var ph [32]byte
		copy(ph[:], p.a.Atom(spend.PuzzleHash))
		err = p.parseAssertMyHash(args, ph, ERR_ASSERT_MY_PUZZLEHASH_FAILED)

	case ASSERT_MY_AMOUNT:
		err = p.parseAssertMyAmount(spend, args)

	case ASSERT_MY_BIRTH_SECONDS:
		err = p.parseBirth(args, ERR_ASSERT_MY_BIRTH_SECONDS_FAILED, 8, func(v uint64) error {
			if spend.BirthSeconds != nil && *spend.BirthSeconds != v {
				return valErr(args, ERR_ASSERT_MY_BIRTH_SECONDS_FAILED)
			}
			spend.BirthSeconds = &v
			return nil
		})

	case ASSERT_MY_BIRTH_HEIGHT:
		err = p.parseBirth(args, ERR_ASSERT_MY_BIRTH_HEIGHT_FAILED, 4, func(v uint64) error {
			h := uint32(v)
			if spend.BirthHeight != nil && *spend.BirthHeight != h {
				return valErr(args, ERR_ASSERT_MY_BIRTH_HEIGHT_FAILED)
			}
			spend.BirthHeight = &h
			return nil
		})

	case ASSERT_EPHEMERAL:
		p.state.assertEphemeral = append(p.state.assertEphemeral, len(p.bundle.Spends)-1)
		err = p.endArgs(args)

	case ASSERT_SECONDS_RELATIVE:
		err = p.parseTimelock(args, 8, ERR_ASSERT_SECONDS_RELATIVE_FAILED, false, func(v uint64) {
			spend.Flags |= SPEND_FLAG_HAS_RELATIVE_CONDITION
			if spend.SecondsRelative == nil || *spend.SecondsRelative < v {
				spend.SecondsRelative = &v
			}
		})

	case ASSERT_SECONDS_ABSOLUTE:
		err = p.parseTimelock(args, 8, ERR_ASSERT_SECONDS_ABSOLUTE_FAILED, false, func(v uint64) {
			if p.bundle.SecondsAbsolute < v {
				p.bundle.SecondsAbsolute = v
			}
		})

	case ASSERT_HEIGHT_RELATIVE:
		err = p.parseTimelock(args, 4, ERR_ASSERT_HEIGHT_RELATIVE_FAILED, false, func(v uint64) {
			h := uint32(v)
			spend.Flags |= SPEND_FLAG_HAS_RELATIVE_CONDITION
			if spend.HeightRelative == nil || *spend.HeightRelative < h {
				spend.HeightRelative = &h
			}
		})

	case ASSERT_HEIGHT_ABSOLUTE:
		err = p.parseTimelock(args, 4, ERR_ASSERT_HEIGHT_ABSOLUTE_FAILED, false, func(v uint64) {
			h := uint32(v)
			if p.bundle.HeightAbsolute < h {
				p.bundle.HeightAbsolute = h
			}
		})

	case ASSERT_BEFORE_SECONDS_RELATIVE:
		err = p.parseTimelock(args, 8, ERR_ASSERT_BEFORE_SECONDS_RELATIVE_FAILED, true, func(v uint64) {
			spend.Flags |= SPEND_FLAG_HAS_RELATIVE_CONDITION
			if spend.BeforeSecondsRelative == nil || *spend.BeforeSecondsRelative > v {
				spend.BeforeSecondsRelative = &v
			}
		})

	case ASSERT_BEFORE_SECONDS_ABSOLUTE:
		err = p.parseTimelock(args, 8, ERR_ASSERT_BEFORE_SECONDS_ABSOLUTE_FAILED, true, func(v uint64) {
			if p.bundle.BeforeSecondsAbsolute == nil || *p.bundle.BeforeSecondsAbsolute > v {
				p.bundle.BeforeSecondsAbsolute = &v
			}
		})

	case ASSERT_BEFORE_HEIGHT_RELATIVE:
		err = p.parseTimelock(args, 4, ERR_ASSERT_BEFORE_HEIGHT_RELATIVE_FAILED, true, func(v uint64) {
			h := uint32(v)
			spend.Flags |= SPEND_FLAG_HAS_RELATIVE_CONDITION
			if spend.BeforeHeightRelative == nil || *spend.BeforeHeightRelative > h {
				spend.BeforeHeightRelative = &h
			}
		})

	case ASSERT_BEFORE_HEIGHT_ABSOLUTE:
		err = p.parseTimelock(args, 4, ERR_ASSERT_BEFORE_HEIGHT_ABSOLUTE_FAILED, true, func(v uint64) {
			h := uint32(v)
			if p.bundle.BeforeHeightAbsolute == nil || *p.bundle.BeforeHeightAbsolute > h {
				p.bundle.BeforeHeightAbsolute = &h
			}
		})

	case SOFTFORK:
		err = p.parseSoftfork(args)
	}
	if err != nil {
		return err
	}
	return p.flatConditionCost()
}

// flatConditionCost charges the per-condition cost under COST_CONDITIONS.
func (p *parser) flatConditionCost() error {
	if p.flags&COST_CONDITIONS == 0 {
		return nil
	}
	return p.chargeCondition(p.constants.ConditionCost)
}

func (p *parser) parseAggSig(spend *SpendConditions, op uint32, args vm.NodePtr) error {
	if err := p.chargeCondition(p.constants.AggSigCost); err != nil {
		return err
	}
	pkNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	pk, err := p.pubkeyArg(pkNode)
	if err != nil {
		return err
	}
	msgNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	msg, err := p.messageArg(msgNode)
	if err != nil {
		return err
	}
	if err := p.endArgs(args); err != nil {
		return err
	}

	entry := AggSig{PublicKey: pk, Message: msg}
	switch op {
	case AGG_SIG_PARENT:
		spend.AggSigParent = append(spend.AggSigParent, entry)
	case AGG_SIG_PUZZLE:
		spend.AggSigPuzzle = append(spend.AggSigPuzzle, entry)
	case AGG_SIG_AMOUNT:
		spend.AggSigAmount = append(spend.AggSigAmount, entry)
	case AGG_SIG_PUZZLE_AMOUNT:
		spend.AggSigPuzzleAmount = append(spend.AggSigPuzzleAmount, entry)
	case AGG_SIG_PARENT_AMOUNT:
		spend.AggSigParentAmount = append(spend.AggSigParentAmount, entry)
	case AGG_SIG_PARENT_PUZZLE:
		spend.AggSigParentPuzzle = append(spend.AggSigParentPuzzle, entry)
	case AGG_SIG_ME:
		spend.AggSigMe = append(spend.AggSigMe, entry)
	case AGG_SIG_UNSAFE:
		// a message ending in a per-coin domain separator could be
		// replayed as a coin-bound signature
		raw := p.a.Atom(msg)
		for _, sep := range p.domainSeparators {
			if hasSuffix(raw, sep[:]) {
				return valErr(msgNode, ERR_INVALID_MESSAGE)
			}
		}
		p.bundle.AggSigUnsafe = append(p.bundle.AggSigUnsafe, entry)
	}
	return nil
}

func (p *parser) parseCreateCoin(spend *SpendConditions, args vm.NodePtr) error {
	if err := p.chargeCondition(p.constants.CreateCoinCost); err != nil {
		return err
	}
	phNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	ph, err := p.hash32Arg(phNode, ERR_INVALID_PUZZLE_HASH)
	if err != nil {
		return err
	}
	amountNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	amount, overflow, err := sanitizeUint(p.a, amountNode, 8, ERR_INVALID_COIN_AMOUNT)
	if err != nil {
		return err
	}
	switch overflow {
	case sanitizedNegativeOverflow:
		return valErr(amountNode, ERR_INVALID_COIN_AMOUNT)
	case sanitizedPositiveOverflow:
		return valErr(amountNode, ERR_AMOUNT_EXCEEDS_MAX)
	}

	coin := NewCoin{PuzzleHash: ph, Amount: amount}
	if p.a.IsPair(args) {
		// optional memos argument: the hint is its first element when
		// that element is a 32-byte atom
		memos, rest := p.a.Pair(args)
		if err := p.endArgs(rest); err != nil {
			return err
		}
		if p.a.IsPair(memos) {
			hint, _ := p.a.Pair(memos)
			if p.a.IsAtom(hint) && p.a.AtomLen(hint) == 32 {
				coin.Hint = append([]byte(nil), p.a.Atom(hint)...)
			}
		} else if p.flags&STRICT_ARGS_COUNT != 0 && !p.a.IsNil(memos) {
			return valErr(memos, ERR_INVALID_HINT)
		}
	} else if err := p.endArgs(args); err != nil {
		return err
	}

	key := newCoinKey{puzzleHash: ph, amount: amount}
	if _, dup := spend.createCoinSeen[key]; dup {
		return valErr(phNode, ERR_DUPLICATE_OUTPUT)
	}
	spend.createCoinSeen[key] = struct{}{}
	spend.CreateCoin = append(spend.CreateCoin, coin)
	p.bundle.AdditionAmount.AddUint64(&p.bundle.AdditionAmount, amount)
	return nil
}

func (p *parser) parseReserveFee(args vm.NodePtr) error {
	amountNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	amount, overflow, err := sanitizeUint(p.a, amountNode, 8, ERR_RESERVE_FEE_CONDITION_FAILED)
	if err != nil {
		return err
	}
	if overflow != sanitizedOk {
		return valErr(amountNode, ERR_RESERVE_FEE_CONDITION_FAILED)
	}
	if err := p.endArgs(args); err != nil {
		return err
	}
	sum := p.bundle.ReserveFee + amount
	if sum < p.bundle.ReserveFee {
		return valErr(amountNode, ERR_RESERVE_FEE_CONDITION_FAILED)
	}
	p.bundle.ReserveFee = sum
	return nil
}

func (p *parser) bumpAnnouncements(spend *SpendConditions) error {
	spend.announcements++
	if spend.announcements > MAX_ANNOUNCEMENTS_PER_SPEND {
		return valErr(vm.NilPtr, ERR_TOO_MANY_ANNOUNCEMENTS)
	}
	return p.chargeCondition(p.constants.AnnouncementCost)
}

func (p *parser) parseCreateAnnouncement(spend *SpendConditions, args vm.NodePtr, prefix [32]byte, created map[[32]byte]struct{}) error {
	if err := p.bumpAnnouncements(spend); err != nil {
		return err
	}
	msgNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	msg, err := p.messageArg(msgNode)
	if err != nil {
		return err
	}
	if err := p.endArgs(args); err != nil {
		return err
	}
	h := sha256.New()
	h.Write(prefix[:])
	h.Write(p.a.Atom(msg))
	var id [32]byte
	h.Sum(id[:0])
	created[id] = struct{}{}
	return nil
}

func (p *parser) parseAssertAnnouncement(spend *SpendConditions, args vm.NodePtr, code ErrorCode, bag *[]pendingAssert) error {
	if err := p.bumpAnnouncements(spend); err != nil {
		return err
	}
	return p.parseDeferredHash32(args, code, bag)
}

// parseDeferredHash32 records a 32-byte assertion for resolution after
// every spend has been parsed.
func (p *parser) parseDeferredHash32(args vm.NodePtr, code ErrorCode, bag *[]pendingAssert) error {
	idNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	id, err := p.hash32Arg(idNode, code)
	if err != nil {
		return err
	}
	if err := p.endArgs(args); err != nil {
		return err
	}
	*bag = append(*bag, pendingAssert{id: id, node: idNode})
	return nil
}

func (p *parser) parseAssertMyHash(args vm.NodePtr, want [32]byte, code ErrorCode) error {
	idNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	id, err := p.hash32Arg(idNode, code)
	if err != nil {
		return err
	}
	if id != want {
		return valErr(idNode, code)
	}
	return p.endArgs(args)
}

func (p *parser) parseAssertMyAmount(spend *SpendConditions, args vm.NodePtr) error {
	amountNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	amount, overflow, err := sanitizeUint(p.a, amountNode, 8, ERR_ASSERT_MY_AMOUNT_FAILED)
	if err != nil {
		return err
	}
	if overflow != sanitizedOk || amount != spend.CoinAmount {
		return valErr(amountNode, ERR_ASSERT_MY_AMOUNT_FAILED)
	}
	return p.endArgs(args)
}

func (p *parser) parseBirth(args vm.NodePtr, code ErrorCode, maxSize int, set func(uint64) error) error {
	vNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	v, overflow, err := sanitizeUint(p.a, vNode, maxSize, code)
	if err != nil {
		return err
	}
	if overflow != sanitizedOk {
		// the coin's birth is a fixed fact; an out-of-range assertion
		// can never hold
		return valErr(vNode, code)
	}
	if err := set(v); err != nil {
		return err
	}
	return p.endArgs(args)
}

// parseTimelock handles the eight ASSERT_[BEFORE_]{SECONDS,HEIGHT}_*
// conditions. For the lower-bound family a negative value is trivially
// satisfied and a too-large one can never be; the before family is the
// mirror image.
func (p *parser) parseTimelock(args vm.NodePtr, maxSize int, code ErrorCode, before bool, apply func(uint64)) error {
	vNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	v, overflow, err := sanitizeUint(p.a, vNode, maxSize, code)
	if err != nil {
		return err
	}
	switch overflow {
	case sanitizedNegativeOverflow:
		if before {
			// nothing happens before a negative time
			return valErr(vNode, code)
		}
		return p.endArgs(args) // trivially satisfied
	case sanitizedPositiveOverflow:
		if before {
			return p.endArgs(args) // trivially satisfied
		}
		return valErr(vNode, code)
	}
	apply(v)
	return p.endArgs(args)
}

func (p *parser) parseSoftfork(args vm.NodePtr) error {
	costNode, _, err := p.next(args)
	if err != nil {
		return err
	}
	cost, overflow, err := sanitizeUint(p.a, costNode, 8, ERR_INVALID_SOFTFORK_COST)
	if err != nil {
		return err
	}
	if overflow != sanitizedOk {
		return valErr(costNode, ERR_INVALID_SOFTFORK_COST)
	}
	// SOFTFORK's trailing arguments are deliberately unconstrained,
	// even in mempool mode: its grammar belongs to a future fork.
	return p.chargeCondition(cost)
}

func hasSuffix(b, suffix []byte) bool {
	if len(b) < len(suffix) {
		return false
	}
	return string(b[len(b)-len(suffix):]) == string(suffix)
}
