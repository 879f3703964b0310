package consensus

import (
	"crypto/sha256"

	"reef.dev/node/vm"
)

// domainSeparator derives the signing domain of one per-coin AGG_SIG
// opcode: SHA256(agg_sig_additional_data ‖ opcode).
func domainSeparator(addData [32]byte, op byte) [32]byte {
	h := sha256.New()
	h.Write(addData[:])
	h.Write([]byte{op})
	var out [32]byte
	h.Sum(out[:0])
	return out
}

var perCoinAggSigOps = []byte{
	AGG_SIG_PARENT, AGG_SIG_PUZZLE, AGG_SIG_AMOUNT, AGG_SIG_PUZZLE_AMOUNT,
	AGG_SIG_PARENT_AMOUNT, AGG_SIG_PARENT_PUZZLE, AGG_SIG_ME,
}

func allDomainSeparators(addData [32]byte) [][32]byte {
	out := make([][32]byte, 0, len(perCoinAggSigOps))
	for _, op := range perCoinAggSigOps {
		out = append(out, domainSeparator(addData, op))
	}
	return out
}

// BuildAggSigMessage constructs the exact bytes a per-coin AGG_SIG
// condition signs: msg ‖ binding(op, coin) ‖ domain_separator(op). The
// binding concatenates the committed coin fields in {parent, puzzle,
// amount} order; AGG_SIG_ME binds the coin id.
func BuildAggSigMessage(a *vm.Allocator, op byte, spend *SpendConditions, msg vm.NodePtr, constants *ConsensusConstants) []byte {
	raw := a.Atom(msg)
	out := make([]byte, 0, len(raw)+96)
	out = append(out, raw...)

	switch op {
	case AGG_SIG_PARENT:
		out = append(out, a.Atom(spend.ParentID)...)
	case AGG_SIG_PUZZLE:
		out = append(out, a.Atom(spend.PuzzleHash)...)
	case AGG_SIG_AMOUNT:
		out = append(out, vm.U64ToBytes(spend.CoinAmount)...)
	case AGG_SIG_PUZZLE_AMOUNT:
		out = append(out, a.Atom(spend.PuzzleHash)...)
		out = append(out, vm.U64ToBytes(spend.CoinAmount)...)
	case AGG_SIG_PARENT_AMOUNT:
		out = append(out, a.Atom(spend.ParentID)...)
		out = append(out, vm.U64ToBytes(spend.CoinAmount)...)
	case AGG_SIG_PARENT_PUZZLE:
		out = append(out, a.Atom(spend.ParentID)...)
		out = append(out, a.Atom(spend.PuzzleHash)...)
	case AGG_SIG_ME:
		out = append(out, spend.CoinID[:]...)
	}

	sep := domainSeparator(constants.AggSigAdditionalData, op)
	return append(out, sep[:]...)
}

// parseMessage handles SEND_MESSAGE and RECEIVE_MESSAGE. The mode's
// high three bits pick which sender coin fields are committed, the low
// three the receiver's; the spending coin fills its own side and the
// arguments name the peer. Every send must cancel against exactly one
// receive with the same committed key.
func (p *parser) parseMessage(spend *SpendConditions, args vm.NodePtr, isSend bool) error {
	modeNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	mode, overflow, err := sanitizeUint(p.a, modeNode, 1, ERR_INVALID_MESSAGE_MODE)
	if err != nil {
		return err
	}
	if overflow != sanitizedOk || mode > 0x3f {
		return valErr(modeNode, ERR_INVALID_MESSAGE_MODE)
	}

	msgNode, args, err := p.next(args)
	if err != nil {
		return err
	}
	msg, err := p.messageArg(msgNode)
	if err != nil {
		return err
	}

	senderBits := byte(mode>>3) & 7
	receiverBits := byte(mode) & 7

	var src, dst []byte
	if isSend {
		src = p.committedSpec(senderBits, spend)
		dst, args, err = p.parsePeerSpec(receiverBits, args)
	} else {
		dst = p.committedSpec(receiverBits, spend)
		src, args, err = p.parsePeerSpec(senderBits, args)
	}
	if err != nil {
		return err
	}
	if err := p.endArgs(args); err != nil {
		return err
	}

	key := string([]byte{byte(mode)}) + string(src) + string(dst) + string(p.a.Atom(msg))
	entry, ok := p.state.messages[key]
	if !ok {
		entry = &messageBalance{node: modeNode}
		p.state.messages[key] = entry
		p.state.messageOrder = append(p.state.messageOrder, key)
	}
	if isSend {
		entry.balance++
	} else {
		entry.balance--
	}
	return nil
}

// committedSpec serializes the committed fields of the spending coin
// for one side of a message: all three bits mean the coin id, otherwise
// each set bit contributes its field in {parent, puzzle, amount} order.
func (p *parser) committedSpec(bits byte, spend *SpendConditions) []byte {
	if bits == 7 {
		return spend.CoinID[:]
	}
	var out []byte
	if bits&4 != 0 {
		out = append(out, p.a.Atom(spend.ParentID)...)
	}
	if bits&2 != 0 {
		out = append(out, p.a.Atom(spend.PuzzleHash)...)
	}
	if bits&1 != 0 {
		out = append(out, vm.U64ToBytes(spend.CoinAmount)...)
	}
	return out
}

// parsePeerSpec consumes the peer-naming arguments matching bits.
func (p *parser) parsePeerSpec(bits byte, args vm.NodePtr) ([]byte, vm.NodePtr, error) {
	if bits == 7 {
		idNode, rest, err := p.next(args)
		if err != nil {
			return nil, vm.NilPtr, err
		}
		id, err := p.hash32Arg(idNode, ERR_INVALID_MESSAGE)
		if err != nil {
			return nil, vm.NilPtr, err
		}
		return id[:], rest, nil
	}
	var out []byte
	for _, bit := range []byte{4, 2} {
		if bits&bit == 0 {
			continue
		}
		hNode, rest, err := p.next(args)
		if err != nil {
			return nil, vm.NilPtr, err
		}
		h, err := p.hash32Arg(hNode, ERR_INVALID_MESSAGE)
		if err != nil {
			return nil, vm.NilPtr, err
		}
		out = append(out, h[:]...)
		args = rest
	}
	if bits&1 != 0 {
		aNode, rest, err := p.next(args)
		if err != nil {
			return nil, vm.NilPtr, err
		}
		amount, overflow, err := sanitizeUint(p.a, aNode, 8, ERR_INVALID_COIN_AMOUNT)
		if err != nil {
			return nil, vm.NilPtr, err
		}
		switch overflow {
		case sanitizedNegativeOverflow:
			return nil, vm.NilPtr, valErr(aNode, ERR_INVALID_COIN_AMOUNT)
		case sanitizedPositiveOverflow:
			return nil, vm.NilPtr, valErr(aNode, ERR_AMOUNT_EXCEEDS_MAX)
		}
		out = append(out, vm.U64ToBytes(amount)...)
		args = rest
	}
	return out, args, nil
}
