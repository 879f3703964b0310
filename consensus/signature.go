package consensus

import (
	"reef.dev/node/crypto/bls"
	"reef.dev/node/vm"
)

// SignaturePairs returns every (public key, final message) pair the
// bundle's aggregate signature must cover, in arrival order: each
// spend's seven per-coin lists in opcode order, then the unsafe list.
func SignaturePairs(a *vm.Allocator, bundle *SpendBundleConditions, constants *ConsensusConstants) ([]*bls.PublicKey, [][]byte, error) {
	var pks []*bls.PublicKey
	var msgs [][]byte

	add := func(entry AggSig, msg []byte) error {
		pk, err := bls.PublicKeyFromBytes(a.Atom(entry.PublicKey))
		if err != nil {
			return valErr(entry.PublicKey, ERR_INVALID_PUBLIC_KEY)
		}
		pks = append(pks, pk)
		msgs = append(msgs, msg)
		return nil
	}

	for _, spend := range bundle.Spends {
		lists := []struct {
			op      byte
			entries []AggSig
		}{
			{AGG_SIG_PARENT, spend.AggSigParent},
			{AGG_SIG_PUZZLE, spend.AggSigPuzzle},
			{AGG_SIG_AMOUNT, spend.AggSigAmount},
			{AGG_SIG_PUZZLE_AMOUNT, spend.AggSigPuzzleAmount},
			{AGG_SIG_PARENT_AMOUNT, spend.AggSigParentAmount},
			{AGG_SIG_PARENT_PUZZLE, spend.AggSigParentPuzzle},
			{AGG_SIG_ME, spend.AggSigMe},
		}
		for _, list := range lists {
			for _, entry := range list.entries {
				msg := BuildAggSigMessage(a, list.op, spend, entry.Message, constants)
				if err := add(entry, msg); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	for _, entry := range bundle.AggSigUnsafe {
		msg := append([]byte(nil), a.Atom(entry.Message)...)
		if err := add(entry, msg); err != nil {
			return nil, nil, err
		}
	}
	return pks, msgs, nil
}

// validateSignature runs the deferred aggregate-signature check. Its
// failure is equivalent in consequence to any parse failure.
func validateSignature(a *vm.Allocator, bundle *SpendBundleConditions, flags uint32, signature *bls.Signature, cache *bls.Cache, constants *ConsensusConstants) error {
	if flags&DONT_VALIDATE_SIGNATURE != 0 {
		return nil
	}
	pks, msgs, err := SignaturePairs(a, bundle, constants)
	if err != nil {
		return err
	}
	if signature == nil {
		signature = bls.Aggregate()
	}

	var ok bool
	if cache != nil {
		ok = cache.AggregateVerifyCached(signature, pks, msgs, false)
	} else {
		ok = bls.AggregateVerify(signature, pks, msgs)
	}
	if !ok {
		return valErr(vm.NilPtr, ERR_BAD_AGGREGATE_SIGNATURE)
	}
	bundle.ValidatedSignature = true
	return nil
}
