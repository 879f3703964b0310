package bls

import (
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
)

// GT is an element of the pairing target group.
type GT = bls12381.GT

// HashToG2 maps an (already augmented) message onto G2 using the
// scheme's domain separation tag.
func HashToG2(msg []byte) (bls12381.G2Affine, error) {
	return bls12381.HashToG2(msg, DST)
}

// Pair computes the pairing of one public key with one G2 point.
func Pair(pk *PublicKey, q *bls12381.G2Affine) (GT, error) {
	return bls12381.Pair([]bls12381.G1Affine{pk.p}, []bls12381.G2Affine{*q})
}

// PairSignature computes e(generator, sig), the left-hand side of the
// aggregate verification equation.
func PairSignature(sig *Signature) (GT, error) {
	return bls12381.Pair([]bls12381.G1Affine{g1Gen}, []bls12381.G2Affine{sig.p})
}

// AugMessage prepends the signer's public key to the message, as the
// augmented scheme requires before hashing to G2.
func AugMessage(pk *PublicKey, msg []byte) []byte {
	pkb := pk.Bytes()
	aug := make([]byte, 0, len(pkb)+len(msg))
	aug = append(aug, pkb[:]...)
	aug = append(aug, msg...)
	return aug
}

// Verify checks a single augmented-scheme signature.
func Verify(sig *Signature, pk *PublicKey, msg []byte) bool {
	return AggregateVerify(sig, []*PublicKey{pk}, [][]byte{msg})
}

// AggregateVerify checks that sig is the aggregate of one signature per
// (key, message) pair: e(-gen, sig) · Π e(pk_i, H(pk_i ‖ msg_i)) == 1.
// An empty pair list verifies only against the identity signature.
func AggregateVerify(sig *Signature, pks []*PublicKey, msgs [][]byte) bool {
	if len(pks) != len(msgs) {
		return false
	}
	ps := make([]bls12381.G1Affine, 0, len(pks)+1)
	qs := make([]bls12381.G2Affine, 0, len(pks)+1)

	var negGen bls12381.G1Affine
	negGen.Neg(&g1Gen)
	ps = append(ps, negGen)
	qs = append(qs, sig.p)

	for i, pk := range pks {
		q, err := bls12381.HashToG2(AugMessage(pk, msgs[i]), DST)
		if err != nil {
			return false
		}
		ps = append(ps, pk.p)
		qs = append(qs, q)
	}
	ok, err := bls12381.PairingCheck(ps, qs)
	return err == nil && ok
}
