// Package bls wraps the BLS12-381 operations the consensus core needs:
// minimal-pubkey aggregate signatures in the augmented scheme, the
// pairing cache used during block validation, and key derivation.
package bls

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

const (
	PublicKeySize = 48
	SignatureSize = 96
	SecretKeySize = 32
)

// DST is the domain separation tag of the augmented scheme: every
// message is hashed to G2 with the signer's public key prepended.
var DST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_AUG_")

var g1Gen bls12381.G1Affine

func init() {
	_, _, g1Gen, _ = bls12381.Generators()
}

// PublicKey is a point in G1, serialized compressed as 48 bytes.
type PublicKey struct {
	p bls12381.G1Affine
}

// PublicKeyFromBytes decodes and validates a compressed G1 point. The
// identity element is rejected: it is never a legitimate signer key.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("bls: public key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	var pk PublicKey
	if _, err := pk.p.SetBytes(b); err != nil {
		return nil, fmt.Errorf("bls: invalid public key: %w", err)
	}
	if pk.p.IsInfinity() {
		return nil, fmt.Errorf("bls: public key is the identity element")
	}
	return &pk, nil
}

// Bytes returns the 48-byte compressed encoding.
func (pk *PublicKey) Bytes() [PublicKeySize]byte {
	return pk.p.Bytes()
}

// Fingerprint returns the key fingerprint: the first four bytes of the
// SHA-256 of the compressed encoding, big-endian.
func (pk *PublicKey) Fingerprint() uint32 {
	b := pk.p.Bytes()
	h := sha256.Sum256(b[:])
	return uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3])
}

// Equal reports whether two keys are the same point.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.p.Equal(&other.p)
}

// SecretKey is a scalar in the BLS12-381 scalar field.
type SecretKey struct {
	s fr.Element
}

// SecretKeyFromBytes decodes a 32-byte big-endian scalar. Values at or
// beyond the group order are rejected.
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	if len(b) != SecretKeySize {
		return nil, fmt.Errorf("bls: secret key must be %d bytes, got %d", SecretKeySize, len(b))
	}
	v := new(big.Int).SetBytes(b)
	if v.Cmp(fr.Modulus()) >= 0 {
		return nil, fmt.Errorf("bls: secret key exceeds the group order")
	}
	var sk SecretKey
	sk.s.SetBigInt(v)
	return &sk, nil
}

// Bytes returns the 32-byte big-endian scalar.
func (sk *SecretKey) Bytes() [SecretKeySize]byte {
	return sk.s.Bytes()
}

// PublicKey returns the corresponding G1 point.
func (sk *SecretKey) PublicKey() *PublicKey {
	var pk PublicKey
	var v big.Int
	sk.s.BigInt(&v)
	pk.p.ScalarMultiplicationBase(&v)
	return &pk
}

// Sign produces an augmented-scheme signature: the message hashed to G2
// with the public key prepended, multiplied by the secret scalar.
func (sk *SecretKey) Sign(msg []byte) *Signature {
	pk := sk.PublicKey().Bytes()
	aug := make([]byte, 0, len(pk)+len(msg))
	aug = append(aug, pk[:]...)
	aug = append(aug, msg...)

	q, err := bls12381.HashToG2(aug, DST)
	if err != nil {
		// HashToG2 only fails on malformed DSTs, which ours is not
		panic("bls: hash to G2 failed: " + err.Error())
	}
	var v big.Int
	sk.s.BigInt(&v)
	var sig Signature
	sig.p.ScalarMultiplication(&q, &v)
	return &sig
}
