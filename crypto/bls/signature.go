package bls

import (
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
)

// Signature is a point in G2, serialized compressed as 96 bytes. The
// identity element is a valid signature: it is the aggregate of nothing.
type Signature struct {
	p bls12381.G2Affine
}

// SignatureFromBytes decodes and validates a compressed G2 point.
func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) != SignatureSize {
		return nil, fmt.Errorf("bls: signature must be %d bytes, got %d", SignatureSize, len(b))
	}
	var sig Signature
	if _, err := sig.p.SetBytes(b); err != nil {
		return nil, fmt.Errorf("bls: invalid signature: %w", err)
	}
	return &sig, nil
}

// Bytes returns the 96-byte compressed encoding.
func (s *Signature) Bytes() [SignatureSize]byte {
	return s.p.Bytes()
}

// Equal reports whether two signatures are the same point.
func (s *Signature) Equal(other *Signature) bool {
	return s.p.Equal(&other.p)
}

// Aggregate sums signatures. The empty aggregate is the identity.
func Aggregate(sigs ...*Signature) *Signature {
	var acc bls12381.G2Jac
	for _, s := range sigs {
		acc.AddMixed(&s.p)
	}
	var out Signature
	out.p.FromJacobian(&acc)
	return &out
}
