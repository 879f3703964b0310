package bls

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/crypto/hkdf"
)

// keyGenSalt is the HKDF salt of the key-generation procedure.
var keyGenSalt = []byte("BLS-SIG-KEYGEN-SALT-")

// KeyGen derives a master secret key from a seed of at least 32 bytes
// via HKDF-SHA256, reduced modulo the group order. The zero result is
// retried with a re-hashed salt, as the scheme prescribes.
func KeyGen(seed []byte) (*SecretKey, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("bls: seed must be at least 32 bytes, got %d", len(seed))
	}
	salt := append([]byte(nil), keyGenSalt...)
	ikm := append(append([]byte(nil), seed...), 0x00)
	info := []byte{0x00, 0x30} // L = 48, big-endian

	for {
		okm := make([]byte, 48)
		r := hkdf.New(sha256.New, ikm, salt, info)
		if _, err := io.ReadFull(r, okm); err != nil {
			return nil, fmt.Errorf("bls: hkdf: %w", err)
		}
		v := new(big.Int).SetBytes(okm)
		v.Mod(v, fr.Modulus())
		if v.Sign() != 0 {
			var sk SecretKey
			sk.s.SetBigInt(v)
			return &sk, nil
		}
		next := sha256.Sum256(salt)
		salt = next[:]
	}
}

// DeriveChildUnhardened derives the index-th unhardened child key:
// child = parent + SHA256(parent_pk ‖ index) mod r. The corresponding
// public keys relate the same way, so watch-only wallets can derive
// them without the secret.
func DeriveChildUnhardened(sk *SecretKey, index uint32) *SecretKey {
	pk := sk.PublicKey().Bytes()

	var buf [PublicKeySize + 4]byte
	copy(buf[:], pk[:])
	binary.BigEndian.PutUint32(buf[PublicKeySize:], index)
	digest := sha256.Sum256(buf[:])

	tweak := new(big.Int).SetBytes(digest[:])
	tweak.Mod(tweak, fr.Modulus())

	var t fr.Element
	t.SetBigInt(tweak)

	var child SecretKey
	child.s.Add(&sk.s, &t)
	return &child
}

// DerivePath applies DeriveChildUnhardened along a path of indices.
func DerivePath(sk *SecretKey, path []uint32) *SecretKey {
	out := sk
	for _, idx := range path {
		out = DeriveChildUnhardened(out, idx)
	}
	return out
}
