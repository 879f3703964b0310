package bls

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T, tag byte) *SecretKey {
	t.Helper()
	seed := bytes.Repeat([]byte{tag}, 32)
	sk, err := KeyGen(seed)
	require.NoError(t, err)
	return sk
}

func TestKeyRoundTrip(t *testing.T) {
	sk := testKey(t, 0x01)
	skb := sk.Bytes()
	sk2, err := SecretKeyFromBytes(skb[:])
	require.NoError(t, err)
	require.True(t, sk.PublicKey().Equal(sk2.PublicKey()))

	pkb := sk.PublicKey().Bytes()
	pk, err := PublicKeyFromBytes(pkb[:])
	require.NoError(t, err)
	require.True(t, pk.Equal(sk.PublicKey()))
}

func TestPublicKeyValidation(t *testing.T) {
	_, err := PublicKeyFromBytes(make([]byte, 47))
	require.Error(t, err)

	// compressed identity: infinity flag set, everything else zero
	identity := make([]byte, PublicKeySize)
	identity[0] = 0xc0
	_, err = PublicKeyFromBytes(identity)
	require.Error(t, err)

	garbage := bytes.Repeat([]byte{0xab}, PublicKeySize)
	garbage[0] |= 0x80
	_, err = PublicKeyFromBytes(garbage)
	require.Error(t, err)
}

func TestSignVerify(t *testing.T) {
	sk := testKey(t, 0x02)
	msg := []byte("reef block generator")
	sig := sk.Sign(msg)

	require.True(t, Verify(sig, sk.PublicKey(), msg))
	require.False(t, Verify(sig, sk.PublicKey(), []byte("other message")))

	other := testKey(t, 0x03)
	require.False(t, Verify(sig, other.PublicKey(), msg))
}

func TestAggregateVerify(t *testing.T) {
	sk1 := testKey(t, 0x04)
	sk2 := testKey(t, 0x05)
	msg1 := []byte("first")
	msg2 := []byte("second")

	agg := Aggregate(sk1.Sign(msg1), sk2.Sign(msg2))
	pks := []*PublicKey{sk1.PublicKey(), sk2.PublicKey()}

	require.True(t, AggregateVerify(agg, pks, [][]byte{msg1, msg2}))
	require.False(t, AggregateVerify(agg, pks, [][]byte{msg2, msg1}))
	require.False(t, AggregateVerify(agg, pks[:1], [][]byte{msg1}))

	// the empty aggregate is the identity and verifies nothing else
	empty := Aggregate()
	require.True(t, AggregateVerify(empty, nil, nil))
	require.False(t, AggregateVerify(agg, nil, nil))
}

func TestSignatureRoundTrip(t *testing.T) {
	sk := testKey(t, 0x06)
	sig := sk.Sign([]byte("x"))
	b := sig.Bytes()
	sig2, err := SignatureFromBytes(b[:])
	require.NoError(t, err)
	require.True(t, sig.Equal(sig2))

	_, err = SignatureFromBytes(b[:95])
	require.Error(t, err)
}

func TestCachedAggregateVerify(t *testing.T) {
	cache, err := NewCache(16)
	require.NoError(t, err)

	sk1 := testKey(t, 0x07)
	sk2 := testKey(t, 0x08)
	msg1 := []byte("alpha")
	msg2 := []byte("beta")
	agg := Aggregate(sk1.Sign(msg1), sk2.Sign(msg2))
	pks := []*PublicKey{sk1.PublicKey(), sk2.PublicKey()}
	msgs := [][]byte{msg1, msg2}

	// cold cache falls back to the plain product unless forced
	require.True(t, cache.AggregateVerifyCached(agg, pks, msgs, false))
	require.Equal(t, 0, cache.Len())

	require.True(t, cache.AggregateVerifyCached(agg, pks, msgs, true))
	require.Equal(t, 2, cache.Len())

	// warm cache: same outcome through the cached path
	require.True(t, cache.AggregateVerifyCached(agg, pks, msgs, false))

	// a wrong signature is rejected from the cached path too
	wrong := sk1.Sign(msg1)
	require.False(t, cache.AggregateVerifyCached(wrong, pks, msgs, true))
}

func TestDeriveChildUnhardened(t *testing.T) {
	sk := testKey(t, 0x09)

	c0 := DeriveChildUnhardened(sk, 0)
	c1 := DeriveChildUnhardened(sk, 1)
	require.False(t, c0.PublicKey().Equal(c1.PublicKey()))

	// derivation is deterministic
	again := DeriveChildUnhardened(sk, 0)
	require.True(t, c0.PublicKey().Equal(again.PublicKey()))

	// path derivation composes single steps
	viaPath := DerivePath(sk, []uint32{12381, 8444, 2, 7})
	manual := DeriveChildUnhardened(DeriveChildUnhardened(DeriveChildUnhardened(DeriveChildUnhardened(sk, 12381), 8444), 2), 7)
	require.True(t, viaPath.PublicKey().Equal(manual.PublicKey()))

	// derived keys still sign correctly
	msg := []byte("child signature")
	require.True(t, Verify(c0.Sign(msg), c0.PublicKey(), msg))
}
