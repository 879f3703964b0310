package bls

import (
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the pairing cache. Each pairing is a 576-byte
// GT element, so the default holds about 29MB of pairings at saturation.
const DefaultCacheSize = 50000

// Cache memoizes pairing results keyed by the hash of the augmented
// message. It is safe for concurrent use; hits and misses never change
// a validation outcome, only its cost.
type Cache struct {
	lru *lru.Cache[[32]byte, GT]
}

// NewCache returns a cache evicting least-recently-used pairings beyond
// size entries.
func NewCache(size int) (*Cache, error) {
	inner, err := lru.New[[32]byte, GT](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: inner}, nil
}

func cacheKey(augMsg []byte) [32]byte {
	return sha256.Sum256(augMsg)
}

// Len returns the number of cached pairings.
func (c *Cache) Len() int { return c.lru.Len() }

// AggregateVerifyCached is AggregateVerify backed by the pairing cache:
// each e(pk, H(pk ‖ msg)) is looked up before being computed, and
// computed pairings are stored for the next block.
//
// Unless forceCache is set, the cache is bypassed entirely when more
// than half of the pairings miss: during sync the cache holds nothing
// useful and the plain product is cheaper than pairing one at a time.
func (c *Cache) AggregateVerifyCached(sig *Signature, pks []*PublicKey, msgs [][]byte, forceCache bool) bool {
	if len(pks) != len(msgs) {
		return false
	}

	augMsgs := make([][]byte, len(pks))
	missing := 0
	for i, pk := range pks {
		augMsgs[i] = AugMessage(pk, msgs[i])
		if _, ok := c.lru.Get(cacheKey(augMsgs[i])); !ok {
			missing++
		}
	}
	if !forceCache && missing*2 > len(pks) {
		return AggregateVerify(sig, pks, msgs)
	}

	var product GT
	product.SetOne()
	for i, pk := range pks {
		key := cacheKey(augMsgs[i])
		pairing, ok := c.lru.Get(key)
		if !ok {
			q, err := HashToG2(augMsgs[i])
			if err != nil {
				return false
			}
			pairing, err = Pair(pk, &q)
			if err != nil {
				return false
			}
			c.lru.Add(key, pairing)
		}
		product.Mul(&product, &pairing)
	}

	lhs, err := PairSignature(sig)
	if err != nil {
		return false
	}
	return lhs.Equal(&product)
}
