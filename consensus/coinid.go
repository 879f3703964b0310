package consensus

import (
	"crypto/sha256"

	"reef.dev/node/vm"
)

// Coin is the UTXO triple. Its identity is the hash of all three
// fields, with the amount in its minimal big-endian form.
type Coin struct {
	ParentCoinInfo [32]byte
	PuzzleHash     [32]byte
	Amount         uint64
}

// ID computes SHA256(parent ‖ puzzle_hash ‖ minimal_be(amount)).
func (c *Coin) ID() [32]byte {
	return computeCoinID(c.ParentCoinInfo[:], c.PuzzleHash[:], vm.U64ToBytes(c.Amount))
}

func computeCoinID(parent, puzzleHash, amount []byte) [32]byte {
	h := sha256.New()
	h.Write(parent)
	h.Write(puzzleHash)
	h.Write(amount)
	var out [32]byte
	h.Sum(out[:0])
	return out
}
