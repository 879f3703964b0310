package consensus

import (
	"github.com/holiman/uint256"

	"reef.dev/node/vm"
)

// OwnedAggSig is an AggSig flattened out of its allocator.
type OwnedAggSig struct {
	PublicKey [48]byte
	Message   []byte
}

// OwnedSpendConditions is SpendConditions with every atom copied into
// owned storage, for handoff across the allocator's lifetime boundary.
type OwnedSpendConditions struct {
	ParentID   [32]byte
	PuzzleHash [32]byte
	CoinID     [32]byte
	CoinAmount uint64

	HeightRelative        *uint32
	SecondsRelative       *uint64
	BeforeHeightRelative  *uint32
	BeforeSecondsRelative *uint64
	BirthHeight           *uint32
	BirthSeconds          *uint64

	CreateCoin []NewCoin

	AggSigParent       []OwnedAggSig
	AggSigPuzzle       []OwnedAggSig
	AggSigAmount       []OwnedAggSig
	AggSigPuzzleAmount []OwnedAggSig
	AggSigParentAmount []OwnedAggSig
	AggSigParentPuzzle []OwnedAggSig
	AggSigMe           []OwnedAggSig

	Flags uint32
}

// OwnedSpendBundleConditions outlives the allocator that produced it.
type OwnedSpendBundleConditions struct {
	Spends []OwnedSpendConditions

	ReserveFee            uint64
	HeightAbsolute        uint32
	SecondsAbsolute       uint64
	BeforeHeightAbsolute  *uint32
	BeforeSecondsAbsolute *uint64

	AggSigUnsafe []OwnedAggSig

	Cost          uint64
	ExecutionCost uint64
	ConditionCost uint64

	AdditionAmount uint256.Int
	RemovalAmount  uint256.Int

	ValidatedSignature bool
}

func ownAggSigs(a *vm.Allocator, in []AggSig) []OwnedAggSig {
	if len(in) == 0 {
		return nil
	}
	out := make([]OwnedAggSig, 0, len(in))
	for _, entry := range in {
		var o OwnedAggSig
		copy(o.PublicKey[:], a.Atom(entry.PublicKey))
		o.Message = append([]byte(nil), a.Atom(entry.Message)...)
		out = append(out, o)
	}
	return out
}

// ToOwned flattens the bundle. The translation goes one way: handles
// cannot be recovered from owned data.
func (b *SpendBundleConditions) ToOwned(a *vm.Allocator) *OwnedSpendBundleConditions {
	out := &OwnedSpendBundleConditions{
		ReserveFee:            b.ReserveFee,
		HeightAbsolute:        b.HeightAbsolute,
		SecondsAbsolute:       b.SecondsAbsolute,
		BeforeHeightAbsolute:  b.BeforeHeightAbsolute,
		BeforeSecondsAbsolute: b.BeforeSecondsAbsolute,
		AggSigUnsafe:          ownAggSigs(a, b.AggSigUnsafe),
		Cost:                  b.Cost,
		ExecutionCost:         b.ExecutionCost,
		ConditionCost:         b.ConditionCost,
		AdditionAmount:        b.AdditionAmount,
		RemovalAmount:         b.RemovalAmount,
		ValidatedSignature:    b.ValidatedSignature,
	}
	for _, spend := range b.Spends {
		o := OwnedSpendConditions{
			CoinID:                spend.CoinID,
			CoinAmount:            spend.CoinAmount,
			HeightRelative:        spend.HeightRelative,
			SecondsRelative:       spend.SecondsRelative,
			BeforeHeightRelative:  spend.BeforeHeightRelative,
			BeforeSecondsRelative: spend.BeforeSecondsRelative,
			BirthHeight:           spend.BirthHeight,
			BirthSeconds:          spend.BirthSeconds,
			CreateCoin:            spend.CreateCoin,
			AggSigParent:          ownAggSigs(a, spend.AggSigParent),
			AggSigPuzzle:          ownAggSigs(a, spend.AggSigPuzzle),
			AggSigAmount:          ownAggSigs(a, spend.AggSigAmount),
			AggSigPuzzleAmount:    ownAggSigs(a, spend.AggSigPuzzleAmount),
			AggSigParentAmount:    ownAggSigs(a, spend.AggSigParentAmount),
			AggSigParentPuzzle:    ownAggSigs(a, spend.AggSigParentPuzzle),
			AggSigMe:              ownAggSigs(a, spend.AggSigMe),
			Flags:                 spend.Flags,
		}
		copy(o.ParentID[:], a.Atom(spend.ParentID))
		copy(o.PuzzleHash[:], a.Atom(spend.PuzzleHash))
		out.Spends = append(out.Spends, o)
	}
	return out
}
