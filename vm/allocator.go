// Package vm implements the combinator virtual machine the block
// generator runs on: an arena allocator for atoms and pairs, the
// canonical and back-referenced wire codecs, tree hashing, and the
// interpreter with its consensus cost accounting.
package vm

import (
	"math/big"
)

// NodePtr identifies a node owned by an Allocator. Non-negative values
// index atoms, negative values index pairs. Handles stay valid until the
// allocator is dropped; they are meaningless across allocators.
type NodePtr int32

// NilPtr is the empty atom, which every fresh allocator owns at index 0.
const NilPtr NodePtr = 0

// OnePtr is the one-byte atom 0x01, owned at index 1.
const OnePtr NodePtr = 1

// Default allocator caps. A block evaluation never legitimately needs
// more than these; exceeding any of them is ERR_LIMIT_REACHED.
const (
	MAX_ATOM_BYTES = 0x7f00_0000
	MAX_NUM_ATOMS  = 62_500_000
	MAX_NUM_PAIRS  = 62_500_000
)

type atomRef struct {
	start uint32
	end   uint32
}

type pairNode struct {
	first NodePtr
	rest  NodePtr
}

// Allocator owns every node of one block evaluation. It is append-only
// and not safe for concurrent use; use one allocator per goroutine.
type Allocator struct {
	arena []byte
	atoms []atomRef
	pairs []pairNode

	maxAtomBytes int
	maxAtoms     int
	maxPairs     int
}

// NewAllocator returns an allocator with the default caps and the nil
// and one sentinels pre-allocated.
func NewAllocator() *Allocator {
	return NewAllocatorLimited(MAX_ATOM_BYTES, MAX_NUM_ATOMS, MAX_NUM_PAIRS)
}

// NewAllocatorLimited returns an allocator with explicit caps on total
// atom bytes, atom count and pair count. The two sentinel atoms do not
// count against the atom-count cap; the one sentinel's byte does count
// against the atom-bytes cap.
func NewAllocatorLimited(maxAtomBytes, maxAtoms, maxPairs int) *Allocator {
	a := &Allocator{
		arena:        make([]byte, 0, 64),
		atoms:        make([]atomRef, 0, 64),
		pairs:        make([]pairNode, 0, 64),
		maxAtomBytes: maxAtomBytes,
		maxAtoms:     maxAtoms + 2,
		maxPairs:     maxPairs,
	}
	// index 0: nil, index 1: one
	a.arena = append(a.arena, 0x01)
	a.atoms = append(a.atoms, atomRef{0, 0}, atomRef{0, 1})
	return a
}

// Nil returns the empty atom sentinel.
func (a *Allocator) Nil() NodePtr { return NilPtr }

// One returns the 0x01 atom sentinel.
func (a *Allocator) One() NodePtr { return OnePtr }

// NewAtom copies v into the arena and returns its handle. It fails with
// ERR_LIMIT_REACHED when the byte or atom caps would be exceeded.
func (a *Allocator) NewAtom(v []byte) (NodePtr, error) {
	if len(a.arena)+len(v) > a.maxAtomBytes {
		return NilPtr, limitErr("atom bytes")
	}
	if len(a.atoms) >= a.maxAtoms {
		return NilPtr, limitErr("atoms")
	}
	start := uint32(len(a.arena))
	a.arena = append(a.arena, v...)
	a.atoms = append(a.atoms, atomRef{start, uint32(len(a.arena))})
	return NodePtr(len(a.atoms) - 1), nil
}

// NewPair returns the handle of the cons cell (first . rest).
func (a *Allocator) NewPair(first, rest NodePtr) (NodePtr, error) {
	if len(a.pairs) >= a.maxPairs {
		return NilPtr, limitErr("pairs")
	}
	a.pairs = append(a.pairs, pairNode{first, rest})
	return NodePtr(-len(a.pairs)), nil
}

// NewNumber writes the minimal two's-complement big-endian encoding of n
// and returns the resulting atom.
func (a *Allocator) NewNumber(n *big.Int) (NodePtr, error) {
	return a.NewAtom(BigIntToBytes(n))
}

// NewU64 is NewNumber for unsigned 64-bit values, avoiding a big.Int.
func (a *Allocator) NewU64(n uint64) (NodePtr, error) {
	return a.NewAtom(U64ToBytes(n))
}

// NewSubstr returns an atom aliasing a sub-range of an existing atom's
// bytes. No arena bytes are copied, but the atom count cap applies.
func (a *Allocator) NewSubstr(n NodePtr, start, end uint32) (NodePtr, error) {
	if len(a.atoms) >= a.maxAtoms {
		return NilPtr, limitErr("atoms")
	}
	r := a.atoms[n]
	if start > end || r.start+end > r.end {
		return NilPtr, newEvalErr(n, "substr out of range")
	}
	a.atoms = append(a.atoms, atomRef{r.start + start, r.start + end})
	return NodePtr(len(a.atoms) - 1), nil
}

// NewConcat appends the atom contents of nodes into one new atom of the
// given total size.
func (a *Allocator) NewConcat(size int, nodes []NodePtr) (NodePtr, error) {
	if len(a.arena)+size > a.maxAtomBytes {
		return NilPtr, limitErr("atom bytes")
	}
	if len(a.atoms) >= a.maxAtoms {
		return NilPtr, limitErr("atoms")
	}
	start := uint32(len(a.arena))
	total := 0
	for _, n := range nodes {
		if n < 0 {
			return NilPtr, newEvalErr(n, "(internal error) concat expected atom, got pair")
		}
		b := a.Atom(n)
		a.arena = append(a.arena, b...)
		total += len(b)
	}
	if total != size {
		return NilPtr, newEvalErr(NilPtr, "(internal error) concat size mismatch")
	}
	a.atoms = append(a.atoms, atomRef{start, uint32(len(a.arena))})
	return NodePtr(len(a.atoms) - 1), nil
}

// Atom borrows the bytes of an atom node. The slice aliases the arena
// and must not be written. Calling Atom on a pair is a programming
// error; validated control flow never reaches it.
func (a *Allocator) Atom(n NodePtr) []byte {
	if n < 0 {
		panic("vm: Atom() called on a pair")
	}
	r := a.atoms[n]
	return a.arena[r.start:r.end:r.end]
}

// AtomLen returns the byte length of an atom without borrowing it.
func (a *Allocator) AtomLen(n NodePtr) int {
	r := a.atoms[n]
	return int(r.end - r.start)
}

// Pair returns both children of a pair node.
func (a *Allocator) Pair(n NodePtr) (NodePtr, NodePtr) {
	if n >= 0 {
		panic("vm: Pair() called on an atom")
	}
	p := a.pairs[-n-1]
	return p.first, p.rest
}

// IsPair reports whether n is a cons cell.
func (a *Allocator) IsPair(n NodePtr) bool { return n < 0 }

// IsAtom reports whether n is an atom.
func (a *Allocator) IsAtom(n NodePtr) bool { return n >= 0 }

// IsNil reports whether n is the empty atom.
func (a *Allocator) IsNil(n NodePtr) bool {
	return n >= 0 && a.AtomLen(n) == 0
}

// Number decodes an atom as a signed big-endian two's-complement
// integer. The empty atom is zero.
func (a *Allocator) Number(n NodePtr) *big.Int {
	return BytesToBigInt(a.Atom(n))
}

// AtomEq reports whether two atom nodes hold equal bytes. Handle
// equality is not required for value equality: equal contents may live
// at distinct handles.
func (a *Allocator) AtomEq(x, y NodePtr) bool {
	if x == y {
		return true
	}
	bx := a.Atom(x)
	by := a.Atom(y)
	if len(bx) != len(by) {
		return false
	}
	for i := range bx {
		if bx[i] != by[i] {
			return false
		}
	}
	return true
}

// BytesToBigInt decodes signed big-endian two's-complement bytes.
func BytesToBigInt(b []byte) *big.Int {
	if len(b) == 0 {
		return new(big.Int)
	}
	n := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		// subtract 2^(8*len) to recover the negative value
		offset := new(big.Int).Lsh(big.NewInt(1), uint(len(b))*8)
		n.Sub(n, offset)
	}
	return n
}

// BigIntToBytes encodes n as minimal signed big-endian two's-complement.
// Zero encodes as the empty slice.
func BigIntToBytes(n *big.Int) []byte {
	sign := n.Sign()
	if sign == 0 {
		return nil
	}
	if sign > 0 {
		b := n.Bytes()
		if b[0]&0x80 != 0 {
			return append([]byte{0x00}, b...)
		}
		return b
	}
	// negative: find the minimal width holding the value
	for width := (n.BitLen() + 7) / 8; ; width++ {
		offset := new(big.Int).Lsh(big.NewInt(1), uint(width)*8)
		enc := new(big.Int).Add(n, offset)
		b := enc.Bytes()
		if len(b) == width && b[0]&0x80 != 0 {
			return b
		}
	}
}

// U64ToBytes encodes n the way coin amounts are bound into hashes:
// minimal big-endian with a single 0x00 pad iff the top bit would
// otherwise be set, and the empty slice for zero.
func U64ToBytes(n uint64) []byte {
	if n == 0 {
		return nil
	}
	var buf [9]byte
	i := 9
	for v := n; v > 0; v >>= 8 {
		i--
		buf[i] = byte(v)
	}
	if buf[i]&0x80 != 0 {
		i--
		buf[i] = 0
	}
	return buf[i:]
}

// U64FromBytes decodes up to 8 bytes of unsigned big-endian content,
// ignoring a leading zero pad. Behavior is defined only for inputs
// already vetted by the condition sanitizer.
func U64FromBytes(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
