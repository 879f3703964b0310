package vm

import (
	"fmt"
	"math/big"
)

// Wire format limits. An atom may not exceed 2^34-1 bytes and an input
// buffer may not exceed 2^32-1 bytes.
const (
	MAX_ATOM_SIZE   = (uint64(1) << 34) - 1
	MAX_BUFFER_SIZE = (uint64(1) << 32) - 1
)

// Serialization tokens with fixed meaning.
const (
	tokenCons    = 0xff
	tokenBackref = 0xfe
	tokenNil     = 0x80
)

func readByte(b []byte, off *int) (byte, error) {
	if *off >= len(b) {
		return 0, newEvalErr(NilPtr, ERR_END_OF_BUFFER)
	}
	v := b[*off]
	*off++
	return v, nil
}

func readSlice(b []byte, off *int, n uint64) ([]byte, error) {
	if n > uint64(len(b)) || uint64(*off) > uint64(len(b))-n {
		return nil, newEvalErr(NilPtr, ERR_END_OF_BUFFER)
	}
	v := b[*off : *off+int(n)]
	*off += int(n)
	return v, nil
}

// readAtomLen decodes the length of an atom whose first header byte c
// has already been consumed. The count of leading one-bits in c selects
// how many additional length bytes follow; lengths must be minimally
// encoded and within MAX_ATOM_SIZE.
func readAtomLen(b []byte, off *int, c byte) (uint64, error) {
	var length uint64
	var extra int
	var minLen uint64
	switch {
	case c <= 0xbf:
		// 0x80 is nil, the rest carry the length directly
		return uint64(c & 0x3f), nil
	case c <= 0xdf:
		length = uint64(c & 0x1f)
		extra = 1
		minLen = 0x40
	case c <= 0xef:
		length = uint64(c & 0x0f)
		extra = 2
		minLen = 0x2000
	case c <= 0xf7:
		length = uint64(c & 0x07)
		extra = 3
		minLen = 0x10_0000
	case c <= 0xfb:
		length = uint64(c & 0x03)
		extra = 4
		minLen = 0x800_0000
	default:
		// 0xfc / 0xfd: syntactically valid 6-byte prefix, but every
		// minimally-encoded length in it exceeds MAX_ATOM_SIZE
		length = uint64(c & 0x01)
		extra = 5
		minLen = MAX_ATOM_SIZE + 1
	}
	for i := 0; i < extra; i++ {
		nb, err := readByte(b, off)
		if err != nil {
			return 0, err
		}
		length = length<<8 | uint64(nb)
	}
	if length < minLen {
		return 0, newEvalErr(NilPtr, ERR_INVALID_CLVM+" (non-minimal length)")
	}
	if length > MAX_ATOM_SIZE {
		return 0, newEvalErr(NilPtr, ERR_INVALID_CLVM+" (atom too big)")
	}
	return length, nil
}

type parseOp uint8

const (
	parseOpNode parseOp = iota
	parseOpCons
)

// parse reads one serialized node from b starting at *off. Back
// references (0xfe) are honored only when allowBackrefs is set.
//
// The reader stack is kept as a real cons list in the allocator so that
// back-reference paths can address both the stack spine and the
// interior of already-parsed subtrees, exactly as emitted.
func parse(a *Allocator, b []byte, off *int, allowBackrefs bool) (NodePtr, error) {
	values := a.Nil()
	ops := []parseOp{parseOpNode}

	push := func(n NodePtr) error {
		v, err := a.NewPair(n, values)
		if err != nil {
			return err
		}
		values = v
		return nil
	}

	for len(ops) > 0 {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]

		switch op {
		case parseOpNode:
			c, err := readByte(b, off)
			if err != nil {
				return NilPtr, err
			}
			switch {
			case c == tokenCons:
				ops = append(ops, parseOpCons, parseOpNode, parseOpNode)
			case c == tokenBackref:
				if !allowBackrefs {
					return NilPtr, newEvalErr(NilPtr, ERR_INVALID_CLVM+" (unexpected back-reference)")
				}
				n, err := resolveBackref(a, b, off, values)
				if err != nil {
					return NilPtr, err
				}
				if err := push(n); err != nil {
					return NilPtr, err
				}
			case c < 0x80:
				n, err := a.NewAtom([]byte{c})
				if err != nil {
					return NilPtr, err
				}
				if err := push(n); err != nil {
					return NilPtr, err
				}
			default:
				length, err := readAtomLen(b, off, c)
				if err != nil {
					return NilPtr, err
				}
				body, err := readSlice(b, off, length)
				if err != nil {
					return NilPtr, err
				}
				n, err := a.NewAtom(body)
				if err != nil {
					return NilPtr, err
				}
				if err := push(n); err != nil {
					return NilPtr, err
				}
			}

		case parseOpCons:
			// the rest child was parsed last and sits on top
			rest, tail := a.Pair(values)
			first, tail2 := a.Pair(tail)
			p, err := a.NewPair(first, rest)
			if err != nil {
				return NilPtr, err
			}
			pv, err := a.NewPair(p, tail2)
			if err != nil {
				return NilPtr, err
			}
			values = pv
		}
	}

	result, _ := a.Pair(values)
	return result, nil
}

// resolveBackref reads a path atom and walks the reader stack: bits
// below the leading one, most significant first, select first (0) or
// rest (1). The addressed node must already be fully parsed.
func resolveBackref(a *Allocator, b []byte, off *int, values NodePtr) (NodePtr, error) {
	c, err := readByte(b, off)
	if err != nil {
		return NilPtr, err
	}
	if c == tokenCons || c == tokenBackref {
		return NilPtr, newEvalErr(NilPtr, ERR_INVALID_CLVM+" (back-reference path must be an atom)")
	}
	var path []byte
	if c < 0x80 {
		path = []byte{c}
	} else {
		length, err := readAtomLen(b, off, c)
		if err != nil {
			return NilPtr, err
		}
		path, err = readSlice(b, off, length)
		if err != nil {
			return NilPtr, err
		}
	}
	p := new(big.Int).SetBytes(path)
	if p.Sign() <= 0 {
		return NilPtr, newEvalErr(NilPtr, ERR_INVALID_CLVM+" (invalid back-reference path)")
	}
	node := values
	for i := p.BitLen() - 2; i >= 0; i-- {
		if !a.IsPair(node) {
			return NilPtr, newEvalErr(NilPtr, ERR_INVALID_CLVM+" (back-reference path into atom)")
		}
		first, rest := a.Pair(node)
		if p.Bit(i) == 0 {
			node = first
		} else {
			node = rest
		}
	}
	return node, nil
}

// ParseBytes deserializes a node from the canonical wire format. The
// whole buffer must be consumed.
func ParseBytes(a *Allocator, b []byte) (NodePtr, error) {
	return parseBytes(a, b, false)
}

// ParseBytesBackrefs deserializes a node from the back-referenced wire
// format. Canonical input is accepted unchanged.
func ParseBytesBackrefs(a *Allocator, b []byte) (NodePtr, error) {
	return parseBytes(a, b, true)
}

func parseBytes(a *Allocator, b []byte, allowBackrefs bool) (NodePtr, error) {
	if uint64(len(b)) > MAX_BUFFER_SIZE {
		return NilPtr, newEvalErr(NilPtr, ERR_INVALID_CLVM+" (buffer too big)")
	}
	off := 0
	n, err := parse(a, b, &off, allowBackrefs)
	if err != nil {
		return NilPtr, err
	}
	if off != len(b) {
		return NilPtr, newEvalErr(n, fmt.Sprintf("%s (%d trailing bytes)", ERR_INVALID_CLVM, len(b)-off))
	}
	return n, nil
}
