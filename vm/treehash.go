package vm

import (
	"crypto/sha256"
	"math/big"
)

// Hash32 is a SHA-256 tree hash.
type Hash32 = [32]byte

// TreeHashAtomBytes computes the tree hash of an atom's bytes without
// allocating the atom.
func TreeHashAtomBytes(b []byte) Hash32 { return treeHashAtom(b) }

// TreeHashPairHashes combines two child tree hashes into the parent's.
func TreeHashPairHashes(first, rest Hash32) Hash32 { return treeHashPair(first, rest) }

// treeHashAtom computes SHA256(0x01 || bytes).
func treeHashAtom(b []byte) Hash32 {
	h := sha256.New()
	h.Write([]byte{0x01})
	h.Write(b)
	var out Hash32
	h.Sum(out[:0])
	return out
}

// treeHashPair computes SHA256(0x02 || first || rest).
func treeHashPair(first, rest Hash32) Hash32 {
	h := sha256.New()
	h.Write([]byte{0x02})
	h.Write(first[:])
	h.Write(rest[:])
	var out Hash32
	h.Sum(out[:0])
	return out
}

// TreeHash computes the canonical tree hash of a node. Plain recursion;
// shared subtrees are re-hashed every time they are visited.
func TreeHash(a *Allocator, node NodePtr) Hash32 {
	if a.IsPair(node) {
		first, rest := a.Pair(node)
		return treeHashPair(TreeHash(a, first), TreeHash(a, rest))
	}
	return treeHashAtom(a.Atom(node))
}

type treeOp struct {
	node NodePtr
	cons bool
}

// TreeHashCached computes the tree hash of a node with a caller-owned
// memoization cache keyed by node handle. Handles are stable for the
// allocator's lifetime, so a cache may span many calls against the same
// allocator. Every node visited ends up in the cache.
func TreeHashCached(a *Allocator, node NodePtr, cache map[NodePtr]Hash32) Hash32 {
	if h, ok := cache[node]; ok {
		return h
	}
	var hashes []Hash32
	ops := []treeOp{{node: node}}
	for len(ops) > 0 {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		if op.cons {
			first := hashes[len(hashes)-1]
			rest := hashes[len(hashes)-2]
			hashes = hashes[:len(hashes)-2]
			h := treeHashPair(first, rest)
			cache[op.node] = h
			hashes = append(hashes, h)
			continue
		}
		if h, ok := cache[op.node]; ok {
			hashes = append(hashes, h)
			continue
		}
		if a.IsPair(op.node) {
			first, rest := a.Pair(op.node)
			ops = append(ops, treeOp{node: op.node, cons: true}, treeOp{node: first}, treeOp{node: rest})
			continue
		}
		h := treeHashAtom(a.Atom(op.node))
		cache[op.node] = h
		hashes = append(hashes, h)
	}
	return hashes[0]
}

// hashTreeNode is the streaming hasher's shadow of a parsed node: the
// node's tree hash plus just enough structure for back-reference paths
// to walk into it. Leaves have nil children.
type hashTreeNode struct {
	hash  Hash32
	first *hashTreeNode
	rest  *hashTreeNode
}

// TreeHashFromBytes computes the tree hash directly from wire bytes,
// canonical or back-referenced, without materializing the tree into an
// allocator. Byte-compatible with TreeHash over the parsed node.
func TreeHashFromBytes(b []byte) (Hash32, error) {
	if uint64(len(b)) > MAX_BUFFER_SIZE {
		return Hash32{}, newEvalErr(NilPtr, ERR_INVALID_CLVM + " (buffer too big)")
	}
	nilNode := &hashTreeNode{hash: treeHashAtom(nil)}
	values := nilNode
	off := 0

	push := func(n *hashTreeNode) {
		values = &hashTreeNode{
			hash:  treeHashPair(n.hash, values.hash),
			first: n,
			rest:  values,
		}
	}

	ops := []parseOp{parseOpNode}
	for len(ops) > 0 {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]

		switch op {
		case parseOpNode:
			c, err := readByte(b, &off)
			if err != nil {
				return Hash32{}, err
			}
			switch {
			case c == tokenCons:
				ops = append(ops, parseOpCons, parseOpNode, parseOpNode)
			case c == tokenBackref:
				n, err := resolveBackrefHash(b, &off, values)
				if err != nil {
					return Hash32{}, err
				}
				push(n)
			case c < 0x80:
				push(&hashTreeNode{hash: treeHashAtom([]byte{c})})
			default:
				length, err := readAtomLen(b, &off, c)
				if err != nil {
					return Hash32{}, err
				}
				body, err := readSlice(b, &off, length)
				if err != nil {
					return Hash32{}, err
				}
				push(&hashTreeNode{hash: treeHashAtom(body)})
			}

		case parseOpCons:
			rest := values.first
			first := values.rest.first
			tail := values.rest.rest
			n := &hashTreeNode{
				hash:  treeHashPair(first.hash, rest.hash),
				first: first,
				rest:  rest,
			}
			values = &hashTreeNode{
				hash:  treeHashPair(n.hash, tail.hash),
				first: n,
				rest:  tail,
			}
		}
	}
	if off != len(b) {
		return Hash32{}, newEvalErr(NilPtr, ERR_INVALID_CLVM + " (trailing bytes)")
	}
	return values.first.hash, nil
}

// resolveBackrefHash walks the streaming hasher's shadow stack the same
// way resolveBackref walks the allocator-backed one.
func resolveBackrefHash(b []byte, off *int, values *hashTreeNode) (*hashTreeNode, error) {
	c, err := readByte(b, off)
	if err != nil {
		return nil, err
	}
	if c == tokenCons || c == tokenBackref {
		return nil, newEvalErr(NilPtr, ERR_INVALID_CLVM+" (back-reference path must be an atom)")
	}
	var path []byte
	if c < 0x80 {
		path = []byte{c}
	} else {
		length, err := readAtomLen(b, off, c)
		if err != nil {
			return nil, err
		}
		path, err = readSlice(b, off, length)
		if err != nil {
			return nil, err
		}
	}
	p := new(big.Int).SetBytes(path)
	if p.Sign() <= 0 {
		return nil, newEvalErr(NilPtr, ERR_INVALID_CLVM+" (invalid back-reference path)")
	}
	node := values
	for i := p.BitLen() - 2; i >= 0; i-- {
		if node.first == nil {
			return nil, newEvalErr(NilPtr, ERR_INVALID_CLVM+" (back-reference path into atom)")
		}
		if p.Bit(i) == 0 {
			node = node.first
		} else {
			node = node.rest
		}
	}
	return node, nil
}
