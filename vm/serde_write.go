package vm

import "math/big"

// appendAtomHeader writes the shortest header encoding the given atom
// length. Single-byte atoms 0x00..0x7f are the caller's business.
func appendAtomHeader(out []byte, length uint64) []byte {
	switch {
	case length == 0:
		return append(out, tokenNil)
	case length < 0x40:
		return append(out, 0x80|byte(length))
	case length < 0x2000:
		return append(out, 0xc0|byte(length>>8), byte(length))
	case length < 0x10_0000:
		return append(out, 0xe0|byte(length>>16), byte(length>>8), byte(length))
	case length < 0x800_0000:
		return append(out, 0xf0|byte(length>>24), byte(length>>16), byte(length>>8), byte(length))
	default:
		return append(out, 0xf8|byte(length>>32), byte(length>>24), byte(length>>16), byte(length>>8), byte(length))
	}
}

func appendAtom(out []byte, v []byte) []byte {
	if len(v) == 1 && v[0] < 0x80 {
		return append(out, v[0])
	}
	out = appendAtomHeader(out, uint64(len(v)))
	return append(out, v...)
}

// atomWireSize returns the canonical wire size of an atom body,
// including its header.
func atomWireSize(b []byte) uint64 {
	if len(b) == 1 && b[0] < 0x80 {
		return 1
	}
	n := uint64(len(b))
	switch {
	case n == 0:
		return 1
	case n < 0x40:
		return 1 + n
	case n < 0x2000:
		return 2 + n
	case n < 0x10_0000:
		return 3 + n
	case n < 0x800_0000:
		return 4 + n
	default:
		return 5 + n
	}
}

type writeOp struct {
	node NodePtr
	cons bool
}

// SerializeNode emits the canonical (back-reference free) wire form.
func SerializeNode(a *Allocator, node NodePtr) []byte {
	var out []byte
	ops := []writeOp{{node: node}}
	for len(ops) > 0 {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		n := op.node
		if a.IsPair(n) {
			out = append(out, tokenCons)
			first, rest := a.Pair(n)
			ops = append(ops, writeOp{node: rest}, writeOp{node: first})
			continue
		}
		out = appendAtom(out, a.Atom(n))
	}
	return out
}

// readerStack mirrors the parser's value stack during emission: the
// completed subtrees, most recent last, viewed as the cons tree the
// parser would hold at the same point in the byte stream.
type readerStack struct {
	a     *Allocator
	nodes []NodePtr
}

func (s *readerStack) push(n NodePtr) { s.nodes = append(s.nodes, n) }

func (s *readerStack) popCons() {
	s.nodes = s.nodes[:len(s.nodes)-2]
}

// findPath looks for a subtree with the given tree hash anywhere in the
// stack tree and returns the back-reference path addressing it: depth
// ones to walk down the spine, a zero to enter the element, then the
// in-element bits. The top of the stack is searched first.
func (s *readerStack) findPath(hashes map[NodePtr]Hash32, want Hash32) (*big.Int, bool) {
	for depth := 0; depth < len(s.nodes); depth++ {
		elem := s.nodes[len(s.nodes)-1-depth]
		rel, ok := findInTree(s.a, hashes, elem, want)
		if !ok {
			continue
		}
		p := big.NewInt(1)
		for i := 0; i < depth; i++ {
			p.Lsh(p, 1)
			p.SetBit(p, 0, 1)
		}
		p.Lsh(p, 1) // first: take the element
		for _, bit := range rel {
			p.Lsh(p, 1)
			p.SetBit(p, 0, uint(bit))
		}
		return p, true
	}
	return nil, false
}

// findInTree returns the bit path (0 = first, 1 = rest, root-first) of
// the shallowest node under root whose tree hash equals want.
func findInTree(a *Allocator, hashes map[NodePtr]Hash32, root NodePtr, want Hash32) ([]byte, bool) {
	type item struct {
		node NodePtr
		path []byte
	}
	queue := []item{{node: root}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if hashes[it.node] == want {
			return it.path, true
		}
		if a.IsPair(it.node) {
			first, rest := a.Pair(it.node)
			queue = append(queue,
				item{first, append(append([]byte(nil), it.path...), 0)},
				item{rest, append(append([]byte(nil), it.path...), 1)})
		}
	}
	return nil, false
}

// SerializeNodeBackrefs emits the back-referenced wire form. Whenever a
// subtree to be written already exists in the simulated reader stack
// and the path token is strictly smaller than the subtree's canonical
// encoding, a 0xfe token is emitted instead. Round-tripping through
// ParseBytesBackrefs reproduces a tree whose canonical serialization is
// byte-identical to the input's.
func SerializeNodeBackrefs(a *Allocator, node NodePtr) []byte {
	hashes := make(map[NodePtr]Hash32)
	TreeHashCached(a, node, hashes)
	sizes := make(map[NodePtr]uint64)
	canonicalSize(a, node, sizes)

	var out []byte
	stack := &readerStack{a: a}
	ops := []writeOp{{node: node}}
	for len(ops) > 0 {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		n := op.node
		if op.cons {
			stack.popCons()
			stack.push(n)
			continue
		}
		if path, ok := stack.findPath(hashes, hashes[n]); ok {
			pathBytes := path.Bytes()
			if atomWireSize(pathBytes)+1 < sizes[n] {
				out = append(out, tokenBackref)
				out = appendAtom(out, pathBytes)
				stack.push(n)
				continue
			}
		}
		if a.IsPair(n) {
			out = append(out, tokenCons)
			first, rest := a.Pair(n)
			ops = append(ops, writeOp{node: n, cons: true}, writeOp{node: rest}, writeOp{node: first})
			continue
		}
		out = appendAtom(out, a.Atom(n))
		stack.push(n)
	}
	return out
}

// canonicalSize fills sizes with the canonical wire size of every node
// reachable from n.
func canonicalSize(a *Allocator, n NodePtr, sizes map[NodePtr]uint64) uint64 {
	if s, ok := sizes[n]; ok {
		return s
	}
	var s uint64
	if a.IsPair(n) {
		first, rest := a.Pair(n)
		s = 1 + canonicalSize(a, first, sizes) + canonicalSize(a, rest, sizes)
	} else {
		s = atomWireSize(a.Atom(n))
	}
	sizes[n] = s
	return s
}
