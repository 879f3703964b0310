package vm

// Operator codes of the fixed dialect. Quote and apply are handled by
// the reduction loop itself; the rest dispatch through applyOperator.
const (
	OP_QUOTE          = 1
	OP_APPLY          = 2
	OP_IF             = 3
	OP_CONS           = 4
	OP_FIRST          = 5
	OP_REST           = 6
	OP_LISTP          = 7
	OP_RAISE          = 8
	OP_EQ             = 9
	OP_GR_BYTES       = 10
	OP_SHA256         = 11
	OP_SUBSTR         = 12
	OP_STRLEN         = 13
	OP_CONCAT         = 14
	OP_ADD            = 16
	OP_SUB            = 17
	OP_MUL            = 18
	OP_DIV            = 19
	OP_DIVMOD         = 20
	OP_GR             = 21
	OP_ASH            = 22
	OP_LSH            = 23
	OP_LOGAND         = 24
	OP_LOGIOR         = 25
	OP_LOGXOR         = 26
	OP_LOGNOT         = 27
	OP_POINT_ADD      = 29
	OP_PUBKEY_FOR_EXP = 30
	OP_NOT            = 32
	OP_ANY            = 33
	OP_ALL            = 34
	OP_SOFTFORK       = 36
)

type rtOpKind uint8

const (
	rtEval rtOpKind = iota
	rtApply
	rtApplyProgram
)

type rtOp struct {
	kind    rtOpKind
	program NodePtr // rtEval
	env     NodePtr // rtEval
	opNode  NodePtr // rtApply: the operator atom, for error reporting
	opcode  uint32  // rtApply
	count   int     // rtApply / rtApplyProgram
}

type runner struct {
	a        *Allocator
	flags    uint32
	cost     uint64
	maxCost  uint64
	valStack []NodePtr
	opStack  []rtOp
}

// RunProgram reduces program applied to env and returns the accumulated
// cost together with the result node. Reduction stops with
// ERR_COST_EXCEEDED the moment the running cost passes maxCost; no
// partial result is returned.
func RunProgram(a *Allocator, program, env NodePtr, maxCost uint64, flags uint32) (uint64, NodePtr, error) {
	r := &runner{a: a, flags: flags, maxCost: maxCost}
	r.opStack = append(r.opStack, rtOp{kind: rtEval, program: program, env: env})

	for len(r.opStack) > 0 {
		op := r.opStack[len(r.opStack)-1]
		r.opStack = r.opStack[:len(r.opStack)-1]

		var err error
		switch op.kind {
		case rtEval:
			err = r.eval(op.program, op.env)
		case rtApplyProgram:
			err = r.applyProgram()
		case rtApply:
			err = r.apply(op.opNode, op.opcode, op.count)
		}
		if err != nil {
			return r.cost, NilPtr, err
		}
	}
	return r.cost, r.valStack[0], nil
}

func (r *runner) charge(c uint64) error {
	r.cost += c
	if r.cost > r.maxCost {
		return newEvalErr(NilPtr, ERR_COST_EXCEEDED)
	}
	return nil
}

// pushAtomResult charges the malloc cost of a fresh atom and pushes it.
func (r *runner) pushAtomResult(b []byte) error {
	if err := r.charge(uint64(len(b)) * MALLOC_COST_PER_BYTE); err != nil {
		return err
	}
	n, err := r.a.NewAtom(b)
	if err != nil {
		return err
	}
	r.valStack = append(r.valStack, n)
	return nil
}

func (r *runner) pop() NodePtr {
	n := r.valStack[len(r.valStack)-1]
	r.valStack = r.valStack[:len(r.valStack)-1]
	return n
}

func (r *runner) eval(program, env NodePtr) error {
	if r.a.IsAtom(program) {
		node, cost, err := traversePath(r.a, r.a.Atom(program), env)
		if err != nil {
			return err
		}
		if err := r.charge(cost); err != nil {
			return err
		}
		r.valStack = append(r.valStack, node)
		return nil
	}

	opNode, rawArgs := r.a.Pair(program)
	if r.a.IsPair(opNode) {
		return newEvalErr(program, "pair found in operator position")
	}
	opBytes := r.a.Atom(opNode)

	if len(opBytes) == 1 && opBytes[0] == OP_QUOTE {
		if err := r.charge(QUOTE_COST); err != nil {
			return err
		}
		r.valStack = append(r.valStack, rawArgs)
		return nil
	}

	// collect the operand list; it must be a proper list
	var operands []NodePtr
	for n := rawArgs; !r.a.IsNil(n); {
		if !r.a.IsPair(n) {
			return newEvalErr(rawArgs, "bad operand list")
		}
		var arg NodePtr
		arg, n = r.a.Pair(n)
		operands = append(operands, arg)
	}

	opcode, known := decodeOpcode(opBytes)
	if known && opcode == OP_APPLY {
		if len(operands) != 2 {
			return newEvalErr(program, "apply requires exactly 2 parameters")
		}
		r.opStack = append(r.opStack, rtOp{kind: rtApplyProgram, count: 2})
	} else {
		r.opStack = append(r.opStack, rtOp{
			kind:   rtApply,
			opNode: opNode,
			opcode: opcode,
			count:  len(operands),
		})
	}
	for _, arg := range operands {
		r.opStack = append(r.opStack, rtOp{kind: rtEval, program: arg, env: env})
	}
	return nil
}

func (r *runner) applyProgram() error {
	if err := r.charge(APPLY_COST); err != nil {
		return err
	}
	newProgram := r.pop()
	newEnv := r.pop()
	r.opStack = append(r.opStack, rtOp{kind: rtEval, program: newProgram, env: newEnv})
	return nil
}

func (r *runner) apply(opNode NodePtr, opcode uint32, count int) error {
	args := make([]NodePtr, count)
	for i := 0; i < count; i++ {
		args[i] = r.pop()
	}
	return applyOperator(r, opNode, opcode, args)
}

// decodeOpcode interprets an operator atom as a big-endian code. Codes
// longer than 4 bytes, empty codes and codes with a redundant leading
// zero are never part of the dialect.
func decodeOpcode(b []byte) (uint32, bool) {
	if len(b) == 0 || len(b) > 4 || b[0] == 0 {
		return 0, false
	}
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v, true
}

// traversePath resolves an environment lookup: the path atom's bits
// below its most significant set bit, least significant first, choose
// first (0) or rest (1). The zero path yields nil.
func traversePath(a *Allocator, path []byte, env NodePtr) (NodePtr, uint64, error) {
	cost := TRAVERSE_BASE_COST

	firstNonZero := 0
	for firstNonZero < len(path) && path[firstNonZero] == 0 {
		cost += TRAVERSE_COST_PER_ZERO_BYTE
		firstNonZero++
	}
	if firstNonZero == len(path) {
		return NilPtr, cost, nil
	}

	// the highest set bit terminates the walk
	topByte := path[firstNonZero]
	topBit := 7
	for topByte>>uint(topBit)&1 == 0 {
		topBit--
	}

	node := env
	for i := len(path) - 1; i >= firstNonZero; i-- {
		limit := 7
		if i == firstNonZero {
			limit = topBit - 1
		}
		for bit := 0; bit <= limit; bit++ {
			if !a.IsPair(node) {
				return NilPtr, cost, newEvalErr(node, "path into atom")
			}
			first, rest := a.Pair(node)
			if path[i]>>uint(bit)&1 == 0 {
				node = first
			} else {
				node = rest
			}
			cost += TRAVERSE_COST_PER_BIT
		}
	}
	return node, cost, nil
}
