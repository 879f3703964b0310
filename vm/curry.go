package vm

// Curry binds args into program, producing
// (a (q . program) (c (q . arg1) (c (q . arg2) ... 1))).
func Curry(a *Allocator, program NodePtr, args []NodePtr) (NodePtr, error) {
	opA, err := a.NewAtom([]byte{OP_APPLY})
	if err != nil {
		return NilPtr, err
	}
	opC, err := a.NewAtom([]byte{OP_CONS})
	if err != nil {
		return NilPtr, err
	}

	quotedProgram, err := a.NewPair(a.One(), program)
	if err != nil {
		return NilPtr, err
	}
	quotedArgs := a.One()
	for i := len(args) - 1; i >= 0; i-- {
		quotedArg, err := a.NewPair(a.One(), args[i])
		if err != nil {
			return NilPtr, err
		}
		terminated, err := a.NewPair(quotedArgs, a.Nil())
		if err != nil {
			return NilPtr, err
		}
		terminated, err = a.NewPair(quotedArg, terminated)
		if err != nil {
			return NilPtr, err
		}
		quotedArgs, err = a.NewPair(opC, terminated)
		if err != nil {
			return NilPtr, err
		}
	}

	terminated, err := a.NewPair(quotedArgs, a.Nil())
	if err != nil {
		return NilPtr, err
	}
	programAndArgs, err := a.NewPair(quotedProgram, terminated)
	if err != nil {
		return NilPtr, err
	}
	return a.NewPair(opA, programAndArgs)
}

// Uncurry splits a curried program back into its module and bound
// arguments. The second return is false when node is not in curried
// form.
func Uncurry(a *Allocator, node NodePtr) (NodePtr, []NodePtr, bool) {
	// (a (q . program) args)
	op, rest, ok := splitPair(a, node)
	if !ok || !atomEquals(a, op, OP_APPLY) {
		return NilPtr, nil, false
	}
	quotedProgram, rest, ok := splitPair(a, rest)
	if !ok {
		return NilPtr, nil, false
	}
	q, program, ok := splitPair(a, quotedProgram)
	if !ok || !atomEquals(a, q, OP_QUOTE) {
		return NilPtr, nil, false
	}
	argsNode, tail, ok := splitPair(a, rest)
	if !ok || !a.IsNil(tail) {
		return NilPtr, nil, false
	}

	var args []NodePtr
	for !atomEquals(a, argsNode, 0x01) {
		// each layer is (c (q . arg) rest)
		op, rest, ok := splitPair(a, argsNode)
		if !ok || !atomEquals(a, op, OP_CONS) {
			return NilPtr, nil, false
		}
		quotedArg, rest, ok := splitPair(a, rest)
		if !ok {
			return NilPtr, nil, false
		}
		q, arg, ok := splitPair(a, quotedArg)
		if !ok || !atomEquals(a, q, OP_QUOTE) {
			return NilPtr, nil, false
		}
		next, tail, ok := splitPair(a, rest)
		if !ok || !a.IsNil(tail) {
			return NilPtr, nil, false
		}
		args = append(args, arg)
		argsNode = next
	}
	return program, args, true
}

// CurryTreeHash computes the tree hash of Curry(program, args) from the
// component hashes alone, without building the tree.
func CurryTreeHash(programHash Hash32, argHashes []Hash32) Hash32 {
	nilHash := treeHashAtom(nil)
	one := treeHashAtom([]byte{0x01})
	opQ := one
	opA := treeHashAtom([]byte{OP_APPLY})
	opC := treeHashAtom([]byte{OP_CONS})

	quotedProgram := treeHashPair(opQ, programHash)
	quotedArgs := one
	for i := len(argHashes) - 1; i >= 0; i-- {
		quotedArg := treeHashPair(opQ, argHashes[i])
		terminated := treeHashPair(quotedArgs, nilHash)
		terminated = treeHashPair(quotedArg, terminated)
		quotedArgs = treeHashPair(opC, terminated)
	}

	terminated := treeHashPair(quotedArgs, nilHash)
	programAndArgs := treeHashPair(quotedProgram, terminated)
	return treeHashPair(opA, programAndArgs)
}

func splitPair(a *Allocator, n NodePtr) (NodePtr, NodePtr, bool) {
	if !a.IsPair(n) {
		return NilPtr, NilPtr, false
	}
	first, rest := a.Pair(n)
	return first, rest, true
}

func atomEquals(a *Allocator, n NodePtr, op byte) bool {
	if !a.IsAtom(n) {
		return false
	}
	b := a.Atom(n)
	return len(b) == 1 && b[0] == op
}
