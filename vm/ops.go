package vm

import (
	"crypto/sha256"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

func (r *runner) pushResult(n NodePtr) {
	r.valStack = append(r.valStack, n)
}

func (r *runner) atomArg(n NodePtr, opName string) ([]byte, error) {
	if r.a.IsPair(n) {
		return nil, newEvalErr(n, opName+" requires an atom argument")
	}
	return r.a.Atom(n), nil
}

func (r *runner) intArg(n NodePtr, opName string) (*big.Int, int, error) {
	b, err := r.atomArg(n, opName)
	if err != nil {
		return nil, 0, err
	}
	return BytesToBigInt(b), len(b), nil
}

// u32Arg decodes a small non-negative integer argument (shift counts,
// substring offsets).
func (r *runner) u32Arg(n NodePtr, opName string) (int64, error) {
	v, size, err := r.intArg(n, opName)
	if err != nil {
		return 0, err
	}
	if size > 4 || v.Sign() < 0 {
		return 0, newEvalErr(n, opName+" invalid index")
	}
	return v.Int64(), nil
}

func argCountErr(opNode NodePtr, opName string) error {
	return newEvalErr(opNode, opName+" takes the wrong number of arguments")
}

func isTruthy(a *Allocator, n NodePtr) bool {
	return a.IsPair(n) || a.AtomLen(n) != 0
}

// applyOperator dispatches one strict operator over already-evaluated
// arguments, charging its cost and pushing the result.
func applyOperator(r *runner, opNode NodePtr, opcode uint32, args []NodePtr) error {
	a := r.a
	switch opcode {
	case OP_IF:
		if len(args) != 3 {
			return argCountErr(opNode, "i")
		}
		if err := r.charge(IF_COST); err != nil {
			return err
		}
		if isTruthy(a, args[0]) {
			r.pushResult(args[1])
		} else {
			r.pushResult(args[2])
		}
		return nil

	case OP_CONS:
		if len(args) != 2 {
			return argCountErr(opNode, "c")
		}
		if err := r.charge(CONS_COST); err != nil {
			return err
		}
		p, err := a.NewPair(args[0], args[1])
		if err != nil {
			return err
		}
		r.pushResult(p)
		return nil

	case OP_FIRST:
		if len(args) != 1 {
			return argCountErr(opNode, "f")
		}
		if err := r.charge(FIRST_COST); err != nil {
			return err
		}
		if !a.IsPair(args[0]) {
			return newEvalErr(args[0], "first of non-cons")
		}
		first, _ := a.Pair(args[0])
		r.pushResult(first)
		return nil

	case OP_REST:
		if len(args) != 1 {
			return argCountErr(opNode, "r")
		}
		if err := r.charge(REST_COST); err != nil {
			return err
		}
		if !a.IsPair(args[0]) {
			return newEvalErr(args[0], "rest of non-cons")
		}
		_, rest := a.Pair(args[0])
		r.pushResult(rest)
		return nil

	case OP_LISTP:
		if len(args) != 1 {
			return argCountErr(opNode, "l")
		}
		if err := r.charge(LISTP_COST); err != nil {
			return err
		}
		if a.IsPair(args[0]) {
			r.pushResult(a.One())
		} else {
			r.pushResult(a.Nil())
		}
		return nil

	case OP_RAISE:
		return newEvalErr(opNode, "clvm raise")

	case OP_EQ:
		if len(args) != 2 {
			return argCountErr(opNode, "=")
		}
		b0, err := r.atomArg(args[0], "=")
		if err != nil {
			return err
		}
		b1, err := r.atomArg(args[1], "=")
		if err != nil {
			return err
		}
		cost := EQ_BASE_COST + uint64(len(b0)+len(b1))*EQ_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		if string(b0) == string(b1) {
			r.pushResult(a.One())
		} else {
			r.pushResult(a.Nil())
		}
		return nil

	case OP_GR_BYTES:
		if len(args) != 2 {
			return argCountErr(opNode, ">s")
		}
		b0, err := r.atomArg(args[0], ">s")
		if err != nil {
			return err
		}
		b1, err := r.atomArg(args[1], ">s")
		if err != nil {
			return err
		}
		cost := GRS_BASE_COST + uint64(len(b0)+len(b1))*GRS_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		if string(b0) > string(b1) {
			r.pushResult(a.One())
		} else {
			r.pushResult(a.Nil())
		}
		return nil

	case OP_GR:
		if len(args) != 2 {
			return argCountErr(opNode, ">")
		}
		v0, s0, err := r.intArg(args[0], ">")
		if err != nil {
			return err
		}
		v1, s1, err := r.intArg(args[1], ">")
		if err != nil {
			return err
		}
		cost := GR_BASE_COST + uint64(s0+s1)*GR_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		if v0.Cmp(v1) > 0 {
			r.pushResult(a.One())
		} else {
			r.pushResult(a.Nil())
		}
		return nil

	case OP_SHA256:
		cost := SHA256_BASE_COST
		h := sha256.New()
		var byteCount uint64
		for _, arg := range args {
			b, err := r.atomArg(arg, "sha256")
			if err != nil {
				return err
			}
			byteCount += uint64(len(b))
			h.Write(b)
		}
		cost += uint64(len(args))*SHA256_COST_PER_ARG + byteCount*SHA256_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		return r.pushAtomResult(h.Sum(nil))

	case OP_SUBSTR:
		if len(args) != 2 && len(args) != 3 {
			return argCountErr(opNode, "substr")
		}
		b, err := r.atomArg(args[0], "substr")
		if err != nil {
			return err
		}
		start, err := r.u32Arg(args[1], "substr")
		if err != nil {
			return err
		}
		end := int64(len(b))
		if len(args) == 3 {
			end, err = r.u32Arg(args[2], "substr")
			if err != nil {
				return err
			}
		}
		if start > end || end > int64(len(b)) {
			return newEvalErr(args[0], "substr invalid bounds")
		}
		if err := r.charge(SUBSTR_COST); err != nil {
			return err
		}
		n, err := a.NewSubstr(args[0], uint32(start), uint32(end))
		if err != nil {
			return err
		}
		r.pushResult(n)
		return nil

	case OP_STRLEN:
		if len(args) != 1 {
			return argCountErr(opNode, "strlen")
		}
		b, err := r.atomArg(args[0], "strlen")
		if err != nil {
			return err
		}
		cost := STRLEN_BASE_COST + uint64(len(b))*STRLEN_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		return r.pushNumberResult(big.NewInt(int64(len(b))))

	case OP_CONCAT:
		cost := CONCAT_BASE_COST
		total := 0
		for _, arg := range args {
			b, err := r.atomArg(arg, "concat")
			if err != nil {
				return err
			}
			total += len(b)
		}
		cost += uint64(len(args))*CONCAT_COST_PER_ARG + uint64(total)*CONCAT_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		if err := r.charge(uint64(total) * MALLOC_COST_PER_BYTE); err != nil {
			return err
		}
		n, err := a.NewConcat(total, args)
		if err != nil {
			return err
		}
		r.pushResult(n)
		return nil

	case OP_ADD, OP_SUB:
		total := new(big.Int)
		cost := ARITH_BASE_COST
		var byteCount uint64
		for i, arg := range args {
			v, size, err := r.intArg(arg, "+")
			if err != nil {
				return err
			}
			byteCount += uint64(size)
			if opcode == OP_SUB && i > 0 {
				total.Sub(total, v)
			} else {
				total.Add(total, v)
			}
		}
		cost += uint64(len(args))*ARITH_COST_PER_ARG + byteCount*ARITH_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		return r.pushNumberResult(total)

	case OP_MUL:
		if err := r.charge(MUL_BASE_COST); err != nil {
			return err
		}
		if len(args) == 0 {
			return r.pushNumberResult(big.NewInt(1))
		}
		total, size, err := r.intArg(args[0], "*")
		if err != nil {
			return err
		}
		lhsSize := uint64(size)
		for _, arg := range args[1:] {
			v, rhs, err := r.intArg(arg, "*")
			if err != nil {
				return err
			}
			rhsSize := uint64(rhs)
			opCost := MUL_COST_PER_OP +
				(lhsSize+rhsSize)*MUL_LINEAR_COST_PER_BYTE +
				lhsSize*rhsSize/MUL_SQUARE_COST_PER_BYTE_DIVIDER
			if err := r.charge(opCost); err != nil {
				return err
			}
			total.Mul(total, v)
			lhsSize = uint64(len(BigIntToBytes(total)))
		}
		return r.pushNumberResult(total)

	case OP_DIV:
		if len(args) != 2 {
			return argCountErr(opNode, "/")
		}
		v0, s0, err := r.intArg(args[0], "/")
		if err != nil {
			return err
		}
		v1, s1, err := r.intArg(args[1], "/")
		if err != nil {
			return err
		}
		cost := DIV_BASE_COST + uint64(s0+s1)*DIV_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		if v1.Sign() == 0 {
			return newEvalErr(args[1], "div with 0")
		}
		q, _ := floorDivMod(v0, v1)
		return r.pushNumberResult(q)

	case OP_DIVMOD:
		if len(args) != 2 {
			return argCountErr(opNode, "divmod")
		}
		v0, s0, err := r.intArg(args[0], "divmod")
		if err != nil {
			return err
		}
		v1, s1, err := r.intArg(args[1], "divmod")
		if err != nil {
			return err
		}
		cost := DIVMOD_BASE_COST + uint64(s0+s1)*DIVMOD_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		if v1.Sign() == 0 {
			return newEvalErr(args[1], "divmod with 0")
		}
		q, m := floorDivMod(v0, v1)
		qb := BigIntToBytes(q)
		mb := BigIntToBytes(m)
		if err := r.charge(uint64(len(qb)+len(mb)) * MALLOC_COST_PER_BYTE); err != nil {
			return err
		}
		qn, err := a.NewAtom(qb)
		if err != nil {
			return err
		}
		mn, err := a.NewAtom(mb)
		if err != nil {
			return err
		}
		p, err := a.NewPair(qn, mn)
		if err != nil {
			return err
		}
		r.pushResult(p)
		return nil

	case OP_ASH, OP_LSH:
		if len(args) != 2 {
			return argCountErr(opNode, "shift")
		}
		var v0 *big.Int
		var s0 int
		var err error
		if opcode == OP_ASH {
			v0, s0, err = r.intArg(args[0], "ash")
		} else {
			var b []byte
			b, err = r.atomArg(args[0], "lsh")
			if err == nil {
				// lsh treats its operand as an unsigned byte string
				v0 = new(big.Int).SetBytes(b)
				s0 = len(b)
			}
		}
		if err != nil {
			return err
		}
		shift, size, err := r.intArg(args[1], "shift")
		if err != nil {
			return err
		}
		if size > 2 {
			return newEvalErr(args[1], "shift too large")
		}
		count := shift.Int64()
		if count > 65535 || count < -65535 {
			return newEvalErr(args[1], "shift too large")
		}
		var res *big.Int
		if count >= 0 {
			res = new(big.Int).Lsh(v0, uint(count))
		} else {
			res = new(big.Int).Rsh(v0, uint(-count))
		}
		var base, perByte uint64
		if opcode == OP_ASH {
			base, perByte = ASH_BASE_COST, ASH_COST_PER_BYTE
		} else {
			base, perByte = LSH_BASE_COST, LSH_COST_PER_BYTE
		}
		if err := r.charge(base + uint64(s0)*perByte); err != nil {
			return err
		}
		return r.pushNumberResult(res)

	case OP_LOGAND, OP_LOGIOR, OP_LOGXOR:
		total := big.NewInt(0)
		if opcode == OP_LOGAND {
			total = big.NewInt(-1)
		}
		cost := LOG_BASE_COST
		var byteCount uint64
		for _, arg := range args {
			v, size, err := r.intArg(arg, "log op")
			if err != nil {
				return err
			}
			byteCount += uint64(size)
			switch opcode {
			case OP_LOGAND:
				total.And(total, v)
			case OP_LOGIOR:
				total.Or(total, v)
			case OP_LOGXOR:
				total.Xor(total, v)
			}
		}
		cost += uint64(len(args))*LOG_COST_PER_ARG + byteCount*LOG_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		return r.pushNumberResult(total)

	case OP_LOGNOT:
		if len(args) != 1 {
			return argCountErr(opNode, "lognot")
		}
		v, size, err := r.intArg(args[0], "lognot")
		if err != nil {
			return err
		}
		cost := LOGNOT_BASE_COST + uint64(size)*LOGNOT_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		return r.pushNumberResult(new(big.Int).Not(v))

	case OP_NOT:
		if len(args) != 1 {
			return argCountErr(opNode, "not")
		}
		if err := r.charge(BOOL_BASE_COST); err != nil {
			return err
		}
		if isTruthy(a, args[0]) {
			r.pushResult(a.Nil())
		} else {
			r.pushResult(a.One())
		}
		return nil

	case OP_ANY, OP_ALL:
		cost := BOOL_BASE_COST + uint64(len(args))*BOOL_COST_PER_ARG
		if err := r.charge(cost); err != nil {
			return err
		}
		result := opcode == OP_ALL
		for _, arg := range args {
			t := isTruthy(a, arg)
			if opcode == OP_ANY && t {
				result = true
				break
			}
			if opcode == OP_ALL && !t {
				result = false
				break
			}
		}
		if result {
			r.pushResult(a.One())
		} else {
			r.pushResult(a.Nil())
		}
		return nil

	case OP_POINT_ADD:
		cost := POINT_ADD_BASE_COST + uint64(len(args))*POINT_ADD_COST_PER_ARG
		if err := r.charge(cost); err != nil {
			return err
		}
		var acc bls12381.G1Jac
		for _, arg := range args {
			b, err := r.atomArg(arg, "point_add")
			if err != nil {
				return err
			}
			if len(b) != 48 {
				return newEvalErr(arg, "point_add expects 48-byte points")
			}
			var p bls12381.G1Affine
			if _, err := p.SetBytes(b); err != nil {
				return newEvalErr(arg, "point_add invalid point")
			}
			acc.AddMixed(&p)
		}
		var sum bls12381.G1Affine
		sum.FromJacobian(&acc)
		out := sum.Bytes()
		return r.pushAtomResult(out[:])

	case OP_PUBKEY_FOR_EXP:
		if len(args) != 1 {
			return argCountErr(opNode, "pubkey_for_exp")
		}
		v, size, err := r.intArg(args[0], "pubkey_for_exp")
		if err != nil {
			return err
		}
		cost := PUBKEY_BASE_COST + uint64(size)*PUBKEY_COST_PER_BYTE
		if err := r.charge(cost); err != nil {
			return err
		}
		exp := new(big.Int).Mod(v, fr.Modulus())
		var p bls12381.G1Affine
		p.ScalarMultiplicationBase(exp)
		out := p.Bytes()
		return r.pushAtomResult(out[:])

	case OP_SOFTFORK:
		// (softfork cost ...) charges its declared cost and yields nil.
		if len(args) < 1 {
			return argCountErr(opNode, "softfork")
		}
		v, size, err := r.intArg(args[0], "softfork")
		if err != nil {
			return err
		}
		if v.Sign() <= 0 || size > 8 {
			return newEvalErr(args[0], "softfork requires a positive cost")
		}
		if err := r.charge(v.Uint64()); err != nil {
			return err
		}
		r.pushResult(a.Nil())
		return nil

	default:
		if r.flags&NO_UNKNOWN_OPS != 0 {
			return newEvalErr(opNode, "unimplemented operator")
		}
		if err := r.charge(UNKNOWN_OP_COST); err != nil {
			return err
		}
		r.pushResult(a.Nil())
		return nil
	}
}

func (r *runner) pushNumberResult(v *big.Int) error {
	b := BigIntToBytes(v)
	return r.pushAtomResult(b)
}

// floorDivMod implements floored division: the quotient rounds toward
// negative infinity and the remainder takes the divisor's sign.
func floorDivMod(x, y *big.Int) (*big.Int, *big.Int) {
	q := new(big.Int)
	m := new(big.Int)
	q.QuoRem(x, y, m)
	if m.Sign() != 0 && (m.Sign() < 0) != (y.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
		m.Add(m, y)
	}
	return q, m
}
