package consensus

import "reef.dev/node/vm"

type sanitized uint8

const (
	sanitizedOk sanitized = iota
	sanitizedPositiveOverflow
	sanitizedNegativeOverflow
)

// sanitizeUint decodes an atom as an unsigned integer of at most
// maxSize bytes. The canonical form is enforced: zero is the empty
// atom, a single 0x00 pad is allowed only when the next byte has its
// top bit set, and any further padding is rejected with code.
//
// Out-of-range values are not errors by themselves; the caller decides
// whether a negative or too-large value fails its condition, satisfies
// it trivially, or is impossible.
func sanitizeUint(a *vm.Allocator, n vm.NodePtr, maxSize int, code ErrorCode) (uint64, sanitized, error) {
	if a.IsPair(n) {
		return 0, sanitizedOk, valErr(n, code)
	}
	buf := a.Atom(n)

	if len(buf) == 0 {
		return 0, sanitizedOk, nil
	}
	if buf[0]&0x80 != 0 {
		return 0, sanitizedNegativeOverflow, nil
	}
	// a zero value must be the empty atom, and a leading zero byte is
	// only a pad for a value whose top bit is set
	if len(buf) == 1 && buf[0] == 0 {
		return 0, sanitizedOk, valErr(n, code)
	}
	if len(buf) > 1 && buf[0] == 0 && buf[1]&0x80 == 0 {
		return 0, sanitizedOk, valErr(n, code)
	}

	sizeLimit := maxSize
	if buf[0] == 0 {
		sizeLimit++
	}
	if len(buf) > sizeLimit {
		return 0, sanitizedPositiveOverflow, nil
	}
	return vm.U64FromBytes(buf), sanitizedOk, nil
}
