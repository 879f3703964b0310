package consensus

import "reef.dev/node/vm"

// Flag bits of the shared flags word. Bits 16-23 carry consensus
// behavior; the VM bits (NO_UNKNOWN_OPS in the low half, ALLOW_BACKREFS
// at bit 25) are forwarded to the VM. Unknown bits are
// tolerated silently; they are reserved for future soft-forks.
const (
	// DONT_VALIDATE_SIGNATURE skips the aggregate BLS check; the caller
	// asserts validity (e.g. blocks below a checkpoint).
	DONT_VALIDATE_SIGNATURE uint32 = 0x1_0000

	// NO_UNKNOWN_CONDS rejects condition opcodes outside the table
	// instead of ignoring them (mempool mode).
	NO_UNKNOWN_CONDS uint32 = 0x2_0000

	// STRICT_ARGS_COUNT rejects conditions carrying surplus trailing
	// arguments (mempool mode).
	STRICT_ARGS_COUNT uint32 = 0x8_0000

	// COST_CONDITIONS charges a flat cost for every condition processed.
	COST_CONDITIONS uint32 = 0x80_0000

	// VM bits, re-exported so callers assemble one flags word.
	NO_UNKNOWN_OPS = vm.NO_UNKNOWN_OPS
	ALLOW_BACKREFS = vm.ALLOW_BACKREFS
)

// MEMPOOL_MODE is the flag set mempool admission runs under.
const MEMPOOL_MODE = NO_UNKNOWN_OPS | NO_UNKNOWN_CONDS | STRICT_ARGS_COUNT | COST_CONDITIONS
