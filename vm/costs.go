package vm

// Operator cost constants of the fixed dialect. These are consensus
// values: changing any of them changes which blocks validate.
const (
	QUOTE_COST uint64 = 20
	APPLY_COST uint64 = 90

	TRAVERSE_BASE_COST          uint64 = 40
	TRAVERSE_COST_PER_ZERO_BYTE uint64 = 4
	TRAVERSE_COST_PER_BIT       uint64 = 4

	MALLOC_COST_PER_BYTE uint64 = 10

	IF_COST    uint64 = 33
	CONS_COST  uint64 = 50
	FIRST_COST uint64 = 30
	REST_COST  uint64 = 30
	LISTP_COST uint64 = 19

	EQ_BASE_COST     uint64 = 117
	EQ_COST_PER_BYTE uint64 = 1

	GRS_BASE_COST     uint64 = 117
	GRS_COST_PER_BYTE uint64 = 1

	GR_BASE_COST     uint64 = 498
	GR_COST_PER_BYTE uint64 = 2

	SHA256_BASE_COST     uint64 = 87
	SHA256_COST_PER_ARG  uint64 = 134
	SHA256_COST_PER_BYTE uint64 = 2

	SUBSTR_COST uint64 = 1

	STRLEN_BASE_COST     uint64 = 173
	STRLEN_COST_PER_BYTE uint64 = 1

	CONCAT_BASE_COST     uint64 = 142
	CONCAT_COST_PER_ARG  uint64 = 135
	CONCAT_COST_PER_BYTE uint64 = 3

	ARITH_BASE_COST     uint64 = 99
	ARITH_COST_PER_ARG  uint64 = 320
	ARITH_COST_PER_BYTE uint64 = 3

	MUL_BASE_COST                    uint64 = 92
	MUL_COST_PER_OP                  uint64 = 885
	MUL_LINEAR_COST_PER_BYTE         uint64 = 6
	MUL_SQUARE_COST_PER_BYTE_DIVIDER uint64 = 128

	DIV_BASE_COST     uint64 = 988
	DIV_COST_PER_BYTE uint64 = 4

	DIVMOD_BASE_COST     uint64 = 1116
	DIVMOD_COST_PER_BYTE uint64 = 6

	ASH_BASE_COST     uint64 = 596
	ASH_COST_PER_BYTE uint64 = 3

	LSH_BASE_COST     uint64 = 277
	LSH_COST_PER_BYTE uint64 = 3

	LOG_BASE_COST     uint64 = 100
	LOG_COST_PER_ARG  uint64 = 264
	LOG_COST_PER_BYTE uint64 = 3

	LOGNOT_BASE_COST     uint64 = 331
	LOGNOT_COST_PER_BYTE uint64 = 3

	BOOL_BASE_COST    uint64 = 200
	BOOL_COST_PER_ARG uint64 = 300

	POINT_ADD_BASE_COST    uint64 = 101094
	POINT_ADD_COST_PER_ARG uint64 = 1343980

	PUBKEY_BASE_COST     uint64 = 1325730
	PUBKEY_COST_PER_BYTE uint64 = 38

	UNKNOWN_OP_COST uint64 = 42
)

// VM flag bits of the shared flags word. NO_UNKNOWN_OPS sits in the low
// half; ALLOW_BACKREFS sits at bit 25, above the consensus bits (16-23).
const (
	// NO_UNKNOWN_OPS rejects operator codes outside the dialect instead
	// of treating them as nil-result no-ops charged UNKNOWN_OP_COST
	// (mempool mode).
	NO_UNKNOWN_OPS uint32 = 0x0002

	// ALLOW_BACKREFS permits the 0xfe back-reference token when
	// deserializing the block program.
	ALLOW_BACKREFS uint32 = 0x0200_0000
)
