package consensus

// Condition opcodes. The table is closed: anything else is unknown and
// either ignored or, in mempool mode, rejected.
const (
	REMARK = 1

	AGG_SIG_PARENT        = 43
	AGG_SIG_PUZZLE        = 44
	AGG_SIG_AMOUNT        = 45
	AGG_SIG_PUZZLE_AMOUNT = 46
	AGG_SIG_PARENT_AMOUNT = 47
	AGG_SIG_PARENT_PUZZLE = 48
	AGG_SIG_UNSAFE        = 49
	AGG_SIG_ME            = 50

	CREATE_COIN = 51
	RESERVE_FEE = 52

	CREATE_COIN_ANNOUNCEMENT   = 60
	ASSERT_COIN_ANNOUNCEMENT   = 61
	CREATE_PUZZLE_ANNOUNCEMENT = 62
	ASSERT_PUZZLE_ANNOUNCEMENT = 63
	ASSERT_CONCURRENT_SPEND    = 64
	ASSERT_CONCURRENT_PUZZLE   = 65

	SEND_MESSAGE    = 66
	RECEIVE_MESSAGE = 67

	ASSERT_MY_COIN_ID       = 70
	ASSERT_MY_PARENT_ID     = 71
	ASSERT_MY_PUZZLEHASH    = 72
	ASSERT_MY_AMOUNT        = 73
	ASSERT_MY_BIRTH_SECONDS = 74
	ASSERT_MY_BIRTH_HEIGHT  = 75
	ASSERT_EPHEMERAL        = 76

	ASSERT_SECONDS_RELATIVE        = 80
	ASSERT_SECONDS_ABSOLUTE        = 81
	ASSERT_HEIGHT_RELATIVE         = 82
	ASSERT_HEIGHT_ABSOLUTE         = 83
	ASSERT_BEFORE_SECONDS_RELATIVE = 84
	ASSERT_BEFORE_SECONDS_ABSOLUTE = 85
	ASSERT_BEFORE_HEIGHT_RELATIVE  = 86
	ASSERT_BEFORE_HEIGHT_ABSOLUTE  = 87

	SOFTFORK = 90
)

// knownCondition reports whether op is in the table.
func knownCondition(op uint32) bool {
	switch op {
	case REMARK,
		AGG_SIG_PARENT, AGG_SIG_PUZZLE, AGG_SIG_AMOUNT, AGG_SIG_PUZZLE_AMOUNT,
		AGG_SIG_PARENT_AMOUNT, AGG_SIG_PARENT_PUZZLE, AGG_SIG_UNSAFE, AGG_SIG_ME,
		CREATE_COIN, RESERVE_FEE,
		CREATE_COIN_ANNOUNCEMENT, ASSERT_COIN_ANNOUNCEMENT,
		CREATE_PUZZLE_ANNOUNCEMENT, ASSERT_PUZZLE_ANNOUNCEMENT,
		ASSERT_CONCURRENT_SPEND, ASSERT_CONCURRENT_PUZZLE,
		SEND_MESSAGE, RECEIVE_MESSAGE,
		ASSERT_MY_COIN_ID, ASSERT_MY_PARENT_ID, ASSERT_MY_PUZZLEHASH, ASSERT_MY_AMOUNT,
		ASSERT_MY_BIRTH_SECONDS, ASSERT_MY_BIRTH_HEIGHT, ASSERT_EPHEMERAL,
		ASSERT_SECONDS_RELATIVE, ASSERT_SECONDS_ABSOLUTE,
		ASSERT_HEIGHT_RELATIVE, ASSERT_HEIGHT_ABSOLUTE,
		ASSERT_BEFORE_SECONDS_RELATIVE, ASSERT_BEFORE_SECONDS_ABSOLUTE,
		ASSERT_BEFORE_HEIGHT_RELATIVE, ASSERT_BEFORE_HEIGHT_ABSOLUTE,
		SOFTFORK:
		return true
	}
	return false
}
