// Package consensus implements the block-generator execution core: it
// evaluates a block's compressed program, extracts the spend conditions
// every coin produces, validates them against the condition grammar and
// resource budgets, and returns a normalized conditions bundle.
package consensus

import (
	"fmt"

	"reef.dev/node/vm"
)

type ErrorCode string

const (
	// parse / format
	ERR_END_OF_BUFFER       ErrorCode = "ERR_END_OF_BUFFER"
	ERR_INVALID_CLVM        ErrorCode = "ERR_INVALID_CLVM"
	ERR_INVALID_COIN_AMOUNT ErrorCode = "ERR_INVALID_COIN_AMOUNT"
	ERR_INVALID_PARENT_ID   ErrorCode = "ERR_INVALID_PARENT_ID"
	ERR_INVALID_PUZZLE_HASH ErrorCode = "ERR_INVALID_PUZZLE_HASH"
	ERR_INVALID_PUBLIC_KEY  ErrorCode = "ERR_INVALID_PUBLIC_KEY"
	ERR_INVALID_MESSAGE     ErrorCode = "ERR_INVALID_MESSAGE"
	ERR_INVALID_HINT        ErrorCode = "ERR_INVALID_HINT"

	// grammar shape
	ERR_EXPECTED_ATOM                    ErrorCode = "ERR_EXPECTED_ATOM"
	ERR_EXPECTED_PAIR                    ErrorCode = "ERR_EXPECTED_PAIR"
	ERR_EXPECTED_NIL                     ErrorCode = "ERR_EXPECTED_NIL"
	ERR_INVALID_CONDITION_OPCODE         ErrorCode = "ERR_INVALID_CONDITION_OPCODE"
	ERR_INVALID_CONDITION_ARGUMENT_COUNT ErrorCode = "ERR_INVALID_CONDITION_ARGUMENT_COUNT"
	ERR_INVALID_MESSAGE_MODE             ErrorCode = "ERR_INVALID_MESSAGE_MODE"
	ERR_INVALID_SOFTFORK_COST            ErrorCode = "ERR_INVALID_SOFTFORK_COST"

	// semantic validation
	ERR_ASSERT_HEIGHT_ABSOLUTE_FAILED         ErrorCode = "ERR_ASSERT_HEIGHT_ABSOLUTE_FAILED"
	ERR_ASSERT_HEIGHT_RELATIVE_FAILED         ErrorCode = "ERR_ASSERT_HEIGHT_RELATIVE_FAILED"
	ERR_ASSERT_SECONDS_ABSOLUTE_FAILED        ErrorCode = "ERR_ASSERT_SECONDS_ABSOLUTE_FAILED"
	ERR_ASSERT_SECONDS_RELATIVE_FAILED        ErrorCode = "ERR_ASSERT_SECONDS_RELATIVE_FAILED"
	ERR_ASSERT_BEFORE_HEIGHT_ABSOLUTE_FAILED  ErrorCode = "ERR_ASSERT_BEFORE_HEIGHT_ABSOLUTE_FAILED"
	ERR_ASSERT_BEFORE_HEIGHT_RELATIVE_FAILED  ErrorCode = "ERR_ASSERT_BEFORE_HEIGHT_RELATIVE_FAILED"
	ERR_ASSERT_BEFORE_SECONDS_ABSOLUTE_FAILED ErrorCode = "ERR_ASSERT_BEFORE_SECONDS_ABSOLUTE_FAILED"
	ERR_ASSERT_BEFORE_SECONDS_RELATIVE_FAILED ErrorCode = "ERR_ASSERT_BEFORE_SECONDS_RELATIVE_FAILED"
	ERR_ASSERT_MY_COIN_ID_FAILED              ErrorCode = "ERR_ASSERT_MY_COIN_ID_FAILED"
	ERR_ASSERT_MY_PARENT_ID_FAILED            ErrorCode = "ERR_ASSERT_MY_PARENT_ID_FAILED"
	ERR_ASSERT_MY_PUZZLEHASH_FAILED           ErrorCode = "ERR_ASSERT_MY_PUZZLEHASH_FAILED"
	ERR_ASSERT_MY_AMOUNT_FAILED               ErrorCode = "ERR_ASSERT_MY_AMOUNT_FAILED"
	ERR_ASSERT_MY_BIRTH_HEIGHT_FAILED         ErrorCode = "ERR_ASSERT_MY_BIRTH_HEIGHT_FAILED"
	ERR_ASSERT_MY_BIRTH_SECONDS_FAILED        ErrorCode = "ERR_ASSERT_MY_BIRTH_SECONDS_FAILED"
	ERR_ASSERT_EPHEMERAL_FAILED               ErrorCode = "ERR_ASSERT_EPHEMERAL_FAILED"
	ERR_ASSERT_CONCURRENT_SPEND_FAILED        ErrorCode = "ERR_ASSERT_CONCURRENT_SPEND_FAILED"
	ERR_ASSERT_CONCURRENT_PUZZLE_FAILED       ErrorCode = "ERR_ASSERT_CONCURRENT_PUZZLE_FAILED"
	ERR_ASSERT_COIN_ANNOUNCEMENT_FAILED       ErrorCode = "ERR_ASSERT_COIN_ANNOUNCEMENT_FAILED"
	ERR_ASSERT_PUZZLE_ANNOUNCEMENT_FAILED     ErrorCode = "ERR_ASSERT_PUZZLE_ANNOUNCEMENT_FAILED"
	ERR_DUPLICATE_OUTPUT                      ErrorCode = "ERR_DUPLICATE_OUTPUT"
	ERR_AMOUNT_EXCEEDS_MAX                    ErrorCode = "ERR_AMOUNT_EXCEEDS_MAX"
	ERR_RESERVE_FEE_CONDITION_FAILED          ErrorCode = "ERR_RESERVE_FEE_CONDITION_FAILED"
	ERR_COST_EXCEEDED                         ErrorCode = "ERR_COST_EXCEEDED"
	ERR_BAD_AGGREGATE_SIGNATURE               ErrorCode = "ERR_BAD_AGGREGATE_SIGNATURE"
	ERR_TOO_MANY_ANNOUNCEMENTS                ErrorCode = "ERR_TOO_MANY_ANNOUNCEMENTS"
	ERR_MESSAGE_NOT_SENT_OR_RECEIVED          ErrorCode = "ERR_MESSAGE_NOT_SENT_OR_RECEIVED"
	ERR_LIMIT_REACHED                         ErrorCode = "ERR_LIMIT_REACHED"

	// VM
	ERR_GENERATOR_RUNTIME ErrorCode = "ERR_GENERATOR_RUNTIME"

	// fast-forward
	ERR_INCOMPATIBLE_COIN      ErrorCode = "ERR_INCOMPATIBLE_COIN"
	ERR_LINEAGE_PROOF_MISMATCH ErrorCode = "ERR_LINEAGE_PROOF_MISMATCH"
	ERR_NOT_A_SINGLETON        ErrorCode = "ERR_NOT_A_SINGLETON"
)

// ValidationErr is the terminal failure of a block evaluation. Node
// points at the offending VM node when one exists. The parser never
// recovers: the first ValidationErr aborts the whole block.
type ValidationErr struct {
	Code ErrorCode
	Msg  string
	Node vm.NodePtr
}

func (e *ValidationErr) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func valErr(n vm.NodePtr, code ErrorCode) error {
	return &ValidationErr{Code: code, Node: n}
}

func valErrf(n vm.NodePtr, code ErrorCode, format string, args ...any) error {
	return &ValidationErr{Code: code, Node: n, Msg: fmt.Sprintf(format, args...)}
}

// ErrCodeOf extracts the ErrorCode of a ValidationErr, or "" when err
// is something else.
func ErrCodeOf(err error) ErrorCode {
	if ve, ok := err.(*ValidationErr); ok {
		return ve.Code
	}
	return ""
}

// wrapVMErr converts a VM failure into the consensus taxonomy. Cost
// exhaustion and allocator caps keep their own codes; everything else
// is a generator runtime failure.
func wrapVMErr(err error) error {
	ee, ok := err.(*vm.EvalErr)
	if !ok {
		return err
	}
	switch {
	case vm.IsCostExceeded(err):
		return valErr(ee.Node, ERR_COST_EXCEEDED)
	case vm.IsLimitReached(err):
		return valErr(ee.Node, ERR_LIMIT_REACHED)
	case ee.Msg == vm.ERR_END_OF_BUFFER:
		return valErr(ee.Node, ERR_END_OF_BUFFER)
	default:
		if len(ee.Msg) >= len(vm.ERR_INVALID_CLVM) && ee.Msg[:len(vm.ERR_INVALID_CLVM)] == vm.ERR_INVALID_CLVM {
			return valErrf(ee.Node, ERR_INVALID_CLVM, "%s", ee.Msg)
		}
		return valErrf(ee.Node, ERR_GENERATOR_RUNTIME, "%s", ee.Msg)
	}
}
