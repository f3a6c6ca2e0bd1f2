package consensus

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a validation failure per the error-handling design:
// structural/protocol errors are rejected at the boundary, consensus
// violations reject the artifact without mutating state, and so on.
type ErrorCode string

const (
	// Structural / protocol.
	ErrParse          ErrorCode = "ERR_PARSE"
	ErrEmptyVin       ErrorCode = "ERR_EMPTY_VIN"
	ErrEmptyVout      ErrorCode = "ERR_EMPTY_VOUT"
	ErrSizeExceeded   ErrorCode = "ERR_SIZE_EXCEEDED"
	ErrAmountOutRange ErrorCode = "ERR_AMOUNT_OUT_OF_RANGE"
	ErrBadInput       ErrorCode = "ERR_BAD_INPUT"
	ErrLocktime       ErrorCode = "ERR_LOCKTIME_NOT_REACHED"

	// Consensus violation.
	ErrMissingUTXO        ErrorCode = "ERR_MISSING_UTXO"
	ErrCoinbaseImmature   ErrorCode = "ERR_COINBASE_IMMATURE"
	ErrSignatureInvalid   ErrorCode = "ERR_SIGNATURE_INVALID"
	ErrValueConservation  ErrorCode = "ERR_VALUE_CONSERVATION"
	ErrFeesMismatch       ErrorCode = "ERR_FEES_MISMATCH"
	ErrEmptyBlock         ErrorCode = "ERR_EMPTY_BLOCK"
	ErrCoinbaseStructure  ErrorCode = "ERR_COINBASE_STRUCTURE"
	ErrMerkleMismatch     ErrorCode = "ERR_MERKLE_MISMATCH"
	ErrDifficultyTooLow   ErrorCode = "ERR_DIFFICULTY_TOO_LOW"
	ErrPowInvalid         ErrorCode = "ERR_POW_INVALID"
	ErrTimestampFuture    ErrorCode = "ERR_TIMESTAMP_FUTURE"
	ErrTimestampTooOld    ErrorCode = "ERR_TIMESTAMP_TOO_OLD"
	ErrLinkageInvalid     ErrorCode = "ERR_LINKAGE_INVALID"
	ErrCoinbaseReward     ErrorCode = "ERR_COINBASE_REWARD_MISMATCH"
	ErrUtxoAlreadyPresent ErrorCode = "ERR_UTXO_ALREADY_PRESENT"
)

// ValidationError is the error type returned by every consensus-level check.
// Callers switch on Code rather than matching Error() strings.
type ValidationError struct {
	Code ErrorCode
	Msg  string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func txerr(code ErrorCode, msg string) error {
	return &ValidationError{Code: code, Msg: msg}
}

// CodeOf extracts the ErrorCode from err, if it is (or wraps) a
// *ValidationError. The zero value is returned otherwise.
func CodeOf(err error) ErrorCode {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return ""
	}
	return ve.Code
}
