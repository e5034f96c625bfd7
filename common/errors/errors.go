// Package errors defines the error taxonomy of the insurance core and its
// RFC 7807 rendering for the HTTP surface. Every failure is a local validation
// failure surfaced synchronously with the transaction fully rolled back.
package errors

import "fmt"

// Code is a closed machine-readable error code.
type Code string

const (
	CodeUnauthorized          Code = "unauthorized"
	CodeInvalidAmount         Code = "invalid_amount"
	CodeInvalidDuration       Code = "invalid_duration"
	CodeInvalidRiskParams     Code = "invalid_risk_params"
	CodeInvalidPoolType       Code = "invalid_pool_type"
	CodeDuplicateRegistration Code = "duplicate_registration"
	CodeDuplicatePool         Code = "duplicate_pool"
	CodeDuplicatePolicy       Code = "duplicate_policy"
	CodeDuplicateClaim        Code = "duplicate_claim"
	CodePremiumMismatch       Code = "premium_mismatch"
	CodeProtocolInactive      Code = "protocol_inactive"
	CodePolicyNotActive       Code = "policy_not_active"
	CodePolicyExpired         Code = "policy_expired"
	CodePolicyAlreadyClaimed  Code = "policy_already_claimed"
	CodeAmountExceedsCoverage Code = "amount_exceeds_coverage"
	CodeClaimAlreadyResolved  Code = "claim_already_resolved"
	CodeInsufficientFunds     Code = "insufficient_funds"
	CodeInsufficientPoolFunds Code = "insufficient_pool_funds"
	CodeArithmeticOverflow    Code = "arithmetic_overflow"
	CodeInvalidRequest        Code = "invalid_request"
	CodeNotFound              Code = "not_found"
	CodeInternal              Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a coded error.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Constructors for the common cases.

func Unauthorized(format string, args ...interface{}) *Error {
	return New(CodeUnauthorized, format, args...)
}

func InvalidAmount(format string, args ...interface{}) *Error {
	return New(CodeInvalidAmount, format, args...)
}

func InvalidDuration(format string, args ...interface{}) *Error {
	return New(CodeInvalidDuration, format, args...)
}

func InvalidRiskParams(format string, args ...interface{}) *Error {
	return New(CodeInvalidRiskParams, format, args...)
}

func InsufficientFunds(format string, args ...interface{}) *Error {
	return New(CodeInsufficientFunds, format, args...)
}

func InsufficientPoolFunds(format string, args ...interface{}) *Error {
	return New(CodeInsufficientPoolFunds, format, args...)
}

func ArithmeticOverflow(format string, args ...interface{}) *Error {
	return New(CodeArithmeticOverflow, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(CodeNotFound, format, args...)
}
