package types

import (
	"errors"
	"net/http"
)

type ErrorCode string

func (e ErrorCode) String() string {
	return string(e)
}

const (
	// 5XX
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
	ValidationError      ErrorCode = "VALIDATION_ERROR"
	NotFound             ErrorCode = "NOT_FOUND"
	BadRequest           ErrorCode = "BAD_REQUEST"
	Forbidden            ErrorCode = "FORBIDDEN"

	// Protocol error codes. These map one-to-one onto the caller-visible
	// failure modes of the voucher lifecycle and the stake/liquidity ledgers.
	// None of them carries an implicit retry; retrying is a caller concern.
	InvalidParameters     ErrorCode = "INVALID_PARAMETERS"
	AlreadyClaimed        ErrorCode = "ALREADY_CLAIMED"
	StaleStatus           ErrorCode = "STALE_STATUS"
	InsufficientLiquidity ErrorCode = "INSUFFICIENT_LIQUIDITY"
	DeadlineExceeded      ErrorCode = "DEADLINE_EXCEEDED"
	InsufficientUnlocked  ErrorCode = "INSUFFICIENT_UNLOCKED"
	UnbondingNotReady     ErrorCode = "UNBONDING_NOT_READY"
)

// Error represents an error with an HTTP status code and an application-specific error code.
type Error struct {
	Err        error
	StatusCode int
	ErrorCode  ErrorCode
}

const UninitializedStatusCode = 0

func (e *Error) Error() string {
	return e.Err.Error()
}

// NewError creates a new Error with the provided status code, error code, and underlying error.
// If the status code is not provided (0), it defaults to http.StatusInternalServerError(500).
// If the error code is empty, it defaults to INTERNAL_SERVICE_ERROR.
func NewError(statusCode int, errorCode ErrorCode, err error) *Error {
	if statusCode == UninitializedStatusCode {
		statusCode = http.StatusInternalServerError
	}
	if errorCode == "" {
		errorCode = InternalServiceError
	}
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        err,
	}
}

func NewErrorWithMsg(statusCode int, errorCode ErrorCode, msg string) *Error {
	return NewError(statusCode, errorCode, errors.New(msg))
}

func NewInternalServiceError(err error) *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  InternalServiceError,
		Err:        err,
	}
}
