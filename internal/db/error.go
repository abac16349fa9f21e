package db

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// DuplicateKeyError is an error type for duplicate key errors
type DuplicateKeyError struct {
	Key     string
	Message string
}

func (e *DuplicateKeyError) Error() string {
	return e.Message
}

func IsDuplicateKeyError(err error) bool {
	var duplicateKeyError *DuplicateKeyError
	return errors.As(err, &duplicateKeyError)
}

// InvalidPaginationTokenError is an error type for invalid pagination token errors
type InvalidPaginationTokenError struct {
	Message string
}

func (e *InvalidPaginationTokenError) Error() string {
	return e.Message
}

func IsInvalidPaginationTokenError(err error) bool {
	var invalidTokenError *InvalidPaginationTokenError
	return errors.As(err, &invalidTokenError)
}

// NotFoundError is returned when the document does not exist at all.
type NotFoundError struct {
	Key     string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func IsNotFoundError(err error) bool {
	var notFoundError *NotFoundError
	return errors.As(err, &notFoundError)
}

// StaleStatusError is returned when a compare-and-set transition found the
// document, but its current status is not in the eligible set. The caller's
// view of the lifecycle is out of date; the transition is non-retryable.
type StaleStatusError struct {
	Key           string
	CurrentStatus string
	Message       string
}

func (e *StaleStatusError) Error() string {
	return e.Message
}

func IsStaleStatusError(err error) bool {
	var staleStatusError *StaleStatusError
	return errors.As(err, &staleStatusError)
}

// InsufficientBalanceError is returned when a guarded balance update
// (withdraw, lock, debit, unbonding start) found the document but the
// available amount cannot cover the operation.
type InsufficientBalanceError struct {
	Key     string
	Message string
}

func (e *InsufficientBalanceError) Error() string {
	return e.Message
}

func IsInsufficientBalanceError(err error) bool {
	var insufficientBalanceError *InsufficientBalanceError
	return errors.As(err, &insufficientBalanceError)
}

// UnbondingInProgressError is returned when startUnbonding is called while a
// previous unbonding request has not completed yet.
type UnbondingInProgressError struct {
	Key     string
	Message string
}

func (e *UnbondingInProgressError) Error() string {
	return e.Message
}

func IsUnbondingInProgressError(err error) bool {
	var unbondingInProgressError *UnbondingInProgressError
	return errors.As(err, &unbondingInProgressError)
}

// UnbondingNotReadyError is returned when completeUnbonding is called before
// the unbonding delay has elapsed.
type UnbondingNotReadyError struct {
	Key     string
	Message string
}

func (e *UnbondingNotReadyError) Error() string {
	return e.Message
}

func IsUnbondingNotReadyError(err error) bool {
	var unbondingNotReadyError *UnbondingNotReadyError
	return errors.As(err, &unbondingNotReadyError)
}

// DeadlineExceededError is returned when a lifecycle transition is attempted
// at or after the request deadline.
type DeadlineExceededError struct {
	Key     string
	Message string
}

func (e *DeadlineExceededError) Error() string {
	return e.Message
}

func IsDeadlineExceededError(err error) bool {
	var deadlineExceededError *DeadlineExceededError
	return errors.As(err, &deadlineExceededError)
}

// Error code references: https://www.mongodb.com/docs/manual/reference/error-codes/
func IsWriteConflictError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 112
	}
	return false
}

func IsTransactionAbortedError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 251
	}
	return false
}

func isMongoDuplicateKeyError(err error) bool {
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, e := range writeErr.WriteErrors {
			if mongo.IsDuplicateKeyError(e) {
				return true
			}
		}
	}
	return false
}
