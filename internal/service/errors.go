package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing or malformed input. Nothing was changed.
	ErrValidation = errors.New("validation failed")

	// ErrStandNotFound marks a serial number with no registered stand.
	ErrStandNotFound = errors.New("stand not found")

	// ErrStoreUnavailable marks a failed store read or write.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrExpiryCommitFailed marks a rejected batch delete of expired
	// transactions. The pending set is kept for the next cycle.
	ErrExpiryCommitFailed = errors.New("expiry commit failed")

	// ErrConfirmCommitFailed marks a rejected batch confirmation. The pending
	// set is kept so the caller can retry.
	ErrConfirmCommitFailed = errors.New("confirm commit failed")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
