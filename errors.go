// errors.go: structured errors for bucket locking and cache operations
//
// Contention is an expected, recoverable outcome and is reported as a
// retryable error. Misusing a Guard is a programming defect and is raised
// as a panic carrying a critical-severity error.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package bucketlock

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for bucketlock operations
const (
	// Configuration errors
	ErrCodeInvalidConfig         errors.ErrorCode = "BUCKETLOCK_INVALID_CONFIG"
	ErrCodeInvalidMaxSize        errors.ErrorCode = "BUCKETLOCK_INVALID_MAX_SIZE"
	ErrCodeInvalidLockTries      errors.ErrorCode = "BUCKETLOCK_INVALID_LOCK_TRIES"
	ErrCodeInvalidTTL            errors.ErrorCode = "BUCKETLOCK_INVALID_TTL"
	ErrCodeInvalidBanishDuration errors.ErrorCode = "BUCKETLOCK_INVALID_BANISH_DURATION"

	// Operation errors
	ErrCodeBucketBusy  errors.ErrorCode = "BUCKETLOCK_BUCKET_BUSY"
	ErrCodeKeyNotFound errors.ErrorCode = "BUCKETLOCK_KEY_NOT_FOUND"
	ErrCodeEmptyKey    errors.ErrorCode = "BUCKETLOCK_EMPTY_KEY"
	ErrCodeKeyBanished errors.ErrorCode = "BUCKETLOCK_KEY_BANISHED"
	ErrCodeCacheClosed errors.ErrorCode = "BUCKETLOCK_CACHE_CLOSED"

	// Loading errors
	ErrCodeInvalidLoader  errors.ErrorCode = "BUCKETLOCK_INVALID_LOADER"
	ErrCodePanicRecovered errors.ErrorCode = "BUCKETLOCK_PANIC_RECOVERED"

	// Resize errors
	ErrCodeResizeInProgress errors.ErrorCode = "BUCKETLOCK_RESIZE_IN_PROGRESS"
	ErrCodeMigrationFailed  errors.ErrorCode = "BUCKETLOCK_MIGRATION_FAILED"

	// Internal errors
	ErrCodeContractViolation errors.ErrorCode = "BUCKETLOCK_CONTRACT_VIOLATION"
	ErrCodeInternalError     errors.ErrorCode = "BUCKETLOCK_INTERNAL_ERROR"
)

// Common error messages
const (
	msgInvalidConfig         = "invalid configuration"
	msgInvalidMaxSize        = "invalid max size: must be greater than 0"
	msgInvalidLockTries      = "invalid lock tries: must be greater than 0"
	msgInvalidTTL            = "invalid TTL: must be non-negative"
	msgInvalidBanishDuration = "invalid banish duration: must be non-negative"
	msgBucketBusy            = "bucket lock not acquired within the attempt budget"
	msgKeyNotFound           = "key not found in cache"
	msgEmptyKey              = "key cannot be empty"
	msgKeyBanished           = "key is banished for the current term"
	msgCacheClosed           = "cache is closed"
	msgInvalidLoader         = "loader function cannot be nil"
	msgPanicRecovered        = "panic recovered in loader"
	msgResizeInProgress      = "another resize is already running"
	msgMigrationFailed       = "bucket migration did not complete"
	msgContractViolation     = "locked-only operation used without holding the lock"
	msgInternalError         = "internal cache error"
)

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// NewErrInvalidConfig creates an error for a configuration that cannot be used
func NewErrInvalidConfig(field string, value interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidConfig, msgInvalidConfig, map[string]interface{}{
		"field": field,
		"value": value,
	})
}

// NewErrInvalidMaxSize creates an error for invalid max size
func NewErrInvalidMaxSize(size int) error {
	return errors.NewWithContext(ErrCodeInvalidMaxSize, msgInvalidMaxSize, map[string]interface{}{
		"provided_size":    size,
		"minimum_required": 1,
	})
}

// NewErrInvalidLockTries creates an error for an invalid attempt budget
func NewErrInvalidLockTries(tries int) error {
	return errors.NewWithContext(ErrCodeInvalidLockTries, msgInvalidLockTries, map[string]interface{}{
		"provided_tries":   tries,
		"minimum_required": 1,
	})
}

// NewErrInvalidTTL creates an error for invalid TTL
func NewErrInvalidTTL(ttl interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidTTL, msgInvalidTTL, map[string]interface{}{
		"provided_ttl": ttl,
	})
}

// NewErrInvalidBanishDuration creates an error for an invalid banish term
func NewErrInvalidBanishDuration(d interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidBanishDuration, msgInvalidBanishDuration, map[string]interface{}{
		"provided_duration": d,
	})
}

// =============================================================================
// OPERATION ERRORS
// =============================================================================

// NewErrBucketBusy creates an error when a bucket lock could not be taken
// within its budget. The operation was not performed and may be retried.
func NewErrBucketBusy(operation string, attempts int) error {
	return errors.NewWithContext(ErrCodeBucketBusy, msgBucketBusy, map[string]interface{}{
		"operation": operation,
		"attempts":  attempts,
	}).AsRetryable()
}

// NewErrKeyNotFound creates an error when key is not found
func NewErrKeyNotFound(key string) error {
	return errors.NewWithField(ErrCodeKeyNotFound, msgKeyNotFound, "key", key)
}

// NewErrEmptyKey creates an error when key is empty
func NewErrEmptyKey(operation string) error {
	return errors.NewWithField(ErrCodeEmptyKey, msgEmptyKey, "operation", operation)
}

// NewErrKeyBanished creates an error when an insert hits a banished key
// or a fully banished bucket
func NewErrKeyBanished(key string, bucketBanished bool) error {
	return errors.NewWithContext(ErrCodeKeyBanished, msgKeyBanished, map[string]interface{}{
		"key":             key,
		"bucket_banished": bucketBanished,
	}).AsRetryable() // admissible again once the term ends
}

// NewErrCacheClosed creates an error for operations on a closed cache
func NewErrCacheClosed(operation string) error {
	return errors.NewWithField(ErrCodeCacheClosed, msgCacheClosed, "operation", operation)
}

// =============================================================================
// LOADING ERRORS
// =============================================================================

// NewErrInvalidLoader creates an error when loader function is nil
func NewErrInvalidLoader(key string) error {
	return errors.NewWithField(ErrCodeInvalidLoader, msgInvalidLoader, "key", key)
}

// NewErrPanicRecovered creates an error when a loader panics
func NewErrPanicRecovered(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// =============================================================================
// RESIZE ERRORS
// =============================================================================

// NewErrResizeInProgress creates an error when a resize is already running
func NewErrResizeInProgress(requested int) error {
	return errors.NewWithContext(ErrCodeResizeInProgress, msgResizeInProgress, map[string]interface{}{
		"requested_size": requested,
	}).AsRetryable()
}

// NewErrMigrationFailed creates an error when migration stopped before every
// bucket was relocated
func NewErrMigrationFailed(remaining int64, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeMigrationFailed, msgMigrationFailed).
			WithContext("remaining_buckets", remaining).
			AsRetryable()
	}
	return errors.NewWithContext(ErrCodeMigrationFailed, msgMigrationFailed, map[string]interface{}{
		"remaining_buckets": remaining,
	}).AsRetryable()
}

// =============================================================================
// INTERNAL ERRORS
// =============================================================================

// NewErrContractViolation creates the panic value raised when a locked-only
// operation runs without the lock
func NewErrContractViolation(operation string) error {
	return errors.NewWithField(ErrCodeContractViolation, msgContractViolation, "operation", operation).
		WithSeverity("critical")
}

// NewErrInternal creates a generic internal error
func NewErrInternal(operation string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInternalError, msgInternalError).
			WithContext("operation", operation).
			WithSeverity("warning")
	}
	return errors.NewWithField(ErrCodeInternalError, msgInternalError, "operation", operation).
		WithSeverity("warning")
}

// =============================================================================
// ERROR CHECKING HELPERS
// =============================================================================

// IsBusy checks if error reports bucket contention
func IsBusy(err error) bool {
	return errors.HasCode(err, ErrCodeBucketBusy)
}

// IsNotFound checks if error is a key not found error
func IsNotFound(err error) bool {
	return errors.HasCode(err, ErrCodeKeyNotFound)
}

// IsEmptyKey checks if error is an empty key error
func IsEmptyKey(err error) bool {
	return errors.HasCode(err, ErrCodeEmptyKey)
}

// IsBanished checks if error is a banished key error
func IsBanished(err error) bool {
	return errors.HasCode(err, ErrCodeKeyBanished)
}

// IsContractViolation checks if err (typically a recovered panic value)
// reports guard misuse
func IsContractViolation(err error) bool {
	return errors.HasCode(err, ErrCodeContractViolation)
}

// IsConfigError checks if error is a configuration error
func IsConfigError(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeInvalidConfig, ErrCodeInvalidMaxSize, ErrCodeInvalidLockTries,
		ErrCodeInvalidTTL, ErrCodeInvalidBanishDuration:
		return true
	}
	return false
}

// IsResizeError checks if error comes from a resize
func IsResizeError(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeResizeInProgress, ErrCodeMigrationFailed:
		return true
	}
	return false
}

// IsRetryable checks if the error can be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts context from an error
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var blErr *errors.Error
	if goerrors.As(err, &blErr) {
		return blErr.Context
	}
	return nil
}
