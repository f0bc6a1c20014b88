package engine

import (
	"errors"
	"fmt"
)

// ReleaseError represents a failure that stops a release as a whole.
//
// A non-conformant target is NOT a ReleaseError: it is excluded and
// reported in the Result while the other targets proceed.
type ReleaseError struct {
	// Code identifies the error category.
	Code ReleaseErrorCode

	// Message is a human-readable description.
	Message string

	// BuildID identifies the affected release, when one was allocated.
	BuildID string

	// Target names the offending target (for unknown/duplicate targets).
	Target string
}

// ReleaseErrorCode categorizes release errors.
type ReleaseErrorCode string

const (
	// ErrCodeNoTargets indicates the manifest names no targets.
	ErrCodeNoTargets ReleaseErrorCode = "NO_TARGETS"

	// ErrCodeUnknownTarget indicates a target with no registered adapter.
	ErrCodeUnknownTarget ReleaseErrorCode = "UNKNOWN_TARGET"

	// ErrCodeDuplicateTarget indicates a target listed twice.
	ErrCodeDuplicateTarget ReleaseErrorCode = "DUPLICATE_TARGET"

	// ErrCodeStoreFailed indicates the release could not be recorded.
	ErrCodeStoreFailed ReleaseErrorCode = "STORE_FAILED"
)

// Error implements the error interface.
func (e *ReleaseError) Error() string {
	if e.BuildID != "" {
		return fmt.Sprintf("%s: %s (build=%s)", e.Code, e.Message, e.BuildID)
	}
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (target=%s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownTarget returns true if the error is an unknown target error.
// Uses errors.As to handle wrapped errors.
func IsUnknownTarget(err error) bool {
	var re *ReleaseError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownTarget
	}
	return false
}

// IsStoreError returns true if the release could not be recorded.
func IsStoreError(err error) bool {
	var re *ReleaseError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStoreFailed
	}
	return false
}

// NewUnknownTargetError creates a ReleaseError for a target with no adapter.
func NewUnknownTargetError(target string, supported []string) *ReleaseError {
	return &ReleaseError{
		Code:    ErrCodeUnknownTarget,
		Message: fmt.Sprintf("no adapter for target (supported: %v)", supported),
		Target:  target,
	}
}
