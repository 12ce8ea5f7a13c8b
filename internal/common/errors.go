// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Approval workflow errors.
	ErrConfirmationRequired = errors.New("operator confirmation required")
	ErrConfirmationDeclined = errors.New("operator declined confirmation")
	ErrInvalidTransition    = errors.New("invalid approval transition")
	ErrNotApproved          = errors.New("action is not approved")

	// Storefront write errors.
	ErrStoreUnavailable = errors.New("storefront unavailable")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ExecutionFailure wraps the error of an approved action whose side effect failed.
type ExecutionFailure struct {
	Err        error
	ActionID   string
	Identifier string
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("action %s for %s failed: %v", e.ActionID, e.Identifier, e.Err)
}

func (e *ExecutionFailure) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
