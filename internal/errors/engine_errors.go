package errors

import (
	"errors"
	"fmt"
)

// Category classifies engine errors for recovery decisions.
type Category string

const (
	// Recoverable by skipping the tuple for this cycle
	CategoryInsufficientData Category = "INSUFFICIENT_DATA"

	// External dependency errors, recoverable with backoff
	CategoryUnavailable Category = "UNAVAILABLE"
	CategoryRateLimited Category = "RATE_LIMITED"
	CategoryNetwork     Category = "NETWORK"
	CategoryTimeout     Category = "TIMEOUT"

	// Rejected to the caller, no side effect
	CategoryInvalidState Category = "INVALID_STATE"

	// Terminal-but-expected outcomes for a signal
	CategoryRiskRejected Category = "RISK_REJECTED"

	// Rejected at creation time, never reaches evaluation
	CategoryConfig Category = "CONFIG"
)

// Sentinels for errors.Is checks across package boundaries.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnavailable      = errors.New("unavailable")
	ErrRateLimited      = errors.New("rate limited")
	ErrInvalidState     = errors.New("invalid state transition")
	ErrNotFound         = errors.New("not found")
)

// EngineError is a categorized error with component context.
type EngineError struct {
	Category   Category
	Component  string
	Op         string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Op, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Op, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// New creates a categorized error.
func New(category Category, component, op, message string) *EngineError {
	return &EngineError{
		Category:  category,
		Component: component,
		Op:        op,
		Message:   message,
		Retryable: retryableCategory(category),
	}
}

// Wrap attaches category and component context to an existing error.
func Wrap(err error, category Category, component, op string) *EngineError {
	if err == nil {
		return nil
	}
	return &EngineError{
		Category:   category,
		Component:  component,
		Op:         op,
		Message:    "operation failed",
		Underlying: err,
		Retryable:  retryableCategory(category),
	}
}

// WithRetryable overrides the retryable flag derived from the category.
func (e *EngineError) WithRetryable(retryable bool) *EngineError {
	e.Retryable = retryable
	return e
}

func retryableCategory(category Category) bool {
	switch category {
	case CategoryUnavailable, CategoryRateLimited, CategoryNetwork, CategoryTimeout:
		return true
	default:
		return false
	}
}

// CategoryOf extracts the category from an error chain. Plain errors map to
// UNAVAILABLE since they almost always come from an external dependency.
func CategoryOf(err error) Category {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Category
	}
	switch {
	case errors.Is(err, ErrInsufficientData):
		return CategoryInsufficientData
	case errors.Is(err, ErrRateLimited):
		return CategoryRateLimited
	case errors.Is(err, ErrInvalidState):
		return CategoryInvalidState
	default:
		return CategoryUnavailable
	}
}

// IsRetryable reports whether the scheduler should retry the failed tuple
// with backoff rather than drop it.
func IsRetryable(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	return retryableCategory(CategoryOf(err))
}

// RecoveryAction is the suggested handling for a failed operation.
type RecoveryAction string

const (
	RecoveryRetry RecoveryAction = "RETRY"
	RecoverySkip  RecoveryAction = "SKIP"
	RecoveryWait  RecoveryAction = "WAIT"
	RecoveryStop  RecoveryAction = "STOP"
)

// RecoveryActionFor maps an error to its recovery action. Pure computation
// errors are skipped, external dependency errors retried or waited out, and
// configuration errors stop the operation that carries them.
func RecoveryActionFor(err error) RecoveryAction {
	switch CategoryOf(err) {
	case CategoryInsufficientData, CategoryInvalidState, CategoryRiskRejected:
		return RecoverySkip
	case CategoryRateLimited:
		return RecoveryWait
	case CategoryConfig:
		return RecoveryStop
	default:
		return RecoveryRetry
	}
}
