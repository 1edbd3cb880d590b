package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed input. It is surfaced to the caller and
// never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConcurrencyConflict signals a lost update on a ledger key: the snapshot
// sequence moved between read and commit. Callers retry a small fixed
// number of times.
type ConcurrencyConflict struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Expected    int64
}

func (e *ConcurrencyConflict) Error() string {
	return fmt.Sprintf("concurrent ledger write on %s@%s (expected sequence %d)",
		e.ProductID, e.WarehouseID, e.Expected)
}

// IsConcurrencyConflict reports whether err is a ConcurrencyConflict.
func IsConcurrencyConflict(err error) bool {
	var cc *ConcurrencyConflict
	return errors.As(err, &cc)
}

// LargeAdjustmentError rejects an adjustment whose magnitude exceeds half
// of current stock. The caller can re-request with explicit confirmation.
type LargeAdjustmentError struct {
	Percent float64
}

func (e *LargeAdjustmentError) Error() string {
	return fmt.Sprintf("adjustment is %.1f%% of current stock; confirmation required", e.Percent)
}

// ExternalDependencyError wraps a failure of an external collaborator
// (sales-history provider, purchase-order service). The orchestrator retries
// with backoff and records the product as failed, without aborting the run.
type ExternalDependencyError struct {
	Source string
	Err    error
}

func (e *ExternalDependencyError) Error() string {
	return fmt.Sprintf("external dependency %s: %v", e.Source, e.Err)
}

func (e *ExternalDependencyError) Unwrap() error { return e.Err }
