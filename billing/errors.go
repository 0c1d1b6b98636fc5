/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error kinds in one place so services and the API layer agree on
  classification. Services wrap these with context; the API maps them to
  HTTP statuses via the helpers at the bottom.

ERROR CATEGORIES:
  1. Validation errors - rejected before any persistence, no partial effect
  2. State errors      - locked periods, non-draft issuance
  3. Reference errors  - deletes blocked by existing financial records
  4. Render errors     - PDF failed AFTER the invoice was already issued

USAGE:
  if errors.Is(err, billing.ErrLockedPeriod) { ... }

  var rc *billing.ReferentialConflictError
  if errors.As(err, &rc) { ... rc.Blocking ... }
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for bad input (missing name, bad enum value,
	// out-of-range discount). Nothing is persisted.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidAmount is returned when a payment amount is not > 0.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidPeriod is returned for out-of-range calendar input.
	ErrInvalidPeriod = errors.New("invalid billing period")

	// ErrLockedPeriod is returned when an attendance write targets a locked
	// record. The write has no effect.
	ErrLockedPeriod = errors.New("attendance period is locked")

	// ErrNotDraft is returned when issuance (or draft deletion) targets an
	// invoice that is not currently a draft. Issuance is not idempotent:
	// re-issuing is rejected, never silently repeated.
	ErrNotDraft = errors.New("invoice is not a draft")

	// ErrNotFound is returned for unknown ids.
	ErrNotFound = errors.New("not found")

	// ErrReferentialConflict is returned when deleting a student or course
	// that existing records still reference.
	ErrReferentialConflict = errors.New("referential conflict")

	// ErrRenderFailure is returned when PDF rendering fails after the
	// invoice was already numbered and marked issued. The financial state
	// change is NOT rolled back.
	ErrRenderFailure = errors.New("pdf render failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ReferentialConflictError enumerates the relationship blocking a delete.
type ReferentialConflictError struct {
	Entity   string // what was being deleted: "student", "course"
	ID       int64
	Blocking string // what blocks it: "enrollments", "invoices", "payments"
}

func (e *ReferentialConflictError) Error() string {
	return fmt.Sprintf("cannot delete %s %d: %s reference it", e.Entity, e.ID, e.Blocking)
}

func (e *ReferentialConflictError) Unwrap() error { return ErrReferentialConflict }

// RenderFailureError reports the collaborator failure together with the
// number the invoice already received, so the caller knows the invoice WAS
// issued and may retry rendering alone.
type RenderFailureError struct {
	InvoiceID int64
	Number    string
	Cause     error
}

func (e *RenderFailureError) Error() string {
	return fmt.Sprintf("invoice %d issued as %s but pdf render failed: %v", e.InvoiceID, e.Number, e.Cause)
}

func (e *RenderFailureError) Unwrap() error { return ErrRenderFailure }

// LockedPeriodError identifies which record rejected the write.
type LockedPeriodError struct {
	EnrollmentID int64
	Year         int
	Month        int
}

func (e *LockedPeriodError) Error() string {
	return fmt.Sprintf("attendance for enrollment %d in %04d-%02d is locked", e.EnrollmentID, e.Year, e.Month)
}

func (e *LockedPeriodError) Unwrap() error { return ErrLockedPeriod }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or
// a rejected state transition, as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrLockedPeriod) ||
		errors.Is(err, ErrNotDraft) ||
		errors.Is(err, ErrReferentialConflict)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
