/*
errors.go - Centralized error types for the time-clock engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stores and orchestration code wrap these errors with additional context.

ERROR CATEGORIES:
  1. Input validation - bad ranges, unknown ids, malformed fields
  2. Conflicts - duplicate idempotency keys, referenced employees
  3. Store errors - database-level failures (wrapped, not sentinel)

NOT ERRORS:
  Business outcomes such as "the day is absent" or "not eligible for the
  punctuality bonus" are normal return values, never errors.

USAGE:
  if errors.Is(err, generic.ErrEmployeeNotFound) {
      // 404
  }

SEE ALSO:
  - api/handlers.go: maps these errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriod is returned when a range is missing or ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrPeriodTooLong is returned when a range exceeds the configured maximum.
	ErrPeriodTooLong = errors.New("period too long")

	// ErrValidation is the parent of every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrBonusPlanNotFound is returned when a referenced bonus plan doesn't exist.
	ErrBonusPlanNotFound = errors.New("bonus plan not found")

	// ErrRunNotFound is returned when a payroll run doesn't exist.
	ErrRunNotFound = errors.New("payroll run not found")

	// ErrNotFound is returned when deleting a row that doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID is returned when creating a row whose id is taken.
	ErrDuplicateID = errors.New("id already exists")

	// ErrDuplicateName is returned when a catalogue name is taken within its kind.
	ErrDuplicateName = errors.New("name already exists")

	// ErrDuplicateIdempotencyKey is returned when an event with the same
	// idempotency key already exists. This is expected behavior for kiosk retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrDuplicateRestDay is returned when a weekday is listed twice for one employee.
	ErrDuplicateRestDay = errors.New("duplicate rest day")

	// ErrDuplicateHoliday is returned when a date already has a holiday.
	ErrDuplicateHoliday = errors.New("holiday already exists for date")

	// ErrEmployeeReferenced is returned when deleting an employee that has attendance history.
	ErrEmployeeReferenced = errors.New("employee is referenced by attendance history")

	// ErrInvalidEvent is returned for events with an unknown kind or zero timestamp.
	ErrInvalidEvent = errors.New("invalid attendance event")
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
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrPeriodTooLong) ||
		errors.Is(err, ErrInvalidEvent)
}

// IsConflict returns true if the write collides with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrDuplicateRestDay) ||
		errors.Is(err, ErrDuplicateHoliday) ||
		errors.Is(err, ErrEmployeeReferenced)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrBonusPlanNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrNotFound)
}
