/*
errors.go - Failure kinds surfaced by the engine

PURPOSE:
  Every business-rule violation is a sentinel error usable with errors.Is.
  KindOf classifies any error returned by the engine so the request layer
  can map it to a response without string matching.

CATEGORIES:
  1. Attendance - check-in / break / check-out state violations
  2. Leave      - date range, balances, monthly cap, approval lifecycle
  3. Store      - collaborator failures, wrapped as ErrStoreUnavailable

STORE FAILURES:
  Store implementations may return domain sentinels directly (for example
  ErrAlreadyCheckedIn from a unique index). Anything else is wrapped so that
  errors.Is(err, ErrStoreUnavailable) holds and the cause is preserved.
  The engine never retries.

SEE ALSO:
  - store.go: Store interfaces
  - api/handlers.go: Kind to HTTP status mapping
*/
package workforce

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrAlreadyCheckedIn                = errors.New("already checked in today")
	ErrInvalidBreakStart               = errors.New("invalid break start")
	ErrInvalidBreakEnd                 = errors.New("invalid break end")
	ErrAlreadyCheckedOutOrNotCheckedIn = errors.New("already checked out or not checked in")

	ErrInvalidDateRange          = errors.New("invalid date range: end before start")
	ErrInvalidLeaveType          = errors.New("invalid leave type")
	ErrInsufficientAnnualBalance = errors.New("insufficient annual leave balance")
	ErrInsufficientSickBalance   = errors.New("insufficient sick leave balance")
	ErrMonthlyOffLimitExceeded   = errors.New("exceeds monthly off limit")
	ErrLeaveNotFound             = errors.New("leave request not found")
	ErrLeaveAlreadyProcessed     = errors.New("leave request is already processed")
	ErrLeaveWindowPassed         = errors.New("cannot approve leave after the start date has passed")

	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
	ErrInvalidInput  = errors.New("invalid input")

	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// KINDS
// =============================================================================

// Kind classifies an engine error.
type Kind string

const (
	KindNone                            Kind = ""
	KindAlreadyCheckedIn                Kind = "AlreadyCheckedIn"
	KindInvalidBreakStart               Kind = "InvalidBreakStart"
	KindInvalidBreakEnd                 Kind = "InvalidBreakEnd"
	KindAlreadyCheckedOutOrNotCheckedIn Kind = "AlreadyCheckedOutOrNotCheckedIn"
	KindInvalidDateRange                Kind = "InvalidDateRange"
	KindInvalidLeaveType                Kind = "InvalidLeaveType"
	KindInsufficientAnnualBalance       Kind = "InsufficientAnnualBalance"
	KindInsufficientSickBalance         Kind = "InsufficientSickBalance"
	KindMonthlyOffLimitExceeded         Kind = "MonthlyOffLimitExceeded"
	KindLeaveNotFound                   Kind = "LeaveNotFound"
	KindLeaveAlreadyProcessed           Kind = "LeaveAlreadyProcessed"
	KindLeaveWindowPassed               Kind = "LeaveWindowPassed"
	KindUserNotFound                    Kind = "UserNotFound"
	KindDuplicateUser                   Kind = "DuplicateUser"
	KindInvalidInput                    Kind = "InvalidInput"
	KindStoreUnavailable                Kind = "StoreUnavailable"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrAlreadyCheckedIn, KindAlreadyCheckedIn},
	{ErrInvalidBreakStart, KindInvalidBreakStart},
	{ErrInvalidBreakEnd, KindInvalidBreakEnd},
	{ErrAlreadyCheckedOutOrNotCheckedIn, KindAlreadyCheckedOutOrNotCheckedIn},
	{ErrInvalidDateRange, KindInvalidDateRange},
	{ErrInvalidLeaveType, KindInvalidLeaveType},
	{ErrInsufficientAnnualBalance, KindInsufficientAnnualBalance},
	{ErrInsufficientSickBalance, KindInsufficientSickBalance},
	{ErrMonthlyOffLimitExceeded, KindMonthlyOffLimitExceeded},
	{ErrLeaveNotFound, KindLeaveNotFound},
	{ErrLeaveAlreadyProcessed, KindLeaveAlreadyProcessed},
	{ErrLeaveWindowPassed, KindLeaveWindowPassed},
	{ErrUserNotFound, KindUserNotFound},
	{ErrDuplicateUser, KindDuplicateUser},
	{ErrInvalidInput, KindInvalidInput},
	{ErrStoreUnavailable, KindStoreUnavailable},
}

// KindOf classifies err. Unrecognised non-nil errors are StoreUnavailable.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindStoreUnavailable
}

// IsBusinessRule reports whether err is a caller-correctable rule violation.
func IsBusinessRule(err error) bool {
	k := KindOf(err)
	return k != KindNone && k != KindStoreUnavailable
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError details a balance shortage.
type InsufficientBalanceError struct {
	UserID    string
	Field     BalanceField
	Available int
	Requested int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: available %d, requested %d", e.Unwrap(), e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	if e.Field == BalanceSick {
		return ErrInsufficientSickBalance
	}
	return ErrInsufficientAnnualBalance
}

// MonthlyCapError details a monthly absence cap violation.
type MonthlyCapError struct {
	UserID    string
	Month     string // YYYY-MM
	Taken     int
	Requested int
	Cap       int
}

func (e *MonthlyCapError) Error() string {
	return fmt.Sprintf("exceeds monthly off limit of %d days: %d already approved in %s, %d requested",
		e.Cap, e.Taken, e.Month, e.Requested)
}

func (e *MonthlyCapError) Unwrap() error { return ErrMonthlyOffLimitExceeded }

// insufficientBalance builds the structured error for field.
func insufficientBalance(userID string, field BalanceField, available, requested int) error {
	return &InsufficientBalanceError{UserID: userID, Field: field, Available: available, Requested: requested}
}

// storeErr wraps a collaborator failure. Domain sentinels pass through untouched.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsBusinessRule(err) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
