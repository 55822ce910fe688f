// Package workforce implements the attendance and leave rules engine:
// the daily check-in/break/check-out state machine, leave eligibility and
// balance accounting, and the monthly/annual aggregations managers report on.
//
// Persistence is a capability (Store) supplied by the caller; see the
// store/sqlite and store/postgres packages, or workforce/store for an
// in-memory implementation.
package workforce

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// USERS
// =============================================================================

// Role is a user's organisational role.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanManage reports whether r may decide leave and read manager reports.
func (r Role) CanManage() bool { return r == RoleManager || r == RoleAdmin }

// Statutory yearly entitlements (South African BCEA defaults).
const (
	DefaultAnnualLeaveDays = 21
	DefaultSickLeaveDays   = 30
)

// User is an account together with its leave balances.
// Balances are only ever debited by leave approval.
type User struct {
	ID                 string
	Name               string
	Email              string
	Role               Role
	HireDate           Date
	AnnualLeaveBalance int
	SickLeaveBalance   int
	CreatedAt          time.Time
}

// Balance returns the user's remaining days for field.
func (u *User) Balance(field BalanceField) int {
	switch field {
	case BalanceAnnual:
		return u.AnnualLeaveBalance
	case BalanceSick:
		return u.SickLeaveBalance
	}
	return 0
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

// TimeEntry is the single attendance record of a user for one calendar day.
type TimeEntry struct {
	ID         string
	UserID     string
	Date       Date
	CheckIn    time.Time
	BreakStart *time.Time
	BreakEnd   *time.Time
	CheckOut   *time.Time
	TotalHours *float64
}

// EntryPatch carries the fields of a TimeEntry to overwrite; nil fields are left as-is.
type EntryPatch struct {
	BreakStart *time.Time
	BreakEnd   *time.Time
	CheckOut   *time.Time
	TotalHours *float64
}

// IsEmpty reports whether the patch changes nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.BreakStart == nil && p.BreakEnd == nil && p.CheckOut == nil && p.TotalHours == nil
}

// Apply copies the patch onto e.
func (p EntryPatch) Apply(e *TimeEntry) {
	if p.BreakStart != nil {
		e.BreakStart = p.BreakStart
	}
	if p.BreakEnd != nil {
		e.BreakEnd = p.BreakEnd
	}
	if p.CheckOut != nil {
		e.CheckOut = p.CheckOut
	}
	if p.TotalHours != nil {
		e.TotalHours = p.TotalHours
	}
}

// AttendanceState is the position of a day's entry in the check-in state machine.
type AttendanceState string

const (
	StateNotStarted AttendanceState = "not_started"
	StateCheckedIn  AttendanceState = "checked_in"
	StateOnBreak    AttendanceState = "on_break"
	StateReturned   AttendanceState = "returned"
	StateCheckedOut AttendanceState = "checked_out"
)

// StateOf derives the state from an entry; nil means no entry for the day.
func StateOf(e *TimeEntry) AttendanceState {
	switch {
	case e == nil:
		return StateNotStarted
	case e.CheckOut != nil:
		return StateCheckedOut
	case e.BreakStart != nil && e.BreakEnd == nil:
		return StateOnBreak
	case e.BreakEnd != nil:
		return StateReturned
	default:
		return StateCheckedIn
	}
}

// =============================================================================
// LEAVE
// =============================================================================

// LeaveType is the kind of leave requested.
type LeaveType string

const (
	LeaveAnnual LeaveType = "annual"
	LeaveSick   LeaveType = "sick"
)

// LeaveStatus is the decision state of a request. Approved and rejected are terminal.
type LeaveStatus string

const (
	StatusPending  LeaveStatus = "pending"
	StatusApproved LeaveStatus = "approved"
	StatusRejected LeaveStatus = "rejected"
)

// BalanceField names the user balance a leave type draws on.
type BalanceField string

const (
	BalanceAnnual BalanceField = "annual_leave_balance"
	BalanceSick   BalanceField = "sick_leave_balance"
)

var balanceFields = map[LeaveType]BalanceField{
	LeaveAnnual: BalanceAnnual,
	LeaveSick:   BalanceSick,
}

// BalanceFieldFor resolves the balance debited by leave type t.
func BalanceFieldFor(t LeaveType) (BalanceField, bool) {
	f, ok := balanceFields[t]
	return f, ok
}

// Valid reports whether t is a known leave type.
func (t LeaveType) Valid() bool {
	_, ok := balanceFields[t]
	return ok
}

// LeaveRequest is a request for a contiguous range of days off.
type LeaveRequest struct {
	ID            string
	UserID        string
	UserName      string // populated by listing queries only
	Type          LeaveType
	StartDate     Date
	EndDate       Date // inclusive
	DaysRequested int
	Status        LeaveStatus
	CreatedAt     time.Time
	DecidedAt     *time.Time
}

// =============================================================================
// PROFITS
// =============================================================================

// MonthlyProfit is the profit figure recorded for one month.
type MonthlyProfit struct {
	Month  time.Month
	Year   int
	Profit decimal.Decimal
}
