/*
store.go - Ledger Store capability consumed by the engine

PURPOSE:
  Defines the boundary between the business rules and persistence.
  The engine never assumes a database; it only needs these capabilities.

KEY INTERFACES:
  UserStore:      user lookup and the single balance mutation
  TimeEntryStore: one entry per (user, date) and in-place transitions
  LeaveStore:     requests and compare-and-swap status transitions
  ProfitStore:    monthly profit upserts and yearly reads
  Store:          all of the above
  TxStore:        Store plus atomic multi-step units of work

CONTRACT:
  - Lookups return (nil, nil) when the record does not exist.
  - CreateEntry MUST reject a second entry for the same (user, date) with
    ErrAlreadyCheckedIn; a check-then-insert race in the engine is closed here.
  - UpdateLeaveStatus is a compare-and-swap: it returns
    ErrLeaveAlreadyProcessed when the current status is not `from`.
  - UpdateLeaveBalance MUST NOT let a balance drop below zero; it returns the
    matching ErrInsufficient*Balance instead.
  - WithTx runs fn atomically: all writes commit or none do.

IMPLEMENTATIONS:
  - store/sqlite:     SQLite (mattn/go-sqlite3)
  - store/postgres:   PostgreSQL (jackc/pgx)
  - workforce/store:  in-memory, for tests and local runs
*/
package workforce

import (
	"context"
	"time"
)

// UserStore persists users and their balances.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	// ListUsers returns all users ordered by id.
	ListUsers(ctx context.Context) ([]User, error)
	// UpdateLeaveBalance adds delta (negative to debit) to field.
	UpdateLeaveBalance(ctx context.Context, userID string, field BalanceField, delta int) error
}

// TimeEntryStore persists attendance entries.
type TimeEntryStore interface {
	GetEntryForDate(ctx context.Context, userID string, date Date) (*TimeEntry, error)
	CreateEntry(ctx context.Context, e TimeEntry) error
	UpdateEntry(ctx context.Context, id string, patch EntryPatch) error
	ListEntriesInMonth(ctx context.Context, userID string, month time.Month, year int) ([]TimeEntry, error)
}

// LeaveStore persists leave requests.
type LeaveStore interface {
	CreateLeaveRequest(ctx context.Context, r LeaveRequest) error
	GetLeaveByID(ctx context.Context, id string) (*LeaveRequest, error)
	UpdateLeaveStatus(ctx context.Context, id string, from, to LeaveStatus, decidedAt time.Time) error
	// GetApprovedLeavesInMonth returns approved leaves whose start date is in month/year.
	GetApprovedLeavesInMonth(ctx context.Context, userID string, month time.Month, year int) ([]LeaveRequest, error)
	// ListPendingLeaves returns pending requests, oldest first, with UserName set.
	ListPendingLeaves(ctx context.Context) ([]LeaveRequest, error)
}

// ProfitStore persists monthly profit figures.
type ProfitStore interface {
	UpsertMonthlyProfit(ctx context.Context, p MonthlyProfit) error
	GetMonthlyProfit(ctx context.Context, month time.Month, year int) (*MonthlyProfit, error)
	// GetYearlyProfits returns recorded months of year ordered by month.
	GetYearlyProfits(ctx context.Context, year int) ([]MonthlyProfit, error)
}

// Store is the full Ledger Store capability.
type Store interface {
	UserStore
	TimeEntryStore
	LeaveStore
	ProfitStore
}

// TxStore adds atomic units of work to Store.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns an error the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
