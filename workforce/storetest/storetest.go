/*
Package storetest is the shared conformance suite for workforce.TxStore
implementations.

USAGE:
  func TestContract(t *testing.T) {
      storetest.Run(t, func(t *testing.T) workforce.TxStore {
          return newStoreForTest(t)
      })
  }

Each subtest gets a fresh store from open. Timestamps are whole seconds so
that every backend round-trips them exactly.
*/
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/workforce"
)

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open func(t *testing.T) workforce.TxStore) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st workforce.TxStore)
	}{
		{"Users", testUsers},
		{"BalanceGuard", testBalanceGuard},
		{"OneEntryPerDay", testOneEntryPerDay},
		{"EntryPatch", testEntryPatch},
		{"EntriesInMonth", testEntriesInMonth},
		{"LeaveStatusCAS", testLeaveStatusCAS},
		{"LeaveQueries", testLeaveQueries},
		{"Profits", testProfits},
		{"WithTxCommits", testWithTxCommits},
		{"WithTxRollsBack", testWithTxRollsBack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

// =============================================================================
// FIXTURES
// =============================================================================

func ts(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func seedUser(t *testing.T, st workforce.UserStore, id string, role workforce.Role) workforce.User {
	t.Helper()
	u := workforce.User{
		ID:                 id,
		Name:               "Name " + id,
		Email:              id + "@example.com",
		Role:               role,
		HireDate:           workforce.NewDate(2024, time.January, 15),
		AnnualLeaveBalance: workforce.DefaultAnnualLeaveDays,
		SickLeaveBalance:   workforce.DefaultSickLeaveDays,
		CreatedAt:          ts(2024, time.January, 15, 9, 0),
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func seedLeave(t *testing.T, st workforce.LeaveStore, id, userID string, start workforce.Date, days int, status workforce.LeaveStatus, created time.Time) {
	t.Helper()
	require.NoError(t, st.CreateLeaveRequest(context.Background(), workforce.LeaveRequest{
		ID:            id,
		UserID:        userID,
		Type:          workforce.LeaveAnnual,
		StartDate:     start,
		EndDate:       start.AddDays(days - 1),
		DaysRequested: days,
		Status:        status,
		CreatedAt:     created,
	}))
}

// =============================================================================
// USERS
// =============================================================================

func testUsers(t *testing.T, st workforce.TxStore) {
	ctx := context.Background()
	seedUser(t, st, "u2", workforce.RoleManager)
	u1 := seedUser(t, st, "u1", workforce.RoleEmployee)

	got, err := st.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u1.Email, got.Email)
	assert.Equal(t, workforce.RoleEmployee, got.Role)
	assert.Equal(t, u1.HireDate, got.HireDate)
	assert.True(t, u1.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, 21, got.AnnualLeaveBalance)
	assert.Equal(t, 30, got.SickLeaveBalance)

	got, err = st.FindUserByEmail(ctx, "u2@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u2", got.ID)

	got, err = st.FindUserByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "u2", users[1].ID)

	dup := u1
	dup.ID = "u3"
	assert.ErrorIs(t, st.CreateUser(ctx, dup), workforce.ErrDuplicateUser, "email is unique")
}

func testBalanceGuard(t *testing.T, st workforce.TxStore) {
	ctx := context.Background()
	seedUser(t, st, "u1", workforce.RoleEmployee)

	require.NoError(t, st.UpdateLeaveBalance(ctx, "u1", workforce.BalanceAnnual, -20))
	require.NoError(t, st.UpdateLeaveBalance(ctx, "u1", workforce.BalanceSick, -30))

	err := st.UpdateLeaveBalance(ctx, "u1", workforce.BalanceAnnual, -2)
	assert.ErrorIs(t, err, workforce.ErrInsufficientAnnualBalance)
	var balErr *workforce.InsufficientBalanceError
	require.True(t, errors.As(err, &balErr))
	assert.Equal(t, 1, balErr.Available)
	assert.Equal(t, 2, balErr.Requested)

	err = st.UpdateLeaveBalance(ctx, "u1", workforce.BalanceSick, -1)
	assert.ErrorIs(t, err, workforce.ErrInsufficientSickBalance)

	u, err := st.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.AnnualLeaveBalance, "failed debit leaves balance untouched")
	assert.Equal(t, 0, u.SickLeaveBalance)

	err = st.UpdateLeaveBalance(ctx, "ghost", workforce.BalanceAnnual, -1)
	assert.ErrorIs(t, err, workforce.ErrUserNotFound)
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func testOneEntryPerDay(t *testing.T, st workforce.TxStore) {
	ctx := context.Background()
	seedUser(t, st, "u1", workforce.RoleEmployee)
	day := workforce.NewDate(2025, time.March, 10)

	got, err := st.GetEntryForDate(ctx, "u1", day)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, st.CreateEntry(ctx, workforce.TimeEntry{
		ID: "e1", UserID: "u1", Date: day, CheckIn: ts(2025, time.March, 10, 8, 0),
	}))
	err = st.CreateEntry(ctx, workforce.TimeEntry{
		ID: "e2", UserID: "u1", Date: day, CheckIn: ts(2025, time.March, 10, 9, 0),
	})
	assert.ErrorIs(t, err, workforce.ErrAlreadyCheckedIn)

	got, err = st.GetEntryForDate(ctx, "u1", day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, day, got.Date)
	assert.True(t, ts(2025, time.March, 10, 8, 0).Equal(got.CheckIn))
	assert.Nil(t, got.CheckOut)
	assert.Nil(t, got.TotalHours)
}

func testEntryPatch(t *testing.T, st workforce.TxStore) {
	ctx := context.Background()
	seedUser(t, st, "u1", workforce.RoleEmployee)
	day := workforce.NewDate(2025, time.March, 10)
	require.NoError(t, st.CreateEntry(ctx, workforce.TimeEntry{
		ID: "e1", UserID: "u1", Date: day, CheckIn: ts(2025, time.March, 10, 8, 0),
	}))

	bs := ts(2025, time.March, 10, 12, 0)
	require.NoError(t, st.UpdateEntry(ctx, "e1", workforce.EntryPatch{BreakStart: &bs}))

	out := ts(2025, time.March, 10, 16, 0)
	hours := 8.0
	require.NoError(t, st.UpdateEntry(ctx, "e1", workforce.EntryPatch{CheckOut: &out, TotalHours: &hours}))

	got, err := st.GetEntryForDate(ctx, "u1", day)
	require.NoError(t, err)
	require.NotNil(t, got.BreakStart, "earlier patch survives")
	assert.True(t, bs.Equal(*got.BreakStart))
	assert.Nil(t, got.BreakEnd)
	require.NotNil(t, got.CheckOut)
	assert.True(t, out.Equal(*got.CheckOut))
	require.NotNil(t, got.TotalHours)
	assert.InDelta(t, 8.0, *got.TotalHours, 1e-9)

	err = st.UpdateEntry(ctx, "missing", workforce.EntryPatch{CheckOut: &out})
	assert.ErrorIs(t, err, workforce.ErrAlreadyCheckedOutOrNotCheckedIn)
}

func testEntriesInMonth(t *testing.T, st workforce.TxStore) {
	ctx := context.Background()
	seedUser(t, st, "u1", workforce.RoleEmployee)
	seedUser(t, st, "u2", workforce.RoleEmployee)

	days := []workforce.Date{
		workforce.NewDate(2025, time.March, 31),
		workforce.NewDate(2025, time.March, 1),
		workforce.NewDate(2025, time.February, 28),
		workforce.NewDate(2025, time.April, 1),
	}
	for i, d := range days {
		require.NoError(t, st.CreateEntry(ctx, workforce.TimeEntry{
			ID: fmt.Sprintf("e%d", i), UserID: "u1", Date: d, CheckIn: d.Time.Add(8 * time.Hour),
		}))
	}
	require.NoError(t, st.CreateEntry(ctx, workforce.TimeEntry{
		ID: "other", UserID: "u2", Date: days[1], CheckIn: days[1].Time.Add(8 * time.Hour),
	}))

	entries, err := st.ListEntriesInMonth(ctx, "u1", time.March, 2025)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, workforce.NewDate(2025, time.March, 1), entries[0].Date)
	assert.Equal(t, workforce.NewDate(2025, time.March, 31), entries[1].Date)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func testLeaveStatusCAS(t *testing.T, st workforce.TxStore) {
	ctx := context.Background()
	seedUser(t, st, "u1", workforce.RoleEmployee)
	seedLeave(t, st, "l1", "u1", workforce.NewDate(2025, time.April, 7), 2,
		workforce.StatusPending, ts(2025, time.April, 1, 9, 0))

	decided := ts(2025, time.April, 2, 10, 0)
	require.NoError(t, st.UpdateLeaveStatus(ctx, "l1", workforce.StatusPending, workforce.StatusApproved, decided))

	err := st.UpdateLeaveStatus(ctx, "l1", workforce.StatusPending, workforce.StatusRejected, decided)
	assert.ErrorIs(t, err, workforce.ErrLeaveAlreadyProcessed)

	err = st.UpdateLeaveStatus(ctx, "missing", workforce.StatusPending, workforce.StatusApproved, decided)
	assert.ErrorIs(t, err, workforce.ErrLeaveNotFound)

	got, err := st.GetLeaveByID(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, workforce.StatusApproved, got.Status)
	assert.Equal(t, 2, got.DaysRequested)
	assert.Equal(t, workforce.NewDate(2025, time.April, 8), got.EndDate)
	require.NotNil(t, got.DecidedAt)
	assert.True(t, decided.Equal(*got.DecidedAt))

	got, err = st.GetLeaveByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testLeaveQueries(t *testing.T, st workforce.TxStore) {
	ctx := context.Background()
	seedUser(t, st, "u1", workforce.RoleEmployee)
	seedUser(t, st, "u2", workforce.RoleEmployee)

	seedLeave(t, st, "late", "u1", workforce.NewDate(2025, time.April, 20), 1,
		workforce.StatusPending, ts(2025, time.April, 3, 9, 0))
	seedLeave(t, st, "early", "u2", workforce.NewDate(2025, time.April, 10), 1,
		workforce.StatusPending, ts(2025, time.April, 1, 9, 0))
	seedLeave(t, st, "a1", "u1", workforce.NewDate(2025, time.April, 28), 5,
		workforce.StatusApproved, ts(2025, time.April, 1, 9, 0))
	seedLeave(t, st, "a2", "u1", workforce.NewDate(2025, time.May, 1), 1,
		workforce.StatusApproved, ts(2025, time.April, 1, 9, 0))
	seedLeave(t, st, "r1", "u1", workforce.NewDate(2025, time.April, 2), 1,
		workforce.StatusRejected, ts(2025, time.April, 1, 9, 0))

	pending, err := st.ListPendingLeaves(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "early", pending[0].ID, "oldest first")
	assert.Equal(t, "Name u2", pending[0].UserName)
	assert.Equal(t, "late", pending[1].ID)

	approved, err := st.GetApprovedLeavesInMonth(ctx, "u1", time.April, 2025)
	require.NoError(t, err)
	require.Len(t, approved, 1, "keyed by start date")
	assert.Equal(t, "a1", approved[0].ID)
	assert.Equal(t, 5, approved[0].DaysRequested)
}

// =============================================================================
// PROFITS
// =============================================================================

func testProfits(t *testing.T, st workforce.TxStore) {
	ctx := context.Background()

	got, err := st.GetMonthlyProfit(ctx, time.March, 2025)
	require.NoError(t, err)
	assert.Nil(t, got)

	upsert := func(month time.Month, year int, amount string) {
		require.NoError(t, st.UpsertMonthlyProfit(ctx, workforce.MonthlyProfit{
			Month: month, Year: year, Profit: decimal.RequireFromString(amount),
		}))
	}
	upsert(time.March, 2025, "100.00")
	upsert(time.March, 2025, "1250.75")
	upsert(time.January, 2025, "-40.10")
	upsert(time.January, 2024, "5")

	got, err = st.GetMonthlyProfit(ctx, time.March, 2025)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Profit.Equal(decimal.RequireFromString("1250.75")), got.Profit.String())

	year, err := st.GetYearlyProfits(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, year, 2)
	assert.Equal(t, time.January, year[0].Month)
	assert.True(t, year[0].Profit.Equal(decimal.RequireFromString("-40.10")))
	assert.Equal(t, time.March, year[1].Month)

	// Figures round-trip exactly, beyond cents
	upsert(time.June, 2025, "1234.5678")
	got, err = st.GetMonthlyProfit(ctx, time.June, 2025)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Profit.Equal(decimal.RequireFromString("1234.5678")), got.Profit.String())
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func testWithTxCommits(t *testing.T, st workforce.TxStore) {
	ctx := context.Background()
	seedUser(t, st, "u1", workforce.RoleEmployee)
	seedLeave(t, st, "l1", "u1", workforce.NewDate(2025, time.April, 7), 3,
		workforce.StatusPending, ts(2025, time.April, 1, 9, 0))

	err := st.WithTx(ctx, func(tx workforce.Store) error {
		if err := tx.UpdateLeaveStatus(ctx, "l1", workforce.StatusPending, workforce.StatusApproved, ts(2025, time.April, 2, 9, 0)); err != nil {
			return err
		}
		return tx.UpdateLeaveBalance(ctx, "u1", workforce.BalanceAnnual, -3)
	})
	require.NoError(t, err)

	l, err := st.GetLeaveByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, workforce.StatusApproved, l.Status)
	u, err := st.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 18, u.AnnualLeaveBalance)
}

func testWithTxRollsBack(t *testing.T, st workforce.TxStore) {
	ctx := context.Background()
	seedUser(t, st, "u1", workforce.RoleEmployee)
	seedLeave(t, st, "l1", "u1", workforce.NewDate(2025, time.April, 7), 30,
		workforce.StatusPending, ts(2025, time.April, 1, 9, 0))

	err := st.WithTx(ctx, func(tx workforce.Store) error {
		if err := tx.UpdateLeaveStatus(ctx, "l1", workforce.StatusPending, workforce.StatusApproved, ts(2025, time.April, 2, 9, 0)); err != nil {
			return err
		}
		return tx.UpdateLeaveBalance(ctx, "u1", workforce.BalanceAnnual, -30)
	})
	assert.ErrorIs(t, err, workforce.ErrInsufficientAnnualBalance)

	l, err := st.GetLeaveByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, workforce.StatusPending, l.Status, "status change rolled back")
	u, err := st.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 21, u.AnnualLeaveBalance)
}
