package workforce_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/workforce"
)

func newLeaveEngine(t *testing.T, clock *fakeClock) (*workforce.LeaveEngine, workforce.TxStore) {
	t.Helper()
	st := newTestStore()
	le := workforce.NewLeaveEngine(st)
	le.Clock = clock
	addUser(t, st, "emp-1", "Thandi", workforce.RoleEmployee)
	return le, st
}

// =============================================================================
// APPLY
// =============================================================================

func TestApply_CreatesPendingRequest(t *testing.T) {
	clock := newClock(at(2025, time.March, 1, 9, 0))
	le, st := newLeaveEngine(t, clock)
	ctx := context.Background()

	req, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 7), date(2025, time.April, 8))
	require.NoError(t, err)

	assert.Equal(t, workforce.StatusPending, req.Status)
	assert.Equal(t, 2, req.DaysRequested, "both ends are inclusive")
	assert.NotEmpty(t, req.ID)

	// Balances are untouched until approval
	annual, sick := balanceOf(t, st, "emp-1")
	assert.Equal(t, 21, annual)
	assert.Equal(t, 30, sick)

	pending, err := le.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Thandi", pending[0].UserName)
}

func TestApply_SingleDay(t *testing.T) {
	le, _ := newLeaveEngine(t, newClock(at(2025, time.March, 1, 9, 0)))

	req, err := le.Apply(context.Background(), "emp-1", workforce.LeaveSick, date(2025, time.March, 3), date(2025, time.March, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, req.DaysRequested)
}

func TestApply_InvalidInput(t *testing.T) {
	le, _ := newLeaveEngine(t, newClock(at(2025, time.March, 1, 9, 0)))
	ctx := context.Background()

	_, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 8), date(2025, time.April, 7))
	assert.ErrorIs(t, err, workforce.ErrInvalidDateRange)

	_, err = le.Apply(ctx, "emp-1", workforce.LeaveType("maternity"), date(2025, time.April, 7), date(2025, time.April, 7))
	assert.ErrorIs(t, err, workforce.ErrInvalidLeaveType)

	_, err = le.Apply(ctx, "ghost", workforce.LeaveAnnual, date(2025, time.April, 7), date(2025, time.April, 7))
	assert.ErrorIs(t, err, workforce.ErrUserNotFound)
}

func TestApply_MonthlyCapExceeded(t *testing.T) {
	// GIVEN: 1 approved day in April, cap 2
	// WHEN: Apply for 2 more days starting in April (1 -> 3)
	// THEN: MonthlyOffLimitExceeded
	clock := newClock(at(2025, time.March, 1, 9, 0))
	le, _ := newLeaveEngine(t, clock)
	ctx := context.Background()

	first, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 1), date(2025, time.April, 1))
	require.NoError(t, err)
	_, err = le.Approve(ctx, first.ID)
	require.NoError(t, err)

	_, err = le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 14), date(2025, time.April, 15))
	require.Error(t, err)
	assert.ErrorIs(t, err, workforce.ErrMonthlyOffLimitExceeded)

	var capErr *workforce.MonthlyCapError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 1, capErr.Taken)
	assert.Equal(t, 2, capErr.Requested)
	assert.Equal(t, "2025-04", capErr.Month)

	// One more day still fits
	_, err = le.Apply(ctx, "emp-1", workforce.LeaveSick, date(2025, time.April, 14), date(2025, time.April, 14))
	assert.NoError(t, err)

	// Pending requests do not count toward the cap
	_, err = le.Apply(ctx, "emp-1", workforce.LeaveSick, date(2025, time.April, 21), date(2025, time.April, 21))
	assert.NoError(t, err)
}

func TestApply_MonthlyCapAppliesToStartMonth(t *testing.T) {
	// GIVEN: A 3-day request spanning two months
	// THEN: It is charged wholly to the start month and exceeds the cap
	le, _ := newLeaveEngine(t, newClock(at(2025, time.March, 1, 9, 0)))

	_, err := le.Apply(context.Background(), "emp-1", workforce.LeaveAnnual, date(2025, time.April, 30), date(2025, time.May, 2))
	assert.ErrorIs(t, err, workforce.ErrMonthlyOffLimitExceeded)
}

func TestApply_BalanceCheckedBeforeCap(t *testing.T) {
	// GIVEN: Annual balance 1
	// WHEN: Apply 3 days (both balance and cap violated)
	// THEN: The balance failure wins
	clock := newClock(at(2025, time.March, 1, 9, 0))
	st := newTestStore()
	le := workforce.NewLeaveEngine(st)
	le.Clock = clock
	u := addUser(t, st, "emp-1", "Thandi", workforce.RoleEmployee)
	ctx := context.Background()
	require.NoError(t, st.UpdateLeaveBalance(ctx, u.ID, workforce.BalanceAnnual, -20))
	require.NoError(t, st.UpdateLeaveBalance(ctx, u.ID, workforce.BalanceSick, -30))

	_, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 1), date(2025, time.April, 3))
	assert.ErrorIs(t, err, workforce.ErrInsufficientAnnualBalance)

	var balErr *workforce.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Equal(t, 1, balErr.Available)
	assert.Equal(t, 3, balErr.Requested)

	_, err = le.Apply(ctx, "emp-1", workforce.LeaveSick, date(2025, time.April, 1), date(2025, time.April, 1))
	assert.ErrorIs(t, err, workforce.ErrInsufficientSickBalance)
	assert.Equal(t, workforce.KindInsufficientSickBalance, workforce.KindOf(err))
}

// =============================================================================
// APPROVE / REJECT
// =============================================================================

func TestApprove_DebitsMatchingBalance(t *testing.T) {
	// GIVEN: Annual balance 21, pending request for 2 days
	// WHEN: Approved
	// THEN: Annual balance 19, sick untouched, status approved
	clock := newClock(at(2025, time.March, 1, 9, 0))
	le, st := newLeaveEngine(t, clock)
	ctx := context.Background()

	req, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 7), date(2025, time.April, 8))
	require.NoError(t, err)

	clock.Set(at(2025, time.March, 2, 10, 0))
	approved, err := le.Approve(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, workforce.StatusApproved, approved.Status)
	require.NotNil(t, approved.DecidedAt)
	assert.True(t, approved.DecidedAt.Equal(at(2025, time.March, 2, 10, 0)))

	annual, sick := balanceOf(t, st, "emp-1")
	assert.Equal(t, 19, annual)
	assert.Equal(t, 30, sick)

	stored, err := st.GetLeaveByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, workforce.StatusApproved, stored.Status)
}

func TestApprove_SickLeaveDebitsSickBalance(t *testing.T) {
	le, st := newLeaveEngine(t, newClock(at(2025, time.March, 1, 9, 0)))
	ctx := context.Background()

	req, err := le.Apply(ctx, "emp-1", workforce.LeaveSick, date(2025, time.March, 3), date(2025, time.March, 3))
	require.NoError(t, err)
	_, err = le.Approve(ctx, req.ID)
	require.NoError(t, err)

	annual, sick := balanceOf(t, st, "emp-1")
	assert.Equal(t, 21, annual)
	assert.Equal(t, 29, sick)
}

func TestApprove_Twice(t *testing.T) {
	le, st := newLeaveEngine(t, newClock(at(2025, time.March, 1, 9, 0)))
	ctx := context.Background()

	req, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 7), date(2025, time.April, 7))
	require.NoError(t, err)
	_, err = le.Approve(ctx, req.ID)
	require.NoError(t, err)

	_, err = le.Approve(ctx, req.ID)
	assert.ErrorIs(t, err, workforce.ErrLeaveAlreadyProcessed)
	_, err = le.Reject(ctx, req.ID)
	assert.ErrorIs(t, err, workforce.ErrLeaveAlreadyProcessed)

	annual, _ := balanceOf(t, st, "emp-1")
	assert.Equal(t, 20, annual, "debited exactly once")
}

func TestApprove_Concurrent(t *testing.T) {
	// GIVEN: One pending request and many managers approving at once
	// THEN: Exactly one approval wins and the balance is debited once
	le, st := newLeaveEngine(t, newClock(at(2025, time.March, 1, 9, 0)))
	ctx := context.Background()

	req, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 7), date(2025, time.April, 8))
	require.NoError(t, err)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := le.Approve(ctx, req.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case workforce.KindOf(err) == workforce.KindLeaveAlreadyProcessed:
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	annual, _ := balanceOf(t, st, "emp-1")
	assert.Equal(t, 19, annual)
}

func TestApprove_RollsBackWhenBalanceSpent(t *testing.T) {
	// GIVEN: Annual balance 3 and two pending 2-day requests in different months
	// WHEN: Both are approved
	// THEN: The second fails and stays pending; balance is not overdrawn
	clock := newClock(at(2025, time.March, 1, 9, 0))
	le, st := newLeaveEngine(t, clock)
	ctx := context.Background()
	require.NoError(t, st.UpdateLeaveBalance(ctx, "emp-1", workforce.BalanceAnnual, -18))

	april, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 7), date(2025, time.April, 8))
	require.NoError(t, err)
	may, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.May, 5), date(2025, time.May, 6))
	require.NoError(t, err)

	_, err = le.Approve(ctx, april.ID)
	require.NoError(t, err)

	_, err = le.Approve(ctx, may.ID)
	assert.ErrorIs(t, err, workforce.ErrInsufficientAnnualBalance)

	stored, err := st.GetLeaveByID(ctx, may.ID)
	require.NoError(t, err)
	assert.Equal(t, workforce.StatusPending, stored.Status, "status swap rolled back")
	annual, _ := balanceOf(t, st, "emp-1")
	assert.Equal(t, 1, annual)
}

func TestApprove_NotFound(t *testing.T) {
	le, _ := newLeaveEngine(t, newClock(at(2025, time.March, 1, 9, 0)))

	_, err := le.Approve(context.Background(), "missing")
	assert.ErrorIs(t, err, workforce.ErrLeaveNotFound)
	_, err = le.Reject(context.Background(), "missing")
	assert.ErrorIs(t, err, workforce.ErrLeaveNotFound)
}

func TestApprove_WindowPassed(t *testing.T) {
	// GIVEN: A request starting 2025-03-05
	// WHEN: Approval is attempted on 2025-03-06
	// THEN: LeaveWindowPassed, regardless of status
	clock := newClock(at(2025, time.March, 1, 9, 0))
	le, st := newLeaveEngine(t, clock)
	ctx := context.Background()

	pending, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.March, 5), date(2025, time.March, 5))
	require.NoError(t, err)
	rejected, err := le.Apply(ctx, "emp-1", workforce.LeaveSick, date(2025, time.March, 5), date(2025, time.March, 5))
	require.NoError(t, err)
	_, err = le.Reject(ctx, rejected.ID)
	require.NoError(t, err)

	// Approving on the start day itself is allowed
	clock.Set(at(2025, time.March, 5, 23, 59))
	sameDay, err := le.Apply(ctx, "emp-1", workforce.LeaveSick, date(2025, time.March, 5), date(2025, time.March, 5))
	require.NoError(t, err)
	_, err = le.Approve(ctx, sameDay.ID)
	require.NoError(t, err)

	clock.Set(at(2025, time.March, 6, 0, 0))
	_, err = le.Approve(ctx, pending.ID)
	assert.ErrorIs(t, err, workforce.ErrLeaveWindowPassed)
	_, err = le.Approve(ctx, rejected.ID)
	assert.ErrorIs(t, err, workforce.ErrLeaveWindowPassed)

	annual, _ := balanceOf(t, st, "emp-1")
	assert.Equal(t, 21, annual)
}

func TestReject_LeavesBalancesAlone(t *testing.T) {
	le, st := newLeaveEngine(t, newClock(at(2025, time.March, 1, 9, 0)))
	ctx := context.Background()

	req, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 7), date(2025, time.April, 8))
	require.NoError(t, err)

	rejected, err := le.Reject(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, workforce.StatusRejected, rejected.Status)

	annual, sick := balanceOf(t, st, "emp-1")
	assert.Equal(t, 21, annual)
	assert.Equal(t, 30, sick)

	_, err = le.Approve(ctx, req.ID)
	assert.ErrorIs(t, err, workforce.ErrLeaveAlreadyProcessed)

	pending, err := le.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// =============================================================================
// EXPIRY
// =============================================================================

func TestExpireStale(t *testing.T) {
	// GIVEN: Pending requests starting 03-05 and 04-07
	// WHEN: The sweep runs on 03-10
	// THEN: Only the elapsed one is rejected
	clock := newClock(at(2025, time.March, 1, 9, 0))
	le, st := newLeaveEngine(t, clock)
	ctx := context.Background()

	stale, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.March, 5), date(2025, time.March, 5))
	require.NoError(t, err)
	future, err := le.Apply(ctx, "emp-1", workforce.LeaveAnnual, date(2025, time.April, 7), date(2025, time.April, 7))
	require.NoError(t, err)

	clock.Set(at(2025, time.March, 10, 0, 0))
	n, err := le.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetLeaveByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, workforce.StatusRejected, got.Status)

	got, err = st.GetLeaveByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, workforce.StatusPending, got.Status)

	// Idempotent
	n, err = le.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
