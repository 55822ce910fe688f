/*
leave.go - Leave eligibility and approval

APPLY:
  1. days = (end - start) + 1, both ends inclusive
  2. monthly offs = approved days already starting in start's month
  3. first failing check wins:
       annual balance < days          -> ErrInsufficientAnnualBalance
       sick balance < days            -> ErrInsufficientSickBalance
       monthly offs + days > cap      -> ErrMonthlyOffLimitExceeded
  4. persist as pending; balances are untouched

APPROVE (transactional):
  The status compare-and-swap and the balance debit run in one WithTx unit.
  A concurrent second approval loses the swap with ErrLeaveAlreadyProcessed,
  so a request can never be debited twice. The balance is re-checked inside
  the transaction because other requests may have been approved since apply.

REJECT:
  Same lifecycle checks, no balance mutation.
*/
package workforce

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// LeaveEngine evaluates, records and decides leave requests.
type LeaveEngine struct {
	Store    TxStore
	Policy   Policy
	Clock    Clock
	Location *time.Location
	Logger   *slog.Logger
}

// NewLeaveEngine returns an engine with the default policy, system clock and UTC dates.
func NewLeaveEngine(store TxStore) *LeaveEngine {
	return &LeaveEngine{
		Store:    store,
		Policy:   DefaultPolicy(),
		Clock:    SystemClock,
		Location: time.UTC,
		Logger:   slog.Default(),
	}
}

func (e *LeaveEngine) today() (time.Time, Date) {
	now := e.Clock.Now()
	return now, DateOf(now, e.Location)
}

// Apply submits a leave request for userID covering [start, end].
func (e *LeaveEngine) Apply(ctx context.Context, userID string, leaveType LeaveType, start, end Date) (*LeaveRequest, error) {
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}
	field, ok := BalanceFieldFor(leaveType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeaveType, leaveType)
	}
	days := DaysInclusive(start, end)

	user, err := e.Store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr("find user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	monthlyOffs, err := approvedDaysInMonth(ctx, e.Store, userID, start.Month(), start.Year())
	if err != nil {
		return nil, err
	}

	if available := user.Balance(field); available < days {
		return nil, insufficientBalance(userID, field, available, days)
	}
	if monthlyOffs+days > e.Policy.MonthlyOffCap {
		return nil, &MonthlyCapError{
			UserID:    userID,
			Month:     start.Time.Format("2006-01"),
			Taken:     monthlyOffs,
			Requested: days,
			Cap:       e.Policy.MonthlyOffCap,
		}
	}

	now, _ := e.today()
	req := LeaveRequest{
		ID:            uuid.NewString(),
		UserID:        userID,
		UserName:      user.Name,
		Type:          leaveType,
		StartDate:     start,
		EndDate:       end,
		DaysRequested: days,
		Status:        StatusPending,
		CreatedAt:     now,
	}
	if err := e.Store.CreateLeaveRequest(ctx, req); err != nil {
		return nil, storeErr("create leave request", err)
	}

	e.Logger.Info("leave requested",
		slog.String("leave_id", req.ID),
		slog.String("user_id", userID),
		slog.String("type", string(leaveType)),
		slog.Int("days", days),
	)
	return &req, nil
}

// Approve approves a pending request and debits the matching balance atomically.
func (e *LeaveEngine) Approve(ctx context.Context, leaveID string) (*LeaveRequest, error) {
	now, today := e.today()

	leave, err := e.Store.GetLeaveByID(ctx, leaveID)
	if err != nil {
		return nil, storeErr("get leave", err)
	}
	if leave == nil {
		return nil, ErrLeaveNotFound
	}
	// The window is checked before the status: an elapsed request is
	// unapprovable whatever state it is in.
	if leave.StartDate.Before(today) {
		return nil, ErrLeaveWindowPassed
	}
	if leave.Status != StatusPending {
		return nil, ErrLeaveAlreadyProcessed
	}
	field, ok := BalanceFieldFor(leave.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeaveType, leave.Type)
	}

	err = e.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.UpdateLeaveStatus(ctx, leave.ID, StatusPending, StatusApproved, now); err != nil {
			return err
		}
		user, err := tx.FindUserByID(ctx, leave.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if available := user.Balance(field); available < leave.DaysRequested {
			return insufficientBalance(user.ID, field, available, leave.DaysRequested)
		}
		return tx.UpdateLeaveBalance(ctx, user.ID, field, -leave.DaysRequested)
	})
	if err != nil {
		return nil, storeErr("approve leave", err)
	}

	leave.Status = StatusApproved
	leave.DecidedAt = &now
	e.Logger.Info("leave approved",
		slog.String("leave_id", leave.ID),
		slog.String("user_id", leave.UserID),
		slog.String("balance", string(field)),
		slog.Int("debited", leave.DaysRequested),
	)
	return leave, nil
}

// Reject rejects a pending request. Balances are not touched.
func (e *LeaveEngine) Reject(ctx context.Context, leaveID string) (*LeaveRequest, error) {
	now, _ := e.today()

	leave, err := e.Store.GetLeaveByID(ctx, leaveID)
	if err != nil {
		return nil, storeErr("get leave", err)
	}
	if leave == nil {
		return nil, ErrLeaveNotFound
	}
	if leave.Status != StatusPending {
		return nil, ErrLeaveAlreadyProcessed
	}
	if err := e.Store.UpdateLeaveStatus(ctx, leave.ID, StatusPending, StatusRejected, now); err != nil {
		return nil, storeErr("reject leave", err)
	}

	leave.Status = StatusRejected
	leave.DecidedAt = &now
	e.Logger.Info("leave rejected", slog.String("leave_id", leave.ID), slog.String("user_id", leave.UserID))
	return leave, nil
}

// Pending lists requests awaiting a decision.
func (e *LeaveEngine) Pending(ctx context.Context) ([]LeaveRequest, error) {
	leaves, err := e.Store.ListPendingLeaves(ctx)
	if err != nil {
		return nil, storeErr("list pending leaves", err)
	}
	return leaves, nil
}

// ExpireStale rejects pending requests whose start date has already elapsed.
// Such requests can never be approved. Returns how many were rejected.
func (e *LeaveEngine) ExpireStale(ctx context.Context) (int, error) {
	now, today := e.today()

	pending, err := e.Store.ListPendingLeaves(ctx)
	if err != nil {
		return 0, storeErr("list pending leaves", err)
	}

	expired := 0
	for _, leave := range pending {
		if !leave.StartDate.Before(today) {
			continue
		}
		err := e.Store.UpdateLeaveStatus(ctx, leave.ID, StatusPending, StatusRejected, now)
		switch {
		case err == nil:
			expired++
		case KindOf(err) == KindLeaveAlreadyProcessed:
			// decided concurrently
		default:
			return expired, storeErr("expire leave", err)
		}
	}
	if expired > 0 {
		e.Logger.Info("expired stale leave requests", slog.Int("count", expired))
	}
	return expired, nil
}

// approvedDaysInMonth sums days of approved leaves starting in month/year.
func approvedDaysInMonth(ctx context.Context, store LeaveStore, userID string, month time.Month, year int) (int, error) {
	leaves, err := store.GetApprovedLeavesInMonth(ctx, userID, month, year)
	if err != nil {
		return 0, storeErr("get approved leaves", err)
	}
	total := 0
	for _, l := range leaves {
		total += l.DaysRequested
	}
	return total, nil
}
