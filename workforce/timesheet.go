/*
timesheet.go - Daily attendance state machine

STATES (per user, per calendar day):
  NotStarted -> CheckedIn -> OnBreak -> Returned -> CheckedOut (terminal)
  CheckedIn  -> CheckedOut
  OnBreak    -> CheckedOut (the open break is closed at check-out)

  A transition whose clock reading precedes a timestamp already recorded for
  the day is rejected; stored rows keep check_in <= break_start <=
  break_end <= check_out.

INVARIANT:
  At most one TimeEntry per (user, date). The entry is the state holder and
  is mutated in place. The store's unique index on (user_id, date) rejects
  a concurrent second check-in; the lookup here only gives the early answer.

WORKED HOURS:
  total = (check_out - check_in) - (break_end - break_start)
  clamped at zero so skewed clocks or malformed rows never yield negative hours.
*/
package workforce

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// TimeTracker drives check-in, breaks and check-out for employees.
type TimeTracker struct {
	Store    TimeEntryStore
	Clock    Clock
	Location *time.Location
	Logger   *slog.Logger
}

// NewTimeTracker returns a tracker using the system clock in UTC.
func NewTimeTracker(store TimeEntryStore) *TimeTracker {
	return &TimeTracker{Store: store, Clock: SystemClock, Location: time.UTC, Logger: slog.Default()}
}

func (t *TimeTracker) now() (time.Time, Date) {
	now := t.Clock.Now()
	return now, DateOf(now, t.Location)
}

// Today returns the caller's entry for today (nil if none) and its state.
func (t *TimeTracker) Today(ctx context.Context, userID string) (*TimeEntry, AttendanceState, error) {
	_, today := t.now()
	entry, err := t.Store.GetEntryForDate(ctx, userID, today)
	if err != nil {
		return nil, "", storeErr("get entry", err)
	}
	return entry, StateOf(entry), nil
}

// CheckIn opens today's entry.
func (t *TimeTracker) CheckIn(ctx context.Context, userID string) (*TimeEntry, error) {
	now, today := t.now()

	existing, err := t.Store.GetEntryForDate(ctx, userID, today)
	if err != nil {
		return nil, storeErr("get entry", err)
	}
	if existing != nil {
		return nil, ErrAlreadyCheckedIn
	}

	entry := TimeEntry{
		ID:      uuid.NewString(),
		UserID:  userID,
		Date:    today,
		CheckIn: now,
	}
	if err := t.Store.CreateEntry(ctx, entry); err != nil {
		return nil, storeErr("create entry", err)
	}

	t.Logger.Info("checked in", slog.String("user_id", userID), slog.String("date", today.String()))
	return &entry, nil
}

// StartBreak marks the start of today's break.
// One break per day: a second break after returning is rejected.
func (t *TimeTracker) StartBreak(ctx context.Context, userID string) (*TimeEntry, error) {
	now, today := t.now()

	entry, err := t.Store.GetEntryForDate(ctx, userID, today)
	if err != nil {
		return nil, storeErr("get entry", err)
	}
	if StateOf(entry) != StateCheckedIn {
		return nil, ErrInvalidBreakStart
	}
	if now.Before(entry.CheckIn) {
		return nil, ErrInvalidBreakStart
	}

	patch := EntryPatch{BreakStart: &now}
	if err := t.Store.UpdateEntry(ctx, entry.ID, patch); err != nil {
		return nil, storeErr("update entry", err)
	}
	patch.Apply(entry)

	t.Logger.Info("break started", slog.String("user_id", userID))
	return entry, nil
}

// EndBreak closes today's open break.
func (t *TimeTracker) EndBreak(ctx context.Context, userID string) (*TimeEntry, error) {
	now, today := t.now()

	entry, err := t.Store.GetEntryForDate(ctx, userID, today)
	if err != nil {
		return nil, storeErr("get entry", err)
	}
	if StateOf(entry) != StateOnBreak {
		return nil, ErrInvalidBreakEnd
	}
	if now.Before(*entry.BreakStart) {
		return nil, ErrInvalidBreakEnd
	}

	patch := EntryPatch{BreakEnd: &now}
	if err := t.Store.UpdateEntry(ctx, entry.ID, patch); err != nil {
		return nil, storeErr("update entry", err)
	}
	patch.Apply(entry)

	t.Logger.Info("break ended", slog.String("user_id", userID))
	return entry, nil
}

// CheckOut closes today's entry and records the worked hours.
func (t *TimeTracker) CheckOut(ctx context.Context, userID string) (*TimeEntry, error) {
	now, today := t.now()

	entry, err := t.Store.GetEntryForDate(ctx, userID, today)
	if err != nil {
		return nil, storeErr("get entry", err)
	}
	if entry == nil || entry.CheckOut != nil {
		return nil, ErrAlreadyCheckedOutOrNotCheckedIn
	}
	// check_out never precedes any recorded timestamp of the day.
	if now.Before(entry.CheckIn) {
		return nil, ErrAlreadyCheckedOutOrNotCheckedIn
	}
	if entry.BreakStart != nil && now.Before(*entry.BreakStart) {
		return nil, ErrInvalidBreakEnd
	}
	if entry.BreakEnd != nil && now.Before(*entry.BreakEnd) {
		return nil, ErrAlreadyCheckedOutOrNotCheckedIn
	}

	patch := EntryPatch{CheckOut: &now}
	if StateOf(entry) == StateOnBreak {
		breakEnd := now
		patch.BreakEnd = &breakEnd
	}
	closed := *entry
	patch.Apply(&closed)
	hours := WorkedHours(closed.CheckIn, *closed.CheckOut, closed.BreakStart, closed.BreakEnd)
	patch.TotalHours = &hours

	if err := t.Store.UpdateEntry(ctx, entry.ID, patch); err != nil {
		return nil, storeErr("update entry", err)
	}
	patch.Apply(entry)

	t.Logger.Info("checked out",
		slog.String("user_id", userID),
		slog.Float64("total_hours", hours),
	)
	return entry, nil
}

// WorkedHours computes worked time in hours, excluding a well-formed break.
// A break is subtracted only when both ends are present and ordered.
// The result is never negative.
func WorkedHours(checkIn, checkOut time.Time, breakStart, breakEnd *time.Time) float64 {
	worked := checkOut.Sub(checkIn)
	if breakStart != nil && breakEnd != nil && !breakEnd.Before(*breakStart) {
		worked -= breakEnd.Sub(*breakStart)
	}
	if worked < 0 {
		return 0
	}
	return worked.Hours()
}
