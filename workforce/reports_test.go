package workforce_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/workforce"
)

func approvedLeave(t *testing.T, st workforce.LeaveStore, id, userID string, start workforce.Date, days int) {
	t.Helper()
	require.NoError(t, st.CreateLeaveRequest(context.Background(), workforce.LeaveRequest{
		ID:            id,
		UserID:        userID,
		Type:          workforce.LeaveAnnual,
		StartDate:     start,
		EndDate:       start.AddDays(days - 1),
		DaysRequested: days,
		Status:        workforce.StatusApproved,
		CreatedAt:     start.Time,
	}))
}

func TestMonthlyReport(t *testing.T) {
	// GIVEN: Two worked days in March, one in April, an open entry in March,
	//        and approved leave starting in March
	st := newTestStore()
	rep := workforce.NewReporter(st)
	ctx := context.Background()
	addUser(t, st, "emp-1", "Thandi", workforce.RoleEmployee)

	addWorkedDay(t, st, "emp-1", date(2025, time.March, 3), 8)
	addWorkedDay(t, st, "emp-1", date(2025, time.March, 4), 7.5)
	addWorkedDay(t, st, "emp-1", date(2025, time.April, 1), 9)
	require.NoError(t, st.CreateEntry(ctx, workforce.TimeEntry{
		ID: "open", UserID: "emp-1", Date: date(2025, time.March, 5), CheckIn: at(2025, time.March, 5, 8, 0),
	}))
	approvedLeave(t, st, "l1", "emp-1", date(2025, time.March, 10), 2)
	approvedLeave(t, st, "l2", "emp-1", date(2025, time.April, 1), 1)

	report, err := rep.MonthlyReport(ctx, "emp-1", time.March, 2025)
	require.NoError(t, err)
	assert.InDelta(t, 15.5, report.Hours, 1e-9, "open entries contribute nothing")
	assert.Equal(t, 2, report.Offs)

	report, err = rep.MonthlyReport(ctx, "emp-1", time.May, 2025)
	require.NoError(t, err)
	assert.Zero(t, report.Hours)
	assert.Zero(t, report.Offs)
}

func TestMonthlyReport_InvalidPeriod(t *testing.T) {
	rep := workforce.NewReporter(newTestStore())

	_, err := rep.MonthlyReport(context.Background(), "emp-1", time.Month(13), 2025)
	assert.ErrorIs(t, err, workforce.ErrInvalidInput)
	_, err = rep.RedundancyCheck(context.Background(), time.Month(0), 2025)
	assert.ErrorIs(t, err, workforce.ErrInvalidInput)
	_, err = rep.AnnualSummary(context.Background(), 0)
	assert.ErrorIs(t, err, workforce.ErrInvalidInput)
}

func TestRedundancyCheck(t *testing.T) {
	// GIVEN: emp-a works 160h, emp-b 152h, a manager works nothing
	// THEN: Only emp-b is flagged (strictly below 160h; managers excluded)
	st := newTestStore()
	rep := workforce.NewReporter(st)
	ctx := context.Background()

	addUser(t, st, "emp-a", "Ayanda", workforce.RoleEmployee)
	addUser(t, st, "emp-b", "Bongani", workforce.RoleEmployee)
	addUser(t, st, "mgr-1", "Lindiwe", workforce.RoleManager)

	for day := 1; day <= 20; day++ {
		addWorkedDay(t, st, "emp-a", date(2025, time.March, day), 8)
		if day <= 19 {
			addWorkedDay(t, st, "emp-b", date(2025, time.March, day), 8)
		}
	}

	flagged, err := rep.RedundancyCheck(ctx, time.March, 2025)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "emp-b", flagged[0].ID)
	assert.Equal(t, "Bongani", flagged[0].Name)
	assert.InDelta(t, 152, flagged[0].Hours, 1e-9)
}

func TestRedundancyCheck_NoEmployees(t *testing.T) {
	rep := workforce.NewReporter(newTestStore())

	flagged, err := rep.RedundancyCheck(context.Background(), time.March, 2025)
	require.NoError(t, err)
	assert.NotNil(t, flagged)
	assert.Empty(t, flagged)
}

func TestAnnualSummary(t *testing.T) {
	// GIVEN: Profits for January and March, two employees with work and leave
	// THEN: Twelve profit lines, totals per employee, managers excluded
	st := newTestStore()
	rep := workforce.NewReporter(st)
	ctx := context.Background()

	addUser(t, st, "emp-b", "Bongani", workforce.RoleEmployee)
	addUser(t, st, "emp-a", "Ayanda", workforce.RoleEmployee)
	addUser(t, st, "mgr-1", "Lindiwe", workforce.RoleManager)

	_, err := rep.RecordProfit(ctx, time.January, 2025, decimal.RequireFromString("1000.50"))
	require.NoError(t, err)
	_, err = rep.RecordProfit(ctx, time.March, 2025, decimal.RequireFromString("-200.25"))
	require.NoError(t, err)
	_, err = rep.RecordProfit(ctx, time.March, 2024, decimal.RequireFromString("999"))
	require.NoError(t, err)

	addWorkedDay(t, st, "emp-a", date(2025, time.January, 6), 8)
	addWorkedDay(t, st, "emp-a", date(2025, time.June, 2), 6)
	addWorkedDay(t, st, "emp-a", date(2024, time.December, 31), 10)
	addWorkedDay(t, st, "mgr-1", date(2025, time.January, 6), 8)
	approvedLeave(t, st, "l1", "emp-a", date(2025, time.February, 3), 2)
	approvedLeave(t, st, "l2", "emp-a", date(2025, time.November, 3), 1)

	summary, err := rep.AnnualSummary(ctx, 2025)
	require.NoError(t, err)

	require.Len(t, summary.Profits, 12)
	assert.Equal(t, time.January, summary.Profits[0].Month)
	assert.True(t, summary.Profits[0].Recorded)
	assert.True(t, summary.Profits[0].Profit.Equal(decimal.RequireFromString("1000.50")))
	assert.False(t, summary.Profits[1].Recorded)
	assert.True(t, summary.Profits[1].Profit.IsZero())
	assert.True(t, summary.Profits[2].Profit.Equal(decimal.RequireFromString("-200.25")))
	assert.True(t, summary.TotalProfit.Equal(decimal.RequireFromString("800.25")))

	require.Len(t, summary.Employees, 2)
	assert.Equal(t, "emp-a", summary.Employees[0].ID, "ordered by id")
	assert.InDelta(t, 14, summary.Employees[0].TotalHours, 1e-9)
	assert.Equal(t, 3, summary.Employees[0].TotalOffs)
	assert.Equal(t, "emp-b", summary.Employees[1].ID)
	assert.Zero(t, summary.Employees[1].TotalHours)
	assert.Zero(t, summary.Employees[1].TotalOffs)
}

func TestAnnualSummary_MatchesMonthlyReports(t *testing.T) {
	st := newTestStore()
	rep := workforce.NewReporter(st)
	rep.Concurrency = 2
	ctx := context.Background()

	for _, id := range []string{"e1", "e2", "e3"} {
		addUser(t, st, id, id, workforce.RoleEmployee)
		for m := time.January; m <= time.December; m += 3 {
			addWorkedDay(t, st, id, date(2025, m, 10), float64(m))
		}
	}

	summary, err := rep.AnnualSummary(ctx, 2025)
	require.NoError(t, err)

	for _, row := range summary.Employees {
		var hours float64
		for m := time.January; m <= time.December; m++ {
			r, err := rep.MonthlyReport(ctx, row.ID, m, 2025)
			require.NoError(t, err)
			hours += r.Hours
		}
		assert.InDelta(t, hours, row.TotalHours, 1e-9, row.ID)
	}
}

func TestProfit_Upsert(t *testing.T) {
	st := newTestStore()
	rep := workforce.NewReporter(st)
	ctx := context.Background()

	p, err := rep.Profit(ctx, time.May, 2025)
	require.NoError(t, err)
	assert.Nil(t, p, "unrecorded month")

	_, err = rep.RecordProfit(ctx, time.May, 2025, decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = rep.RecordProfit(ctx, time.May, 2025, decimal.NewFromInt(250))
	require.NoError(t, err)

	p, err = rep.Profit(ctx, time.May, 2025)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.Profit.Equal(decimal.NewFromInt(250)), "last write wins")

	_, err = rep.RecordProfit(ctx, time.Month(13), 2025, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, workforce.ErrInvalidInput)
}
