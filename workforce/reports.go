/*
reports.go - Monthly and annual aggregations

PURPOSE:
  Read-only folds over stored time entries, approved leaves and profit
  figures. Reports reflect the state at query time; no snapshot isolation.

OPERATIONS:
  MonthlyHours / MonthlyOffs / MonthlyReport   per employee, per month
  RedundancyCheck                             employees under the hours floor
  AnnualSummary                               12-month fold per employee + profits
  RecordProfit / Profit                       monthly profit upsert and read

COST:
  AnnualSummary performs 12 hour lookups and 12 off lookups per employee.
  Employees are folded concurrently (bounded by Concurrency); each fold is
  the same naive per-month computation, so results match MonthlyReport.
*/
package workforce

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Reporter computes manager and employee reports.
type Reporter struct {
	Store       Store
	Policy      Policy
	Concurrency int
	Logger      *slog.Logger
}

// NewReporter returns a reporter with the default policy.
func NewReporter(store Store) *Reporter {
	return &Reporter{Store: store, Policy: DefaultPolicy(), Concurrency: 4, Logger: slog.Default()}
}

// MonthlyReport is an employee's worked hours and approved leave days for a month.
type MonthlyReport struct {
	UserID string
	Month  time.Month
	Year   int
	Hours  float64
	Offs   int
}

// RedundantEmployee is an employee below the monthly hours floor.
type RedundantEmployee struct {
	ID    string
	Name  string
	Hours float64
}

// EmployeeYear is one employee's annual totals.
type EmployeeYear struct {
	ID         string
	Name       string
	TotalHours float64
	TotalOffs  int
}

// ProfitMonth is one month's profit line in an annual summary.
type ProfitMonth struct {
	Month    time.Month
	Profit   decimal.Decimal
	Recorded bool
}

// AnnualSummary is the yearly manager report.
type AnnualSummary struct {
	Year        int
	Profits     []ProfitMonth // always 12 lines, January first
	TotalProfit decimal.Decimal
	Employees   []EmployeeYear // ordered by id
}

func checkPeriod(month time.Month, year int) error {
	if !ValidMonth(month) {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidInput, month)
	}
	if year < 1 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidInput, year)
	}
	return nil
}

// MonthlyHours sums recorded worked hours of userID in month/year.
// Entries without total hours (not checked out) contribute 0.
func (r *Reporter) MonthlyHours(ctx context.Context, userID string, month time.Month, year int) (float64, error) {
	if err := checkPeriod(month, year); err != nil {
		return 0, err
	}
	entries, err := r.Store.ListEntriesInMonth(ctx, userID, month, year)
	if err != nil {
		return 0, storeErr("list entries", err)
	}
	total := 0.0
	for _, e := range entries {
		if e.TotalHours != nil {
			total += *e.TotalHours
		}
	}
	return total, nil
}

// MonthlyOffs sums approved leave days of userID starting in month/year.
func (r *Reporter) MonthlyOffs(ctx context.Context, userID string, month time.Month, year int) (int, error) {
	if err := checkPeriod(month, year); err != nil {
		return 0, err
	}
	return approvedDaysInMonth(ctx, r.Store, userID, month, year)
}

// MonthlyReport combines MonthlyHours and MonthlyOffs.
func (r *Reporter) MonthlyReport(ctx context.Context, userID string, month time.Month, year int) (*MonthlyReport, error) {
	hours, err := r.MonthlyHours(ctx, userID, month, year)
	if err != nil {
		return nil, err
	}
	offs, err := r.MonthlyOffs(ctx, userID, month, year)
	if err != nil {
		return nil, err
	}
	return &MonthlyReport{UserID: userID, Month: month, Year: year, Hours: hours, Offs: offs}, nil
}

// RedundancyCheck flags employees whose monthly hours are under the policy floor.
func (r *Reporter) RedundancyCheck(ctx context.Context, month time.Month, year int) ([]RedundantEmployee, error) {
	if err := checkPeriod(month, year); err != nil {
		return nil, err
	}
	employees, err := r.employees(ctx)
	if err != nil {
		return nil, err
	}

	flagged := []RedundantEmployee{}
	for _, u := range employees {
		hours, err := r.MonthlyHours(ctx, u.ID, month, year)
		if err != nil {
			return nil, err
		}
		if hours < r.Policy.RedundancyThresholdHours {
			flagged = append(flagged, RedundantEmployee{ID: u.ID, Name: u.Name, Hours: hours})
		}
	}

	r.Logger.Info("redundancy check",
		slog.Int("year", year),
		slog.Int("month", int(month)),
		slog.Int("employees", len(employees)),
		slog.Int("flagged", len(flagged)),
	)
	return flagged, nil
}

// AnnualSummary folds every employee's twelve months and the year's profits.
func (r *Reporter) AnnualSummary(ctx context.Context, year int) (*AnnualSummary, error) {
	if err := checkPeriod(time.January, year); err != nil {
		return nil, err
	}

	profits, total, err := r.yearProfits(ctx, year)
	if err != nil {
		return nil, err
	}

	employees, err := r.employees(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]EmployeeYear, len(employees))
	g, gctx := errgroup.WithContext(ctx)
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}
	for i, u := range employees {
		i, u := i, u
		g.Go(func() error {
			row := EmployeeYear{ID: u.ID, Name: u.Name}
			for m := time.January; m <= time.December; m++ {
				hours, err := r.MonthlyHours(gctx, u.ID, m, year)
				if err != nil {
					return err
				}
				offs, err := r.MonthlyOffs(gctx, u.ID, m, year)
				if err != nil {
					return err
				}
				row.TotalHours += hours
				row.TotalOffs += offs
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &AnnualSummary{Year: year, Profits: profits, TotalProfit: total, Employees: rows}, nil
}

// RecordProfit upserts the profit figure for month/year.
func (r *Reporter) RecordProfit(ctx context.Context, month time.Month, year int, amount decimal.Decimal) (*MonthlyProfit, error) {
	if err := checkPeriod(month, year); err != nil {
		return nil, err
	}
	p := MonthlyProfit{Month: month, Year: year, Profit: amount}
	if err := r.Store.UpsertMonthlyProfit(ctx, p); err != nil {
		return nil, storeErr("upsert profit", err)
	}
	r.Logger.Info("profit recorded",
		slog.Int("year", year),
		slog.Int("month", int(month)),
		slog.String("profit", amount.String()),
	)
	return &p, nil
}

// Profit returns the figure for month/year, or nil if none was recorded.
func (r *Reporter) Profit(ctx context.Context, month time.Month, year int) (*MonthlyProfit, error) {
	if err := checkPeriod(month, year); err != nil {
		return nil, err
	}
	p, err := r.Store.GetMonthlyProfit(ctx, month, year)
	if err != nil {
		return nil, storeErr("get profit", err)
	}
	return p, nil
}

func (r *Reporter) yearProfits(ctx context.Context, year int) ([]ProfitMonth, decimal.Decimal, error) {
	recorded, err := r.Store.GetYearlyProfits(ctx, year)
	if err != nil {
		return nil, decimal.Zero, storeErr("get yearly profits", err)
	}

	lines := make([]ProfitMonth, 12)
	for i := range lines {
		lines[i] = ProfitMonth{Month: time.Month(i + 1), Profit: decimal.Zero}
	}
	total := decimal.Zero
	for _, p := range recorded {
		if !ValidMonth(p.Month) {
			continue
		}
		lines[p.Month-1] = ProfitMonth{Month: p.Month, Profit: p.Profit, Recorded: true}
		total = total.Add(p.Profit)
	}
	return lines, total, nil
}

// employees returns users with the employee role ordered by id.
func (r *Reporter) employees(ctx context.Context) ([]User, error) {
	users, err := r.Store.ListUsers(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	var out []User
	for _, u := range users {
		if u.Role == RoleEmployee {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
