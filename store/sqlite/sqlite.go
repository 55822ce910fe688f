/*
Package sqlite provides a SQLite-backed workforce.TxStore.

KEY TABLES:
  users:            accounts and leave balances (CHECK balance >= 0)
  time_entries:     one row per (user_id, date), enforced by a UNIQUE index
  leave_requests:   requests with CHECK constraints on status/type/range
  monthly_profits:  PRIMARY KEY (year, month), upserted

CONCURRENCY:
  A sync.RWMutex serialises writers in-process; SQLite itself allows a
  single writer. The UNIQUE index on time_entries(user_id, date) is what
  closes the check-then-insert race for concurrent check-ins.

ATOMICITY:
  Leave status changes are compare-and-swap updates
  (UPDATE ... WHERE id = ? AND status = 'pending'), and balance debits are
  conditional (WHERE balance + delta >= 0). WithTx runs both in one
  database transaction.

USAGE:
  store, err := sqlite.New("./data/workforce.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - workforce/store.go: Interface contract
  - store/postgres: PostgreSQL implementation of the same contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/workforce"
)

// Store implements workforce.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
	q  queries
}

var _ workforce.TxStore = (*Store)(nil)

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, q: queries{db: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL CHECK (role IN ('employee', 'manager', 'admin')),
		hire_date TEXT NOT NULL,
		annual_leave_balance INTEGER NOT NULL DEFAULT 21 CHECK (annual_leave_balance >= 0),
		sick_leave_balance INTEGER NOT NULL DEFAULT 30 CHECK (sick_leave_balance >= 0),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		date TEXT NOT NULL,
		check_in TEXT NOT NULL,
		break_start TEXT,
		break_end TEXT,
		check_out TEXT,
		total_hours REAL CHECK (total_hours IS NULL OR total_hours >= 0)
	);

	-- one attendance row per user per calendar day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_time_entries_user_date
		ON time_entries(user_id, date);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		leave_type TEXT NOT NULL CHECK (leave_type IN ('annual', 'sick')),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days_requested INTEGER NOT NULL CHECK (days_requested >= 1),
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		created_at TEXT NOT NULL,
		decided_at TEXT,
		CHECK (end_date >= start_date)
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_user_status_start
		ON leave_requests(user_id, status, start_date);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);

	CREATE TABLE IF NOT EXISTS monthly_profits (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		profit TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (year, month)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(workforce.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(queries{db: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// LOCKED DELEGATES
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u workforce.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.CreateUser(ctx, u)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*workforce.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.FindUserByID(ctx, id)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*workforce.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.FindUserByEmail(ctx, email)
}

func (s *Store) ListUsers(ctx context.Context) ([]workforce.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListUsers(ctx)
}

func (s *Store) UpdateLeaveBalance(ctx context.Context, userID string, field workforce.BalanceField, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.UpdateLeaveBalance(ctx, userID, field, delta)
}

func (s *Store) GetEntryForDate(ctx context.Context, userID string, date workforce.Date) (*workforce.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetEntryForDate(ctx, userID, date)
}

func (s *Store) CreateEntry(ctx context.Context, e workforce.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.CreateEntry(ctx, e)
}

func (s *Store) UpdateEntry(ctx context.Context, id string, patch workforce.EntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.UpdateEntry(ctx, id, patch)
}

func (s *Store) ListEntriesInMonth(ctx context.Context, userID string, month time.Month, year int) ([]workforce.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListEntriesInMonth(ctx, userID, month, year)
}

func (s *Store) CreateLeaveRequest(ctx context.Context, r workforce.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.CreateLeaveRequest(ctx, r)
}

func (s *Store) GetLeaveByID(ctx context.Context, id string) (*workforce.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetLeaveByID(ctx, id)
}

func (s *Store) UpdateLeaveStatus(ctx context.Context, id string, from, to workforce.LeaveStatus, decidedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.UpdateLeaveStatus(ctx, id, from, to, decidedAt)
}

func (s *Store) GetApprovedLeavesInMonth(ctx context.Context, userID string, month time.Month, year int) ([]workforce.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetApprovedLeavesInMonth(ctx, userID, month, year)
}

func (s *Store) ListPendingLeaves(ctx context.Context) ([]workforce.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListPendingLeaves(ctx)
}

func (s *Store) UpsertMonthlyProfit(ctx context.Context, p workforce.MonthlyProfit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.UpsertMonthlyProfit(ctx, p)
}

func (s *Store) GetMonthlyProfit(ctx context.Context, month time.Month, year int) (*workforce.MonthlyProfit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetMonthlyProfit(ctx, month, year)
}

func (s *Store) GetYearlyProfits(ctx context.Context, year int) ([]workforce.MonthlyProfit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetYearlyProfits(ctx, year)
}

// =============================================================================
// QUERIES - Shared by the pooled store and transactions
// =============================================================================

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

// ----- users -----

const userColumns = `id, name, email, role, hire_date, annual_leave_balance, sick_leave_balance, created_at`

func (q queries) CreateUser(ctx context.Context, u workforce.User) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, string(u.Role), u.HireDate.String(),
		u.AnnualLeaveBalance, u.SickLeaveBalance, formatTime(u.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return workforce.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (q queries) FindUserByID(ctx context.Context, id string) (*workforce.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (q queries) FindUserByEmail(ctx context.Context, email string) (*workforce.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (q queries) ListUsers(ctx context.Context) ([]workforce.User, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []workforce.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Balance columns are picked from fixed statements, never interpolated.
var balanceUpdates = map[workforce.BalanceField]string{
	workforce.BalanceAnnual: `UPDATE users SET annual_leave_balance = annual_leave_balance + ?
		WHERE id = ? AND annual_leave_balance + ? >= 0`,
	workforce.BalanceSick: `UPDATE users SET sick_leave_balance = sick_leave_balance + ?
		WHERE id = ? AND sick_leave_balance + ? >= 0`,
}

func (q queries) UpdateLeaveBalance(ctx context.Context, userID string, field workforce.BalanceField, delta int) error {
	stmt, ok := balanceUpdates[field]
	if !ok {
		return fmt.Errorf("%w: unknown balance %q", workforce.ErrInvalidLeaveType, field)
	}
	res, err := q.db.ExecContext(ctx, stmt, delta, userID, delta)
	if err != nil {
		return fmt.Errorf("failed to update leave balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	u, err := q.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return workforce.ErrUserNotFound
	}
	return &workforce.InsufficientBalanceError{UserID: userID, Field: field, Available: u.Balance(field), Requested: -delta}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*workforce.User, error) {
	var (
		u                   workforce.User
		role                string
		hireDate, createdAt string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &hireDate,
		&u.AnnualLeaveBalance, &u.SickLeaveBalance, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	var c columns
	u.Role = workforce.Role(role)
	u.HireDate = c.date("hire_date", hireDate)
	u.CreatedAt = c.time("created_at", createdAt)
	if c.err != nil {
		return nil, fmt.Errorf("failed to scan user %s: %w", u.ID, c.err)
	}
	return &u, nil
}

// ----- time entries -----

const entryColumns = `id, user_id, date, check_in, break_start, break_end, check_out, total_hours`

func (q queries) GetEntryForDate(ctx context.Context, userID string, date workforce.Date) (*workforce.TimeEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE user_id = ? AND date = ?`,
		userID, date.String(),
	)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (q queries) CreateEntry(ctx context.Context, e workforce.TimeEntry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO time_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Date.String(), formatTime(e.CheckIn),
		nullTime(e.BreakStart), nullTime(e.BreakEnd), nullTime(e.CheckOut), nullFloat(e.TotalHours),
	)
	if isUniqueConstraintError(err) {
		return workforce.ErrAlreadyCheckedIn
	}
	if err != nil {
		return fmt.Errorf("failed to create time entry: %w", err)
	}
	return nil
}

func (q queries) UpdateEntry(ctx context.Context, id string, patch workforce.EntryPatch) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE time_entries SET
			break_start = COALESCE(?, break_start),
			break_end = COALESCE(?, break_end),
			check_out = COALESCE(?, check_out),
			total_hours = COALESCE(?, total_hours)
		WHERE id = ?`,
		nullTime(patch.BreakStart), nullTime(patch.BreakEnd), nullTime(patch.CheckOut),
		nullFloat(patch.TotalHours), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update time entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workforce.ErrAlreadyCheckedOutOrNotCheckedIn
	}
	return nil
}

func (q queries) ListEntriesInMonth(ctx context.Context, userID string, month time.Month, year int) ([]workforce.TimeEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM time_entries
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		userID, workforce.StartOfMonth(year, month).String(), workforce.EndOfMonth(year, month).String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	var entries []workforce.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanEntry(row scanner) (*workforce.TimeEntry, error) {
	var (
		e                              workforce.TimeEntry
		date, checkIn                  string
		breakStart, breakEnd, checkOut sql.NullString
		totalHours                     sql.NullFloat64
	)
	if err := row.Scan(&e.ID, &e.UserID, &date, &checkIn, &breakStart, &breakEnd, &checkOut, &totalHours); err != nil {
		return nil, err
	}
	var c columns
	e.Date = c.date("date", date)
	e.CheckIn = c.time("check_in", checkIn)
	e.BreakStart = c.nullTime("break_start", breakStart)
	e.BreakEnd = c.nullTime("break_end", breakEnd)
	e.CheckOut = c.nullTime("check_out", checkOut)
	if c.err != nil {
		return nil, fmt.Errorf("failed to scan time entry %s: %w", e.ID, c.err)
	}
	if totalHours.Valid {
		h := totalHours.Float64
		e.TotalHours = &h
	}
	return &e, nil
}

// ----- leave requests -----

const leaveColumns = `lr.id, lr.user_id, u.name, lr.leave_type, lr.start_date, lr.end_date,
	lr.days_requested, lr.status, lr.created_at, lr.decided_at`

const leaveFrom = ` FROM leave_requests lr JOIN users u ON u.id = lr.user_id `

func (q queries) CreateLeaveRequest(ctx context.Context, r workforce.LeaveRequest) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, user_id, leave_type, start_date, end_date, days_requested, status, created_at, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, string(r.Type), r.StartDate.String(), r.EndDate.String(),
		r.DaysRequested, string(r.Status), formatTime(r.CreatedAt), nullTime(r.DecidedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create leave request: %w", err)
	}
	return nil
}

func (q queries) GetLeaveByID(ctx context.Context, id string) (*workforce.LeaveRequest, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+leaveColumns+leaveFrom+`WHERE lr.id = ?`, id)
	l, err := scanLeave(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (q queries) UpdateLeaveStatus(ctx context.Context, id string, from, to workforce.LeaveStatus, decidedAt time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE leave_requests SET status = ?, decided_at = ? WHERE id = ? AND status = ?`,
		string(to), formatTime(decidedAt), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update leave status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var exists int
	err = q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leave_requests WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check leave request: %w", err)
	}
	if exists == 0 {
		return workforce.ErrLeaveNotFound
	}
	return workforce.ErrLeaveAlreadyProcessed
}

func (q queries) GetApprovedLeavesInMonth(ctx context.Context, userID string, month time.Month, year int) ([]workforce.LeaveRequest, error) {
	return q.queryLeaves(ctx, `SELECT `+leaveColumns+leaveFrom+`
		WHERE lr.user_id = ? AND lr.status = 'approved' AND lr.start_date >= ? AND lr.start_date <= ?
		ORDER BY lr.start_date`,
		userID, workforce.StartOfMonth(year, month).String(), workforce.EndOfMonth(year, month).String(),
	)
}

func (q queries) ListPendingLeaves(ctx context.Context) ([]workforce.LeaveRequest, error) {
	return q.queryLeaves(ctx, `SELECT `+leaveColumns+leaveFrom+`
		WHERE lr.status = 'pending'
		ORDER BY lr.created_at, lr.id`)
}

func (q queries) queryLeaves(ctx context.Context, query string, args ...any) ([]workforce.LeaveRequest, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var leaves []workforce.LeaveRequest
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		leaves = append(leaves, *l)
	}
	return leaves, rows.Err()
}

func scanLeave(row scanner) (*workforce.LeaveRequest, error) {
	var (
		l                             workforce.LeaveRequest
		leaveType, status             string
		startDate, endDate, createdAt string
		decidedAt                     sql.NullString
	)
	err := row.Scan(&l.ID, &l.UserID, &l.UserName, &leaveType, &startDate, &endDate,
		&l.DaysRequested, &status, &createdAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	l.Type = workforce.LeaveType(leaveType)
	l.Status = workforce.LeaveStatus(status)
	var c columns
	l.StartDate = c.date("start_date", startDate)
	l.EndDate = c.date("end_date", endDate)
	l.CreatedAt = c.time("created_at", createdAt)
	l.DecidedAt = c.nullTime("decided_at", decidedAt)
	if c.err != nil {
		return nil, fmt.Errorf("failed to scan leave request %s: %w", l.ID, c.err)
	}
	return &l, nil
}

// ----- profits -----

func (q queries) UpsertMonthlyProfit(ctx context.Context, p workforce.MonthlyProfit) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO monthly_profits (year, month, profit, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(year, month) DO UPDATE SET
			profit = excluded.profit,
			updated_at = excluded.updated_at`,
		p.Year, int(p.Month), p.Profit.String(), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert monthly profit: %w", err)
	}
	return nil
}

func (q queries) GetMonthlyProfit(ctx context.Context, month time.Month, year int) (*workforce.MonthlyProfit, error) {
	var (
		p      workforce.MonthlyProfit
		m      int
		profit string
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT year, month, profit FROM monthly_profits WHERE year = ? AND month = ?`,
		year, int(month),
	).Scan(&p.Year, &m, &profit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly profit: %w", err)
	}
	p.Month = time.Month(m)
	if p.Profit, err = decimal.NewFromString(profit); err != nil {
		return nil, fmt.Errorf("corrupt profit %q: %w", profit, err)
	}
	return &p, nil
}

func (q queries) GetYearlyProfits(ctx context.Context, year int) ([]workforce.MonthlyProfit, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT year, month, profit FROM monthly_profits WHERE year = ? ORDER BY month`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly profits: %w", err)
	}
	defer rows.Close()

	var profits []workforce.MonthlyProfit
	for rows.Next() {
		var (
			p      workforce.MonthlyProfit
			m      int
			profit string
		)
		if err := rows.Scan(&p.Year, &m, &profit); err != nil {
			return nil, fmt.Errorf("failed to scan monthly profit: %w", err)
		}
		p.Month = time.Month(m)
		if p.Profit, err = decimal.NewFromString(profit); err != nil {
			return nil, fmt.Errorf("corrupt profit %q: %w", profit, err)
		}
		profits = append(profits, p)
	}
	return profits, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// columns decodes TEXT date and time columns, keeping the first failure.
type columns struct {
	err error
}

func (c *columns) date(name, s string) workforce.Date {
	d, err := workforce.ParseDate(s)
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("corrupt %s %q: %w", name, s, err)
	}
	return d
}

func (c *columns) time(name, s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("corrupt %s %q: %w", name, s, err)
	}
	return t
}

func (c *columns) nullTime(name string, s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := c.time(name, s.String)
	return &t
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}
