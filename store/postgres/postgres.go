/*
Package postgres provides a PostgreSQL-backed workforce.TxStore.

Same schema and contract as store/sqlite, using native types:
  DATE for calendar days, TIMESTAMPTZ for instants, NUMERIC for profits.

CONCURRENCY:
  No in-process lock. Row-level locking plus the compare-and-swap and
  conditional-debit statements keep approvals single-shot under
  READ COMMITTED: a second UPDATE waits on the row lock, then re-evaluates
  its WHERE clause against the committed row.

ERROR MAPPING:
  23505 unique_violation -> ErrDuplicateUser / ErrAlreadyCheckedIn
  pgx.ErrNoRows          -> (nil, nil) for lookups

SEE ALSO:
  - workforce/store.go: Interface contract
  - store/sqlite: SQLite implementation
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/workforce"
)

// Store implements workforce.TxStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	queries
}

var _ workforce.TxStore = (*Store)(nil)

// Options tunes the connection pool. Zero values keep pgxpool defaults.
type Options struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// New connects to databaseURL, verifies the connection and migrates the schema.
func New(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{pool: pool, queries: queries{db: pool}}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL CHECK (role IN ('employee', 'manager', 'admin')),
		hire_date DATE NOT NULL,
		annual_leave_balance INTEGER NOT NULL DEFAULT 21 CHECK (annual_leave_balance >= 0),
		sick_leave_balance INTEGER NOT NULL DEFAULT 30 CHECK (sick_leave_balance >= 0),
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		date DATE NOT NULL,
		check_in TIMESTAMPTZ NOT NULL,
		break_start TIMESTAMPTZ,
		break_end TIMESTAMPTZ,
		check_out TIMESTAMPTZ,
		total_hours DOUBLE PRECISION CHECK (total_hours IS NULL OR total_hours >= 0),
		UNIQUE (user_id, date)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		leave_type TEXT NOT NULL CHECK (leave_type IN ('annual', 'sick')),
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		days_requested INTEGER NOT NULL CHECK (days_requested >= 1),
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		created_at TIMESTAMPTZ NOT NULL,
		decided_at TIMESTAMPTZ,
		CHECK (end_date >= start_date)
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_user_status_start
		ON leave_requests(user_id, status, start_date);

	CREATE TABLE IF NOT EXISTS monthly_profits (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		profit NUMERIC NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (year, month)
	);

	-- earlier schemas rounded profits to cents
	ALTER TABLE monthly_profits ALTER COLUMN profit TYPE NUMERIC;
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(workforce.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(queries{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// =============================================================================
// QUERIES - Shared by the pool and transactions
// =============================================================================

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db dbtx
}

// ----- users -----

const userColumns = `id, name, email, role, hire_date, annual_leave_balance, sick_leave_balance, created_at`

func (q queries) CreateUser(ctx context.Context, u workforce.User) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Email, string(u.Role), u.HireDate.Time,
		u.AnnualLeaveBalance, u.SickLeaveBalance, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return workforce.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (q queries) FindUserByID(ctx context.Context, id string) (*workforce.User, error) {
	return q.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (q queries) FindUserByEmail(ctx context.Context, email string) (*workforce.User, error) {
	return q.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (q queries) findUser(ctx context.Context, query string, arg string) (*workforce.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

func (q queries) ListUsers(ctx context.Context) ([]workforce.User, error) {
	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []workforce.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

var balanceUpdates = map[workforce.BalanceField]string{
	workforce.BalanceAnnual: `UPDATE users SET annual_leave_balance = annual_leave_balance + $1
		WHERE id = $2 AND annual_leave_balance + $1 >= 0`,
	workforce.BalanceSick: `UPDATE users SET sick_leave_balance = sick_leave_balance + $1
		WHERE id = $2 AND sick_leave_balance + $1 >= 0`,
}

func (q queries) UpdateLeaveBalance(ctx context.Context, userID string, field workforce.BalanceField, delta int) error {
	stmt, ok := balanceUpdates[field]
	if !ok {
		return fmt.Errorf("%w: unknown balance %q", workforce.ErrInvalidLeaveType, field)
	}
	tag, err := q.db.Exec(ctx, stmt, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to update leave balance: %w", err)
	}
	if tag.RowsAffected() == 1 {
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

func scanUser(row pgx.Row) (*workforce.User, error) {
	var (
		u        workforce.User
		role     string
		hireDate time.Time
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &hireDate,
		&u.AnnualLeaveBalance, &u.SickLeaveBalance, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = workforce.Role(role)
	u.HireDate = dateOf(hireDate)
	return &u, nil
}

// ----- time entries -----

const entryColumns = `id, user_id, date, check_in, break_start, break_end, check_out, total_hours`

func (q queries) GetEntryForDate(ctx context.Context, userID string, date workforce.Date) (*workforce.TimeEntry, error) {
	e, err := scanEntry(q.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE user_id = $1 AND date = $2`,
		userID, date.Time,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}
	return e, nil
}

func (q queries) CreateEntry(ctx context.Context, e workforce.TimeEntry) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO time_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, e.Date.Time, e.CheckIn, e.BreakStart, e.BreakEnd, e.CheckOut, e.TotalHours,
	)
	if isUniqueViolation(err) {
		return workforce.ErrAlreadyCheckedIn
	}
	if err != nil {
		return fmt.Errorf("failed to create time entry: %w", err)
	}
	return nil
}

func (q queries) UpdateEntry(ctx context.Context, id string, patch workforce.EntryPatch) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE time_entries SET
			break_start = COALESCE($1, break_start),
			break_end = COALESCE($2, break_end),
			check_out = COALESCE($3, check_out),
			total_hours = COALESCE($4, total_hours)
		WHERE id = $5`,
		patch.BreakStart, patch.BreakEnd, patch.CheckOut, patch.TotalHours, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update time entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workforce.ErrAlreadyCheckedOutOrNotCheckedIn
	}
	return nil
}

func (q queries) ListEntriesInMonth(ctx context.Context, userID string, month time.Month, year int) ([]workforce.TimeEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+entryColumns+` FROM time_entries
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`,
		userID, workforce.StartOfMonth(year, month).Time, workforce.EndOfMonth(year, month).Time,
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

func scanEntry(row pgx.Row) (*workforce.TimeEntry, error) {
	var (
		e    workforce.TimeEntry
		date time.Time
	)
	err := row.Scan(&e.ID, &e.UserID, &date, &e.CheckIn, &e.BreakStart, &e.BreakEnd, &e.CheckOut, &e.TotalHours)
	if err != nil {
		return nil, err
	}
	e.Date = dateOf(date)
	return &e, nil
}

// ----- leave requests -----

const leaveSelect = `SELECT lr.id, lr.user_id, u.name, lr.leave_type, lr.start_date, lr.end_date,
	lr.days_requested, lr.status, lr.created_at, lr.decided_at
	FROM leave_requests lr JOIN users u ON u.id = lr.user_id `

func (q queries) CreateLeaveRequest(ctx context.Context, r workforce.LeaveRequest) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO leave_requests
		(id, user_id, leave_type, start_date, end_date, days_requested, status, created_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.UserID, string(r.Type), r.StartDate.Time, r.EndDate.Time,
		r.DaysRequested, string(r.Status), r.CreatedAt, r.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create leave request: %w", err)
	}
	return nil
}

func (q queries) GetLeaveByID(ctx context.Context, id string) (*workforce.LeaveRequest, error) {
	l, err := scanLeave(q.db.QueryRow(ctx, leaveSelect+`WHERE lr.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leave request: %w", err)
	}
	return l, nil
}

func (q queries) UpdateLeaveStatus(ctx context.Context, id string, from, to workforce.LeaveStatus, decidedAt time.Time) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE leave_requests SET status = $1, decided_at = $2 WHERE id = $3 AND status = $4`,
		string(to), decidedAt, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update leave status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leave_requests WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check leave request: %w", err)
	}
	if !exists {
		return workforce.ErrLeaveNotFound
	}
	return workforce.ErrLeaveAlreadyProcessed
}

func (q queries) GetApprovedLeavesInMonth(ctx context.Context, userID string, month time.Month, year int) ([]workforce.LeaveRequest, error) {
	return q.queryLeaves(ctx, leaveSelect+`
		WHERE lr.user_id = $1 AND lr.status = 'approved' AND lr.start_date BETWEEN $2 AND $3
		ORDER BY lr.start_date`,
		userID, workforce.StartOfMonth(year, month).Time, workforce.EndOfMonth(year, month).Time,
	)
}

func (q queries) ListPendingLeaves(ctx context.Context) ([]workforce.LeaveRequest, error) {
	return q.queryLeaves(ctx, leaveSelect+`
		WHERE lr.status = 'pending'
		ORDER BY lr.created_at, lr.id`)
}

func (q queries) queryLeaves(ctx context.Context, query string, args ...any) ([]workforce.LeaveRequest, error) {
	rows, err := q.db.Query(ctx, query, args...)
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

func scanLeave(row pgx.Row) (*workforce.LeaveRequest, error) {
	var (
		l                  workforce.LeaveRequest
		leaveType, status  string
		startDate, endDate time.Time
	)
	err := row.Scan(&l.ID, &l.UserID, &l.UserName, &leaveType, &startDate, &endDate,
		&l.DaysRequested, &status, &l.CreatedAt, &l.DecidedAt)
	if err != nil {
		return nil, err
	}
	l.Type = workforce.LeaveType(leaveType)
	l.Status = workforce.LeaveStatus(status)
	l.StartDate = dateOf(startDate)
	l.EndDate = dateOf(endDate)
	return &l, nil
}

// ----- profits -----

func (q queries) UpsertMonthlyProfit(ctx context.Context, p workforce.MonthlyProfit) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO monthly_profits (year, month, profit, updated_at)
		VALUES ($1, $2, $3::numeric, now())
		ON CONFLICT (year, month) DO UPDATE SET
			profit = EXCLUDED.profit,
			updated_at = EXCLUDED.updated_at`,
		p.Year, int(p.Month), p.Profit.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert monthly profit: %w", err)
	}
	return nil
}

func (q queries) GetMonthlyProfit(ctx context.Context, month time.Month, year int) (*workforce.MonthlyProfit, error) {
	p, err := scanProfit(q.db.QueryRow(ctx,
		`SELECT year, month, profit::text FROM monthly_profits WHERE year = $1 AND month = $2`,
		year, int(month),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly profit: %w", err)
	}
	return p, nil
}

func (q queries) GetYearlyProfits(ctx context.Context, year int) ([]workforce.MonthlyProfit, error) {
	rows, err := q.db.Query(ctx,
		`SELECT year, month, profit::text FROM monthly_profits WHERE year = $1 ORDER BY month`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly profits: %w", err)
	}
	defer rows.Close()

	var profits []workforce.MonthlyProfit
	for rows.Next() {
		p, err := scanProfit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly profit: %w", err)
		}
		profits = append(profits, *p)
	}
	return profits, rows.Err()
}

func scanProfit(row pgx.Row) (*workforce.MonthlyProfit, error) {
	var (
		p      workforce.MonthlyProfit
		month  int
		profit string
	)
	if err := row.Scan(&p.Year, &month, &profit); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(profit)
	if err != nil {
		return nil, fmt.Errorf("corrupt profit %q: %w", profit, err)
	}
	p.Month = time.Month(month)
	p.Profit = amount
	return &p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func dateOf(t time.Time) workforce.Date {
	return workforce.NewDate(t.Year(), t.Month(), t.Day())
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
