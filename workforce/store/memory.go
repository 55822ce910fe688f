// Package store provides an in-memory workforce.TxStore.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/workforce-engine/workforce"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a workforce.TxStore kept in maps. Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	state state
}

type entryKey struct {
	UserID string
	Date   string
}

type profitKey struct {
	Year  int
	Month time.Month
}

type state struct {
	users      map[string]workforce.User
	entries    map[string]workforce.TimeEntry
	entryByDay map[entryKey]string
	leaves     map[string]workforce.LeaveRequest
	profits    map[profitKey]workforce.MonthlyProfit
}

func newState() state {
	return state{
		users:      make(map[string]workforce.User),
		entries:    make(map[string]workforce.TimeEntry),
		entryByDay: make(map[entryKey]string),
		leaves:     make(map[string]workforce.LeaveRequest),
		profits:    make(map[profitKey]workforce.MonthlyProfit),
	}
}

// clone copies every map. Pointer fields of entries are never mutated in
// place, so sharing them between snapshots is safe.
func (s state) clone() state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.entryByDay {
		c.entryByDay[k] = v
	}
	for k, v := range s.leaves {
		c.leaves[k] = v
	}
	for k, v := range s.profits {
		c.profits[k] = v
	}
	return c
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{state: newState()}
}

var _ workforce.TxStore = (*Memory)(nil)

// WithTx executes fn with exclusive access.
// Simulated with a snapshot, restored when fn returns an error.
func (m *Memory) WithTx(ctx context.Context, fn func(workforce.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&view{s: &m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *Memory) read(fn func(v *view)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(&view{s: &m.state})
}

func (m *Memory) write(fn func(v *view) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&view{s: &m.state})
}

// =============================================================================
// LOCKED DELEGATES
// =============================================================================

func (m *Memory) CreateUser(ctx context.Context, u workforce.User) error {
	return m.write(func(v *view) error { return v.CreateUser(ctx, u) })
}

func (m *Memory) FindUserByID(ctx context.Context, id string) (u *workforce.User, err error) {
	m.read(func(v *view) { u, err = v.FindUserByID(ctx, id) })
	return
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (u *workforce.User, err error) {
	m.read(func(v *view) { u, err = v.FindUserByEmail(ctx, email) })
	return
}

func (m *Memory) ListUsers(ctx context.Context) (us []workforce.User, err error) {
	m.read(func(v *view) { us, err = v.ListUsers(ctx) })
	return
}

func (m *Memory) UpdateLeaveBalance(ctx context.Context, userID string, field workforce.BalanceField, delta int) error {
	return m.write(func(v *view) error { return v.UpdateLeaveBalance(ctx, userID, field, delta) })
}

func (m *Memory) GetEntryForDate(ctx context.Context, userID string, date workforce.Date) (e *workforce.TimeEntry, err error) {
	m.read(func(v *view) { e, err = v.GetEntryForDate(ctx, userID, date) })
	return
}

func (m *Memory) CreateEntry(ctx context.Context, e workforce.TimeEntry) error {
	return m.write(func(v *view) error { return v.CreateEntry(ctx, e) })
}

func (m *Memory) UpdateEntry(ctx context.Context, id string, patch workforce.EntryPatch) error {
	return m.write(func(v *view) error { return v.UpdateEntry(ctx, id, patch) })
}

func (m *Memory) ListEntriesInMonth(ctx context.Context, userID string, month time.Month, year int) (es []workforce.TimeEntry, err error) {
	m.read(func(v *view) { es, err = v.ListEntriesInMonth(ctx, userID, month, year) })
	return
}

func (m *Memory) CreateLeaveRequest(ctx context.Context, r workforce.LeaveRequest) error {
	return m.write(func(v *view) error { return v.CreateLeaveRequest(ctx, r) })
}

func (m *Memory) GetLeaveByID(ctx context.Context, id string) (l *workforce.LeaveRequest, err error) {
	m.read(func(v *view) { l, err = v.GetLeaveByID(ctx, id) })
	return
}

func (m *Memory) UpdateLeaveStatus(ctx context.Context, id string, from, to workforce.LeaveStatus, decidedAt time.Time) error {
	return m.write(func(v *view) error { return v.UpdateLeaveStatus(ctx, id, from, to, decidedAt) })
}

func (m *Memory) GetApprovedLeavesInMonth(ctx context.Context, userID string, month time.Month, year int) (ls []workforce.LeaveRequest, err error) {
	m.read(func(v *view) { ls, err = v.GetApprovedLeavesInMonth(ctx, userID, month, year) })
	return
}

func (m *Memory) ListPendingLeaves(ctx context.Context) (ls []workforce.LeaveRequest, err error) {
	m.read(func(v *view) { ls, err = v.ListPendingLeaves(ctx) })
	return
}

func (m *Memory) UpsertMonthlyProfit(ctx context.Context, p workforce.MonthlyProfit) error {
	return m.write(func(v *view) error { return v.UpsertMonthlyProfit(ctx, p) })
}

func (m *Memory) GetMonthlyProfit(ctx context.Context, month time.Month, year int) (p *workforce.MonthlyProfit, err error) {
	m.read(func(v *view) { p, err = v.GetMonthlyProfit(ctx, month, year) })
	return
}

func (m *Memory) GetYearlyProfits(ctx context.Context, year int) (ps []workforce.MonthlyProfit, err error) {
	m.read(func(v *view) { ps, err = v.GetYearlyProfits(ctx, year) })
	return
}

// =============================================================================
// VIEW - Unlocked operations on the state, shared by WithTx and the delegates
// =============================================================================

type view struct {
	s *state
}

func (v *view) CreateUser(_ context.Context, u workforce.User) error {
	if _, ok := v.s.users[u.ID]; ok {
		return workforce.ErrDuplicateUser
	}
	for _, existing := range v.s.users {
		if existing.Email == u.Email {
			return workforce.ErrDuplicateUser
		}
	}
	v.s.users[u.ID] = u
	return nil
}

func (v *view) FindUserByID(_ context.Context, id string) (*workforce.User, error) {
	u, ok := v.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (v *view) FindUserByEmail(_ context.Context, email string) (*workforce.User, error) {
	for _, u := range v.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (v *view) ListUsers(_ context.Context) ([]workforce.User, error) {
	users := make([]workforce.User, 0, len(v.s.users))
	for _, u := range v.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (v *view) UpdateLeaveBalance(_ context.Context, userID string, field workforce.BalanceField, delta int) error {
	u, ok := v.s.users[userID]
	if !ok {
		return workforce.ErrUserNotFound
	}
	var balance *int
	switch field {
	case workforce.BalanceAnnual:
		balance = &u.AnnualLeaveBalance
	case workforce.BalanceSick:
		balance = &u.SickLeaveBalance
	default:
		return workforce.ErrInvalidLeaveType
	}
	if *balance+delta < 0 {
		return &workforce.InsufficientBalanceError{UserID: userID, Field: field, Available: *balance, Requested: -delta}
	}
	*balance += delta
	v.s.users[userID] = u
	return nil
}

func (v *view) GetEntryForDate(_ context.Context, userID string, date workforce.Date) (*workforce.TimeEntry, error) {
	id, ok := v.s.entryByDay[entryKey{UserID: userID, Date: date.String()}]
	if !ok {
		return nil, nil
	}
	e := v.s.entries[id]
	return &e, nil
}

func (v *view) CreateEntry(_ context.Context, e workforce.TimeEntry) error {
	k := entryKey{UserID: e.UserID, Date: e.Date.String()}
	if _, ok := v.s.entryByDay[k]; ok {
		return workforce.ErrAlreadyCheckedIn
	}
	v.s.entries[e.ID] = e
	v.s.entryByDay[k] = e.ID
	return nil
}

func (v *view) UpdateEntry(_ context.Context, id string, patch workforce.EntryPatch) error {
	e, ok := v.s.entries[id]
	if !ok {
		return workforce.ErrAlreadyCheckedOutOrNotCheckedIn
	}
	patch.Apply(&e)
	v.s.entries[id] = e
	return nil
}

func (v *view) ListEntriesInMonth(_ context.Context, userID string, month time.Month, year int) ([]workforce.TimeEntry, error) {
	var out []workforce.TimeEntry
	for _, e := range v.s.entries {
		if e.UserID == userID && e.Date.InMonth(month, year) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (v *view) CreateLeaveRequest(_ context.Context, r workforce.LeaveRequest) error {
	v.s.leaves[r.ID] = r
	return nil
}

func (v *view) GetLeaveByID(_ context.Context, id string) (*workforce.LeaveRequest, error) {
	l, ok := v.s.leaves[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (v *view) UpdateLeaveStatus(_ context.Context, id string, from, to workforce.LeaveStatus, decidedAt time.Time) error {
	l, ok := v.s.leaves[id]
	if !ok {
		return workforce.ErrLeaveNotFound
	}
	if l.Status != from {
		return workforce.ErrLeaveAlreadyProcessed
	}
	l.Status = to
	l.DecidedAt = &decidedAt
	v.s.leaves[id] = l
	return nil
}

func (v *view) GetApprovedLeavesInMonth(_ context.Context, userID string, month time.Month, year int) ([]workforce.LeaveRequest, error) {
	var out []workforce.LeaveRequest
	for _, l := range v.s.leaves {
		if l.UserID == userID && l.Status == workforce.StatusApproved && l.StartDate.InMonth(month, year) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (v *view) ListPendingLeaves(_ context.Context) ([]workforce.LeaveRequest, error) {
	var out []workforce.LeaveRequest
	for _, l := range v.s.leaves {
		if l.Status != workforce.StatusPending {
			continue
		}
		if u, ok := v.s.users[l.UserID]; ok {
			l.UserName = u.Name
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (v *view) UpsertMonthlyProfit(_ context.Context, p workforce.MonthlyProfit) error {
	v.s.profits[profitKey{Year: p.Year, Month: p.Month}] = p
	return nil
}

func (v *view) GetMonthlyProfit(_ context.Context, month time.Month, year int) (*workforce.MonthlyProfit, error) {
	p, ok := v.s.profits[profitKey{Year: year, Month: month}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (v *view) GetYearlyProfits(_ context.Context, year int) ([]workforce.MonthlyProfit, error) {
	var out []workforce.MonthlyProfit
	for k, p := range v.s.profits {
		if k.Year == year {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}
