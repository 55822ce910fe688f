package workforce_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/workforce"
	"github.com/warp/workforce-engine/workforce/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeClock is a settable workforce.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func date(year int, month time.Month, day int) workforce.Date {
	return workforce.NewDate(year, month, day)
}

func newTestStore() *store.Memory {
	return store.NewMemory()
}

// addUser stores a user with default balances.
func addUser(t *testing.T, st workforce.UserStore, id, name string, role workforce.Role) workforce.User {
	t.Helper()
	u := workforce.User{
		ID:                 id,
		Name:               name,
		Email:              id + "@example.com",
		Role:               role,
		HireDate:           date(2024, time.January, 1),
		AnnualLeaveBalance: workforce.DefaultAnnualLeaveDays,
		SickLeaveBalance:   workforce.DefaultSickLeaveDays,
		CreatedAt:          at(2024, time.January, 1, 9, 0),
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

// addWorkedDay stores a closed entry of the given hours.
func addWorkedDay(t *testing.T, st workforce.TimeEntryStore, userID string, d workforce.Date, hours float64) {
	t.Helper()
	in := d.Time.Add(8 * time.Hour)
	out := in.Add(time.Duration(hours * float64(time.Hour)))
	e := workforce.TimeEntry{
		ID:         userID + "-" + d.String(),
		UserID:     userID,
		Date:       d,
		CheckIn:    in,
		CheckOut:   &out,
		TotalHours: &hours,
	}
	require.NoError(t, st.CreateEntry(context.Background(), e))
}

func balanceOf(t *testing.T, st workforce.UserStore, userID string) (annual, sick int) {
	t.Helper()
	u, err := st.FindUserByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u.AnnualLeaveBalance, u.SickLeaveBalance
}
