package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/workforce"
	"github.com/warp/workforce-engine/workforce/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) workforce.TxStore {
		return newTestStore(t)
	})
}

func TestNew_FileReopen(t *testing.T) {
	// GIVEN: A file-backed store with one user
	path := filepath.Join(t.TempDir(), "workforce.db")
	s, err := New(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, workforce.User{
		ID: "u1", Name: "Thandi", Email: "u1@example.com", Role: workforce.RoleEmployee,
		HireDate: workforce.NewDate(2024, time.January, 1), AnnualLeaveBalance: 21, SickLeaveBalance: 30,
		CreatedAt: time.Now(),
	}))
	require.NoError(t, s.Close())

	// WHEN: It is reopened, migrations run again
	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	// THEN: Data survives and the schema is idempotent
	u, err := s.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Thandi", u.Name)
	assert.NoError(t, s.Ping(ctx))
}

func TestCheckConstraintRejectsNegativeBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.CreateUser(ctx, workforce.User{
		ID: "u1", Name: "X", Email: "x@example.com", Role: workforce.RoleEmployee,
		HireDate: workforce.NewDate(2024, time.January, 1), AnnualLeaveBalance: -1,
		CreatedAt: time.Now(),
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, workforce.ErrDuplicateUser)
}

func TestEntryRequiresKnownUser(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateEntry(context.Background(), workforce.TimeEntry{
		ID: "e1", UserID: "ghost", Date: workforce.NewDate(2025, time.March, 10), CheckIn: time.Now(),
	})
	assert.Error(t, err, "foreign keys are enforced")
}

func TestCorruptColumnsSurfaceAsErrors(t *testing.T) {
	// GIVEN: Rows whose date and time columns were damaged outside the store
	s := newTestStore(t)
	ctx := context.Background()
	day := workforce.NewDate(2025, time.March, 10)

	require.NoError(t, s.CreateUser(ctx, workforce.User{
		ID: "u1", Name: "Thandi", Email: "u1@example.com", Role: workforce.RoleEmployee,
		HireDate: workforce.NewDate(2024, time.January, 1), AnnualLeaveBalance: 21, SickLeaveBalance: 30,
		CreatedAt: time.Now(),
	}))
	require.NoError(t, s.CreateEntry(ctx, workforce.TimeEntry{
		ID: "e1", UserID: "u1", Date: day, CheckIn: day.Time.Add(8 * time.Hour),
	}))
	require.NoError(t, s.CreateLeaveRequest(ctx, workforce.LeaveRequest{
		ID: "l1", UserID: "u1", Type: workforce.LeaveAnnual, StartDate: day, EndDate: day,
		DaysRequested: 1, Status: workforce.StatusPending, CreatedAt: time.Now(),
	}))

	_, err := s.db.Exec(`UPDATE time_entries SET check_in = 'half past eight' WHERE id = 'e1'`)
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE leave_requests SET start_date = '0000-00-00' WHERE id = 'l1'`)
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE users SET hire_date = 'soon' WHERE id = 'u1'`)
	require.NoError(t, err)

	// THEN: Reads fail instead of yielding zero values
	_, err = s.GetEntryForDate(ctx, "u1", day)
	assert.ErrorContains(t, err, "corrupt check_in")

	_, err = s.GetLeaveByID(ctx, "l1")
	assert.ErrorContains(t, err, "corrupt start_date")

	_, err = s.FindUserByID(ctx, "u1")
	assert.ErrorContains(t, err, "corrupt hire_date")

	_, err = s.ListUsers(ctx)
	assert.Error(t, err)
}
