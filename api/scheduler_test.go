package api

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/workforce"
)

func seedPendingLeave(t *testing.T, env *testEnv, id string, start workforce.Date) {
	t.Helper()
	require.NoError(t, env.store.CreateLeaveRequest(context.Background(), workforce.LeaveRequest{
		ID:            id,
		UserID:        "emp-1",
		Type:          workforce.LeaveAnnual,
		StartDate:     start,
		EndDate:       start,
		DaysRequested: 1,
		Status:        workforce.StatusPending,
		CreatedAt:     env.clock.Now(),
	}))
}

func leaveStatus(t *testing.T, env *testEnv, id string) workforce.LeaveStatus {
	t.Helper()
	l, err := env.store.GetLeaveByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l.Status
}

func TestExpiryScheduler_RunNow(t *testing.T) {
	// GIVEN: One pending request that started yesterday, one starting today
	env := newTestEnv(t)
	seedPendingLeave(t, env, "stale", workforce.NewDate(2025, time.March, 31))
	seedPendingLeave(t, env, "today", workforce.NewDate(2025, time.April, 1))

	s := NewExpiryScheduler(env.handler.Leave, env.handler.Metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// WHEN: A sweep runs
	n := s.RunNow()

	// THEN: Only the stale one is rejected and counted
	assert.Equal(t, 1, n)
	assert.Equal(t, workforce.StatusRejected, leaveStatus(t, env, "stale"))
	assert.Equal(t, workforce.StatusPending, leaveStatus(t, env, "today"))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.handler.Metrics.leavesExpired))

	// Idempotent
	assert.Zero(t, s.RunNow())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.handler.Metrics.leavesExpired))
}

func TestExpiryScheduler_StartStop(t *testing.T) {
	env := newTestEnv(t)
	seedPendingLeave(t, env, "stale", workforce.NewDate(2025, time.March, 30))

	s := NewExpiryScheduler(env.handler.Leave, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Start()
	s.Start()

	// The first sweep runs immediately on start
	assert.Eventually(t, func() bool {
		l, err := env.store.GetLeaveByID(context.Background(), "stale")
		return err == nil && l != nil && l.Status == workforce.StatusRejected
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestExpiryScheduler_Disabled(t *testing.T) {
	env := newTestEnv(t)
	seedPendingLeave(t, env, "stale", workforce.NewDate(2025, time.March, 30))

	s := NewExpiryScheduler(env.handler.Leave, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.CheckInterval = 0
	s.Start()
	s.Stop()

	assert.Equal(t, workforce.StatusPending, leaveStatus(t, env, "stale"))
}
