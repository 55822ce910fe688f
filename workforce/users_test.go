package workforce_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workforce-engine/workforce"
)

func TestDirectory_Register(t *testing.T) {
	// GIVEN: A policy granting 15 annual and 10 sick days
	st := newTestStore()
	dir := workforce.NewDirectory(st)
	dir.Clock = newClock(at(2025, time.February, 3, 9, 0))
	dir.Policy.AnnualLeaveDays = 15
	dir.Policy.SickLeaveDays = 10
	ctx := context.Background()

	// WHEN: A user registers with untidy input and no role or hire date
	u, err := dir.Register(ctx, workforce.NewUser{Name: "  Thandi  ", Email: " Thandi@Example.COM "})
	require.NoError(t, err)

	// THEN: Input is normalised and defaults are applied
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Thandi", u.Name)
	assert.Equal(t, "thandi@example.com", u.Email)
	assert.Equal(t, workforce.RoleEmployee, u.Role)
	assert.Equal(t, date(2025, time.February, 3), u.HireDate)
	assert.Equal(t, 15, u.AnnualLeaveBalance)
	assert.Equal(t, 10, u.SickLeaveBalance)

	got, err := dir.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}

func TestDirectory_RegisterRejectsDuplicateEmail(t *testing.T) {
	dir := workforce.NewDirectory(newTestStore())
	ctx := context.Background()

	_, err := dir.Register(ctx, workforce.NewUser{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = dir.Register(ctx, workforce.NewUser{Name: "B", Email: "A@example.com"})
	assert.ErrorIs(t, err, workforce.ErrDuplicateUser)
}

func TestDirectory_RegisterValidation(t *testing.T) {
	dir := workforce.NewDirectory(newTestStore())
	ctx := context.Background()

	tests := []struct {
		name string
		in   workforce.NewUser
	}{
		{"missing name", workforce.NewUser{Email: "x@example.com"}},
		{"bad email", workforce.NewUser{Name: "X", Email: "not-an-email"}},
		{"missing email", workforce.NewUser{Name: "X"}},
		{"display name form", workforce.NewUser{Name: "X", Email: "X <x@example.com>"}},
		{"unknown role", workforce.NewUser{Name: "X", Email: "x@example.com", Role: "contractor"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dir.Register(ctx, tt.in)
			assert.ErrorIs(t, err, workforce.ErrInvalidInput)
		})
	}
}

func TestDirectory_HireDateUsesLocation(t *testing.T) {
	// GIVEN: 23:30 UTC on the 3rd is already the 4th at UTC+2
	dir := workforce.NewDirectory(newTestStore())
	dir.Clock = newClock(at(2025, time.February, 3, 23, 30))
	dir.Location = time.FixedZone("UTC+2", 2*60*60)

	// WHEN: A user registers without a hire date
	u, err := dir.Register(context.Background(), workforce.NewUser{Name: "Lindiwe", Email: "lindiwe@example.com"})
	require.NoError(t, err)

	// THEN: The hire date is today in the configured zone
	assert.Equal(t, date(2025, time.February, 4), u.HireDate)
}

func TestDirectory_GetUnknown(t *testing.T) {
	dir := workforce.NewDirectory(newTestStore())

	_, err := dir.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, workforce.ErrUserNotFound)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, workforce.DefaultPolicy().Validate())

	p := workforce.DefaultPolicy()
	p.MonthlyOffCap = -1
	assert.ErrorIs(t, p.Validate(), workforce.ErrInvalidInput)

	p = workforce.DefaultPolicy()
	p.RedundancyThresholdHours = -0.5
	assert.ErrorIs(t, p.Validate(), workforce.ErrInvalidInput)
}
