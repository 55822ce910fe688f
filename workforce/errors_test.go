package workforce_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/workforce-engine/workforce"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want workforce.Kind
	}{
		{nil, workforce.KindNone},
		{workforce.ErrAlreadyCheckedIn, workforce.KindAlreadyCheckedIn},
		{fmt.Errorf("wrapped: %w", workforce.ErrLeaveWindowPassed), workforce.KindLeaveWindowPassed},
		{&workforce.InsufficientBalanceError{Field: workforce.BalanceAnnual}, workforce.KindInsufficientAnnualBalance},
		{&workforce.InsufficientBalanceError{Field: workforce.BalanceSick}, workforce.KindInsufficientSickBalance},
		{&workforce.MonthlyCapError{Cap: 2}, workforce.KindMonthlyOffLimitExceeded},
		{errors.New("disk on fire"), workforce.KindStoreUnavailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, workforce.KindOf(tt.err), "%v", tt.err)
	}
}

func TestIsBusinessRule(t *testing.T) {
	assert.True(t, workforce.IsBusinessRule(workforce.ErrLeaveAlreadyProcessed))
	assert.True(t, workforce.IsBusinessRule(&workforce.MonthlyCapError{}))
	assert.False(t, workforce.IsBusinessRule(nil))
	assert.False(t, workforce.IsBusinessRule(workforce.ErrStoreUnavailable))
	assert.False(t, workforce.IsBusinessRule(errors.New("connection reset")))
}

func TestStructuredErrorMessages(t *testing.T) {
	balErr := &workforce.InsufficientBalanceError{Field: workforce.BalanceSick, Available: 1, Requested: 3}
	assert.Equal(t, "insufficient sick leave balance: available 1, requested 3", balErr.Error())

	capErr := &workforce.MonthlyCapError{Month: "2025-04", Taken: 1, Requested: 2, Cap: 2}
	assert.Contains(t, capErr.Error(), "2025-04")
	assert.ErrorIs(t, capErr, workforce.ErrMonthlyOffLimitExceeded)
}
