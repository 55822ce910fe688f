package workforce

import "fmt"

// Policy holds the tunable thresholds of the engine.
type Policy struct {
	// MonthlyOffCap is the most leave days a user may take starting in one calendar month.
	MonthlyOffCap int
	// RedundancyThresholdHours is the monthly worked-hours floor (40h/week * 4 weeks).
	RedundancyThresholdHours float64
	// AnnualLeaveDays and SickLeaveDays seed the balances of new users.
	AnnualLeaveDays int
	SickLeaveDays   int
}

// DefaultPolicy returns the statutory defaults.
func DefaultPolicy() Policy {
	return Policy{
		MonthlyOffCap:            2,
		RedundancyThresholdHours: 160,
		AnnualLeaveDays:          DefaultAnnualLeaveDays,
		SickLeaveDays:            DefaultSickLeaveDays,
	}
}

// Validate rejects nonsensical thresholds.
func (p Policy) Validate() error {
	switch {
	case p.MonthlyOffCap < 0:
		return fmt.Errorf("%w: monthly off cap must not be negative", ErrInvalidInput)
	case p.RedundancyThresholdHours < 0:
		return fmt.Errorf("%w: redundancy threshold must not be negative", ErrInvalidInput)
	case p.AnnualLeaveDays < 0 || p.SickLeaveDays < 0:
		return fmt.Errorf("%w: leave entitlements must not be negative", ErrInvalidInput)
	}
	return nil
}
