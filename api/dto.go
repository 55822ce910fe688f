/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the workforce domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags and are checked by
  decodeAndValidate before reaching the engine. Business rules (balances,
  monthly cap, lifecycle) stay in the workforce package.

SEE ALSO:
  - handlers.go: Uses these types
  - workforce/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/workforce"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateUserRequest registers a user.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=employee manager admin"`
	HireDate string `json:"hire_date" validate:"omitempty,datetime=2006-01-02"`
}

// ApplyLeaveRequest submits a leave request for the caller.
type ApplyLeaveRequest struct {
	LeaveType string `json:"leave_type" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// RecordProfitRequest upserts a monthly profit figure.
type RecordProfitRequest struct {
	Month  int              `json:"month" validate:"required,min=1,max=12"`
	Year   int              `json:"year" validate:"required,min=1"`
	Profit *decimal.Decimal `json:"profit" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Role               string `json:"role"`
	HireDate           string `json:"hire_date"`
	AnnualLeaveBalance int    `json:"annual_leave_balance"`
	SickLeaveBalance   int    `json:"sick_leave_balance"`
	CreatedAt          string `json:"created_at,omitempty"`
}

// TimeEntryDTO represents a day's attendance entry.
type TimeEntryDTO struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Date       string     `json:"date"`
	CheckIn    time.Time  `json:"check_in"`
	BreakStart *time.Time `json:"break_start"`
	BreakEnd   *time.Time `json:"break_end"`
	CheckOut   *time.Time `json:"check_out"`
	TotalHours *float64   `json:"total_hours"`
	State      string     `json:"state"`
}

// TodayDTO is the caller's attendance status for today.
type TodayDTO struct {
	State string        `json:"state"`
	Entry *TimeEntryDTO `json:"entry"`
}

// LeaveRequestDTO represents a leave request.
type LeaveRequestDTO struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	UserName      string     `json:"user_name,omitempty"`
	LeaveType     string     `json:"leave_type"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
	DaysRequested int        `json:"days_requested"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
}

// MonthlyReportDTO is a month of hours and offs.
type MonthlyReportDTO struct {
	UserID string  `json:"user_id"`
	Month  int     `json:"month"`
	Year   int     `json:"year"`
	Hours  float64 `json:"hours"`
	Offs   int     `json:"offs"`
}

// ProfitDTO is one month's profit.
type ProfitDTO struct {
	Month    int             `json:"month"`
	Year     int             `json:"year,omitempty"`
	Profit   decimal.Decimal `json:"profit"`
	Recorded bool            `json:"recorded"`
}

// RedundancyDTO is the list of employees under the monthly hours floor.
type RedundancyDTO struct {
	Month          int                    `json:"month"`
	Year           int                    `json:"year"`
	ThresholdHours float64                `json:"threshold_hours"`
	Employees      []RedundantEmployeeDTO `json:"employees"`
}

// RedundantEmployeeDTO is one flagged employee.
type RedundantEmployeeDTO struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
}

// AnnualSummaryDTO is the yearly manager report.
type AnnualSummaryDTO struct {
	Year        int                  `json:"year"`
	Profits     []ProfitDTO          `json:"profits"`
	TotalProfit decimal.Decimal      `json:"total_profit"`
	Employees   []EmployeeSummaryDTO `json:"employees"`
}

// EmployeeSummaryDTO is one employee's totals for a year.
type EmployeeSummaryDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	TotalHours float64 `json:"total_hours"`
	TotalOffs  int     `json:"total_offs"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toUserDTO(u *workforce.User) UserDTO {
	return UserDTO{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Role:               string(u.Role),
		HireDate:           u.HireDate.String(),
		AnnualLeaveBalance: u.AnnualLeaveBalance,
		SickLeaveBalance:   u.SickLeaveBalance,
		CreatedAt:          u.CreatedAt.Format(time.RFC3339),
	}
}

func toTimeEntryDTO(e *workforce.TimeEntry) *TimeEntryDTO {
	if e == nil {
		return nil
	}
	return &TimeEntryDTO{
		ID:         e.ID,
		UserID:     e.UserID,
		Date:       e.Date.String(),
		CheckIn:    e.CheckIn,
		BreakStart: e.BreakStart,
		BreakEnd:   e.BreakEnd,
		CheckOut:   e.CheckOut,
		TotalHours: e.TotalHours,
		State:      string(workforce.StateOf(e)),
	}
}

func toLeaveDTO(l *workforce.LeaveRequest) LeaveRequestDTO {
	return LeaveRequestDTO{
		ID:            l.ID,
		UserID:        l.UserID,
		UserName:      l.UserName,
		LeaveType:     string(l.Type),
		StartDate:     l.StartDate.String(),
		EndDate:       l.EndDate.String(),
		DaysRequested: l.DaysRequested,
		Status:        string(l.Status),
		CreatedAt:     l.CreatedAt,
		DecidedAt:     l.DecidedAt,
	}
}

func toLeaveDTOs(leaves []workforce.LeaveRequest) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, len(leaves))
	for i := range leaves {
		dtos[i] = toLeaveDTO(&leaves[i])
	}
	return dtos
}

func toAnnualSummaryDTO(s *workforce.AnnualSummary) AnnualSummaryDTO {
	dto := AnnualSummaryDTO{
		Year:        s.Year,
		Profits:     make([]ProfitDTO, len(s.Profits)),
		TotalProfit: s.TotalProfit,
		Employees:   make([]EmployeeSummaryDTO, len(s.Employees)),
	}
	for i, p := range s.Profits {
		dto.Profits[i] = ProfitDTO{Month: int(p.Month), Profit: p.Profit, Recorded: p.Recorded}
	}
	for i, e := range s.Employees {
		dto.Employees[i] = EmployeeSummaryDTO{ID: e.ID, Name: e.Name, TotalHours: e.TotalHours, TotalOffs: e.TotalOffs}
	}
	return dto
}
