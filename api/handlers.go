/*
handlers.go - HTTP API handlers for the attendance and leave engine

PURPOSE:
  Exposes the workforce engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the domain services.

ENDPOINTS:
  Users:
    POST   /api/users                           Register user
    GET    /api/users/{id}                      User with balances (self or manager)

  Attendance (caller):
    POST   /api/time/checkin                    Open today's entry
    POST   /api/time/break/start                Start break
    POST   /api/time/break/end                  End break
    POST   /api/time/checkout                   Close today's entry
    GET    /api/time/today                      Today's entry and state
    GET    /api/reports/monthly/{month}/{year}  Hours and offs (?user_id= for managers)

  Leave:
    POST   /api/leave                           Apply (caller)
    GET    /api/leave/pending                   Pending requests (manager)
    POST   /api/leave/{id}/approve              Approve and debit (manager)
    POST   /api/leave/{id}/reject               Reject (manager)

  Manager:
    POST   /api/profits                         Record monthly profit
    GET    /api/profits/{month}/{year}          Monthly profit
    GET    /api/manager/redundancy/{month}/{year}
    GET    /api/manager/summary/{year}

IDENTITY:
  The authenticating gateway forwards the caller's user id in X-User-ID.
  Authenticate resolves it to a user; RequireManager gates manager routes.

ERROR HANDLING:
  Engine errors are classified with workforce.KindOf and written as
  {error, kind, details}:
  - 400: Invalid input, date range or leave type
  - 401: Missing or unknown caller
  - 403: Caller lacks the manager role
  - 404: User or leave request not found
  - 409: Attendance state conflicts, already processed, duplicate user
  - 422: Balance, monthly cap or approval window violations
  - 503: Store unavailable

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/workforce-engine/workforce"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Directory *workforce.Directory
	Time      *workforce.TimeTracker
	Leave     *workforce.LeaveEngine
	Reports   *workforce.Reporter
	Metrics   *Metrics

	validate *validator.Validate
}

// NewHandler creates a handler over the given services.
func NewHandler(dir *workforce.Directory, tt *workforce.TimeTracker, le *workforce.LeaveEngine, rep *workforce.Reporter, m *Metrics) *Handler {
	return &Handler{
		Directory: dir,
		Time:      tt,
		Leave:     le,
		Reports:   rep,
		Metrics:   m,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// IDENTITY
// =============================================================================

// UserIDHeader carries the authenticated caller id.
const UserIDHeader = "X-User-ID"

type callerKey struct{}

// Authenticate resolves the caller from UserIDHeader.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if id == "" {
			writeError(w, http.StatusUnauthorized, "Missing caller identity", nil)
			return
		}
		user, err := h.Directory.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, workforce.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, "Unknown caller", nil)
				return
			}
			h.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), callerKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireManager rejects callers without a managing role.
func (h *Handler) RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := caller(r)
		if user == nil || !user.Role.CanManage() {
			writeError(w, http.StatusForbidden, "Manager role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func caller(r *http.Request) *workforce.User {
	u, _ := r.Context().Value(callerKey{}).(*workforce.User)
	return u
}

// =============================================================================
// USER ENDPOINTS
// =============================================================================

// CreateUser registers a user with default balances.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	in := workforce.NewUser{Name: req.Name, Email: req.Email, Role: workforce.Role(req.Role)}
	if req.HireDate != "" {
		d, err := workforce.ParseDate(req.HireDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hire_date", err)
			return
		}
		in.HireDate = d
	}

	user, err := h.Directory.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// GetUser returns a user with balances. Non-managers may only read themselves.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	me := caller(r)
	if id == "me" {
		id = me.ID
	}
	if id != me.ID && !me.Role.CanManage() {
		writeError(w, http.StatusForbidden, "Cannot read another user", nil)
		return
	}

	user, err := h.Directory.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// =============================================================================
// ATTENDANCE ENDPOINTS
// =============================================================================

// CheckIn opens the caller's entry for today.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.StatusCreated, h.Time.CheckIn)
}

// StartBreak starts the caller's break.
func (h *Handler) StartBreak(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.StatusOK, h.Time.StartBreak)
}

// EndBreak ends the caller's break.
func (h *Handler) EndBreak(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.StatusOK, h.Time.EndBreak)
}

// CheckOut closes the caller's entry and records worked hours.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.StatusOK, h.Time.CheckOut)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, status int,
	fn func(context.Context, string) (*workforce.TimeEntry, error)) {
	entry, err := fn(r.Context(), caller(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Metrics.AttendanceEvent(string(workforce.StateOf(entry)))
	writeJSON(w, status, toTimeEntryDTO(entry))
}

// Today returns the caller's entry and state for today.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	entry, state, err := h.Time.Today(r.Context(), caller(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TodayDTO{State: string(state), Entry: toTimeEntryDTO(entry)})
}

// MonthlyReport returns hours and offs for the caller, or for ?user_id= when
// the caller is a manager.
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, year, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	me := caller(r)
	userID := me.ID
	if q := r.URL.Query().Get("user_id"); q != "" && q != me.ID {
		if !me.Role.CanManage() {
			writeError(w, http.StatusForbidden, "Cannot read another user's report", nil)
			return
		}
		userID = q
	}

	rep, err := h.Reports.MonthlyReport(r.Context(), userID, month, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MonthlyReportDTO{
		UserID: rep.UserID,
		Month:  int(rep.Month),
		Year:   rep.Year,
		Hours:  rep.Hours,
		Offs:   rep.Offs,
	})
}

// =============================================================================
// LEAVE ENDPOINTS
// =============================================================================

// ApplyLeave submits a leave request for the caller.
func (h *Handler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	var req ApplyLeaveRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	start, err := workforce.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := workforce.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}

	leave, err := h.Leave.Apply(r.Context(), caller(r).ID, workforce.LeaveType(req.LeaveType), start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(leave))
}

// ListPendingLeaves lists requests awaiting a decision.
func (h *Handler) ListPendingLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := h.Leave.Pending(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(leaves))
}

// ApproveLeave approves a pending request and debits the balance.
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	leave, err := h.Leave.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Metrics.LeaveDecision(string(workforce.StatusApproved))
	loggerFrom(r.Context()).Info("leave approved by manager",
		slog.String("leave_id", leave.ID),
		slog.String("manager_id", caller(r).ID),
	)
	writeJSON(w, http.StatusOK, toLeaveDTO(leave))
}

// RejectLeave rejects a pending request.
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	leave, err := h.Leave.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Metrics.LeaveDecision(string(workforce.StatusRejected))
	loggerFrom(r.Context()).Info("leave rejected by manager",
		slog.String("leave_id", leave.ID),
		slog.String("manager_id", caller(r).ID),
	)
	writeJSON(w, http.StatusOK, toLeaveDTO(leave))
}

// =============================================================================
// MANAGER ENDPOINTS
// =============================================================================

// RecordProfit upserts a monthly profit figure.
func (h *Handler) RecordProfit(w http.ResponseWriter, r *http.Request) {
	var req RecordProfitRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	p, err := h.Reports.RecordProfit(r.Context(), time.Month(req.Month), req.Year, *req.Profit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfitDTO{Month: int(p.Month), Year: p.Year, Profit: p.Profit, Recorded: true})
}

// GetProfit returns a month's profit; unrecorded months read as zero.
func (h *Handler) GetProfit(w http.ResponseWriter, r *http.Request) {
	month, year, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	p, err := h.Reports.Profit(r.Context(), month, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dto := ProfitDTO{Month: int(month), Year: year}
	if p != nil {
		dto.Profit = p.Profit
		dto.Recorded = true
	}
	writeJSON(w, http.StatusOK, dto)
}

// Redundancy lists employees under the monthly hours floor.
func (h *Handler) Redundancy(w http.ResponseWriter, r *http.Request) {
	month, year, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	flagged, err := h.Reports.RedundancyCheck(r.Context(), month, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dto := RedundancyDTO{
		Month:          int(month),
		Year:           year,
		ThresholdHours: h.Reports.Policy.RedundancyThresholdHours,
		Employees:      make([]RedundantEmployeeDTO, len(flagged)),
	}
	for i, e := range flagged {
		dto.Employees[i] = RedundantEmployeeDTO{ID: e.ID, Name: e.Name, Hours: e.Hours}
	}
	writeJSON(w, http.StatusOK, dto)
}

// AnnualSummary returns the yearly profit and per-employee totals.
func (h *Handler) AnnualSummary(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	summary, err := h.Reports.AnnualSummary(r.Context(), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnnualSummaryDTO(summary))
}

// =============================================================================
// HELPERS
// =============================================================================

func parsePeriod(w http.ResponseWriter, r *http.Request) (time.Month, int, bool) {
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || !workforce.ValidMonth(time.Month(month)) {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return 0, 0, false
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, 0, false
	}
	return time.Month(month), year, true
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Kind:    string(workforce.KindInvalidInput),
				Details: fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// statusFor maps an engine error kind to an HTTP status.
func statusFor(kind workforce.Kind) int {
	switch kind {
	case workforce.KindInvalidInput, workforce.KindInvalidDateRange, workforce.KindInvalidLeaveType:
		return http.StatusBadRequest
	case workforce.KindUserNotFound, workforce.KindLeaveNotFound:
		return http.StatusNotFound
	case workforce.KindAlreadyCheckedIn,
		workforce.KindInvalidBreakStart,
		workforce.KindInvalidBreakEnd,
		workforce.KindAlreadyCheckedOutOrNotCheckedIn,
		workforce.KindLeaveAlreadyProcessed,
		workforce.KindDuplicateUser:
		return http.StatusConflict
	case workforce.KindInsufficientAnnualBalance,
		workforce.KindInsufficientSickBalance,
		workforce.KindMonthlyOffLimitExceeded,
		workforce.KindLeaveWindowPassed:
		return http.StatusUnprocessableEntity
	}
	return http.StatusServiceUnavailable
}

// fail writes err classified by kind. Store failures are logged, not echoed.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := workforce.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusServiceUnavailable {
		loggerFrom(r.Context()).Error("store failure", slog.Any("error", err))
		writeJSON(w, status, ErrorResponse{Error: "Service temporarily unavailable", Kind: string(kind)})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: string(kind)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
