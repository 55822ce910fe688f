/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RequestLog: Request-scoped slog logger, completion log line
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request count and latency
  5. CORS:       Cross-origin requests for frontend
  Registration is additionally rate limited per client IP (ratelimit.go).

ROUTE GROUPS:
  /api/users            Registration (public) and lookup
  /api/time/*           Caller attendance
  /api/reports/*        Caller monthly report
  /api/leave/*          Apply (caller), decide (manager)
  /api/profits/*        Manager profit figures
  /api/manager/*        Manager reports
  /healthz, /metrics    Operations

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Pinger reports store reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	Health         Pinger
	// RegisterLimit, when set, wraps the public registration route.
	RegisterLimit  func(http.Handler) http.Handler
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(h.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", UserIDHeader},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Health.Ping(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "Store unreachable", err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		register := chi.Router(r)
		if opts.RegisterLimit != nil {
			register = r.With(opts.RegisterLimit)
		}
		register.Post("/users", h.CreateUser)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Get("/users/{id}", h.GetUser)

			// Attendance routes
			r.Route("/time", func(r chi.Router) {
				r.Post("/checkin", h.CheckIn)
				r.Post("/break/start", h.StartBreak)
				r.Post("/break/end", h.EndBreak)
				r.Post("/checkout", h.CheckOut)
				r.Get("/today", h.Today)
			})
			r.Get("/reports/monthly/{month}/{year}", h.MonthlyReport)

			// Leave routes
			r.Route("/leave", func(r chi.Router) {
				r.Post("/", h.ApplyLeave)
				r.Group(func(r chi.Router) {
					r.Use(h.RequireManager)
					r.Get("/pending", h.ListPendingLeaves)
					r.Post("/{id}/approve", h.ApproveLeave)
					r.Post("/{id}/reject", h.RejectLeave)
				})
			})

			// Manager routes
			r.Group(func(r chi.Router) {
				r.Use(h.RequireManager)
				r.Post("/profits", h.RecordProfit)
				r.Get("/profits/{month}/{year}", h.GetProfit)
				r.Get("/manager/redundancy/{month}/{year}", h.Redundancy)
				r.Get("/manager/summary/{year}", h.AnnualSummary)
			})
		})
	})

	return r
}

// =============================================================================
// REQUEST LOGGING
// =============================================================================

type loggerKey struct{}

// RequestLogger injects a request-scoped logger carrying the chi request id
// and logs each completed request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := base.With(
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), loggerKey{}, logger)))

			logger.Info("request completed",
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("latency", time.Since(start)),
			)
		})
	}
}

// loggerFrom returns the request-scoped logger, or the default logger.
func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
