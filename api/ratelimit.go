package api

import (
	"fmt"
	"net/http"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit returns per-client-IP middleware for a formatted rate such as
// "20-M" (20 requests per minute). Counters live in process memory.
func RateLimit(formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", formatted, err)
	}
	mw := stdlib.NewMiddleware(limiter.New(memory.NewStore(), rate))
	return mw.Handler, nil
}
