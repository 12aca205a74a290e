package handler // declare the package name; contains HTTP handlers

import (
	"context"  // bounded ping
	"net/http" // net/http provides status codes and response helpers
	"time"     // ping timeout

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Pinger is satisfied by *sql.DB and by the redis client wrapper below.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Health is a simple health-check endpoint used by load balancers.  It
// returns "ok" when every dependency answers and 503 otherwise.
func Health(deps map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		for name, p := range deps {
			if p == nil {
				continue
			}
			if err := p.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": name + " unavailable"})
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}
