package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/metrics"
)

// RequestLogger writes one structured line per request and records the
// latency histogram under the matched route pattern.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)
			metrics.HTTPRequestDuration.WithLabelValues(req.Method, route, strconv.Itoa(res.Status)).Observe(elapsed.Seconds())

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("route", route),
				zap.Int("status", res.Status),
				zap.Duration("latency", elapsed),
				zap.String("ip", c.RealIP()),
			}
			if email := Email(c); email != "" {
				fields = append(fields, zap.String("user", email))
			}
			switch {
			case res.Status >= 500:
				log.Error("request", append(fields, zap.Error(err))...)
			case res.Status >= 400:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		}
	}
}
