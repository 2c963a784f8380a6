package middleware

import (
	"time"

	"github.com/gridsight/thermalwatch/internal/observability/metrics"
	"github.com/labstack/echo/v4"
)

// unmatchedRoute labels requests that did not match a registered route so
// arbitrary paths cannot create new label values.
const unmatchedRoute = "unmatched"

// NewMetrics records request count and latency per route template.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			path := c.Path()
			if path == "" {
				path = unmatchedRoute
			}
			m.ObserveRequest(c.Request().Method, path, status, time.Since(start))
			return err
		}
	}
}
