package api

import (
	"strconv"
	"time"

	"catalog-enrichment/internal/common/logger"
	"catalog-enrichment/internal/common/metrics"

	"github.com/labstack/echo/v4"
)

// requestObserver logs each request and records its HTTP metrics. Errors
// are rendered here so their status is known.
func requestObserver(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)

			metrics.HTTPRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(res.Status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(elapsed.Seconds())

			fields := map[string]interface{}{
				"method":    req.Method,
				"route":     route,
				"uri":       req.RequestURI,
				"status":    res.Status,
				"latency":   elapsed.String(),
				"requestId": res.Header().Get(echo.HeaderXRequestID),
			}
			if res.Status >= 500 {
				log.Error("request failed", fields)
			} else {
				log.Debug("request served", fields)
			}
			return nil
		}
	}
}
