// Package middleware provides the Gin middleware chain of the directory API.
// Everything here is registered in internal/api/router.go before the route
// handlers so that every request is covered.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/philanthrohub/directory/internal/telemetry"
)

// MetricsMiddleware records http_requests_total{method,path,status} and
// http_request_duration_seconds{method,path} for every request.
//
// The path label is the matched route template (c.FullPath()), so
// /api/organizations/search is one series regardless of its query string.
// Unmatched requests are labelled "<no-route>" to bound cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		method := c.Request.Method
		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
