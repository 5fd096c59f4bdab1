package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenderhub/tender-insight-hub/internal/telemetry"
)

// noRouteLabel is recorded for requests that matched no route.
const noRouteLabel = "<no-route>"

// MetricsMiddleware records http_requests_total and
// http_request_duration_seconds for every request, labelled with the matched
// route template (e.g. /api/tenders/:id) so tender ids never become labels.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = noRouteLabel
		}
		method := c.Request.Method

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
