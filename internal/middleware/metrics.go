package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-records-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics observes every request except the routes listed in skip, which are
// usually the probe endpoints scraped every few seconds.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	ignored := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		ignored[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := ignored[route]; ok {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
