package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/service"
)

// Audit records a read-side audit entry (exports, prints) after a successful
// request. Writes are audited by the services themselves.
func Audit(audit *service.AuditService, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if audit == nil || c.Writer.Status() >= 400 {
			return
		}

		details := map[string]interface{}{
			"path":       c.FullPath(),
			"method":     c.Request.Method,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			details["query"] = q
		}
		audit.Record(c.Request.Context(), Caller(c), action, resource, c.Param("id"), nil, details)
	}
}

// AuditExport is Audit with the export action.
func AuditExport(audit *service.AuditService, resource string) gin.HandlerFunc {
	return Audit(audit, models.AuditActionRecordExport, resource)
}
