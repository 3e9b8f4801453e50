package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/wms-platform/promising-service/pkg/logging"
)

// HeaderWMSCorrelationID carries the CloudEvents wmscorrelationid extension
// over HTTP between WMS services.
const HeaderWMSCorrelationID = "X-WMS-Correlation-ID"

// CloudEvents middleware extracts the WMS CloudEvents correlation extension
// from HTTP headers and adds it to the request context, so downstream logs
// and published events carry it across service boundaries.
func CloudEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		wmsCorrelationID := c.GetHeader(HeaderWMSCorrelationID)
		if wmsCorrelationID != "" {
			ctx := logging.ContextWithCorrelationID(c.Request.Context(), wmsCorrelationID)
			c.Request = c.Request.WithContext(ctx)

			// Echo back for the caller's own tracing
			c.Header(HeaderWMSCorrelationID, wmsCorrelationID)
		}

		c.Next()
	}
}
