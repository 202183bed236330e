// internal/api/middleware/request_logger.middleware.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

// RequestLogger logs HTTP requests through the shared structured logger.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// the snapshot stream holds its connection open; logging every
		// poll of it is noise
		if strings.HasSuffix(c.FullPath(), "/state/stream") {
			return
		}

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		default:
			log.Debug("request served", fields...)
		}
	}
}
