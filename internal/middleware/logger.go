package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AccessLog writes one line per request. Server errors log at error level,
// client errors at warn.
func AccessLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Info()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", c.Writer.Size()).
			Str("ip", c.ClientIP()).
			Str("request_id", GetRequestID(c))
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			event.Str("error", errs.String())
		}
		event.Msg("request")
	}
}
