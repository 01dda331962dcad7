// Package api implements the thin HTTP view layer the core pipeline is
// mounted under: upload a recording, poll or stream a job's derived
// state, and fetch the transcript/summary artifacts once ready. None of
// this owns pipeline semantics — every handler is a read of C1/C8 or a
// kick-off of C7's Ingest.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AccessLog returns a Gin middleware that writes one zerolog line per
// request, separate from the job/stage slog logging pkg/logger does
// for pipeline events.
func AccessLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}
