package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"meetforge/pkg/logger"
)

// SetupRoutes mounts the thin upload/job/meeting view layer. Two
// request loggers run side by side on purpose: logger.GinLogger feeds
// the same slog sink as stage/retry events (debug-level detail, easy
// to correlate with a job's pipeline log lines), while AccessLog writes
// a separate structured zerolog line meant for request-shape log
// aggregation independent of pipeline internals.
func SetupRoutes(handler *Handler, accessLog zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())
	router.Use(AccessLog(accessLog))

	v1 := router.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		jobs.POST("", handler.CreateJob)
		jobs.GET("/:job_id", handler.GetJobStatus)
		jobs.GET("/:job_id/stream", handler.StreamJobStatus)
		jobs.GET("/:job_id/transcript", handler.GetTranscript)
		jobs.GET("/:job_id/summary", handler.GetSummary)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router
}
