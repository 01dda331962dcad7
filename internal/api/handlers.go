package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetforge/internal/artifacts"
	"meetforge/internal/jobstate"
	"meetforge/internal/orchestrator"
	"meetforge/pkg/logger"
)

// acceptedUploadExtensions mirrors the extensions C2/C4 understand.
var acceptedUploadExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".mp4": true, ".m4a": true,
	".ogg": true, ".flac": true, ".webm": true,
}

// Handler holds the dependencies the thin view layer needs: the
// upload root it writes under, and the orchestrator it kicks Ingest
// off on. It never touches pipeline internals directly.
type Handler struct {
	UploadRoot   string
	Orchestrator *orchestrator.Orchestrator
}

func NewHandler(uploadRoot string, orch *orchestrator.Orchestrator) *Handler {
	return &Handler{UploadRoot: uploadRoot, Orchestrator: orch}
}

// CreateJob accepts a multipart file upload, writes it under a fresh
// job directory, and kicks off Ingest in the background. It returns
// immediately with the new job_id; the caller polls or streams status.
func (h *Handler) CreateJob(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a multipart \"file\" field is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !acceptedUploadExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file extension %q", ext)})
		return
	}

	jobID := uuid.NewString()
	jobDir := filepath.Join(h.UploadRoot, jobID)
	sourcePath := filepath.Join(jobDir, "source"+ext)

	if err := c.SaveUploadedFile(fileHeader, sourcePath); err != nil {
		logger.Error("failed to persist upload", "job_id", jobID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded file"})
		return
	}

	// Ingest keeps running after this handler returns (and with it,
	// c.Request.Context()), so it gets its own background context
	// rather than one tied to the HTTP response lifecycle.
	go func() {
		if err := h.Orchestrator.Ingest(context.Background(), jobID, jobDir, sourcePath); err != nil {
			logger.Error("ingest failed", "job_id", jobID, "error", err.Error())
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// GetJobStatus returns the derived lifecycle state for a job.
func (h *Handler) GetJobStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	jobDir := filepath.Join(h.UploadRoot, jobID)

	state, err := jobstate.Derive(jobID, jobDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// StreamJobStatus pushes a State over Server-Sent Events every time the
// job directory changes, so a client doesn't need to poll.
func (h *Handler) StreamJobStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	jobDir := filepath.Join(h.UploadRoot, jobID)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	states, err := jobstate.Watch(ctx, jobID, jobDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case state, ok := <-states:
			if !ok {
				return false
			}
			c.SSEvent("state", state)
			return true
		case <-time.After(30 * time.Second):
			c.SSEvent("keepalive", nil)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// GetTranscript returns the assembled transcript segments.
func (h *Handler) GetTranscript(c *gin.Context) {
	jobID := c.Param("job_id")
	jobDir := filepath.Join(h.UploadRoot, jobID)

	segments, err := artifacts.LoadTranscriptSegments(jobDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "segments": segments})
}

// GetSummary returns the summary sections, action items, and quality
// metrics for a job — the "meeting view" the pipeline exists to
// produce.
func (h *Handler) GetSummary(c *gin.Context) {
	jobID := c.Param("job_id")
	jobDir := filepath.Join(h.UploadRoot, jobID)

	items, err := artifacts.LoadSummaryItems(jobDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	actionItems, err := artifacts.LoadActionItems(jobDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	quality, err := artifacts.LoadSummaryQuality(jobDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":       jobID,
		"sections":     items,
		"action_items": actionItems,
		"quality":      quality,
	})
}
