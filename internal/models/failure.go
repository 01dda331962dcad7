package models

import "time"

// Stage identifies one of the four points at which a job can fail.
type Stage string

const (
	StageUpload       Stage = "upload"
	StageChunking     Stage = "chunking"
	StageTranscription Stage = "transcription"
	StageSummary      Stage = "summary"
)

// JobFailureRecord is the single on-disk witness of a failed stage.
// At most one is present per job (job_failed.json).
type JobFailureRecord struct {
	Stage      Stage          `json:"stage"`
	Message    string         `json:"message"`
	OccurredAt time.Time      `json:"occurred_at"`
	Details    map[string]any `json:"details"`
}
