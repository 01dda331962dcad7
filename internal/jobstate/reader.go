// Package jobstate implements C8: derive a job's lifecycle state purely
// from which artifact files are present in its directory, without
// mutating anything. Grounded on internal/queue/queue.go's read-only
// GetJobStatus/GetQueueStats methods in the teacher repo, re-targeted
// from a database row to a filesystem tree.
package jobstate

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"meetforge/internal/artifacts"
	"meetforge/internal/models"
)

// Status is the coarse lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// recognizedSourceExtensions mirrors the extensions C2/C4 understand,
// used only to detect that an uploaded source file is present.
var recognizedSourceExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".mp4": true, ".m4a": true,
	".ogg": true, ".flac": true, ".webm": true,
}

// stageOrder is the same ordered stage list deriveStage's success path
// walks, used to map a recorded failure stage back to its 1-based
// index. Unrecognized stage strings default to 1.
var stageOrder = map[models.Stage]int{
	models.StageUpload:        1,
	models.StageChunking:      2,
	models.StageTranscription: 3,
	models.StageSummary:       4,
}

// State is the derived snapshot C8 hands back to callers (API, CLI).
type State struct {
	JobID           string
	Status          Status
	StageIndex      int // 1..4
	Progress        float64
	FailureRecord   *models.JobFailureRecord
	DurationMs      int64
	Languages       []string
	SummaryCount    int
	ActionItemCount int
	CanDelete       bool
}

// Derive reads jobDir's artifact tree and returns the current state. It
// never writes anything.
func Derive(jobID, jobDir string) (*State, error) {
	failure, err := artifacts.LoadJobFailure(jobDir)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		stageIndex, ok := stageOrder[failure.Stage]
		if !ok {
			stageIndex = 1
		}
		return &State{
			JobID:         jobID,
			Status:        StatusFailed,
			StageIndex:    stageIndex,
			Progress:      float64(stageIndex) / 4.0,
			FailureRecord: failure,
			CanDelete:     false,
		}, nil
	}

	assets, err := artifacts.LoadMediaAssets(jobDir)
	if err != nil {
		return nil, err
	}
	segments, err := artifacts.LoadTranscriptSegments(jobDir)
	if err != nil {
		return nil, err
	}
	summaryItems, err := artifacts.LoadSummaryItems(jobDir)
	if err != nil {
		return nil, err
	}
	actionItems, err := artifacts.LoadActionItems(jobDir)
	if err != nil {
		return nil, err
	}

	stageIndex, status := deriveStage(jobDir, assets, segments, summaryItems)

	var durationMs int64
	for _, a := range assets {
		if a.IsMaster() {
			durationMs = a.DurationMs
			break
		}
	}

	return &State{
		JobID:           jobID,
		Status:          status,
		StageIndex:      stageIndex,
		Progress:        float64(stageIndex) / 4.0,
		DurationMs:      durationMs,
		Languages:       uniqueSortedLanguages(segments),
		SummaryCount:    len(summaryItems),
		ActionItemCount: len(actionItems),
		CanDelete:       status == StatusCompleted,
	}, nil
}

func deriveStage(jobDir string, assets []models.MediaAsset, segments []models.TranscriptSegment, summaryItems []models.SummaryItem) (int, Status) {
	if len(summaryItems) > 0 {
		return 4, StatusCompleted
	}
	if len(segments) > 0 {
		return 3, StatusProcessing
	}
	if hasAudioChunk(assets) {
		return 2, StatusProcessing
	}
	if hasRecognizedSource(jobDir) {
		return 1, StatusPending
	}
	return 1, StatusPending
}

func hasAudioChunk(assets []models.MediaAsset) bool {
	for _, a := range assets {
		if a.Kind == models.AssetKindAudioChunk {
			return true
		}
	}
	return false
}

func hasRecognizedSource(jobDir string) bool {
	entries, err := os.ReadDir(jobDir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if recognizedSourceExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			return true
		}
	}
	return false
}

func uniqueSortedLanguages(segments []models.TranscriptSegment) []string {
	set := map[string]bool{}
	for _, s := range segments {
		if s.Language != "" {
			set[s.Language] = true
		}
	}
	out := make([]string, 0, len(set))
	for lang := range set {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
