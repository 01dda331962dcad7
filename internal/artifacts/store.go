// Package artifacts implements C1, the typed JSON artifact store: the
// only component allowed to read or write a job directory's on-disk
// state.
package artifacts

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"meetforge/internal/models"
)

const (
	mediaAssetsFile        = "media_assets.json"
	transcriptSegmentsFile = "transcript_segments.json"
	summaryItemsFile       = "summary_items.json"
	actionItemsFile        = "action_items.json"
	summaryQualityFile     = "summary_quality.json"
	jobFailedFile          = "job_failed.json"

	dirPerm  = 0o755
	filePerm = 0o644
)

// dump writes entities as a pretty-printed, UTF-8, non-ASCII-preserving
// JSON array to <jobDir>/<filename>, creating jobDir if absent.
func dump(jobDir, filename string, entities any) error {
	if err := os.MkdirAll(jobDir, dirPerm); err != nil {
		return models.NewError(models.KindOrchestration, "failed to create job directory", err)
	}

	buf, err := marshalIndentNoEscape(entities)
	if err != nil {
		return models.NewError(models.KindOrchestration, "failed to marshal artifact", err)
	}
	buf = append(buf, '\n')

	path := filepath.Join(jobDir, filename)
	if err := os.WriteFile(path, buf, filePerm); err != nil {
		return models.NewError(models.KindOrchestration, "failed to write artifact file", err)
	}
	return nil
}

// marshalIndentNoEscape mirrors json.MarshalIndent but disables HTML
// escaping so non-ASCII text (and characters like '&') round-trip
// verbatim, per spec §6 ("non-ASCII not escaped").
func marshalIndentNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode already appends a trailing newline; trim it so dump can
	// control line endings uniformly.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func loadArray[T any](jobDir, filename string) ([]T, error) {
	path := filepath.Join(jobDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []T{}, nil
		}
		return nil, models.NewError(models.KindOrchestration, "failed to read artifact file", err)
	}

	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, models.ErrMalformedArtifact(path, err)
	}
	return out, nil
}

// DumpMediaAssets persists the media asset manifest (C2's output).
func DumpMediaAssets(jobDir string, assets []models.MediaAsset) error {
	if assets == nil {
		assets = []models.MediaAsset{}
	}
	return dump(jobDir, mediaAssetsFile, assets)
}

// LoadMediaAssets returns an empty slice when the manifest is absent.
func LoadMediaAssets(jobDir string) ([]models.MediaAsset, error) {
	return loadArray[models.MediaAsset](jobDir, mediaAssetsFile)
}

// DumpTranscriptSegments persists C5's assembled transcript.
func DumpTranscriptSegments(jobDir string, segments []models.TranscriptSegment) error {
	if segments == nil {
		segments = []models.TranscriptSegment{}
	}
	return dump(jobDir, transcriptSegmentsFile, segments)
}

func LoadTranscriptSegments(jobDir string) ([]models.TranscriptSegment, error) {
	return loadArray[models.TranscriptSegment](jobDir, transcriptSegmentsFile)
}

// DumpSummaryItems persists C6's topical summary sections.
func DumpSummaryItems(jobDir string, items []models.SummaryItem) error {
	if items == nil {
		items = []models.SummaryItem{}
	}
	return dump(jobDir, summaryItemsFile, items)
}

func LoadSummaryItems(jobDir string) ([]models.SummaryItem, error) {
	return loadArray[models.SummaryItem](jobDir, summaryItemsFile)
}

// DumpActionItems persists C6's extracted action items.
func DumpActionItems(jobDir string, items []models.ActionItem) error {
	if items == nil {
		items = []models.ActionItem{}
	}
	return dump(jobDir, actionItemsFile, items)
}

func LoadActionItems(jobDir string) ([]models.ActionItem, error) {
	return loadArray[models.ActionItem](jobDir, actionItemsFile)
}

// DumpSummaryQuality persists C6's computed quality metrics (a single
// object, not an array).
func DumpSummaryQuality(jobDir string, quality models.SummaryQualityMetrics) error {
	return dump(jobDir, summaryQualityFile, quality)
}

// LoadSummaryQuality returns (nil, nil) when the file is absent.
func LoadSummaryQuality(jobDir string) (*models.SummaryQualityMetrics, error) {
	path := filepath.Join(jobDir, summaryQualityFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, models.NewError(models.KindOrchestration, "failed to read summary quality artifact", err)
	}
	var q models.SummaryQualityMetrics
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, models.ErrMalformedArtifact(path, err)
	}
	return &q, nil
}

// rawFailureRecord tolerates the legacy shape where `details` was
// omitted entirely (spec §4.1: "load_job_failure tolerates the legacy
// shape... defaults to empty mapping").
type rawFailureRecord struct {
	Stage      *string        `json:"stage"`
	Message    *string        `json:"message"`
	OccurredAt *time.Time     `json:"occurred_at"`
	Details    map[string]any `json:"details"`
}

// MarkJobFailed overwrites job_failed.json with a fresh failure record.
func MarkJobFailed(jobDir string, stage models.Stage, message string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	record := models.JobFailureRecord{
		Stage:      stage,
		Message:    message,
		OccurredAt: time.Now().UTC(),
		Details:    details,
	}
	return dump(jobDir, jobFailedFile, record)
}

// ClearJobFailure removes job_failed.json if present; a no-op otherwise.
func ClearJobFailure(jobDir string) error {
	path := filepath.Join(jobDir, jobFailedFile)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return models.NewError(models.KindOrchestration, "failed to clear failure marker", err)
	}
	return nil
}

// LoadJobFailure returns (nil, nil) when no failure marker exists.
// It fails with *MalformedArtifact only when stage/message/occurred_at
// are missing outright; a missing `details` defaults to {}.
func LoadJobFailure(jobDir string) (*models.JobFailureRecord, error) {
	path := filepath.Join(jobDir, jobFailedFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, models.NewError(models.KindOrchestration, "failed to read failure marker", err)
	}

	var raw rawFailureRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, models.ErrMalformedArtifact(path, err)
	}
	if raw.Stage == nil || raw.Message == nil || raw.OccurredAt == nil {
		return nil, models.ErrMalformedArtifact(path, errors.New("missing stage, message, or occurred_at"))
	}

	details := raw.Details
	if details == nil {
		details = map[string]any{}
	}
	return &models.JobFailureRecord{
		Stage:      models.Stage(*raw.Stage),
		Message:    *raw.Message,
		OccurredAt: *raw.OccurredAt,
		Details:    details,
	}, nil
}
