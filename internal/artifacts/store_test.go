package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetforge/internal/models"
)

func TestDumpAndLoadMediaAssets_RoundTrips(t *testing.T) {
	jobDir := t.TempDir()
	assets := []models.MediaAsset{
		{AssetID: "m1", Kind: models.AssetKindAudioMaster, Order: -1, DurationMs: 5000, Path: "/tmp/master.wav"},
		{AssetID: "c1", Kind: models.AssetKindAudioChunk, Order: 0, Path: "/tmp/chunk_0000.wav"},
	}
	require.NoError(t, DumpMediaAssets(jobDir, assets))

	loaded, err := LoadMediaAssets(jobDir)
	require.NoError(t, err)
	assert.Equal(t, assets, loaded)
}

func TestLoadMediaAssets_ReturnsEmptySliceWhenFileAbsent(t *testing.T) {
	jobDir := t.TempDir()
	loaded, err := LoadMediaAssets(jobDir)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestDumpMediaAssets_NilSliceNormalizesToEmptyArray(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, DumpMediaAssets(jobDir, nil))

	raw, err := os.ReadFile(filepath.Join(jobDir, mediaAssetsFile))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestDump_DoesNotHTMLEscapeNonASCIIOrAmpersand(t *testing.T) {
	jobDir := t.TempDir()
	segments := []models.TranscriptSegment{
		{SegmentID: "s1", Text: "Café & <naïve> résumé"},
	}
	require.NoError(t, DumpTranscriptSegments(jobDir, segments))

	raw, err := os.ReadFile(filepath.Join(jobDir, transcriptSegmentsFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Café & <naïve> résumé")
	assert.NotContains(t, string(raw), "\\u0026")
	assert.NotContains(t, string(raw), "\\u003c")
}

func TestDump_IsPrettyPrintedWithTwoSpaceIndent(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, DumpActionItems(jobDir, []models.ActionItem{{ActionID: "a1", Description: "follow up"}}))

	raw, err := os.ReadFile(filepath.Join(jobDir, actionItemsFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "[\n  {"))
}

func TestLoadMediaAssets_MalformedJSONFailsWithMalformedArtifact(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, os.MkdirAll(jobDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, mediaAssetsFile), []byte("not json"), 0o644))

	_, err := LoadMediaAssets(jobDir)
	require.Error(t, err)
	var pErr *models.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, models.KindMalformedResponse, pErr.Kind)
}

func TestSummaryQuality_RoundTripsSingleObjectNotArray(t *testing.T) {
	jobDir := t.TempDir()
	confidence := 0.91
	quality := models.SummaryQualityMetrics{
		CoverageRatio:           0.75,
		ReferencedSegmentsRatio: 0.5,
		AverageSummaryWordCount: 42.5,
		ActionItemCount:         3,
		LLMConfidence:           &confidence,
	}
	require.NoError(t, DumpSummaryQuality(jobDir, quality))

	loaded, err := LoadSummaryQuality(jobDir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, quality, *loaded)
}

func TestLoadSummaryQuality_ReturnsNilNilWhenAbsent(t *testing.T) {
	jobDir := t.TempDir()
	loaded, err := LoadSummaryQuality(jobDir)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMarkAndClearJobFailure(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, MarkJobFailed(jobDir, models.StageTranscription, "boom", map[string]any{"kind": "transient_http_failure"}))

	record, err := LoadJobFailure(jobDir)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.StageTranscription, record.Stage)
	assert.Equal(t, "boom", record.Message)
	assert.Equal(t, "transient_http_failure", record.Details["kind"])

	require.NoError(t, ClearJobFailure(jobDir))
	record, err = LoadJobFailure(jobDir)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestClearJobFailure_NoOpWhenAbsent(t *testing.T) {
	jobDir := t.TempDir()
	assert.NoError(t, ClearJobFailure(jobDir))
}

func TestLoadJobFailure_ToleratesMissingDetailsLegacyShape(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, os.MkdirAll(jobDir, 0o755))
	legacy := `{"stage": "summary", "message": "old failure", "occurred_at": "2026-01-01T00:00:00Z"}`
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, jobFailedFile), []byte(legacy), 0o644))

	record, err := LoadJobFailure(jobDir)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.StageSummary, record.Stage)
	assert.NotNil(t, record.Details)
	assert.Empty(t, record.Details)
}

func TestLoadJobFailure_FailsWithMalformedArtifactWhenRequiredFieldsMissing(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, os.MkdirAll(jobDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, jobFailedFile), []byte(`{"details": {}}`), 0o644))

	_, err := LoadJobFailure(jobDir)
	require.Error(t, err)
	var pErr *models.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, models.KindMalformedResponse, pErr.Kind)
}

func TestDump_CreatesJobDirWhenAbsent(t *testing.T) {
	jobDir := filepath.Join(t.TempDir(), "nested", "job-1")
	require.NoError(t, DumpMediaAssets(jobDir, []models.MediaAsset{{AssetID: "m1"}}))

	_, err := os.Stat(jobDir)
	assert.NoError(t, err)
}
