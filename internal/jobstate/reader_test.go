package jobstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetforge/internal/artifacts"
	"meetforge/internal/models"
)

func TestDerive_EmptyJobDirIsPending(t *testing.T) {
	jobDir := t.TempDir()
	state, err := Derive("job-1", jobDir)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, state.Status)
	assert.Equal(t, 1, state.StageIndex)
	assert.InDelta(t, 0.25, state.Progress, 0.0001)
	assert.False(t, state.CanDelete)
}

func TestDerive_SourceFilePresentStillPending(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, "recording.mp3"), []byte("x"), 0o644))

	state, err := Derive("job-1", jobDir)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, state.Status)
	assert.Equal(t, 1, state.StageIndex)
}

func TestDerive_AudioChunkPresentIsProcessingStage2(t *testing.T) {
	jobDir := t.TempDir()
	assets := []models.MediaAsset{
		{AssetID: "m1", Kind: models.AssetKindAudioMaster, Order: -1, DurationMs: 5000},
		{AssetID: "c1", Kind: models.AssetKindAudioChunk, Order: 0},
	}
	require.NoError(t, artifacts.DumpMediaAssets(jobDir, assets))

	state, err := Derive("job-1", jobDir)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, state.Status)
	assert.Equal(t, 2, state.StageIndex)
	assert.Equal(t, int64(5000), state.DurationMs)
}

func TestDerive_TranscriptSegmentsPresentIsProcessingStage3(t *testing.T) {
	jobDir := t.TempDir()
	segments := []models.TranscriptSegment{
		{SegmentID: "s1", StartMs: 0, EndMs: 1000, Text: "hi", Language: "en"},
		{SegmentID: "s2", StartMs: 1000, EndMs: 2000, Text: "there", Language: "fr"},
	}
	require.NoError(t, artifacts.DumpTranscriptSegments(jobDir, segments))

	state, err := Derive("job-1", jobDir)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, state.Status)
	assert.Equal(t, 3, state.StageIndex)
	assert.Equal(t, []string{"en", "fr"}, state.Languages)
}

func TestDerive_SummaryItemsPresentIsCompletedStage4(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, artifacts.DumpSummaryItems(jobDir, []models.SummaryItem{{SummaryID: "s1", SummaryText: "recap"}}))
	require.NoError(t, artifacts.DumpActionItems(jobDir, []models.ActionItem{{ActionID: "a1", Description: "follow up"}}))

	state, err := Derive("job-1", jobDir)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, 4, state.StageIndex)
	assert.Equal(t, 1.0, state.Progress)
	assert.True(t, state.CanDelete)
	assert.Equal(t, 1, state.SummaryCount)
	assert.Equal(t, 1, state.ActionItemCount)
}

func TestDerive_FailureMarkerOverridesAllOtherEvidence(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, artifacts.DumpSummaryItems(jobDir, []models.SummaryItem{{SummaryID: "s1"}}))
	require.NoError(t, artifacts.MarkJobFailed(jobDir, models.StageTranscription, "boom", nil))

	state, err := Derive("job-1", jobDir)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, state.Status)
	assert.Equal(t, 3, state.StageIndex)
	require.NotNil(t, state.FailureRecord)
	assert.Equal(t, models.StageTranscription, state.FailureRecord.Stage)
}

func TestDerive_UnknownFailureStageDoesNotCrash(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, artifacts.MarkJobFailed(jobDir, models.Stage("some_future_stage"), "boom", nil))

	state, err := Derive("job-1", jobDir)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, state.Status)
	assert.Equal(t, 1, state.StageIndex)
	assert.Equal(t, models.Stage("some_future_stage"), state.FailureRecord.Stage)
}

func TestDerive_ChunkOnlyDirectoryWithoutMasterDurationDefaultsToZero(t *testing.T) {
	jobDir := t.TempDir()
	require.NoError(t, artifacts.DumpMediaAssets(jobDir, []models.MediaAsset{
		{AssetID: "c1", Kind: models.AssetKindAudioChunk, Order: 0},
	}))

	state, err := Derive("job-1", jobDir)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.DurationMs)
}
