package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetforge/internal/models"
)

func TestPipeline_Run_RejectsNonPositiveChunkDuration(t *testing.T) {
	p := NewPipeline(NewTranscoder("ffmpeg"))
	_, err := p.Run(context.Background(), "job-1", t.TempDir(), "source.wav", Options{ChunkDurationSeconds: 0})
	require.Error(t, err)

	var pErr *models.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, models.KindInvalidInput, pErr.Kind)
}

func TestPipeline_Run_RejectsMissingSource(t *testing.T) {
	p := NewPipeline(NewTranscoder("ffmpeg"))
	jobDir := t.TempDir()
	_, err := p.Run(context.Background(), "job-1", jobDir, filepath.Join(jobDir, "missing.wav"), Options{ChunkDurationSeconds: 900})
	require.Error(t, err)

	var pErr *models.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, models.KindInvalidInput, pErr.Kind)
}

func TestPipeline_Run_FailsFastWhenTranscoderMissing(t *testing.T) {
	jobDir := t.TempDir()
	sourcePath := filepath.Join(jobDir, "source.wav")
	require.NoError(t, os.WriteFile(sourcePath, []byte("not real audio but present"), 0o644))

	p := NewPipeline(NewTranscoder("no-such-transcoder-binary"))
	_, err := p.Run(context.Background(), "job-1", jobDir, sourcePath, Options{ChunkDurationSeconds: 900})
	require.Error(t, err)

	var pErr *models.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, models.KindExternalToolFailure, pErr.Kind)
}
