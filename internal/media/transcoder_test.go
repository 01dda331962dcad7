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

func TestTranscoder_MissingBinary(t *testing.T) {
	tc := NewTranscoder("definitely-not-a-real-binary-xyz")
	err := tc.TranscodeToMaster(context.Background(), "in.wav", "out.wav")
	require.Error(t, err)

	var pErr *models.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, models.KindExternalToolFailure, pErr.Kind)
}

func TestTranscoder_MissingBinaryExplicitPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-ffmpeg")
	tc := NewTranscoder(missing)
	err := tc.TranscodeToMaster(context.Background(), "in.wav", "out.wav")
	require.Error(t, err)

	var pErr *models.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, models.KindExternalToolFailure, pErr.Kind)
}

func TestNewTranscoder_ProbePathDerivedFromExplicitFfmpegPath(t *testing.T) {
	tc := NewTranscoder("/opt/tools/ffmpeg")
	assert.Equal(t, "/opt/tools/ffmpeg", tc.ffmpegPath)
	assert.Equal(t, "/opt/tools/ffprobe", tc.ffprobePath)
}

func TestNewTranscoder_ProbePathDefaultsToBareNameOnPATHLookup(t *testing.T) {
	tc := NewTranscoder("ffmpeg")
	assert.Equal(t, "ffprobe", tc.ffprobePath)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "12.500", formatSeconds(12.5))
	assert.Equal(t, "0.000", formatSeconds(0))
}

func TestCheckBinaryPresent_BareNameNotOnPath(t *testing.T) {
	tc := NewTranscoder("no-such-binary-should-not-exist")
	err := tc.checkBinaryPresent()
	require.Error(t, err)
	var pErr *models.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, models.KindExternalToolFailure, pErr.Kind)
}

func TestCheckBinaryPresent_ExplicitPathExists(t *testing.T) {
	dir := t.TempDir()
	fakeBinary := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(fakeBinary, []byte("#!/bin/sh\n"), 0o755))

	tc := NewTranscoder(fakeBinary)
	assert.NoError(t, tc.checkBinaryPresent())
}
