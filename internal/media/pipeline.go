package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"meetforge/internal/models"
)

// Options configures a single run of the media pipeline.
type Options struct {
	ChunkDurationSeconds float64 // must be positive; internal/config defaults it to 900
}

// Pipeline runs C2: transcode, chunk, and manifest a source recording.
type Pipeline struct {
	transcoder *Transcoder
}

func NewPipeline(transcoder *Transcoder) *Pipeline {
	return &Pipeline{transcoder: transcoder}
}

// Run transcodes sourcePath into an audio master under jobDir, cuts it
// into chunks under jobDir/audio_chunks/, and returns the populated
// Media Asset manifest. jobID is used as the job/asset namespace.
func (p *Pipeline) Run(ctx context.Context, jobID, jobDir, sourcePath string, opts Options) ([]models.MediaAsset, error) {
	if opts.ChunkDurationSeconds <= 0 {
		return nil, models.ErrInvalidConfig("chunk_duration_seconds must be positive", nil)
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, models.NewError(models.KindInvalidInput, "source media file is missing", err)
	}

	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	masterPath := filepath.Join(jobDir, fmt.Sprintf("%s_audio.%s", stem, masterExt))

	if err := p.transcoder.TranscodeToMaster(ctx, sourcePath, masterPath); err != nil {
		return nil, err
	}

	durationSeconds, err := p.transcoder.ProbeDurationSeconds(ctx, masterPath)
	if err != nil {
		return nil, err
	}
	if durationSeconds <= 0 {
		return nil, models.ErrEmptyAudio()
	}

	chunksDir := filepath.Join(jobDir, "audio_chunks")
	if err := os.MkdirAll(chunksDir, 0o755); err != nil {
		return nil, models.NewError(models.KindExternalToolFailure, "failed to create chunks directory", err)
	}

	sampleRate := masterSampleRate
	channels := masterChannels
	bitDepth := 16

	masterID := uuid.NewString()
	numChunks := int(math.Ceil(durationSeconds / opts.ChunkDurationSeconds))
	if numChunks < 1 {
		numChunks = 1
	}

	assets := make([]models.MediaAsset, 0, numChunks+1)
	var totalMs int64
	chunkAssets := make([]models.MediaAsset, 0, numChunks)

	for i := 0; i < numChunks; i++ {
		chunkStartSec := float64(i) * opts.ChunkDurationSeconds
		chunkDurSec := opts.ChunkDurationSeconds
		if remaining := durationSeconds - chunkStartSec; remaining < chunkDurSec {
			chunkDurSec = remaining
		}
		if chunkDurSec <= 0 {
			break
		}

		chunkPath := filepath.Join(chunksDir, fmt.Sprintf("%s_chunk_%04d.%s", stem, i, masterExt))
		if err := p.transcoder.ExtractChunk(ctx, masterPath, chunkPath, chunkStartSec, chunkDurSec); err != nil {
			return nil, err
		}

		startMs := int64(math.Round(chunkStartSec * 1000))
		endMs := int64(math.Round((chunkStartSec + chunkDurSec) * 1000))

		asset := models.MediaAsset{
			AssetID:       uuid.NewString(),
			JobID:         jobID,
			Kind:          models.AssetKindAudioChunk,
			Path:          chunkPath,
			Order:         i,
			DurationMs:    endMs - startMs,
			StartMs:       startMs,
			EndMs:         endMs,
			SampleRate:    &sampleRate,
			Channels:      &channels,
			BitDepth:      &bitDepth,
			ParentAssetID: &masterID,
		}
		chunkAssets = append(chunkAssets, asset)
		totalMs = endMs
	}

	master := models.MediaAsset{
		AssetID:    masterID,
		JobID:      jobID,
		Kind:       models.AssetKindAudioMaster,
		Path:       masterPath,
		Order:      -1,
		DurationMs: totalMs,
		StartMs:    0,
		EndMs:      totalMs,
		SampleRate: &sampleRate,
		Channels:   &channels,
		BitDepth:   &bitDepth,
	}

	assets = append(assets, master)
	assets = append(assets, chunkAssets...)
	return assets, nil
}
