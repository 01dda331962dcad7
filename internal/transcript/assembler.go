// Package transcript implements C5: merge per-chunk transcription
// results into a single, globally ordered, absolute-millisecond
// transcript. Grounded on the STT stage's chunk-to-global accumulation
// idiom in other_examples/7996296b_creastat-pipeline__stages-stt.go.go
// (skip empty text, accumulate in order, fail loud on nothing usable),
// generalized to the sort-merge-by-window algorithm spec §4.5 requires.
package transcript

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"meetforge/internal/models"
	"meetforge/pkg/logger"
)

// Assemble merges chunkResults (one per audio-chunk asset, any order)
// into a dense, monotonically ordered transcript. jobID stamps every
// emitted segment.
func Assemble(jobID string, chunkResults []models.ChunkTranscriptionResult) ([]models.TranscriptSegment, error) {
	sorted := make([]models.ChunkTranscriptionResult, len(chunkResults))
	copy(sorted, chunkResults)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartMs != sorted[j].StartMs {
			return sorted[i].StartMs < sorted[j].StartMs
		}
		return sorted[i].AssetID < sorted[j].AssetID
	})

	globalLanguage := ""
	segments := make([]models.TranscriptSegment, 0, len(sorted))
	order := 0

	for _, chunk := range sorted {
		if globalLanguage == "" && chunk.Language != "" {
			globalLanguage = chunk.Language
		}

		emittedForChunk := 0
		for _, candidate := range chunk.Segments {
			if strings.TrimSpace(candidate.Text) == "" {
				logger.Debug("skipping candidate segment with empty text", "asset_id", chunk.AssetID)
				continue
			}
			if !candidate.HasStart || !candidate.HasEnd {
				logger.Debug("skipping candidate segment missing a timestamp", "asset_id", chunk.AssetID)
				continue
			}

			absStart := chunk.StartMs + roundToMs(candidate.StartSeconds)
			absEnd := chunk.StartMs + roundToMs(candidate.EndSeconds)

			start := maxInt64(chunk.StartMs, absStart)
			end := minInt64(chunk.EndMs, absEnd)

			if end <= start {
				continue
			}
			text := strings.TrimSpace(candidate.Text)
			if text == "" {
				continue
			}

			segments = append(segments, models.TranscriptSegment{
				SegmentID:     uuid.NewString(),
				JobID:         jobID,
				Order:         order,
				StartMs:       start,
				EndMs:         end,
				Text:          text,
				Language:      chunk.Language,
				SpeakerLabel:  candidate.Speaker,
				SourceAssetID: chunk.AssetID,
			})
			order++
			emittedForChunk++
		}

		if emittedForChunk == 0 {
			return nil, models.ErrMalformedTranscription(chunk.AssetID, chunk.StartMs, chunk.EndMs)
		}
	}

	for i := range segments {
		if segments[i].Language == "" {
			segments[i].Language = globalLanguage
		}
	}

	return segments, nil
}

func roundToMs(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
