// Package media implements C2: transcode a source recording to a mono
// audio master, cut it into fixed-duration chunks, and emit a Media
// Asset manifest. Grounded on internal/audio/merger.go's ffmpeg
// subprocess handling in the teacher repo.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"meetforge/internal/models"
)

const (
	masterSampleRate = 16000
	masterChannels   = 1
	masterCodec      = "pcm_s16le"
	masterExt        = "wav"
)

// Transcoder wraps the ffmpeg/ffprobe subprocess pair used to produce
// and probe the audio master.
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
}

// NewTranscoder builds a Transcoder. ffmpegPath may be a bare command
// name (resolved via PATH) or an absolute path; the probe tool is
// looked up next to it when ffmpegPath is explicit, else via PATH,
// per spec §6.
func NewTranscoder(ffmpegPath string) *Transcoder {
	probe := "ffprobe"
	if dir := filepath.Dir(ffmpegPath); dir != "." && dir != "" {
		probe = filepath.Join(dir, "ffprobe")
	}
	return &Transcoder{ffmpegPath: ffmpegPath, ffprobePath: probe}
}

// TranscodeToMaster invokes the transcoder to produce a mono audio
// master at a fixed sample rate, writing to outputPath.
func (t *Transcoder) TranscodeToMaster(ctx context.Context, sourcePath, outputPath string) error {
	if err := t.checkBinaryPresent(); err != nil {
		return err
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", sourcePath,
		"-vn",
		"-acodec", masterCodec,
		"-ar", strconv.Itoa(masterSampleRate),
		"-ac", strconv.Itoa(masterChannels),
		outputPath,
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return models.ErrTranscodeFailed(fmt.Errorf("%w: %s", err, stderr.String()))
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return models.ErrTranscodeFailed(errors.New("transcoder produced no output"))
	}
	return nil
}

// ExtractChunk re-encodes the window
// [startSeconds, startSeconds+durationSeconds) of the master into
// outputPath.
func (t *Transcoder) ExtractChunk(ctx context.Context, masterPath, outputPath string, startSeconds, durationSeconds float64) error {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-ss", formatSeconds(startSeconds),
		"-t", formatSeconds(durationSeconds),
		"-i", masterPath,
		"-acodec", masterCodec,
		"-ar", strconv.Itoa(masterSampleRate),
		"-ac", strconv.Itoa(masterChannels),
		outputPath,
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return models.ErrTranscodeFailed(fmt.Errorf("chunk extraction failed: %w: %s", err, stderr.String()))
	}
	return nil
}

// ProbeDurationSeconds queries the probe tool for the media file's
// duration in seconds.
func (t *Transcoder) ProbeDurationSeconds(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}
	cmd := exec.CommandContext(ctx, t.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, models.ErrProbeFailed(fmt.Errorf("%w: %s", err, stderr.String()))
	}

	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return 0, models.ErrProbeFailed(fmt.Errorf("failed to parse probe output: %w", err))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64)
	if err != nil || duration <= 0 {
		return 0, models.ErrProbeFailed(fmt.Errorf("non-positive duration %q", parsed.Format.Duration))
	}
	return duration, nil
}

// checkBinaryPresent resolves the transcoder binary either via PATH
// (bare name) or as an explicit filesystem path.
func (t *Transcoder) checkBinaryPresent() error {
	if filepath.IsAbs(t.ffmpegPath) || strings.ContainsRune(t.ffmpegPath, filepath.Separator) {
		if _, err := os.Stat(t.ffmpegPath); err != nil {
			return models.ErrTranscoderMissing(err)
		}
		return nil
	}
	if _, err := exec.LookPath(t.ffmpegPath); err != nil {
		return models.ErrTranscoderMissing(err)
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
