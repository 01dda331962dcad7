// Package binaries resolves the external media-tool executables the
// pipeline shells out to, honoring an env var override before falling
// back to a bare name resolved via PATH.
package binaries

import "os"

func resolve(envKey, fallback string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return fallback
}

// FFmpeg returns the configured ffmpeg executable path, used as
// internal/config's default TRANSCODER_PATH.
func FFmpeg() string {
	return resolve("MEETFORGE_FFMPEG_BIN", "ffmpeg")
}

// FFprobe returns the configured ffprobe executable path.
func FFprobe() string {
	return resolve("MEETFORGE_FFPROBE_BIN", "ffprobe")
}
