package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"meetforge/internal/models"
	"meetforge/pkg/binaries"
)

// Config holds every enumerated configuration value from spec §6.
type Config struct {
	// Filesystem / broker
	UploadRoot       string
	BrokerURL        string
	QueueName        string
	JobTimeoutSec    int
	TranscoderPath   string
	ChunkDurationSec int

	// Transcription API (C4, via C3)
	TranscriptionAPIKey            string
	TranscriptionBaseURL           string
	TranscriptionModel             string
	TranscriptionTimeoutSec        int
	TranscriptionMaxAttempts       int
	TranscriptionBackoffSec        float64
	TranscriptionMaxBackoffSec     float64
	TranscriptionRequestsPerMinute int
	TranscriptionMaxConcurrency    int
	TranscriptionUserAgent         string

	// Summarization API (C6, via C3)
	SummarizationModel             string
	SummarizationTemperature       float64
	SummarizationTimeoutSec        int
	SummarizationMaxAttempts       int
	SummarizationBackoffSec        float64
	SummarizationMaxBackoffSec     float64
	SummarizationRequestsPerMinute int
	SummarizationMaxOutputTokens   int

	// §4.6 Open Question #3 — target-section sizing knobs.
	SummarySectionMin        int
	SummarySectionMax        int
	SummaryMinutesPerSection float64
}

// Load loads configuration from the environment (and an optional .env
// file), then validates the numeric fields. Returns *InvalidConfig
// wrapped as models.PipelineError on the first problem. A numeric value
// that does not parse is not reported: it falls back to its default.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg := &Config{
		UploadRoot:       getEnv("UPLOAD_ROOT", "data/uploads"),
		BrokerURL:        getEnv("BROKER_URL", "localhost:9092"),
		QueueName:        getEnv("QUEUE_NAME", "meeting-pipeline"),
		TranscoderPath:   getEnv("TRANSCODER_PATH", binaries.FFmpeg()),
		ChunkDurationSec: getEnvAsInt("CHUNK_DURATION_SECONDS", 900),

		TranscriptionAPIKey:            os.Getenv("TRANSCRIPTION_API_KEY"),
		TranscriptionBaseURL:           getEnv("TRANSCRIPTION_BASE_URL", "https://api.openai.com/v1"),
		TranscriptionModel:             getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		TranscriptionTimeoutSec:        getEnvAsInt("TRANSCRIPTION_TIMEOUT_SECONDS", 120),
		TranscriptionMaxAttempts:       getEnvAsInt("TRANSCRIPTION_MAX_ATTEMPTS", 4),
		TranscriptionBackoffSec:        getEnvAsFloat("TRANSCRIPTION_RETRY_BACKOFF_SECONDS", 1.0),
		TranscriptionMaxBackoffSec:     getEnvAsFloat("TRANSCRIPTION_MAX_RETRY_BACKOFF_SECONDS", 30.0),
		TranscriptionRequestsPerMinute: getEnvAsInt("TRANSCRIPTION_REQUESTS_PER_MINUTE", 0),
		TranscriptionMaxConcurrency:    getEnvAsInt("TRANSCRIPTION_MAX_CONCURRENCY", 4),
		TranscriptionUserAgent:         getEnv("TRANSCRIPTION_USER_AGENT", "meetforge-worker/1.0"),

		SummarizationModel:             getEnv("SUMMARIZATION_MODEL", "gpt-4o-mini"),
		SummarizationTemperature:       getEnvAsFloat("SUMMARIZATION_TEMPERATURE", 0.2),
		SummarizationTimeoutSec:        getEnvAsInt("SUMMARIZATION_TIMEOUT_SECONDS", 120),
		SummarizationMaxAttempts:       getEnvAsInt("SUMMARIZATION_MAX_ATTEMPTS", 4),
		SummarizationBackoffSec:        getEnvAsFloat("SUMMARIZATION_RETRY_BACKOFF_SECONDS", 1.0),
		SummarizationMaxBackoffSec:     getEnvAsFloat("SUMMARIZATION_MAX_RETRY_BACKOFF_SECONDS", 30.0),
		SummarizationRequestsPerMinute: getEnvAsInt("SUMMARIZATION_REQUESTS_PER_MINUTE", 0),
		SummarizationMaxOutputTokens:   getEnvAsInt("SUMMARIZATION_MAX_OUTPUT_TOKENS", 2048),

		SummarySectionMin:        getEnvAsInt("SUMMARY_SECTION_MIN", 3),
		SummarySectionMax:        getEnvAsInt("SUMMARY_SECTION_MAX", 12),
		SummaryMinutesPerSection: getEnvAsFloat("SUMMARY_MINUTES_PER_SECTION", 8.0),
	}

	cfg.JobTimeoutSec = getEnvAsInt("JOB_TIMEOUT_SECONDS", 900)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that the numeric fields are positive where required.
// Parsing is not checked here: getEnvAsInt/getEnvAsFloat have already
// replaced an unparseable value with its default.
func (c *Config) validate() error {
	positives := map[string]float64{
		"CHUNK_DURATION_SECONDS":              float64(c.ChunkDurationSec),
		"JOB_TIMEOUT_SECONDS":                 float64(c.JobTimeoutSec),
		"TRANSCRIPTION_TIMEOUT_SECONDS":       float64(c.TranscriptionTimeoutSec),
		"TRANSCRIPTION_MAX_ATTEMPTS":          float64(c.TranscriptionMaxAttempts),
		"TRANSCRIPTION_RETRY_BACKOFF_SECONDS": c.TranscriptionBackoffSec,
		"TRANSCRIPTION_MAX_CONCURRENCY":       float64(c.TranscriptionMaxConcurrency),
		"SUMMARIZATION_TIMEOUT_SECONDS":       float64(c.SummarizationTimeoutSec),
		"SUMMARIZATION_MAX_ATTEMPTS":          float64(c.SummarizationMaxAttempts),
		"SUMMARIZATION_RETRY_BACKOFF_SECONDS": c.SummarizationBackoffSec,
		"SUMMARIZATION_MAX_OUTPUT_TOKENS":     float64(c.SummarizationMaxOutputTokens),
		"SUMMARY_SECTION_MIN":                 float64(c.SummarySectionMin),
		"SUMMARY_SECTION_MAX":                 float64(c.SummarySectionMax),
		"SUMMARY_MINUTES_PER_SECTION":         c.SummaryMinutesPerSection,
	}
	for name, v := range positives {
		if v <= 0 {
			return models.ErrInvalidConfig(fmt.Sprintf("%s must be positive, got %v", name, v), nil)
		}
	}
	if c.TranscriptionMaxBackoffSec != 0 && c.TranscriptionMaxBackoffSec <= 0 {
		return models.ErrInvalidConfig("TRANSCRIPTION_MAX_RETRY_BACKOFF_SECONDS must be positive when set", nil)
	}
	if c.SummarizationMaxBackoffSec != 0 && c.SummarizationMaxBackoffSec <= 0 {
		return models.ErrInvalidConfig("SUMMARIZATION_MAX_RETRY_BACKOFF_SECONDS must be positive when set", nil)
	}
	if c.TranscriptionRequestsPerMinute < 0 {
		return models.ErrInvalidConfig("TRANSCRIPTION_REQUESTS_PER_MINUTE must be positive when set", nil)
	}
	if c.SummarizationRequestsPerMinute < 0 {
		return models.ErrInvalidConfig("SUMMARIZATION_REQUESTS_PER_MINUTE must be positive when set", nil)
	}
	if c.SummarySectionMin > c.SummarySectionMax {
		return models.ErrInvalidConfig("SUMMARY_SECTION_MIN must be <= SUMMARY_SECTION_MAX", nil)
	}
	return nil
}

// RequireWorkerStartup additionally fails startup if the transcription
// API key is missing, per spec §6.
func (c *Config) RequireWorkerStartup() error {
	if c.TranscriptionAPIKey == "" {
		return models.ErrInvalidConfig("TRANSCRIPTION_API_KEY is required to start a worker", nil)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
