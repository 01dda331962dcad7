package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"meetforge/internal/config"
	"meetforge/internal/httpx"
	"meetforge/internal/media"
	"meetforge/internal/orchestrator"
	"meetforge/internal/summarization"
	"meetforge/internal/transcription"
	"meetforge/pkg/logger"
)

// Version information, set by the release pipeline.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	log.Println("meetforge-worker starting up...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Startup("config", "configuration loaded")
	logger.Info("starting meetforge-worker", "version", version, "commit", commit)

	if err := cfg.RequireWorkerStartup(); err != nil {
		log.Fatal("worker startup validation failed:", err)
	}

	transcriptionCaller := httpx.New(httpx.Options{
		MaxAttempts:       cfg.TranscriptionMaxAttempts,
		RetryBackoff:      time.Duration(cfg.TranscriptionBackoffSec * float64(time.Second)),
		MaxRetryBackoff:   time.Duration(cfg.TranscriptionMaxBackoffSec * float64(time.Second)),
		RequestsPerMinute: cfg.TranscriptionRequestsPerMinute,
		RequestTimeout:    time.Duration(cfg.TranscriptionTimeoutSec) * time.Second,
	})
	summarizationCaller := httpx.New(httpx.Options{
		MaxAttempts:       cfg.SummarizationMaxAttempts,
		RetryBackoff:      time.Duration(cfg.SummarizationBackoffSec * float64(time.Second)),
		MaxRetryBackoff:   time.Duration(cfg.SummarizationMaxBackoffSec * float64(time.Second)),
		RequestsPerMinute: cfg.SummarizationRequestsPerMinute,
		RequestTimeout:    time.Duration(cfg.SummarizationTimeoutSec) * time.Second,
	})

	transcoder := media.NewTranscoder(cfg.TranscoderPath)
	mediaPipeline := media.NewPipeline(transcoder)

	transcriptionDriver := transcription.NewDriver(transcription.Config{
		Caller:      transcriptionCaller,
		BaseURL:     cfg.TranscriptionBaseURL,
		APIKey:      cfg.TranscriptionAPIKey,
		Model:       cfg.TranscriptionModel,
		UserAgent:   cfg.TranscriptionUserAgent,
		Concurrency: cfg.TranscriptionMaxConcurrency,
	})

	summarizationDriver := summarization.NewDriver(summarization.Config{
		Caller:      summarizationCaller,
		BaseURL:     cfg.TranscriptionBaseURL,
		APIKey:      cfg.TranscriptionAPIKey,
		Model:       cfg.SummarizationModel,
		Temperature: cfg.SummarizationTemperature,
		MaxTokens:   cfg.SummarizationMaxOutputTokens,
		UserAgent:   cfg.TranscriptionUserAgent,
	})

	logger.Startup("queue", "connecting to broker at "+cfg.BrokerURL)
	queue := orchestrator.NewKafkaQueue(cfg.BrokerURL, cfg.QueueName)
	defer queue.Close()

	orch := &orchestrator.Orchestrator{
		Queue:              queue,
		MediaPipeline:      mediaPipeline,
		TranscriptionModel: transcriptionDriver,
		SummarizationModel: summarizationDriver,
		ChunkDuration:      media.Options{ChunkDurationSeconds: float64(cfg.ChunkDurationSec)},
		PromptDefaults: summarization.PromptOptions{
			SectionMin:        cfg.SummarySectionMin,
			SectionMax:        cfg.SummarySectionMax,
			MinutesPerSection: cfg.SummaryMinutesPerSection,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Startup("worker", "ready and consuming "+cfg.QueueName)

	go runLoop(ctx, queue, orch, cfg)

	<-ctx.Done()
	logger.Info("shutdown signal received")
}

// runLoop pulls Message values off the queue and dispatches each to its
// stage task. A handler error is logged, not fatal: the failure marker
// it wrote (via Orchestrator.fail) is the durable record.
func runLoop(ctx context.Context, consumer orchestrator.Consumer, orch *orchestrator.Orchestrator, cfg *config.Config) {
	for {
		msg, err := consumer.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("failed to consume queue message", "error", err.Error())
			continue
		}

		jobDir := msg.JobDir
		if jobDir == "" {
			jobDir = filepath.Join(cfg.UploadRoot, msg.JobID)
		}

		var handlerErr error
		switch msg.Task {
		case orchestrator.TaskTranscribe:
			handlerErr = orch.Transcribe(ctx, msg.JobID, jobDir, transcription.Hints{Language: msg.Language, Prompt: msg.Prompt})
		case orchestrator.TaskSummarize:
			handlerErr = orch.Summarize(ctx, msg.JobID, jobDir)
		default:
			handlerErr = fmt.Errorf("unrecognized task %q", msg.Task)
		}

		if handlerErr != nil {
			logger.Error("stage task failed", "task", string(msg.Task), "job_id", msg.JobID, "error", handlerErr.Error())
		}
	}
}
