package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"meetforge/internal/api"
	"meetforge/internal/config"
	"meetforge/internal/httpx"
	"meetforge/internal/media"
	"meetforge/internal/orchestrator"
	"meetforge/internal/summarization"
	"meetforge/internal/transcription"
	"meetforge/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "show version information")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	if *showVersion {
		fmt.Printf("meetforge-apiserver %s (%s)\n", version, commit)
		os.Exit(0)
	}

	log.Println("meetforge-apiserver starting up...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.SetGinOutput()
	logger.Startup("config", "configuration loaded")
	logger.Info("starting meetforge-apiserver", "version", version, "commit", commit)

	accessLog := zerolog.New(os.Stdout).With().Timestamp().Str("component", "apiserver").Logger()

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

	orch := &orchestrator.Orchestrator{
		Queue:         orchestrator.NewKafkaQueue(cfg.BrokerURL, cfg.QueueName),
		MediaPipeline: media.NewPipeline(media.NewTranscoder(cfg.TranscoderPath)),
		TranscriptionModel: transcription.NewDriver(transcription.Config{
			Caller:      transcriptionCaller,
			BaseURL:     cfg.TranscriptionBaseURL,
			APIKey:      cfg.TranscriptionAPIKey,
			Model:       cfg.TranscriptionModel,
			UserAgent:   cfg.TranscriptionUserAgent,
			Concurrency: cfg.TranscriptionMaxConcurrency,
		}),
		SummarizationModel: summarization.NewDriver(summarization.Config{
			Caller:      summarizationCaller,
			BaseURL:     cfg.TranscriptionBaseURL,
			APIKey:      cfg.TranscriptionAPIKey,
			Model:       cfg.SummarizationModel,
			Temperature: cfg.SummarizationTemperature,
			MaxTokens:   cfg.SummarizationMaxOutputTokens,
			UserAgent:   cfg.TranscriptionUserAgent,
		}),
		ChunkDuration: media.Options{ChunkDurationSeconds: float64(cfg.ChunkDurationSec)},
		PromptDefaults: summarization.PromptOptions{
			SectionMin:        cfg.SummarySectionMin,
			SectionMax:        cfg.SummarySectionMax,
			MinutesPerSection: cfg.SummaryMinutesPerSection,
		},
	}

	handler := api.NewHandler(cfg.UploadRoot, orch)

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRoutes(handler, accessLog)

	srv := &http.Server{Addr: *addr, Handler: router}

	go func() {
		logger.Startup("http", "listening on "+*addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown:", err)
	}
	logger.Info("apiserver exited cleanly")
}
