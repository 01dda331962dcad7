package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with convenience methods.
type Logger struct {
	*slog.Logger
}

// LogLevel represents logging levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	defaultLogger *Logger
	currentLevel  = LevelInfo
)

// Init initializes the global logger with the specified level.
func Init(level string) {
	switch strings.ToLower(level) {
	case "debug":
		currentLevel = LevelDebug
	case "info", "":
		currentLevel = LevelInfo
	case "warn", "warning":
		currentLevel = LevelWarn
	case "error":
		currentLevel = LevelError
	default:
		currentLevel = LevelInfo
	}

	var slogLevel slog.Level
	switch currentLevel {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{Key: a.Key, Value: slog.StringValue(a.Value.Time().Format("15:04:05"))}
			}
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				switch level {
				case slog.LevelDebug:
					a.Value = slog.StringValue("DEBUG")
				case slog.LevelInfo:
					a.Value = slog.StringValue("INFO ")
				case slog.LevelWarn:
					a.Value = slog.StringValue("WARN ")
				case slog.LevelError:
					a.Value = slog.StringValue("ERROR")
				}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	defaultLogger = &Logger{slog.New(handler)}
}

// Get returns the default logger instance, lazily initializing it from
// LOG_LEVEL if Init was never called.
func Get() *Logger {
	if defaultLogger == nil {
		Init(os.Getenv("LOG_LEVEL"))
	}
	return defaultLogger
}

func GetLevel() LogLevel { return currentLevel }

func Debug(msg string, args ...any) {
	if currentLevel <= LevelDebug {
		Get().Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if currentLevel <= LevelInfo {
		Get().Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if currentLevel <= LevelWarn {
		Get().Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if currentLevel <= LevelError {
		Get().Error(msg, args...)
	}
}

func WithContext(key string, value any) *Logger {
	return &Logger{Get().With(key, value)}
}

// Startup prints a clean, user-friendly line for a major init step.
func Startup(step, message string, args ...any) {
	if currentLevel <= LevelInfo {
		fmt.Printf("\033[36m[+]\033[0m %s\n", message)
	}
	if currentLevel <= LevelDebug {
		Debug("Startup step", append([]any{"step", step, "message", message}, args...)...)
	}
}

// StageStarted logs the beginning of a pipeline stage for a job.
func StageStarted(jobID string, stage string) {
	Info("Stage started", "job_id", jobID, "stage", stage)
}

// StageCompleted logs the successful completion of a pipeline stage.
func StageCompleted(jobID string, stage string, duration time.Duration) {
	Info("Stage completed", "job_id", jobID, "stage", stage, "duration", duration.String())
}

// StageFailed logs a stage failure, including the failure marker's
// message so operators don't need to open the artifact tree.
func StageFailed(jobID string, stage string, duration time.Duration, err error) {
	Error("Stage failed", "job_id", jobID, "stage", stage, "duration", duration.String(), "error", err.Error())
}

// RetryAttempt logs a single C3 retry/backoff decision.
func RetryAttempt(operation string, attempt, maxAttempts int, delay time.Duration, reason string) {
	Warn("Retrying request",
		"operation", operation,
		"attempt", attempt,
		"max_attempts", maxAttempts,
		"delay", delay.String(),
		"reason", reason)
}

// HTTPRequest logs an inbound API request, filtered for noisy polling
// endpoints at INFO level.
func HTTPRequest(method, path string, status int, duration time.Duration, userAgent string) {
	if currentLevel <= LevelInfo {
		if strings.HasSuffix(path, "/status") {
			return
		}
	}
	if currentLevel <= LevelDebug {
		Debug("API request",
			"method", method,
			"path", path,
			"status", status,
			"duration", fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6),
			"user_agent", userAgent)
	}
}

// GinLogger is a Gin middleware producing clean HTTP access logs.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		statusColor := getStatusColor(status)

		if currentLevel <= LevelDebug {
			Debug("API request",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"duration", fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6),
				"ip", c.ClientIP())
		} else if currentLevel <= LevelInfo {
			fmt.Printf("INFO  %s %s %s %s%d%s %s\n",
				time.Now().Format("15:04:05"),
				c.Request.Method,
				path,
				statusColor,
				status,
				"\033[0m",
				fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1e6))
		}
	}
}

func getStatusColor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "\033[32m"
	case status >= 300 && status < 400:
		return "\033[33m"
	case status >= 400 && status < 500:
		return "\033[31m"
	case status >= 500:
		return "\033[35m"
	default:
		return "\033[37m"
	}
}

// SetGinOutput suppresses Gin's own default logger so only ours prints.
func SetGinOutput() {
	gin.DefaultWriter = io.Discard
}
