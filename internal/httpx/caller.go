// Package httpx implements C3: a protocol-agnostic retry, backoff, and
// rate-limiting wrapper shared by the transcription and summarization
// drivers. Grounded on the retry-less internal/llm.OpenAIService client
// in the teacher repo, generalized with golang.org/x/time/rate for the
// pacing gate this spec requires.
package httpx

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"meetforge/internal/models"
	"meetforge/pkg/logger"
)

// retriableStatuses is the fixed taxonomy of HTTP statuses eligible for
// a retry, per spec §4.3.
var retriableStatuses = map[int]bool{
	408: true, 409: true, 429: true,
	500: true, 502: true, 503: true, 504: true,
}

// Options configures a single Caller instance.
type Options struct {
	MaxAttempts       int           // >= 1
	RetryBackoff      time.Duration // base delay, > 0
	MaxRetryBackoff   time.Duration // optional cap; 0 disables the cap
	RequestsPerMinute int           // optional; 0 disables pacing
	RequestTimeout    time.Duration // per-call deadline, > 0
}

// Caller wraps a retry+backoff+rate-limit policy around an arbitrary
// HTTP call. One instance's rate limiter state is shared by every call
// made through it — callers that need an overall ceiling across
// multiple chunks must share a single Caller.
type Caller struct {
	opts    Options
	limiter *rate.Limiter
}

// New builds a Caller. When opts.RequestsPerMinute is 0, no pacing is
// applied between attempts.
func New(opts Options) *Caller {
	c := &Caller{opts: opts}
	if opts.RequestsPerMinute > 0 {
		every := time.Minute / time.Duration(opts.RequestsPerMinute)
		c.limiter = rate.NewLimiter(rate.Every(every), 1)
	}
	return c
}

// Attempt is what a thunk passed to Do must return: a non-nil response
// (any shape the caller wants to inspect for its own status code) and
// optionally an error. StatusCode is 0 when the attempt never reached
// the point of receiving a response (pure transport failure).
type Attempt struct {
	StatusCode int
	RetryAfter string // raw Retry-After header value, if any
	Err        error  // non-nil: a network/transport-level failure
}

// Do runs fn up to MaxAttempts times, retrying on transport errors or a
// retriable status, honoring Retry-After, and pacing attempts against
// the shared rate limiter. fn performs exactly one HTTP attempt and
// reports its outcome via the returned Attempt; Do returns fn's last
// returned value `result` once an attempt is accepted (no error, status
// below 400), fails at once on any other non-retriable status, or
// returns the last error once attempts are exhausted.
func (c *Caller) Do(ctx context.Context, operation string, fn func(ctx context.Context) (result any, attempt Attempt, err error)) (any, error) {
	if c.opts.MaxAttempts < 1 {
		return nil, models.NewError(models.KindOrchestration, "max_attempts must be >= 1", nil)
	}

	var lastErr error
	for k := 1; k <= c.opts.MaxAttempts; k++ {
		if err := c.awaitPacing(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		result, attempt, err := fn(callCtx)
		cancel()

		if attempt.Err != nil {
			err = attempt.Err
		}

		if err == nil && attempt.StatusCode < http.StatusBadRequest {
			return result, nil
		}
		if attempt.StatusCode != 0 && !retriableStatuses[attempt.StatusCode] {
			return nil, models.NewHTTPError(models.KindPermanentHTTP, "non-retriable status", attempt.StatusCode, err)
		}

		lastErr = err
		if err == nil {
			lastErr = models.NewHTTPError(models.KindTransientHTTP, "retriable status", attempt.StatusCode, nil)
		}

		if k == c.opts.MaxAttempts {
			break
		}

		delay := c.backoffFor(k, attempt.RetryAfter)
		logger.RetryAttempt(operation, k, c.opts.MaxAttempts, delay, describeFailure(attempt, err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// awaitPacing blocks until the rate limiter admits the next attempt.
func (c *Caller) awaitPacing(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// backoffFor computes the delay before attempt k+1: base·2^(k-1), then
// raised to Retry-After when present, then capped.
func (c *Caller) backoffFor(k int, retryAfter string) time.Duration {
	delay := time.Duration(float64(c.opts.RetryBackoff) * math.Pow(2, float64(k-1)))

	if retryAfter != "" {
		if d, ok := parseRetryAfter(retryAfter); ok && d > delay {
			delay = d
		}
	}

	if c.opts.MaxRetryBackoff > 0 && delay > c.opts.MaxRetryBackoff {
		delay = c.opts.MaxRetryBackoff
	}
	return delay
}

// parseRetryAfter accepts either a delay-seconds integer or an HTTP-date,
// per RFC 9110 §10.2.3.
func parseRetryAfter(value string) (time.Duration, bool) {
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		d := time.Until(when)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func describeFailure(attempt Attempt, err error) string {
	if attempt.StatusCode != 0 {
		return "status " + strconv.Itoa(attempt.StatusCode)
	}
	if err != nil {
		return err.Error()
	}
	return "unknown"
}

// IsRetriableStatus exposes the fixed status taxonomy for callers that
// need to classify a status outside of Do (e.g. when building a final
// error after exhausting attempts).
func IsRetriableStatus(status int) bool {
	return retriableStatuses[status]
}
