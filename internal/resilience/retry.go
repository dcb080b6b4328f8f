package resilience

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
	"github.com/GriffinCanCode/recap/internal/trace"
)

// Retry configuration constants
const (
	DefaultBaseDelay    = 500 * time.Millisecond
	DefaultMaxDelay     = 10 * time.Second
	DefaultJitterFactor = 0.2

	// LLM calls are slower and rate limited, back off harder.
	LLMBaseDelay = 1 * time.Second
	LLMMaxDelay  = 30 * time.Second
)

// RetryConfig holds retry settings. MaxRetries of zero means a single attempt.
type RetryConfig struct {
	Op           string // names the call in log lines
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
	IsRetryable  func(error) bool
}

// TranscribeRetryConfig returns settings for per-chunk transcription calls.
func TranscribeRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		Op:           "transcribe",
		MaxRetries:   maxRetries,
		BaseDelay:    DefaultBaseDelay,
		MaxDelay:     DefaultMaxDelay,
		JitterFactor: DefaultJitterFactor,
		IsRetryable:  IsRetryableStatus,
	}
}

// LLMRetryConfig returns settings for the summarization call.
func LLMRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		Op:           "summarize",
		MaxRetries:   maxRetries,
		BaseDelay:    LLMBaseDelay,
		MaxDelay:     LLMMaxDelay,
		JitterFactor: DefaultJitterFactor,
		IsRetryable:  IsRetryableStatus,
	}
}

// IsRetryableStatus reports whether err carries a transient status code.
// Errors without a status are not retried.
func IsRetryableStatus(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

// Retry executes fn with exponential backoff. When every attempt fails the
// last error is returned; an AppError also gets an "attempts" metadata entry.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	log := trace.Logger(ctx)
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			if attempt > 0 {
				log.Info("call succeeded after retry", "op", cfg.Op, "attempts", attempt+1)
			}
			return nil
		}

		if attempt == cfg.MaxRetries || !cfg.IsRetryable(lastErr) {
			return annotateAttempts(lastErr, attempt+1)
		}

		delay := backoffDelay(cfg, attempt)
		log.Warn("retrying after transient failure", "op", cfg.Op, "attempt", attempt+1,
			"max_retries", cfg.MaxRetries, "delay", delay, "error", lastErr)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return lastErr
}

func annotateAttempts(err error, attempts int) error {
	if attempts < 2 {
		return err
	}
	if appErr, ok := apperr.As(err); ok {
		appErr.WithMetadata("attempts", strconv.Itoa(attempts))
	}
	return err
}

// backoffDelay calculates exponential backoff with jitter.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay << min(attempt, 6)
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := float64(delay) * cfg.JitterFactor * (rand.Float64() - 0.5)
	return time.Duration(float64(delay) + jitter)
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Op == "" {
		c.Op = "call"
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = DefaultJitterFactor
	}
	if c.IsRetryable == nil {
		c.IsRetryable = IsRetryableStatus
	}
	return c
}
