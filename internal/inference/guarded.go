package inference

import (
	"context"
	stderrors "errors"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
	"github.com/GriffinCanCode/recap/internal/resilience"
)

// GuardedTranscriber adds a circuit breaker and retry policy to a Transcriber.
type GuardedTranscriber struct {
	next    Transcriber
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// GuardTranscriber wraps t. A zero MaxRetries in rc means one attempt.
func GuardTranscriber(t Transcriber, b *resilience.Breaker, rc resilience.RetryConfig) *GuardedTranscriber {
	return &GuardedTranscriber{next: t, breaker: b, retry: rc}
}

func (g *GuardedTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	var text string
	err := resilience.Retry(ctx, g.retry, func() error {
		var err error
		text, err = resilience.Execute(g.breaker, func() (string, error) {
			return g.next.Transcribe(ctx, path)
		})
		return openCircuit(err, apperr.TranscriptionFailed)
	})
	return text, err
}

// GuardedSummarizer adds a circuit breaker and retry policy to a Summarizer.
type GuardedSummarizer struct {
	next    Summarizer
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// GuardSummarizer wraps s.
func GuardSummarizer(s Summarizer, b *resilience.Breaker, rc resilience.RetryConfig) *GuardedSummarizer {
	return &GuardedSummarizer{next: s, breaker: b, retry: rc}
}

func (g *GuardedSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	var text string
	err := resilience.Retry(ctx, g.retry, func() error {
		var err error
		text, err = resilience.Execute(g.breaker, func() (string, error) {
			return g.next.Summarize(ctx, prompt)
		})
		return openCircuit(err, apperr.SummarizationFailed)
	})
	return text, err
}

// openCircuit turns a breaker rejection into a non-retryable AppError.
func openCircuit(err error, code apperr.Code) error {
	if stderrors.Is(err, resilience.ErrOpen) {
		return apperr.Wrap(err, code, "skipped while circuit is open")
	}
	return err
}
