package inference

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
	"github.com/GriffinCanCode/recap/internal/resilience"
)

type fakeTranscriber struct {
	calls atomic.Int32
	errs  []error
	text  string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	return f.text, nil
}

type fakeSummarizer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return "summary of " + prompt, nil
}

func fastRetry(n int) resilience.RetryConfig {
	return resilience.RetryConfig{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestGuardedTranscriberRetriesTransient(t *testing.T) {
	f := &fakeTranscriber{
		errs: []error{apperr.New(apperr.Unavailable, "503"), apperr.New(apperr.RateLimited, "429")},
		text: "hello",
	}
	g := GuardTranscriber(f, resilience.New(resilience.DefaultConfig("transcribe")), fastRetry(2))

	text, err := g.Transcribe(context.Background(), "x.wav")
	if err != nil || text != "hello" {
		t.Fatalf("Transcribe() = (%q, %v), want (hello, nil)", text, err)
	}
	if f.calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", f.calls.Load())
	}
}

func TestGuardedTranscriberNoRetryByDefault(t *testing.T) {
	f := &fakeTranscriber{errs: []error{apperr.New(apperr.Unavailable, "503")}}
	g := GuardTranscriber(f, resilience.New(resilience.DefaultConfig("transcribe")), fastRetry(0))

	_, err := g.Transcribe(context.Background(), "x.wav")
	if !apperr.IsCode(err, apperr.Unavailable) {
		t.Errorf("Transcribe() = %v, want UNAVAILABLE", err)
	}
	if f.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", f.calls.Load())
	}
}

func TestGuardedTranscriberOpenCircuit(t *testing.T) {
	fail := apperr.New(apperr.Unavailable, "503")
	f := &fakeTranscriber{errs: []error{fail, fail, fail}}
	b := resilience.New(resilience.Config{Name: "transcribe", Threshold: 2, ResetTimeout: time.Hour})
	g := GuardTranscriber(f, b, fastRetry(0))

	for i := 0; i < 2; i++ {
		_, _ = g.Transcribe(context.Background(), "x.wav")
	}

	_, err := g.Transcribe(context.Background(), "x.wav")
	if !errors.Is(err, resilience.ErrOpen) {
		t.Fatalf("Transcribe() = %v, want ErrOpen", err)
	}
	if !apperr.IsCode(err, apperr.TranscriptionFailed) {
		t.Errorf("open circuit should surface as TRANSCRIPTION_FAILED, got %v", err)
	}
	if f.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", f.calls.Load())
	}
}

func TestGuardedSummarizerSingleCall(t *testing.T) {
	f := &fakeSummarizer{err: apperr.New(apperr.SummarizationFailed, "refused")}
	g := GuardSummarizer(f, resilience.New(resilience.DefaultConfig("summarize")), fastRetry(3))

	_, err := g.Summarize(context.Background(), "p")
	if !apperr.IsCode(err, apperr.SummarizationFailed) {
		t.Errorf("Summarize() = %v, want SUMMARIZATION_FAILED", err)
	}
	if f.calls.Load() != 1 {
		t.Errorf("non-retryable failure should not be retried, calls = %d", f.calls.Load())
	}
}

func TestGuardedSummarizerDefaultSendsOnce(t *testing.T) {
	f := &fakeSummarizer{err: apperr.New(apperr.Unavailable, "503")}
	g := GuardSummarizer(f, resilience.New(resilience.DefaultConfig("summarize")), resilience.LLMRetryConfig(0))

	if _, err := g.Summarize(context.Background(), "p"); err == nil {
		t.Fatal("Summarize() error = nil, want failure")
	}
	if f.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 with zero retries even for a transient failure", f.calls.Load())
	}
}

func TestGuardedSummarizerSuccess(t *testing.T) {
	f := &fakeSummarizer{}
	g := GuardSummarizer(f, resilience.New(resilience.DefaultConfig("summarize")), fastRetry(0))

	got, err := g.Summarize(context.Background(), "p")
	if err != nil || got != "summary of p" {
		t.Errorf("Summarize() = (%q, %v)", got, err)
	}
}
