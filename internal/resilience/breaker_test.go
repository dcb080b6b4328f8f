package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
)

func TestBreakerInitialState(t *testing.T) {
	b := New(DefaultConfig("transcribe"))
	if b.State() != Closed {
		t.Errorf("initial state = %v, want Closed", b.State())
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := New(Config{Threshold: 3, ResetTimeout: time.Hour, HalfOpenSuccesses: 2})

	for i := 0; i < 3; i++ {
		b.Failure()
	}

	if b.State() != Open {
		t.Errorf("state = %v, want Open", b.State())
	}
	if err := b.Allow(); err != ErrOpen {
		t.Errorf("Allow() = %v, want ErrOpen", err)
	}
}

func TestBreakerHalfOpenThenClosed(t *testing.T) {
	b := New(Config{Threshold: 1, ResetTimeout: time.Millisecond, HalfOpenSuccesses: 2})
	b.Failure()

	time.Sleep(5 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v, want nil", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want HalfOpen", b.State())
	}

	b.Success()
	b.Success()

	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := New(Config{Threshold: 1, ResetTimeout: time.Millisecond, HalfOpenSuccesses: 3})
	b.Failure()

	time.Sleep(5 * time.Millisecond)
	_ = b.Allow()

	b.Failure()

	if b.State() != Open {
		t.Errorf("state = %v, want Open", b.State())
	}
}

func TestBreakerReset(t *testing.T) {
	b := New(Config{Threshold: 1, ResetTimeout: time.Hour})
	b.Failure()
	b.Reset()

	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}

func TestExecute(t *testing.T) {
	b := New(Config{Threshold: 2, ResetTimeout: time.Hour})

	text, err := Execute(b, func() (string, error) { return "hello", nil })
	if err != nil || text != "hello" {
		t.Errorf("Execute = (%q, %v), want (hello, nil)", text, err)
	}

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		if _, err := Execute(b, func() (string, error) { return "", boom }); err != boom {
			t.Errorf("Execute failure = %v, want %v", err, boom)
		}
	}

	called := false
	_, err = Execute(b, func() (string, error) { called = true; return "", nil })
	if err != ErrOpen {
		t.Errorf("Execute while open = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn should not run while breaker is open")
	}
}

func TestExecuteIgnoresRequestErrors(t *testing.T) {
	b := New(Config{Threshold: 1, ResetTimeout: time.Hour})

	for _, err := range []error{
		apperr.New(apperr.TranscriptionEmpty, "silence"),
		apperr.New(apperr.InvalidArgument, "bad file"),
		apperr.New(apperr.Cancelled, "stopped"),
		context.Canceled,
	} {
		_, _ = Execute(b, func() (string, error) { return "", err })
	}
	if b.State() != Closed {
		t.Fatalf("state = %v, request errors must not open the breaker", b.State())
	}

	_, _ = Execute(b, func() (string, error) { return "", apperr.New(apperr.Unavailable, "503") })
	if b.State() != Open {
		t.Errorf("state = %v, want Open after a provider fault", b.State())
	}
}

func TestProviderFault(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection reset"), true},
		{apperr.New(apperr.RateLimited, "429"), true},
		{apperr.New(apperr.Timeout, "deadline"), true},
		{apperr.New(apperr.TranscriptionFailed, "bad audio"), false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		if got := ProviderFault(tt.err); got != tt.want {
			t.Errorf("ProviderFault(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestBreakerHook(t *testing.T) {
	var transitions []State
	b := New(Config{Threshold: 1, ResetTimeout: time.Millisecond, HalfOpenSuccesses: 1})
	b.WithHook(func(_, to State) { transitions = append(transitions, to) })

	b.Failure()
	time.Sleep(5 * time.Millisecond)
	_ = b.Allow()
	b.Success()

	want := []State{Open, HalfOpen, Closed}
	if len(transitions) != len(want) {
		t.Fatalf("got %d transitions, want %d", len(transitions), len(want))
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestBreakerConcurrentSafety(t *testing.T) {
	b := New(Config{Threshold: 100, ResetTimeout: time.Second, HalfOpenSuccesses: 10})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Allow()
			if i%2 == 0 {
				b.Success()
			} else {
				b.Failure()
			}
		}(i)
	}
	wg.Wait()

	_ = b.State()
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
	}

	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %d, want %d", cfg.Threshold, DefaultThreshold)
	}
	if cfg.ResetTimeout != DefaultResetTimeout {
		t.Errorf("ResetTimeout = %v, want %v", cfg.ResetTimeout, DefaultResetTimeout)
	}
	if cfg.Name != "breaker" {
		t.Errorf("Name = %q, want breaker", cfg.Name)
	}
}
