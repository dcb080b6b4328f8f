package inference

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
)

func newTestGemini(t *testing.T, h http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "g-test", BaseURL: srv.URL, Temperature: DefaultTemperature})
	if err != nil {
		t.Fatalf("NewGemini() error = %v", err)
	}
	return g
}

func TestGeminiSummarize(t *testing.T) {
	var path string
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Ferrari "},{"text":"undercut worked."}]}}]}`)
	})

	summary, err := g.Summarize(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary != "Ferrari undercut worked." {
		t.Errorf("summary = %q", summary)
	}
	if !strings.Contains(path, DefaultGeminiModel+":generateContent") {
		t.Errorf("path = %q, want generateContent on %s", path, DefaultGeminiModel)
	}
}

func TestGeminiEmptyResponse(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	})

	_, err := g.Summarize(context.Background(), "prompt")
	if !apperr.IsCode(err, apperr.SummarizationFailed) {
		t.Errorf("Summarize() = %v, want SUMMARIZATION_FAILED", err)
	}
}

func TestGeminiRateLimited(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`)
	})

	_, err := g.Summarize(context.Background(), "prompt")
	if !apperr.IsCode(err, apperr.RateLimited) {
		t.Errorf("Summarize() = %v, want RATE_LIMITED", err)
	}
}
