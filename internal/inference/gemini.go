package inference

import (
	"context"
	"strings"

	"google.golang.org/genai"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
)

// GeminiConfig configures the alternative summary provider.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Gemini implements Summarizer with the Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGemini creates a Gemini API client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ConfigInvalid, "create gemini client")
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

// Summarize generates one reply for prompt.
func (g *Gemini) Summarize(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, SummarizeTimeout)
	defer cancel()

	result, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.cfg.Temperature),
		MaxOutputTokens: int32(g.cfg.MaxTokens),
	})
	if err != nil {
		return "", classify(ctx, err, apperr.SummarizationFailed, "generate content")
	}

	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var text strings.Builder
		for _, part := range result.Candidates[0].Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
		if s := strings.TrimSpace(text.String()); s != "" {
			return s, nil
		}
	}
	return "", apperr.New(apperr.SummarizationFailed, "empty response from gemini").WithMetadata("model", g.cfg.Model)
}
