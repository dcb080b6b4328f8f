package inference

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
	"github.com/GriffinCanCode/recap/internal/trace"
)

// OpenAIConfig configures both the Whisper and chat endpoints.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string // empty uses the public API
	TranscribeModel string
	SummaryModel    string
	MaxTokens       int
	Temperature     float32
}

// OpenAI implements Transcriber and Summarizer over one client.
type OpenAI struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAI creates the client. No request is made until first use.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = openai.Whisper1
	}
	if cfg.SummaryModel == "" {
		cfg.SummaryModel = DefaultSummaryModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(oc), cfg: cfg}
}

// Transcribe uploads the WAV at path and returns the recognised text.
func (o *OpenAI) Transcribe(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, TranscribeTimeout)
	defer cancel()

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.cfg.TranscribeModel,
		FilePath: path,
	})
	if err != nil {
		return "", classify(ctx, err, apperr.TranscriptionFailed, "whisper transcription")
	}
	return resp.Text, nil
}

// Summarize issues a single chat completion for prompt.
func (o *OpenAI) Summarize(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, SummarizeTimeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.SummaryModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return "", classify(ctx, err, apperr.SummarizationFailed, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.SummarizationFailed, "chat completion returned no choices").
			WithMetadata("model", o.cfg.SummaryModel)
	}

	trace.Logger(ctx).Debug("chat completion finished",
		"model", resp.Model, "prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
