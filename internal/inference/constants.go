// Package inference wraps the remote speech-to-text and language model APIs.
package inference

import "time"

// Model defaults.
const (
	DefaultTranscribeModel = "whisper-1"
	DefaultSummaryModel    = "gpt-4o"
	DefaultGeminiModel     = "gemini-2.0-flash"
	DefaultMaxTokens       = 500
	DefaultTemperature     = 0.2
)

// Per-call deadlines layered under the caller's context.
const (
	TranscribeTimeout = 2 * time.Minute
	SummarizeTimeout  = 3 * time.Minute
)
