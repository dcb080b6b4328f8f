// Package config handles recorder configuration.
//
// Values are layered: built-in defaults, an optional YAML file, a .env file,
// then process environment. Command-line flags are applied by the caller.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
)

// EnvConfigPath names the env var holding an optional YAML config path.
const EnvConfigPath = "RECAP_CONFIG"

// Summary providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultSummaryPrompt is the analysis instruction placed before the transcript.
const DefaultSummaryPrompt = "Based on the following transcript, provide a detailed analysis of the performance " +
	"of the mentioned Formula 1 drivers, their teams/constructors, and their cars. Focus on driver performance, " +
	"team strategies, and any insights that could help in making informed decisions for F1 fantasy selections."

type Config struct {
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	GeminiAPIKey  string `yaml:"gemini_api_key"`

	Audio      AudioConfig      `yaml:"audio"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Summary    SummaryConfig    `yaml:"summary"`

	BreakerThreshold int    `yaml:"breaker_threshold"`
	ChunkDir         string `yaml:"chunk_dir"`
	OutputDir        string `yaml:"output_dir"`
	HTTPAddr         string `yaml:"http_addr"`
	LogLevel         string `yaml:"log_level"`
}

type AudioConfig struct {
	Device       string `yaml:"device"`
	SampleRate   int    `yaml:"sample_rate"`
	Channels     int    `yaml:"channels"`
	ChunkSeconds int    `yaml:"chunk_seconds"`

	// Window RMS below which a chunk is treated as silence; 0 disables.
	SilenceThreshold float64 `yaml:"silence_threshold"`
}

type TranscribeConfig struct {
	Model         string `yaml:"model"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	MaxRetries    int    `yaml:"max_retries"`
}

type SummaryConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Prompt      string  `yaml:"prompt"`
	MaxRetries  int     `yaml:"max_retries"`
	Docx        bool    `yaml:"docx"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Device:       "BlackHole 2ch",
			SampleRate:   44100,
			Channels:     2,
			ChunkSeconds: 30,
		},
		Transcribe: TranscribeConfig{
			Model:         "whisper-1",
			MaxConcurrent: 4,
		},
		Summary: SummaryConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o",
			MaxTokens:   500,
			Temperature: 0.2,
			Prompt:      DefaultSummaryPrompt,
		},
		BreakerThreshold: 5,
		ChunkDir:         "chunks",
		OutputDir:        ".",
		LogLevel:         "info",
	}
}

// Load builds a Config. path may be empty, in which case RECAP_CONFIG is
// consulted; a missing .env file is ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, apperr.Wrap(err, apperr.ConfigInvalid, "read .env")
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrapf(err, apperr.ConfigInvalid, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return apperr.Wrapf(err, apperr.ConfigInvalid, "parse config %s", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)

	c.Audio.Device = getEnv("AUDIO_DEVICE", c.Audio.Device)
	c.Audio.SampleRate = getEnvInt("SAMPLE_RATE", c.Audio.SampleRate)
	c.Audio.Channels = getEnvInt("CHANNELS", c.Audio.Channels)
	c.Audio.ChunkSeconds = getEnvInt("CHUNK_SECONDS", c.Audio.ChunkSeconds)
	c.Audio.SilenceThreshold = getEnvFloat("SILENCE_THRESHOLD", c.Audio.SilenceThreshold)

	c.Transcribe.Model = getEnv("TRANSCRIBE_MODEL", c.Transcribe.Model)
	c.Transcribe.MaxConcurrent = getEnvInt("MAX_CONCURRENT_TRANSCRIPTIONS", c.Transcribe.MaxConcurrent)
	c.Transcribe.MaxRetries = getEnvInt("TRANSCRIBE_MAX_RETRIES", c.Transcribe.MaxRetries)

	c.Summary.Provider = strings.ToLower(getEnv("SUMMARY_PROVIDER", c.Summary.Provider))
	c.Summary.Model = getEnv("SUMMARY_MODEL", c.Summary.Model)
	c.Summary.MaxTokens = getEnvInt("SUMMARY_MAX_TOKENS", c.Summary.MaxTokens)
	c.Summary.Temperature = getEnvFloat("SUMMARY_TEMPERATURE", c.Summary.Temperature)
	c.Summary.Prompt = getEnv("SUMMARY_PROMPT", c.Summary.Prompt)
	c.Summary.MaxRetries = getEnvInt("SUMMARY_MAX_RETRIES", c.Summary.MaxRetries)
	c.Summary.Docx = getEnvBool("SUMMARY_DOCX", c.Summary.Docx)

	c.BreakerThreshold = getEnvInt("BREAKER_THRESHOLD", c.BreakerThreshold)
	c.ChunkDir = getEnv("CHUNK_DIR", c.ChunkDir)
	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate checks that the configuration can start a session. Missing
// credentials are reported as CONFIG_MISSING before any capture begins.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return apperr.New(apperr.ConfigMissing, "OPENAI_API_KEY is not set").
			WithMetadata("hint", "export it or add it to .env")
	}

	switch c.Summary.Provider {
	case ProviderOpenAI:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return apperr.New(apperr.ConfigMissing, "GEMINI_API_KEY is not set").
				WithMetadata("provider", ProviderGemini)
		}
	default:
		return apperr.Newf(apperr.ConfigInvalid, "unknown summary provider %q", c.Summary.Provider)
	}

	checks := []struct {
		name string
		val  int
	}{
		{"sample_rate", c.Audio.SampleRate},
		{"channels", c.Audio.Channels},
		{"chunk_seconds", c.Audio.ChunkSeconds},
		{"max_concurrent", c.Transcribe.MaxConcurrent},
		{"max_tokens", c.Summary.MaxTokens},
	}
	for _, ch := range checks {
		if ch.val <= 0 {
			return apperr.Newf(apperr.ConfigInvalid, "%s must be positive, got %d", ch.name, ch.val)
		}
	}
	if c.Audio.SilenceThreshold < 0 || c.Audio.SilenceThreshold >= 1 {
		return apperr.Newf(apperr.ConfigInvalid, "silence_threshold must be in [0, 1), got %g", c.Audio.SilenceThreshold)
	}
	if c.Transcribe.MaxRetries < 0 || c.Summary.MaxRetries < 0 {
		return apperr.New(apperr.ConfigInvalid, "max_retries must not be negative")
	}
	if strings.TrimSpace(c.Summary.Prompt) == "" {
		return apperr.New(apperr.ConfigInvalid, "summary prompt is empty")
	}
	return nil
}

// String renders the config with credentials masked.
func (c *Config) String() string {
	return fmt.Sprintf("device=%q rate=%d channels=%d chunk=%ds workers=%d provider=%s model=%s openai_key=%s",
		c.Audio.Device, c.Audio.SampleRate, c.Audio.Channels, c.Audio.ChunkSeconds,
		c.Transcribe.MaxConcurrent, c.Summary.Provider, c.Summary.Model, mask(c.OpenAIAPIKey))
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return "****" + s[len(s)-4:]
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}
