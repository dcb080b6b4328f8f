package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/recap/internal/audio"
	"github.com/GriffinCanCode/recap/internal/config"
	apperr "github.com/GriffinCanCode/recap/internal/errors"
	"github.com/GriffinCanCode/recap/internal/inference"
	"github.com/GriffinCanCode/recap/internal/orchestrator"
	"github.com/GriffinCanCode/recap/internal/orchestrator/scheduler"
	"github.com/GriffinCanCode/recap/internal/orchestrator/stop"
	"github.com/GriffinCanCode/recap/internal/orchestrator/vad"
	"github.com/GriffinCanCode/recap/internal/resilience"
	"github.com/GriffinCanCode/recap/internal/server"
)

type recordFlags struct {
	device        string
	chunkSeconds  int
	maxConcurrent int
	provider      string
	chunkDir      string
	outputDir     string
	httpAddr      string
	docx          bool
	silence       float64
}

func newRecordCmd(root *rootOptions) *cobra.Command {
	f := &recordFlags{}
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record until Enter is pressed, then name and summarize the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runRecord(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.device, "device", "", "input device name (substring match)")
	fl.IntVar(&f.chunkSeconds, "chunk-seconds", 0, "length of each audio chunk")
	fl.IntVar(&f.maxConcurrent, "max-concurrent", 0, "transcriptions in flight at once")
	fl.StringVar(&f.provider, "provider", "", "summary provider: openai or gemini")
	fl.StringVar(&f.chunkDir, "chunk-dir", "", "directory for chunk WAV files")
	fl.StringVar(&f.outputDir, "output-dir", "", "directory for session folders")
	fl.StringVar(&f.httpAddr, "http", "", "serve live status on this address")
	fl.BoolVar(&f.docx, "docx", false, "also write summary.docx")
	fl.Float64Var(&f.silence, "silence-threshold", 0, "skip chunks quieter than this RMS (0 keeps all)")
	return cmd
}

// apply overrides cfg with flags the user set explicitly.
func (f *recordFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("device") {
		cfg.Audio.Device = f.device
	}
	if changed("chunk-seconds") {
		cfg.Audio.ChunkSeconds = f.chunkSeconds
	}
	if changed("max-concurrent") {
		cfg.Transcribe.MaxConcurrent = f.maxConcurrent
	}
	if changed("provider") {
		cfg.Summary.Provider = f.provider
	}
	if changed("chunk-dir") {
		cfg.ChunkDir = f.chunkDir
	}
	if changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if changed("http") {
		cfg.HTTPAddr = f.httpAddr
	}
	if changed("docx") {
		cfg.Summary.Docx = f.docx
	}
	if changed("silence-threshold") {
		cfg.Audio.SilenceThreshold = f.silence
	}
}

func runRecord(parent context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	transcriber, summarizer, err := buildInference(ctx, cfg)
	if err != nil {
		return err
	}

	capturer := audio.NewCapturer(audio.CaptureConfig{
		Device:        cfg.Audio.Device,
		SampleRate:    cfg.Audio.SampleRate,
		Channels:      cfg.Audio.Channels,
		ChunkDuration: time.Duration(cfg.Audio.ChunkSeconds) * time.Second,
	})
	if err := capturer.Open(); err != nil {
		return err
	}
	defer func() { _ = capturer.Close() }()

	var gate scheduler.Gate
	if cfg.Audio.SilenceThreshold > 0 {
		gate = vad.New(vad.Config{Threshold: cfg.Audio.SilenceThreshold})
	}

	var srv *server.Server
	m := orchestrator.New(orchestrator.Deps{
		Capturer:    capturer,
		Persister:   audio.WAVWriter{},
		Transcriber: transcriber,
		Summarizer:  summarizer,
	}, orchestrator.Options{
		ChunkDir:      cfg.ChunkDir,
		OutputDir:     cfg.OutputDir,
		MaxConcurrent: cfg.Transcribe.MaxConcurrent,
		Instruction:   cfg.Summary.Prompt,
		Docx:          cfg.Summary.Docx,
		Gate:          gate,
		OnStateChange: func(st orchestrator.State) {
			slog.Debug("session state", "state", st)
			if srv != nil {
				srv.BroadcastState(st)
			}
		},
	})

	if cfg.HTTPAddr != "" {
		srv = server.New(m)
		go func() {
			if err := srv.Start(cfg.HTTPAddr); err != nil {
				slog.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("http shutdown error", "error", err)
			}
		}()
	}

	fmt.Printf("Recording from %q. Press Enter to stop.\n", capturer.DeviceName())
	go func() {
		if err := stop.Listen(ctx, os.Stdin, os.Stdout, m.Signal()); err != nil {
			slog.Debug("console listener ended", "error", err)
		}
	}()

	res, err := m.Run(ctx)
	if res != nil && res.State == orchestrator.Interrupted {
		fmt.Println("\nRecording stopped by user.")
		return nil
	}
	if err != nil {
		if res != nil && res.TranscriptPath != "" {
			fmt.Printf("Transcript saved to %s\n", res.TranscriptPath)
		}
		return err
	}

	report(res)
	return nil
}

func report(res *orchestrator.Result) {
	if res.Empty {
		fmt.Println("No transcription available to summarize.")
		return
	}
	fmt.Printf("\nSummary:\n%s\n\n", res.Summary)
	fmt.Printf("Transcript saved to %s\n", res.TranscriptPath)
	fmt.Printf("Summary saved to %s\n", res.SummaryPath)
	if res.DocxPath != "" {
		fmt.Printf("Summary document saved to %s\n", res.DocxPath)
	}
	fmt.Printf("Chunks: %d, transcribed: %d, failed: %d\n", res.Chunks, res.Fragments, res.Stats.Failed)
}

// buildInference wires the providers behind breakers and retries.
func buildInference(ctx context.Context, cfg *config.Config) (inference.Transcriber, inference.Summarizer, error) {
	oa := inference.NewOpenAI(inference.OpenAIConfig{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		TranscribeModel: cfg.Transcribe.Model,
		SummaryModel:    cfg.Summary.Model,
		MaxTokens:       cfg.Summary.MaxTokens,
		Temperature:     float32(cfg.Summary.Temperature),
	})

	transcriber := inference.GuardTranscriber(oa,
		newBreaker("transcribe", cfg.BreakerThreshold),
		resilience.TranscribeRetryConfig(cfg.Transcribe.MaxRetries))

	var base inference.Summarizer = oa
	if cfg.Summary.Provider == config.ProviderGemini {
		model := cfg.Summary.Model
		if model == config.Default().Summary.Model {
			model = ""
		}
		g, err := inference.NewGemini(ctx, inference.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       model,
			MaxTokens:   cfg.Summary.MaxTokens,
			Temperature: float32(cfg.Summary.Temperature),
		})
		if err != nil {
			return nil, nil, apperr.Wrap(err, apperr.ConfigInvalid, "create gemini client")
		}
		base = g
	}

	summarizer := inference.GuardSummarizer(base,
		newBreaker("summarize", cfg.BreakerThreshold),
		resilience.LLMRetryConfig(cfg.Summary.MaxRetries))
	return transcriber, summarizer, nil
}

func newBreaker(name string, threshold int) *resilience.Breaker {
	bc := resilience.DefaultConfig(name)
	bc.Threshold = threshold
	return resilience.New(bc)
}
