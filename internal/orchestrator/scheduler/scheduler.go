// Package scheduler runs the capture loop: record a chunk, persist it, hand
// it to the transcription pool, repeat until stopped.
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/recap/internal/audio"
	"github.com/GriffinCanCode/recap/internal/orchestrator/stop"
	"github.com/GriffinCanCode/recap/internal/orchestrator/worker"
	"github.com/GriffinCanCode/recap/internal/trace"
)

// CaptureRetryDelay is the pause after a failed capture.
const CaptureRetryDelay = time.Second

// Capturer records one chunk per call.
type Capturer interface {
	Capture(ctx context.Context) (audio.Buffer, error)
}

// Persister writes a chunk to durable storage.
type Persister interface {
	Persist(path string, buf audio.Buffer) error
}

// Dispatcher accepts a chunk for transcription without waiting for it.
type Dispatcher interface {
	Dispatch(c worker.Chunk) error
}

// Gate drops chunks that hold no speech before they are persisted.
type Gate interface {
	HasSpeech(buf audio.Buffer) bool
}

// Config controls chunk placement, failure pacing and optional gating.
type Config struct {
	ChunkDir   string
	RetryDelay time.Duration
	Gate       Gate // nil keeps every chunk
}

// Scheduler owns the capture loop for one session.
type Scheduler struct {
	capturer   Capturer
	persister  Persister
	dispatcher Dispatcher
	sig        *stop.Signal
	cfg        Config
	seq        int
}

// New creates a scheduler.
func New(c Capturer, p Persister, d Dispatcher, sig *stop.Signal, cfg Config) *Scheduler {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = CaptureRetryDelay
	}
	return &Scheduler{capturer: c, persister: p, dispatcher: d, sig: sig, cfg: cfg}
}

// ChunkPath returns where chunk seq is stored.
func (s *Scheduler) ChunkPath(seq int) string {
	return filepath.Join(s.cfg.ChunkDir, fmt.Sprintf("audio_chunk_%d.wav", seq))
}

// Run captures until the stop signal fires, returning the number of chunks
// dispatched. A stop arriving mid-capture takes effect after that chunk is
// dispatched. A non-nil error means ctx ended first.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	log := trace.Logger(ctx)
	dispatched := 0

	for {
		if s.sig.IsStopped() {
			log.Info("capture loop stopped", "chunks", dispatched)
			return dispatched, nil
		}
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}

		buf, err := s.capturer.Capture(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return dispatched, ctxErr
			}
			log.Error("chunk capture failed", "seq", s.seq, "error", err)
			s.pause(ctx)
			continue
		}

		seq := s.seq
		s.seq++
		path := s.ChunkPath(seq)

		if s.cfg.Gate != nil && !s.cfg.Gate.HasSpeech(buf) {
			log.Info("silent chunk skipped", "seq", seq, "audio", buf.Duration())
			continue
		}

		if err := s.persister.Persist(path, buf); err != nil {
			log.Error("chunk persist failed, skipping", "seq", seq, "path", path, "error", err)
			continue
		}

		chunk := worker.Chunk{
			Seq:        seq,
			Path:       path,
			Duration:   buf.Duration(),
			SampleRate: buf.SampleRate,
			Channels:   buf.Channels,
			CapturedAt: time.Now(),
		}
		if err := s.dispatcher.Dispatch(chunk); err != nil {
			log.Error("chunk dispatch failed", "seq", seq, "error", err)
			continue
		}
		dispatched++
		log.Info("chunk captured", "seq", seq, "path", path, "audio", chunk.Duration)
	}
}

// pause waits out a capture failure unless stop or cancellation comes first.
func (s *Scheduler) pause(ctx context.Context) {
	t := time.NewTimer(s.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.sig.Stopped():
	case <-ctx.Done():
	}
}
