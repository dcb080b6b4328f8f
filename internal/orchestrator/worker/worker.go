// Package worker transcribes persisted chunks and appends the text to the
// session transcript.
package worker

import (
	"context"
	"strings"
	"time"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
	"github.com/GriffinCanCode/recap/internal/orchestrator/transcript"
	"github.com/GriffinCanCode/recap/internal/trace"
)

// Chunk is one persisted audio file awaiting transcription.
type Chunk struct {
	Seq        int
	Path       string
	Duration   time.Duration
	SampleRate int
	Channels   int
	CapturedAt time.Time
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Sink receives fragments; it reports false once it stops accepting them.
type Sink interface {
	Add(f transcript.Fragment) bool
}

// Worker handles a single chunk end to end.
type Worker struct {
	transcriber Transcriber
	sink        Sink
}

// New creates a worker.
func New(t Transcriber, sink Sink) *Worker {
	return &Worker{transcriber: t, sink: sink}
}

// Process transcribes c and appends non-empty text. Failures are logged and
// returned for accounting only; nothing is appended for a failed chunk.
// The chunk file is left on disk.
func (w *Worker) Process(ctx context.Context, c Chunk) error {
	ctx, span := trace.StartSpan(ctx, "transcribe_chunk")
	span.SetAttr("seq", c.Seq)
	log := trace.Logger(ctx)
	defer span.Finish(log)

	text, err := w.transcriber.Transcribe(ctx, c.Path)
	if err != nil {
		span.Fail(err)
		log.Error("chunk transcription failed", "seq", c.Seq, "path", c.Path, "error", err)
		if _, ok := apperr.As(err); ok {
			return err
		}
		return apperr.Wrapf(err, apperr.TranscriptionFailed, "transcribe chunk %d", c.Seq)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		err := apperr.Newf(apperr.TranscriptionEmpty, "chunk %d produced no text", c.Seq)
		span.Fail(err)
		log.Warn("chunk produced no text", "seq", c.Seq, "path", c.Path)
		return err
	}

	if !w.sink.Add(transcript.Fragment{Seq: c.Seq, Text: text}) {
		log.Warn("transcript already sealed, dropping fragment", "seq", c.Seq)
		return apperr.Newf(apperr.Internal, "chunk %d finished after drain", c.Seq)
	}

	log.Info("transcribed chunk", "seq", c.Seq, "chars", len(text), "audio", c.Duration)
	return nil
}
