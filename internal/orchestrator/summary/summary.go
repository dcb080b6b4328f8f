// Package summary turns a drained transcript into the session's artifacts:
// transcript.txt, then one summarization call, then summary.txt.
package summary

import (
	"context"
	"strings"

	"github.com/GriffinCanCode/recap/internal/artifact"
	apperr "github.com/GriffinCanCode/recap/internal/errors"
	"github.com/GriffinCanCode/recap/internal/trace"
)

// PromptSeparator sits between the instruction and the transcript.
const PromptSeparator = "\n\nTranscript:\n"

// ErrNothingToSummarize is returned for a session with no transcribed text.
var ErrNothingToSummarize = apperr.New(apperr.NothingToSummarize, "no transcribed text in session")

// Summarizer sends a prompt to a language model.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Options controls prompt text and optional exports.
type Options struct {
	Instruction string
	Docx        bool
}

// Output records what was written.
type Output struct {
	Transcript     string
	Summary        string
	TranscriptPath string
	SummaryPath    string
	DocxPath       string
}

// Synthesizer writes the transcript and produces the summary.
type Synthesizer struct {
	summarizer Summarizer
	opts       Options
}

// New creates a Synthesizer.
func New(s Summarizer, opts Options) *Synthesizer {
	return &Synthesizer{summarizer: s, opts: opts}
}

// BuildPrompt places transcript after instruction. Identical inputs give
// byte-identical prompts.
func BuildPrompt(instruction, transcript string) string {
	return instruction + PromptSeparator + transcript
}

// Run joins texts in the order given, writes transcript.txt, and calls the
// summarizer exactly once. On summarizer failure the transcript stays on
// disk and Output.TranscriptPath is set.
func (s *Synthesizer) Run(ctx context.Context, session artifact.Session, texts []string) (*Output, error) {
	ctx, span := trace.StartSpan(ctx, "summarize_session")
	span.SetAttr("fragments", len(texts))
	log := trace.Logger(ctx)
	defer span.Finish(log)

	joined := strings.Join(texts, "\n")
	if strings.TrimSpace(joined) == "" {
		log.Warn("no transcription available to summarize")
		return nil, ErrNothingToSummarize
	}

	out := &Output{Transcript: joined}
	if err := artifact.WriteText(session.TranscriptPath(), joined); err != nil {
		return nil, err
	}
	out.TranscriptPath = session.TranscriptPath()
	log.Info("transcript saved", "path", out.TranscriptPath, "chars", len(joined))

	summary, err := s.summarizer.Summarize(ctx, BuildPrompt(s.opts.Instruction, joined))
	if err == nil && strings.TrimSpace(summary) == "" {
		err = apperr.New(apperr.SummarizationFailed, "summarizer returned empty text")
	}
	if err != nil {
		span.Fail(err)
		log.Error("summarization failed, transcript kept", "path", out.TranscriptPath, "error", err)
		return out, apperr.Wrap(err, apperr.SummarizationFailed, "summarize session").
			WithMetadata("transcript", out.TranscriptPath)
	}

	out.Summary = strings.TrimSpace(summary)
	if err := artifact.WriteText(session.SummaryPath(), out.Summary); err != nil {
		return out, err
	}
	out.SummaryPath = session.SummaryPath()
	log.Info("summary saved", "path", out.SummaryPath)

	if s.opts.Docx {
		title := session.Name
		if strings.TrimSpace(title) == "" {
			title = session.Slug
		}
		if err := artifact.WriteDocx(title, out.Summary, session.SummaryDocxPath()); err != nil {
			log.Warn("summary docx export failed", "error", err)
		} else {
			out.DocxPath = session.SummaryDocxPath()
		}
	}
	return out, nil
}
