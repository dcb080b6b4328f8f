// Package vad decides whether a captured chunk holds speech worth sending
// for transcription.
package vad

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/recap/internal/audio"
)

// Detection constants
const (
	// Frames per energy window
	WindowSamples = 512

	// Speech required before a chunk counts as non-silent
	DefaultMinSpeech = 500 * time.Millisecond
)

// Config for the gate. A zero Threshold disables gating.
type Config struct {
	Threshold float64 // window RMS on a [-1, 1] scale
	MinSpeech time.Duration
}

// Gate classifies chunks by short-window energy.
type Gate struct {
	cfg     Config
	checked atomic.Int64
	skipped atomic.Int64
}

// New creates a gate.
func New(cfg Config) *Gate {
	if cfg.MinSpeech <= 0 {
		cfg.MinSpeech = DefaultMinSpeech
	}
	return &Gate{cfg: cfg}
}

// Enabled reports whether the gate can reject anything.
func (g *Gate) Enabled() bool { return g.cfg.Threshold > 0 }

// HasSpeech reports whether at least MinSpeech of buf sits in windows above
// the threshold.
func (g *Gate) HasSpeech(buf audio.Buffer) bool {
	g.checked.Add(1)
	if !g.Enabled() || buf.SampleRate <= 0 {
		return true
	}

	need := int(g.cfg.MinSpeech.Seconds() * float64(buf.SampleRate))
	mono := Mix(buf)
	speech := 0
	for start := 0; start < len(mono); start += WindowSamples {
		end := min(start+WindowSamples, len(mono))
		if RMS(mono[start:end]) > g.cfg.Threshold {
			speech += end - start
			if speech >= need {
				return true
			}
		}
	}
	g.skipped.Add(1)
	return false
}

// Stats returns how many chunks were checked and skipped.
func (g *Gate) Stats() (checked, skipped int64) {
	return g.checked.Load(), g.skipped.Load()
}

// Mix averages interleaved channels into mono samples in [-1, 1).
func Mix(buf audio.Buffer) []float32 {
	ch := max(buf.Channels, 1)
	out := make([]float32, len(buf.Samples)/ch)
	for i := range out {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += float32(buf.Samples[i*ch+c]) / 32768
		}
		out[i] = sum / float32(ch)
	}
	return out
}

// RMS is the root mean square of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
