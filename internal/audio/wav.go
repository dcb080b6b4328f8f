package audio

import (
	"os"
	"path/filepath"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
)

// WAVWriter persists chunks as 16-bit PCM WAV files.
type WAVWriter struct{}

// Persist writes buf to path, creating parent directories.
func (WAVWriter) Persist(path string, buf Buffer) error {
	if buf.Channels <= 0 || buf.SampleRate <= 0 {
		return apperr.Newf(apperr.PersistFailed, "invalid chunk format: %d channels at %d Hz", buf.Channels, buf.SampleRate).
			WithMetadata("path", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(err, apperr.PersistFailed, "create chunk dir").WithMetadata("path", path)
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(buf.SampleRate),
		NumChannels: min(buf.Channels, 2),
		Precision:   2,
	}

	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(err, apperr.PersistFailed, "create chunk file").WithMetadata("path", path)
	}
	if err := wav.Encode(f, &pcmStreamer{samples: buf.Samples, channels: buf.Channels}, format); err != nil {
		_ = f.Close()
		return apperr.Wrap(err, apperr.PersistFailed, "encode wav").WithMetadata("path", path)
	}
	if err := f.Close(); err != nil {
		return apperr.Wrap(err, apperr.PersistFailed, "close chunk file").WithMetadata("path", path)
	}
	return nil
}

// pcmStreamer adapts interleaved int16 samples to a beep.Streamer. Mono is
// duplicated onto both channels; channels past the second are dropped.
//
// The wav encoder truncates x*32767 toward zero, so each sample is pushed half
// a step away from zero to land back on its own value. -32768 clamps to -32767.
type pcmStreamer struct {
	samples  []int16
	channels int
	pos      int
}

func (p *pcmStreamer) Stream(out [][2]float64) (int, bool) {
	frames := len(p.samples) / p.channels
	if p.pos >= frames {
		return 0, false
	}

	n := 0
	for n < len(out) && p.pos < frames {
		base := p.pos * p.channels
		left := toFloat(p.samples[base])
		right := left
		if p.channels > 1 {
			right = toFloat(p.samples[base+1])
		}
		out[n] = [2]float64{left, right}
		n++
		p.pos++
	}
	return n, true
}

func (p *pcmStreamer) Err() error { return nil }

func toFloat(s int16) float64 {
	x := float64(s)
	if x < 0 {
		return (x - 0.5) / 32767
	}
	return (x + 0.5) / 32767
}
