// Package audio records fixed-length chunks from a loopback input device
// and persists them as WAV files.
package audio

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
)

// FramesPerBuffer is the portaudio read size, ~23ms at 44.1kHz.
const FramesPerBuffer = 1024

// Buffer holds one captured chunk as interleaved 16-bit PCM.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames.
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the recorded length.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// CaptureConfig selects the device and chunk shape.
type CaptureConfig struct {
	Device        string
	SampleRate    int
	Channels      int
	ChunkDuration time.Duration
}

// Capturer records chunks synchronously from one input device.
type Capturer struct {
	cfg    CaptureConfig
	mu     sync.Mutex
	dev    *portaudio.DeviceInfo
	stream *portaudio.Stream
	buf    []int16
	open   bool
}

// NewCapturer creates a capturer; call Open before Capture.
func NewCapturer(cfg CaptureConfig) *Capturer {
	return &Capturer{cfg: cfg}
}

// Open initializes portaudio and resolves the configured device. Failures
// here are startup-fatal.
func (c *Capturer) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return apperr.Wrap(err, apperr.AudioInitFailed, "initialize portaudio")
	}

	infos, err := portaudio.Devices()
	if err != nil {
		_ = portaudio.Terminate()
		return apperr.Wrap(err, apperr.AudioInitFailed, "enumerate devices")
	}
	dev, err := selectDevice(infos, c.cfg.Device)
	if err != nil {
		_ = portaudio.Terminate()
		return err
	}

	if c.cfg.Channels > dev.MaxInputChannels {
		slog.Warn("device has fewer channels than requested",
			"device", dev.Name, "requested", c.cfg.Channels, "available", dev.MaxInputChannels)
		c.cfg.Channels = dev.MaxInputChannels
	}
	c.dev = dev

	if err := c.startStream(); err != nil {
		_ = portaudio.Terminate()
		return apperr.Wrapf(err, apperr.AudioInitFailed, "open stream on %s", dev.Name)
	}

	c.open = true
	slog.Info("started audio capture", "device", dev.Name, "source", classifyDevice(dev.Name),
		"sample_rate", c.cfg.SampleRate, "channels", c.cfg.Channels, "chunk", c.cfg.ChunkDuration)
	return nil
}

func (c *Capturer) startStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   c.dev,
			Channels: c.cfg.Channels,
			Latency:  c.dev.DefaultHighInputLatency,
		},
		SampleRate:      float64(c.cfg.SampleRate),
		FramesPerBuffer: FramesPerBuffer,
	}

	c.buf = make([]int16, FramesPerBuffer*c.cfg.Channels)
	stream, err := portaudio.OpenStream(params, c.buf)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return err
	}
	c.stream = stream
	return nil
}

func (c *Capturer) stopStream() {
	if c.stream == nil {
		return
	}
	_ = c.stream.Stop()
	_ = c.stream.Close()
	c.stream = nil
}

// Capture blocks until one full chunk has been recorded. Stop requests do
// not cut a chunk short; only ctx cancellation does.
func (c *Capturer) Capture(ctx context.Context) (Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return Buffer{}, apperr.New(apperr.CaptureFailed, "capturer is not open")
	}
	if c.stream == nil {
		if err := c.startStream(); err != nil {
			return Buffer{}, apperr.Wrapf(err, apperr.CaptureFailed, "reopen stream on %s", c.dev.Name)
		}
	}

	frames := int(c.cfg.ChunkDuration.Seconds() * float64(c.cfg.SampleRate))
	out := make([]int16, 0, frames*c.cfg.Channels)

	for got := 0; got < frames; got += FramesPerBuffer {
		if err := ctx.Err(); err != nil {
			return Buffer{}, apperr.Wrap(err, apperr.Cancelled, "capture interrupted")
		}
		if err := c.stream.Read(); err != nil && !stderrors.Is(err, portaudio.InputOverflowed) {
			// Drop the stream so the next chunk starts from a fresh one.
			c.stopStream()
			return Buffer{}, apperr.Wrapf(err, apperr.CaptureFailed, "read from %s", c.dev.Name)
		}
		n := min(FramesPerBuffer, frames-got)
		out = append(out, c.buf[:n*c.cfg.Channels]...)
	}

	return Buffer{Samples: out, SampleRate: c.cfg.SampleRate, Channels: c.cfg.Channels}, nil
}

// DeviceName returns the resolved device, empty before Open.
func (c *Capturer) DeviceName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return ""
	}
	return c.dev.Name
}

// Close stops the stream and releases portaudio.
func (c *Capturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil
	}
	c.stopStream()
	c.open = false
	return portaudio.Terminate()
}
