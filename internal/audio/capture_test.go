package audio

import (
	"context"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name     string
		device   string
		expected string
	}{
		{"blackhole lowercase", "BlackHole 2ch", SourceSystem},
		{"blackhole uppercase", "BLACKHOLE", SourceSystem},
		{"blackhole mixed", "blackhole-16ch", SourceSystem},
		{"vb-cable", "VB-Cable", SourceSystem},
		{"loopback", "Loopback Audio", SourceSystem},
		{"monitor", "Monitor of Built-in Audio", SourceSystem},
		{"soundflower", "Soundflower (2ch)", SourceSystem},

		{"microphone", "Built-in Microphone", SourceUser},
		{"mic short", "External Mic", SourceUser},
		{"input", "Line Input", SourceUser},

		{"speakers", "External Speakers", ""},
		{"hdmi", "HDMI Output", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := classifyDevice(tt.device); result != tt.expected {
				t.Errorf("classifyDevice(%q) = %q, want %q", tt.device, result, tt.expected)
			}
		})
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s        string
		substr   string
		expected bool
	}{
		{"BlackHole 2ch", "blackhole", true},
		{"BLACKHOLE", "blackhole", true},
		{"blackhole", "BLACKHOLE", true},
		{"Some BlackHole Device", "blackhole 2CH", false},
		{"Built-in Microphone", "MICROPHONE", true},
		{"External Speakers", "blackhole", false},
		{"", "test", false},
		{"test", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.s+"_"+tt.substr, func(t *testing.T) {
			if result := containsIgnoreCase(tt.s, tt.substr); result != tt.expected {
				t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tt.s, tt.substr, result, tt.expected)
			}
		})
	}
}

func testDevices() []*portaudio.DeviceInfo {
	return []*portaudio.DeviceInfo{
		{Name: "MacBook Pro Speakers", MaxInputChannels: 0},
		{Name: "MacBook Pro Microphone", MaxInputChannels: 1},
		{Name: "BlackHole 16ch", MaxInputChannels: 16},
		{Name: "BlackHole 2ch", MaxInputChannels: 2},
	}
}

func TestSelectDevice(t *testing.T) {
	tests := []struct {
		name string
		want string
		got  string
	}{
		{"exact", "BlackHole 2ch", "BlackHole 2ch"},
		{"case insensitive", "blackhole 2CH", "BlackHole 2ch"},
		{"substring", "16ch", "BlackHole 16ch"},
		{"empty picks first loopback", "", "BlackHole 16ch"},
		{"microphone", "microphone", "MacBook Pro Microphone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := selectDevice(testDevices(), tt.want)
			if err != nil {
				t.Fatalf("selectDevice(%q) error = %v", tt.want, err)
			}
			if dev.Name != tt.got {
				t.Errorf("selectDevice(%q) = %q, want %q", tt.want, dev.Name, tt.got)
			}
		})
	}
}

func TestSelectDeviceSkipsOutputOnly(t *testing.T) {
	_, err := selectDevice(testDevices(), "speakers")
	if !apperr.IsCode(err, apperr.DeviceNotFound) {
		t.Fatalf("selectDevice(speakers) = %v, want DEVICE_NOT_FOUND", err)
	}
	if apperr.KindOf(err) != apperr.KindStartupFatal {
		t.Error("missing device should be startup-fatal")
	}
}

func TestSelectDeviceNotFoundListsAvailable(t *testing.T) {
	_, err := selectDevice(testDevices(), "Soundflower")
	appErr, ok := apperr.As(err)
	if !ok {
		t.Fatalf("error = %v, want AppError", err)
	}
	if got := appErr.Metadata["available"]; got != "MacBook Pro Microphone, BlackHole 16ch, BlackHole 2ch" {
		t.Errorf("available = %q", got)
	}
	if appErr.Metadata["hint"] == "" {
		t.Error("missing install hint")
	}
}

func TestInputDevices(t *testing.T) {
	devs := inputDevices(testDevices())
	if len(devs) != 3 {
		t.Fatalf("got %d input devices, want 3", len(devs))
	}
	if devs[0].Index != 1 || devs[0].Source != SourceUser {
		t.Errorf("devs[0] = %+v, want index 1 user", devs[0])
	}
	if devs[2].Source != SourceSystem {
		t.Errorf("devs[2].Source = %q, want system", devs[2].Source)
	}
}

func TestBufferDuration(t *testing.T) {
	buf := Buffer{Samples: make([]int16, 44100*2*3), SampleRate: 44100, Channels: 2}
	if buf.Frames() != 44100*3 {
		t.Errorf("Frames() = %d, want %d", buf.Frames(), 44100*3)
	}
	if buf.Duration() != 3*time.Second {
		t.Errorf("Duration() = %v, want 3s", buf.Duration())
	}
	if (Buffer{}).Duration() != 0 {
		t.Error("zero buffer should have zero duration")
	}
}

func TestCaptureRequiresOpen(t *testing.T) {
	c := NewCapturer(CaptureConfig{Device: "BlackHole 2ch", SampleRate: 44100, Channels: 2, ChunkDuration: time.Second})

	_, err := c.Capture(context.Background())
	if !apperr.IsCode(err, apperr.CaptureFailed) {
		t.Errorf("Capture() before Open = %v, want CAPTURE_FAILED", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unopened capturer = %v, want nil", err)
	}
	if c.DeviceName() != "" {
		t.Error("DeviceName should be empty before Open")
	}
}
