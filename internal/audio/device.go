package audio

import (
	"strings"

	"github.com/gordonklaus/portaudio"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
)

// Device sources.
const (
	SourceSystem = "system"
	SourceUser   = "user"
)

// Device describes an input device as seen by portaudio.
type Device struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	Source            string // "system", "user" or ""
}

// ListDevices returns every device that can record.
func ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, apperr.Wrap(err, apperr.AudioInitFailed, "initialize portaudio")
	}
	defer func() { _ = portaudio.Terminate() }()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.AudioInitFailed, "enumerate devices")
	}
	return inputDevices(infos), nil
}

// ResolveDevice finds the input device the capturer would open for name.
func ResolveDevice(name string) (Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return Device{}, apperr.Wrap(err, apperr.AudioInitFailed, "initialize portaudio")
	}
	defer func() { _ = portaudio.Terminate() }()

	infos, err := portaudio.Devices()
	if err != nil {
		return Device{}, apperr.Wrap(err, apperr.AudioInitFailed, "enumerate devices")
	}
	info, err := selectDevice(infos, name)
	if err != nil {
		return Device{}, err
	}
	for _, d := range inputDevices(infos) {
		if d.Name == info.Name {
			return d, nil
		}
	}
	return Device{Name: info.Name, Source: classifyDevice(info.Name)}, nil
}

func inputDevices(infos []*portaudio.DeviceInfo) []Device {
	out := make([]Device, 0, len(infos))
	for i, info := range infos {
		if info == nil || info.MaxInputChannels < 1 {
			continue
		}
		out = append(out, Device{
			Index:             i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			Source:            classifyDevice(info.Name),
		})
	}
	return out
}

// selectDevice picks the input device whose name contains want, ignoring
// case. An empty want selects the first loopback device.
func selectDevice(infos []*portaudio.DeviceInfo, want string) (*portaudio.DeviceInfo, error) {
	want = strings.TrimSpace(want)
	var names []string

	for _, info := range infos {
		if info == nil || info.MaxInputChannels < 1 {
			continue
		}
		names = append(names, info.Name)

		if want == "" {
			if classifyDevice(info.Name) == SourceSystem {
				return info, nil
			}
			continue
		}
		if containsIgnoreCase(info.Name, want) {
			return info, nil
		}
	}

	target := want
	if target == "" {
		target = "any loopback device"
	}
	return nil, apperr.Newf(apperr.DeviceNotFound, "audio device %q not found", target).
		WithMetadata("available", strings.Join(names, ", ")).
		WithMetadata("hint", "ensure BlackHole (or another loopback driver) is installed and routed")
}

func classifyDevice(name string) string {
	systemKeywords := []string{"blackhole", "vb-cable", "loopback", "monitor", "soundflower"}
	for _, kw := range systemKeywords {
		if containsIgnoreCase(name, kw) {
			return SourceSystem
		}
	}

	micKeywords := []string{"microphone", "input", "mic", "built-in"}
	for _, kw := range micKeywords {
		if containsIgnoreCase(name, kw) {
			return SourceUser
		}
	}

	return ""
}

func containsIgnoreCase(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || containsIgnoreCaseImpl(s, substr))
}

const asciiCaseOffset = 'a' - 'A'

func containsIgnoreCaseImpl(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		match := true
		for j := 0; j < len(substr); j++ {
			c1, c2 := s[i+j], substr[j]
			if c1 >= 'A' && c1 <= 'Z' {
				c1 += asciiCaseOffset
			}
			if c2 >= 'A' && c2 <= 'Z' {
				c2 += asciiCaseOffset
			}
			if c1 != c2 {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
