package core

import (
	"fmt"
	"strings"
)

type AudioEncodingFormat int

const (
	PCM  AudioEncodingFormat = iota // Raw little-endian linear PCM16.
	ULAW                            // μ-law encoding format.
	ALAW                            // A-law encoding format.
	WAV                             // Linear PCM16 wrapped in a RIFF/WAVE container.
)

func (f AudioEncodingFormat) String() string {
	switch f {
	case PCM:
		return "pcm"
	case ULAW:
		return "ulaw"
	case ALAW:
		return "alaw"
	case WAV:
		return "wav"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseAudioEncodingFormat accepts the names produced by String. "" is PCM.
func ParseAudioEncodingFormat(name string) (AudioEncodingFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pcm", "linear16":
		return PCM, nil
	case "ulaw", "mulaw":
		return ULAW, nil
	case "alaw":
		return ALAW, nil
	case "wav":
		return WAV, nil
	}
	return PCM, fmt.Errorf("unknown audio encoding %q", name)
}

func (f AudioEncodingFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *AudioEncodingFormat) UnmarshalText(text []byte) error {
	parsed, err := ParseAudioEncodingFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// BitsPerSample is the only sample width handled anywhere in the bridge.
const BitsPerSample = 16

// AudioFormat describes linear PCM16 audio.
type AudioFormat struct {
	SampleRate int `json:"sample_rate" yaml:"sample_rate"` // Hz
	Channels   int `json:"channels" yaml:"channels"`       // 1 or 2
}

// Validate checks the sample rate and channel count.
func (f AudioFormat) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", f.Channels)
	}
	return nil
}

// BytesPerSecond returns the PCM16 byte rate for this format.
func (f AudioFormat) BytesPerSecond() int {
	return f.SampleRate * f.Channels * BitsPerSample / 8
}

func (f AudioFormat) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// PCMBuffer holds signed 16-bit samples, interleaved by channel when Channels > 1.
// Samples must not be modified once the buffer has been handed to another component.
type PCMBuffer struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Format returns the buffer's sample rate and channel count.
func (b PCMBuffer) Format() AudioFormat {
	return AudioFormat{SampleRate: b.SampleRate, Channels: b.Channels}
}

// Frames returns the number of complete frames in the buffer.
func (b PCMBuffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// ByteLength is the size of the samples serialized as PCM16.
func (b PCMBuffer) ByteLength() int {
	return len(b.Samples) * 2
}

// GetDurationInSeconds returns the playback duration of the buffer.
func (b PCMBuffer) GetDurationInSeconds() float64 {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0.0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// AudioChunk is raw provider audio before it is normalised to PCM.
type AudioChunk struct {
	Data       []byte              // Raw audio data.
	SampleRate int                 // Sample rate of the audio data. Ignored for WAV, which carries its own.
	Channels   int                 // Number of audio channels. Ignored for WAV.
	Format     AudioEncodingFormat // Encoding format of the audio data.
}

func (ac *AudioChunk) GetDurationInSeconds() float64 {
	if ac.SampleRate == 0 || ac.Channels == 0 {
		return 0.0
	}
	bytesPerSample := 2
	if ac.Format == ULAW || ac.Format == ALAW {
		bytesPerSample = 1
	}
	totalSamples := len(ac.Data) / (bytesPerSample * ac.Channels)
	return float64(totalSamples) / float64(ac.SampleRate)
}

// PCMFormat returns the rate and channel count declared by the chunk.
func (ac *AudioChunk) PCMFormat() AudioFormat {
	return AudioFormat{SampleRate: ac.SampleRate, Channels: ac.Channels}
}
