package audio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"voicebridge/core"

	"github.com/zaf/g711"
)

// PCM constants
const (
	pcmMax = 32767  // Max 16-bit PCM value
	pcmMin = -32768 // Min 16-bit PCM value
)

// ULawBytesToPCM expands µ-law bytes to little-endian PCM16 bytes (ITU-T G.711).
func ULawBytesToPCM(uBytes []byte) []byte {
	return g711.DecodeUlaw(uBytes)
}

// ALawBytesToPCM expands A-law bytes to little-endian PCM16 bytes (ITU-T G.711).
func ALawBytesToPCM(aBytes []byte) []byte {
	return g711.DecodeAlaw(aBytes)
}

// ValidatePCMData validates PCM byte array for basic integrity
func ValidatePCMData(pcm []byte, numChannels int) error {
	if numChannels <= 0 {
		return errors.New("invalid number of channels")
	}
	if len(pcm)%(2*numChannels) != 0 {
		return errors.New("PCM data length doesn't match channel count")
	}
	return nil
}

// BytesToPCM decodes little-endian PCM16 bytes. A trailing odd byte is discarded.
func BytesToPCM(raw []byte, sampleRate, channels int) core.PCMBuffer {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return core.PCMBuffer{SampleRate: sampleRate, Channels: channels, Samples: samples}
}

// PCMToBytes serializes samples as little-endian PCM16.
func PCMToBytes(pcm core.PCMBuffer) []byte {
	out := make([]byte, len(pcm.Samples)*2)
	for i, s := range pcm.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// ChunkToPCM turns provider audio of any supported encoding into a PCM buffer.
// WAV input is validated with DecodeWAV and carries its own format; the other
// encodings take their rate and channel count from the chunk.
func ChunkToPCM(chunk core.AudioChunk) (core.PCMBuffer, error) {
	switch chunk.Format {
	case core.WAV:
		c, err := DecodeWAV(chunk.Data)
		if err != nil {
			return core.PCMBuffer{}, err
		}
		return c.PCM(), nil
	case core.PCM:
		// Some providers return a container even when asked for raw PCM.
		if IsWAV(chunk.Data) {
			return ChunkToPCM(core.AudioChunk{Data: chunk.Data, Format: core.WAV})
		}
		if err := chunk.PCMFormat().Validate(); err != nil {
			return core.PCMBuffer{}, fmt.Errorf("audio: %w", err)
		}
		return BytesToPCM(chunk.Data, chunk.SampleRate, chunk.Channels), nil
	case core.ULAW:
		if err := chunk.PCMFormat().Validate(); err != nil {
			return core.PCMBuffer{}, fmt.Errorf("audio: %w", err)
		}
		return BytesToPCM(ULawBytesToPCM(chunk.Data), chunk.SampleRate, chunk.Channels), nil
	case core.ALAW:
		if err := chunk.PCMFormat().Validate(); err != nil {
			return core.PCMBuffer{}, fmt.Errorf("audio: %w", err)
		}
		return BytesToPCM(ALawBytesToPCM(chunk.Data), chunk.SampleRate, chunk.Channels), nil
	default:
		return core.PCMBuffer{}, fmt.Errorf("audio: unsupported format %s for PCM conversion", chunk.Format)
	}
}

func clampSample(v float64) int16 {
	if v > pcmMax {
		return pcmMax
	}
	if v < pcmMin {
		return pcmMin
	}
	return int16(v)
}
