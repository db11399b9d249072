package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"voicebridge/core"
)

// WAV layout constants for the canonical 44-byte header.
const (
	WavHeaderSize = 44

	riffHeaderSize = 12
	chunkHeaderLen = 8
	fmtChunkSize   = 16
	audioFormatPCM = 1
)

// Pool for WAV header buffers
var wavHeaderPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, WavHeaderSize))
	},
}

// DecodeFailureKind classifies why a byte sequence is not an acceptable container.
type DecodeFailureKind int

const (
	DecodeTooShort DecodeFailureKind = iota + 1
	DecodeBadMagic
	DecodeMissingChunk
	DecodeUnsupportedFormat
)

func (k DecodeFailureKind) String() string {
	switch k {
	case DecodeTooShort:
		return "too-short"
	case DecodeBadMagic:
		return "bad-magic"
	case DecodeMissingChunk:
		return "missing-chunk"
	case DecodeUnsupportedFormat:
		return "unsupported-format"
	default:
		return fmt.Sprintf("decode-failure(%d)", int(k))
	}
}

// DecodeError is returned by DecodeWAV for every malformed input.
type DecodeError struct {
	Kind   DecodeFailureKind
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wav: %s: %s", e.Kind, e.Detail)
}

// Is lets errors.Is match a DecodeError against the sentinel of the same kind.
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Detail == "" && t.Kind == e.Kind
}

var (
	ErrTooShort          = &DecodeError{Kind: DecodeTooShort}
	ErrBadMagic          = &DecodeError{Kind: DecodeBadMagic}
	ErrMissingChunk      = &DecodeError{Kind: DecodeMissingChunk}
	ErrUnsupportedFormat = &DecodeError{Kind: DecodeUnsupportedFormat}
)

func decodeFailure(kind DecodeFailureKind, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Container is a decoded RIFF/WAVE file. Data aliases the input slice.
type Container struct {
	Format        core.AudioFormat
	BitsPerSample int
	Data          []byte
}

// DataLength is the payload size in bytes.
func (c Container) DataLength() int {
	return len(c.Data)
}

// PCM converts the payload to samples. A trailing odd byte is dropped.
func (c Container) PCM() core.PCMBuffer {
	return BytesToPCM(c.Data, c.Format.SampleRate, c.Format.Channels)
}

// EncodeWAV wraps pcm into a 44-byte header WAV file (16-bit little endian).
// An empty buffer produces a valid header with zero length fields.
func EncodeWAV(pcm core.PCMBuffer) []byte {
	buf := wavHeaderPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		wavHeaderPool.Put(buf)
	}()

	blockAlign := pcm.Channels * core.BitsPerSample / 8
	byteRate := pcm.SampleRate * blockAlign
	dataSize := pcm.ByteLength()
	fileSize := WavHeaderSize - 8 + dataSize

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(fileSize))
	buf.WriteString("WAVE")

	// fmt sub-chunk
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(audioFormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(pcm.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(pcm.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(core.BitsPerSample))

	// data sub-chunk
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))

	result := make([]byte, WavHeaderSize+dataSize)
	copy(result, buf.Bytes())
	for i, s := range pcm.Samples {
		binary.LittleEndian.PutUint16(result[WavHeaderSize+i*2:], uint16(s))
	}
	return result
}

// PCMBytesToWavBytes wraps raw little-endian PCM16 bytes without converting them to samples first.
func PCMBytesToWavBytes(pcm []byte, format core.AudioFormat) ([]byte, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	if err := ValidatePCMData(pcm, format.Channels); err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	header := EncodeWAV(core.PCMBuffer{SampleRate: format.SampleRate, Channels: format.Channels})
	binary.LittleEndian.PutUint32(header[4:8], uint32(WavHeaderSize-8+len(pcm)))
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	result := make([]byte, WavHeaderSize+len(pcm))
	copy(result, header)
	copy(result[WavHeaderSize:], pcm)
	return result, nil
}

// IsWAV reports whether data starts with a RIFF/WAVE signature.
func IsWAV(data []byte) bool {
	return len(data) >= riffHeaderSize &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// DecodeWAV validates a RIFF/WAVE file and returns its format and PCM payload.
// Sub-chunks may appear in any order after the 12-byte file header; each is
// padded to an even length. A data chunk that claims more bytes than are
// present is clamped to the bytes available.
func DecodeWAV(data []byte) (Container, error) {
	if len(data) < WavHeaderSize {
		return Container{}, decodeFailure(DecodeTooShort, "need at least %d bytes, got %d", WavHeaderSize, len(data))
	}
	if !IsWAV(data) {
		return Container{}, decodeFailure(DecodeBadMagic, "missing RIFF/WAVE signature")
	}

	var (
		fmtBody  []byte
		dataBody []byte
		haveData bool
	)

	i := riffHeaderSize
	for i+chunkHeaderLen <= len(data) {
		chunkID := string(data[i : i+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[i+4 : i+8]))
		start := i + chunkHeaderLen
		end := start + chunkSize
		if chunkSize < 0 || end > len(data) || end < start {
			end = len(data)
		}

		switch chunkID {
		case "fmt ":
			if fmtBody == nil {
				fmtBody = data[start:end]
			}
		case "data":
			if !haveData {
				dataBody = data[start:end]
				haveData = true
			}
		}

		if fmtBody != nil && haveData {
			break
		}

		next := end
		if chunkSize%2 != 0 {
			next++
		}
		if next <= i {
			break
		}
		i = next
	}

	if fmtBody == nil {
		return Container{}, decodeFailure(DecodeMissingChunk, `"fmt " chunk not found`)
	}
	if !haveData {
		return Container{}, decodeFailure(DecodeMissingChunk, `"data" chunk not found`)
	}
	if len(fmtBody) < fmtChunkSize {
		return Container{}, decodeFailure(DecodeUnsupportedFormat, "fmt chunk has %d bytes, need %d", len(fmtBody), fmtChunkSize)
	}

	formatTag := binary.LittleEndian.Uint16(fmtBody[0:2])
	channels := int(binary.LittleEndian.Uint16(fmtBody[2:4]))
	sampleRate := int(binary.LittleEndian.Uint32(fmtBody[4:8]))
	bitsPerSample := int(binary.LittleEndian.Uint16(fmtBody[14:16]))

	if formatTag != audioFormatPCM {
		return Container{}, decodeFailure(DecodeUnsupportedFormat, "format tag %d, only linear PCM (1) is supported", formatTag)
	}
	if bitsPerSample != core.BitsPerSample {
		return Container{}, decodeFailure(DecodeUnsupportedFormat, "%d bits per sample, only 16 is supported", bitsPerSample)
	}
	format := core.AudioFormat{SampleRate: sampleRate, Channels: channels}
	if err := format.Validate(); err != nil {
		return Container{}, decodeFailure(DecodeUnsupportedFormat, "%v", err)
	}

	return Container{
		Format:        format,
		BitsPerSample: bitsPerSample,
		Data:          dataBody,
	}, nil
}
