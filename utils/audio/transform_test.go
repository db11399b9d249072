package audio

import (
	"math/rand"
	"testing"

	"voicebridge/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSamples(rng *rand.Rand, n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = int16(rng.Intn(65536) - 32768)
	}
	return s
}

func TestDownmixStereoToMono(t *testing.T) {
	pcm := core.PCMBuffer{
		SampleRate: 24000,
		Channels:   2,
		Samples:    []int16{100, 200, -1, 0, -3, -4, 32767, 32767, -32768, -32768, 1, -2},
	}

	mono, err := DownmixStereoToMono(pcm)
	require.NoError(t, err)
	assert.Equal(t, 1, mono.Channels)
	assert.Equal(t, 24000, mono.SampleRate)
	// Odd sums round toward negative infinity: (-1+0)>>1 == -1, (-3-4)>>1 == -4, (1-2)>>1 == -1.
	assert.Equal(t, []int16{150, -1, -4, 32767, -32768, -1}, mono.Samples)
}

func TestDownmixMatchesArithmeticShift(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := randomSamples(rng, 2000)
	mono, err := DownmixStereoToMono(core.PCMBuffer{SampleRate: 16000, Channels: 2, Samples: samples})
	require.NoError(t, err)
	require.Len(t, mono.Samples, 1000)

	for i := range mono.Samples {
		l, r := int(samples[i*2]), int(samples[i*2+1])
		assert.Equal(t, int16((l+r)>>1), mono.Samples[i], "frame %d", i)
	}
}

func TestDownmixDropsPartialFrame(t *testing.T) {
	mono, err := DownmixStereoToMono(core.PCMBuffer{SampleRate: 16000, Channels: 2, Samples: []int16{2, 4, 6}})
	require.NoError(t, err)
	assert.Equal(t, []int16{3}, mono.Samples)

	// Odd byte count on the wire: the half sample never becomes a sample at all.
	pcm := BytesToPCM([]byte{2, 0, 4, 0, 9}, 16000, 2)
	mono, err = DownmixStereoToMono(pcm)
	require.NoError(t, err)
	assert.Equal(t, []int16{3}, mono.Samples)
}

func TestDownmixRejectsMono(t *testing.T) {
	_, err := DownmixStereoToMono(core.PCMBuffer{SampleRate: 16000, Channels: 1, Samples: []int16{1}})
	assert.ErrorIs(t, err, ErrNotStereo)
}

func TestResampleIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, rate := range []int{8000, 16000, 22050, 24000, 48000} {
		pcm := core.PCMBuffer{SampleRate: rate, Channels: 1, Samples: randomSamples(rng, 257)}
		out, err := ResampleLinear(pcm, rate)
		require.NoError(t, err)
		assert.Equal(t, pcm, out)
	}
}

func TestResampleLength(t *testing.T) {
	cases := []struct {
		in, out, n int
	}{
		{24000, 16000, 4800},
		{16000, 24000, 1601},
		{44100, 16000, 44100},
		{8000, 16000, 3},
		{22050, 16000, 7},
		{16000, 8000, 0},
	}
	for _, tc := range cases {
		pcm := core.PCMBuffer{SampleRate: tc.in, Channels: 1, Samples: make([]int16, tc.n)}
		out, err := ResampleLinear(pcm, tc.out)
		require.NoError(t, err)
		assert.Len(t, out.Samples, tc.n*tc.out/tc.in, "%d -> %d with %d samples", tc.in, tc.out, tc.n)
		assert.Equal(t, tc.out, out.SampleRate)
		assert.Equal(t, 1, out.Channels)
	}
}

func TestResampleStaysWithinEndpoints(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for _, rates := range [][2]int{{24000, 16000}, {16000, 24000}, {44100, 22050}, {8000, 11025}} {
		in := randomSamples(rng, 1000)
		out, err := ResampleLinear(core.PCMBuffer{SampleRate: rates[0], Channels: 1, Samples: in}, rates[1])
		require.NoError(t, err)

		for i, v := range out.Samples {
			t0 := float64(i) * float64(rates[0]) / float64(rates[1])
			i0 := int(t0)
			i1 := i0 + 1
			if i1 > len(in)-1 {
				i1 = len(in) - 1
			}
			lo, hi := in[i0], in[i1]
			if lo > hi {
				lo, hi = hi, lo
			}
			assert.True(t, v >= lo && v <= hi, "sample %d = %d outside [%d, %d]", i, v, lo, hi)
		}
	}
}

func TestResampleInterpolates(t *testing.T) {
	pcm := core.PCMBuffer{SampleRate: 8000, Channels: 1, Samples: []int16{0, 100, 200, 300}}
	out, err := ResampleLinear(pcm, 16000)
	require.NoError(t, err)
	assert.Equal(t, []int16{0, 50, 100, 150, 200, 250, 300, 300}, out.Samples)
}

func TestResampleRejectsStereo(t *testing.T) {
	_, err := ResampleLinear(core.PCMBuffer{SampleRate: 24000, Channels: 2, Samples: []int16{1, 2}}, 16000)
	assert.ErrorIs(t, err, ErrNotMono)
}

func TestConvertToFormat(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	stereo := core.PCMBuffer{SampleRate: 24000, Channels: 2, Samples: randomSamples(rng, 4800)}

	out, err := ConvertToFormat(stereo, core.AudioFormat{SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Channels)
	assert.Equal(t, 16000, out.SampleRate)
	assert.Len(t, out.Samples, 2400*16000/24000)

	mono, err := DownmixStereoToMono(stereo)
	require.NoError(t, err)
	want, err := ResampleLinear(mono, 16000)
	require.NoError(t, err)
	assert.Equal(t, want, out)

	same, err := ConvertToFormat(stereo, core.AudioFormat{SampleRate: 24000, Channels: 2})
	require.NoError(t, err)
	assert.Equal(t, stereo, same)

	up, err := ConvertToFormat(core.PCMBuffer{SampleRate: 16000, Channels: 1, Samples: []int16{7, -7}}, core.AudioFormat{SampleRate: 16000, Channels: 2})
	require.NoError(t, err)
	assert.Equal(t, []int16{7, 7, -7, -7}, up.Samples)

	_, err = ConvertToFormat(stereo, core.AudioFormat{SampleRate: 16000, Channels: 3})
	assert.Error(t, err)
}

func TestChunkToPCM(t *testing.T) {
	pcm := core.PCMBuffer{SampleRate: 16000, Channels: 1, Samples: []int16{1, -1, 300}}

	fromRaw, err := ChunkToPCM(core.AudioChunk{Data: PCMToBytes(pcm), SampleRate: 16000, Channels: 1, Format: core.PCM})
	require.NoError(t, err)
	assert.Equal(t, pcm, fromRaw)

	fromWav, err := ChunkToPCM(core.AudioChunk{Data: EncodeWAV(pcm), Format: core.WAV})
	require.NoError(t, err)
	assert.Equal(t, pcm, fromWav)

	sniffed, err := ChunkToPCM(core.AudioChunk{Data: EncodeWAV(pcm), SampleRate: 24000, Channels: 2, Format: core.PCM})
	require.NoError(t, err)
	assert.Equal(t, pcm, sniffed)

	// 0xFF is μ-law silence.
	ulaw, err := ChunkToPCM(core.AudioChunk{Data: []byte{0xFF, 0xFF}, SampleRate: 8000, Channels: 1, Format: core.ULAW})
	require.NoError(t, err)
	assert.Equal(t, []int16{0, 0}, ulaw.Samples)
	assert.Equal(t, 8000, ulaw.SampleRate)

	_, err = ChunkToPCM(core.AudioChunk{Data: []byte{1, 2}, Format: core.PCM})
	assert.Error(t, err)

	_, err = ChunkToPCM(core.AudioChunk{Data: []byte("RIFF"), Format: core.WAV})
	assert.ErrorIs(t, err, ErrTooShort)
}
