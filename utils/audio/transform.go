package audio

import (
	"errors"
	"fmt"
	"math"

	"voicebridge/core"
)

var (
	ErrNotStereo = errors.New("audio: downmix requires 2 channels")
	ErrNotMono   = errors.New("audio: resampling requires mono input")
)

// DownmixStereoToMono averages each (L, R) frame into (L+R)>>1. The shift is
// arithmetic, so odd sums round toward negative infinity. A trailing
// incomplete frame is dropped.
func DownmixStereoToMono(pcm core.PCMBuffer) (core.PCMBuffer, error) {
	if pcm.Channels != 2 {
		return core.PCMBuffer{}, fmt.Errorf("%w, got %d", ErrNotStereo, pcm.Channels)
	}
	frames := len(pcm.Samples) / 2
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		left := int32(pcm.Samples[i*2])
		right := int32(pcm.Samples[i*2+1])
		mono[i] = int16((left + right) >> 1)
	}
	return core.PCMBuffer{SampleRate: pcm.SampleRate, Channels: 1, Samples: mono}, nil
}

// UpmixMonoToStereo duplicates every sample into both channels.
func UpmixMonoToStereo(pcm core.PCMBuffer) (core.PCMBuffer, error) {
	if pcm.Channels != 1 {
		return core.PCMBuffer{}, fmt.Errorf("%w, got %d channels", ErrNotMono, pcm.Channels)
	}
	stereo := make([]int16, len(pcm.Samples)*2)
	for i, s := range pcm.Samples {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}
	return core.PCMBuffer{SampleRate: pcm.SampleRate, Channels: 2, Samples: stereo}, nil
}

// ResampleLinear converts mono pcm to outRate by linear interpolation between
// neighbouring samples, rounding half up. No band limiting is applied.
// When outRate equals the input rate the input buffer is returned as is.
func ResampleLinear(pcm core.PCMBuffer, outRate int) (core.PCMBuffer, error) {
	if pcm.Channels != 1 {
		return core.PCMBuffer{}, fmt.Errorf("%w, got %d channels", ErrNotMono, pcm.Channels)
	}
	if pcm.SampleRate <= 0 || outRate <= 0 {
		return core.PCMBuffer{}, fmt.Errorf("audio: invalid resample rates %d -> %d", pcm.SampleRate, outRate)
	}
	if outRate == pcm.SampleRate {
		return pcm, nil
	}

	inRate := pcm.SampleRate
	in := pcm.Samples
	inLen := len(in)
	outLen := int(int64(inLen) * int64(outRate) / int64(inRate))
	out := make([]int16, outLen)

	for i := 0; i < outLen; i++ {
		t := float64(i) * float64(inRate) / float64(outRate)
		i0 := int(t)
		if i0 > inLen-1 {
			i0 = inLen - 1
		}
		i1 := i0 + 1
		if i1 > inLen-1 {
			i1 = inLen - 1
		}
		frac := t - float64(i0)
		s0 := float64(in[i0])
		s1 := float64(in[i1])
		out[i] = clampSample(math.Floor(s0 + (s1-s0)*frac + 0.5))
	}

	return core.PCMBuffer{SampleRate: outRate, Channels: 1, Samples: out}, nil
}

// ConvertToFormat reshapes pcm to the target rate and channel count. Stereo is
// always downmixed before resampling because ResampleLinear is mono only; a
// stereo target is produced by duplicating the mono result.
func ConvertToFormat(pcm core.PCMBuffer, target core.AudioFormat) (core.PCMBuffer, error) {
	if err := target.Validate(); err != nil {
		return core.PCMBuffer{}, fmt.Errorf("audio: target format: %w", err)
	}
	if pcm.Channels == target.Channels && pcm.SampleRate == target.SampleRate {
		return pcm, nil
	}

	out := pcm
	var err error
	if out.Channels == 2 && (target.Channels == 1 || out.SampleRate != target.SampleRate) {
		if out, err = DownmixStereoToMono(out); err != nil {
			return core.PCMBuffer{}, err
		}
	}
	if out.SampleRate != target.SampleRate {
		if out, err = ResampleLinear(out, target.SampleRate); err != nil {
			return core.PCMBuffer{}, err
		}
	}
	if out.Channels == 1 && target.Channels == 2 {
		if out, err = UpmixMonoToStereo(out); err != nil {
			return core.PCMBuffer{}, err
		}
	}
	return out, nil
}
