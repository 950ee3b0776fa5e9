package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Convert resamples a complete buffer of interleaved PCM16 audio from src to
// dst. Trailing bytes that do not form a whole frame are dropped. The output
// holds exactly round(frames * dst / src) frames and is deterministic for a
// given input.
func Convert(data []byte, src, dst Format) ([]byte, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if err := dst.validate(); err != nil {
		return nil, err
	}

	data = data[:len(data)/src.frameBytes()*src.frameBytes()]
	samples := toInt16(data)

	switch {
	case src.Channels == 2 && dst.Channels == 1:
		samples = stereoToMono(samples)
	case src.Channels == 1 && dst.Channels == 2:
		samples = monoToStereo(samples)
	}

	if src.SampleRate == dst.SampleRate || len(samples) == 0 {
		return fromInt16(samples), nil
	}

	frames := len(samples) / dst.Channels
	want := outFrames(frames, src.SampleRate, dst.SampleRate)
	out := make([]int16, want*dst.Channels)
	channel := make([]float64, frames)
	for c := 0; c < dst.Channels; c++ {
		for i := range channel {
			channel[i] = float64(samples[i*dst.Channels+c]) / 32768.0
		}
		// ResampleMono processes and flushes, so the filter tail is kept.
		res, err := resampling.ResampleMono(channel, float64(src.SampleRate), float64(dst.SampleRate), resampling.QualityHigh)
		if err != nil {
			return nil, fmt.Errorf("resampler: %d Hz to %d Hz: %w", src.SampleRate, dst.SampleRate, err)
		}
		// Trim or zero-pad to the exact frame count.
		for i := 0; i < want && i < len(res); i++ {
			out[i*dst.Channels+c] = clip(res[i])
		}
	}
	return fromInt16(out), nil
}

// outFrames returns the frame count of n frames converted from src to dst Hz,
// rounded to nearest.
func outFrames(n, src, dst int) int {
	return int((int64(n)*int64(dst) + int64(src)/2) / int64(src))
}

// Widen8 converts unsigned 8-bit PCM to signed 16-bit little-endian PCM.
func Widen8(data []byte) []byte {
	out := make([]byte, len(data)*2)
	for i, b := range data {
		s := (int16(b) - 128) << 8
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

func clip(s float64) int16 {
	switch {
	case s >= 1.0:
		return 32767
	case s < -1.0:
		return -32768
	}
	return int16(s * 32767.0)
}

func toInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return out
}

func fromInt16(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// stereoToMono averages the L and R channels of each frame.
func stereoToMono(s []int16) []int16 {
	out := make([]int16, len(s)/2)
	for i := range out {
		out[i] = int16((int32(s[i*2]) + int32(s[i*2+1])) / 2)
	}
	return out
}

// monoToStereo duplicates each sample into both channels.
func monoToStereo(s []int16) []int16 {
	out := make([]int16, len(s)*2)
	for i, v := range s {
		out[i*2] = v
		out[i*2+1] = v
	}
	return out
}
