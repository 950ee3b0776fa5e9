package resampler

import "fmt"

// Format describes an interleaved 16-bit signed little-endian PCM layout.
type Format struct {
	// SampleRate is the sample rate in Hz (e.g., 16000, 44100).
	SampleRate int

	// Channels is 1 (mono) or 2 (stereo).
	Channels int
}

func (f Format) validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("resampler: invalid sample rate %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("resampler: unsupported channel count %d", f.Channels)
	}
	return nil
}

// frameBytes returns the size of one interleaved sample frame.
func (f Format) frameBytes() int {
	return f.Channels * 2
}
