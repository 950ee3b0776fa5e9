// Package resampler converts 16-bit PCM between sample rates and channel
// layouts using a pure Go resampler (no CGO/FFI dependencies).
//
// It supports:
//   - Sample rate conversion (e.g., 44100Hz to 16000Hz)
//   - Channel conversion (stereo to mono by averaging, mono to stereo by duplication)
//   - 8-bit unsigned input widening to 16-bit
//
// Example usage:
//
//	src := resampler.Format{SampleRate: 44100, Channels: 2}
//	dst := resampler.Format{SampleRate: 16000, Channels: 1}
//	out, err := resampler.Convert(samples, src, dst)
//	if err != nil {
//	    return err
//	}
package resampler
