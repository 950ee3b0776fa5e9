// Package pcm provides types and utilities for working with PCM (Pulse Code Modulation) audio data.
//
// The package defines audio formats for 16-bit mono at the sample rates the
// verification backends accept, silence generation, and a minimal RIFF/WAVE
// container codec used to store canonical audio on disk.
//
// Key types:
//   - Format: Represents audio format (sample rate, channels, bit depth)
//   - Chunk: Interface for audio data chunks
//   - DataChunk: Concrete implementation of Chunk for raw audio data
//   - SilenceChunk: Chunk that produces silence of a specified duration
//   - WAVInfo: Parsed fmt/data description of a WAV stream
//
// Example usage:
//
//	// Write one second of canonical silence as a WAV file
//	silence := pcm.Canonical.SilenceChunk(time.Second)
//	if err := pcm.WriteWAVHeader(f, pcm.Canonical, silence.Len()); err != nil {
//	    return err
//	}
//	if _, err := silence.WriteTo(f); err != nil {
//	    return err
//	}
package pcm
