// Package normalize converts audio artifacts to the canonical format every
// recognition backend receives: WAV, 16 kHz, mono, 16-bit signed
// little-endian PCM ([pcm.Canonical]).
//
// PCM WAV input is converted in-process. Everything else is transcoded by
// ffmpeg with bit-exact flags. Both paths are deterministic, so normalizing
// the same input twice yields byte-identical files.
package normalize
