// Package audio groups the audio processing used by voice verification.
//
// Sub-packages:
//
//   - pcm: canonical PCM format, silence and the WAV container
//   - resampler: sample rate and channel conversion
//   - normalize: conversion of arbitrary input to canonical WAV
//   - compose: joining two recordings around a silence gap
//
// Every stage after normalization works on pcm.Canonical audio:
//
//	out, err := normalize.New().Normalize(ctx, scope, src)
//	stream, err := compose.New(nil).Compose(ctx, scope, a, b, compose.DefaultGap)
package audio
