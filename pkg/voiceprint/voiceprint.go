// Package voiceprint implements an in-process speaker diarization backend.
//
// # Architecture
//
// The diarizer processes a canonical recording in four stages:
//
//  1. Windowing: fixed windows with a hop, silence dropped by an energy gate
//  2. Model.Extract: voiced PCM16 16kHz mono audio → embedding
//  3. Clustering: greedy cosine clustering of window embeddings
//  4. Merging: consecutive windows of one cluster become a segment
//
// Cluster labels are SPEAKER_00, SPEAKER_01, ... in order of first
// appearance. They are only meaningful within one Diarize call.
//
// [StatsModel] is a lightweight embedding built from log mel filterbank
// statistics. Any speaker embedding model can be substituted through the
// [Model] interface.
package voiceprint

import (
	"fmt"
	"math"
)

// SpeakerLabel returns the label of the n-th cluster, e.g. "SPEAKER_00".
func SpeakerLabel(n int) string {
	return fmt.Sprintf("SPEAKER_%02d", n)
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is zero. The vectors must have equal length.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}

// normalize scales v to unit length in place. Zero vectors are unchanged.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
