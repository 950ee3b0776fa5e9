// Package diarize defines the speaker diarization contract: given one audio
// file, report who spoke when.
package diarize

import (
	"context"
	"sort"
	"time"
)

// Segment is a time interval attributed to one speaker.
//
// Speaker labels are opaque and only meaningful within the result of a
// single Diarize call. Confidence is informational and may be zero.
type Segment struct {
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Speaker    string        `json:"speaker"`
	Confidence float64       `json:"confidence,omitempty"`
}

// Duration returns End - Start.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// Valid reports whether the segment has a positive length and a label.
func (s Segment) Valid() bool {
	return s.End > s.Start && s.Speaker != ""
}

// Diarizer segments a canonical audio file by speaker.
type Diarizer interface {
	Diarize(ctx context.Context, path string) ([]Segment, error)
}

// Func adapts a function to the Diarizer interface.
type Func func(ctx context.Context, path string) ([]Segment, error)

// Diarize calls f.
func (f Func) Diarize(ctx context.Context, path string) ([]Segment, error) {
	return f(ctx, path)
}

// Speakers returns the distinct labels of the valid segments in order of
// first appearance by start time.
func Speakers(segs []Segment) []string {
	sorted := Sorted(segs)
	seen := make(map[string]bool)
	var out []string
	for _, s := range sorted {
		if !s.Valid() || seen[s.Speaker] {
			continue
		}
		seen[s.Speaker] = true
		out = append(out, s.Speaker)
	}
	return out
}

// Sorted returns a copy of segs ordered by start, then end.
func Sorted(segs []Segment) []Segment {
	out := make([]Segment, len(segs))
	copy(out, segs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}
