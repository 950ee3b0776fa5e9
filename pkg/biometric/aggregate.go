package biometric

import (
	"fmt"
	"strings"

	"github.com/biovault/verify/pkg/diarize"
)

// Aggregate decides from one diarization result whether a single speaker
// was heard.
//
// Segments with End <= Start or no label are ignored. With fewer than two
// segments the verdict is negative without an error reason. Otherwise the
// recording is verified iff exactly one distinct label occurs.
// FirstLastMatch reports whether the earliest-starting and latest-ending
// segments share a label; it never changes the decision. Per-segment
// confidence is not used.
func Aggregate(segs []diarize.Segment) Verdict {
	valid := make([]diarize.Segment, 0, len(segs))
	for _, s := range segs {
		if s.Valid() {
			valid = append(valid, s)
		}
	}
	speakers := diarize.Speakers(valid)
	if len(valid) < 2 {
		return Verdict{
			Verified:     false,
			Detail:       strings.TrimPrefix(ErrInsufficientSegments.Error(), "biometric: "),
			SpeakerCount: ptr(len(speakers)),
		}
	}

	first, last := valid[0], valid[0]
	for _, s := range valid[1:] {
		if s.Start < first.Start {
			first = s
		}
		if s.End > last.End || (s.End == last.End && s.Start > last.Start) {
			last = s
		}
	}

	return Verdict{
		Verified:       len(speakers) == 1,
		Detail:         fmt.Sprintf("%d segments, %d speakers", len(valid), len(speakers)),
		SpeakerCount:   ptr(len(speakers)),
		FirstLastMatch: ptr(first.Speaker == last.Speaker),
	}
}
