package biometric

// Reason classifies a failed verification.
type Reason string

const (
	ReasonFetch   Reason = "fetch failed"
	ReasonCodec   Reason = "codec error"
	ReasonNoFace  Reason = "no face detected"
	ReasonBackend Reason = "backend error"
)

// Verdict is the result of one verification.
//
// Either Error is empty and the remaining fields describe the decision, or
// Error is set and Verified is false. Confidence, Distance and Threshold are
// only reported by face matching; SpeakerCount and FirstLastMatch only by
// voice matching.
type Verdict struct {
	Verified       bool     `json:"verified" yaml:"verified"`
	Confidence     *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Detail         string   `json:"detail,omitempty" yaml:"detail,omitempty"`
	Error          Reason   `json:"error,omitempty" yaml:"error,omitempty"`
	SpeakerCount   *int     `json:"speaker_count,omitempty" yaml:"speaker_count,omitempty"`
	FirstLastMatch *bool    `json:"first_last_match,omitempty" yaml:"first_last_match,omitempty"`
	Distance       *float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

// Failure returns a negative verdict carrying reason.
func Failure(reason Reason, detail string) Verdict {
	return Verdict{Error: reason, Detail: detail}
}

// Failed reports whether the verdict carries an error reason.
func (v Verdict) Failed() bool {
	return v.Error != ""
}

func ptr[T any](v T) *T {
	return &v
}
