package biometric

import (
	"errors"
	"fmt"

	"github.com/biovault/verify/pkg/media"
)

// Modality selects the verification strategy.
type Modality int

const (
	ModalityFace Modality = iota + 1
	ModalityVoice
)

func (m Modality) String() string {
	switch m {
	case ModalityFace:
		return "face"
	case ModalityVoice:
		return "voice"
	}
	return fmt.Sprintf("Modality(%d)", int(m))
}

// Kind returns the media kind the modality compares.
func (m Modality) Kind() media.Kind {
	if m == ModalityVoice {
		return media.KindAudio
	}
	return media.KindImage
}

// Request asks whether A and B belong to the same person.
type Request struct {
	Modality Modality
	A, B     media.Reference
}

// FaceRequest builds a face verification request.
func FaceRequest(a, b media.Reference) Request {
	return Request{Modality: ModalityFace, A: a, B: b}
}

// VoiceRequest builds a voice verification request.
func VoiceRequest(a, b media.Reference) Request {
	return Request{Modality: ModalityVoice, A: a, B: b}
}

// ErrInvalidRequest is wrapped by Validate errors.
var ErrInvalidRequest = errors.New("biometric: invalid request")

// Validate checks that the request names a known modality and two
// references.
func (r Request) Validate() error {
	if r.Modality != ModalityFace && r.Modality != ModalityVoice {
		return fmt.Errorf("%w: unknown modality %v", ErrInvalidRequest, r.Modality)
	}
	if r.A.IsZero() || r.B.IsZero() {
		return fmt.Errorf("%w: two media references are required", ErrInvalidRequest)
	}
	return nil
}
