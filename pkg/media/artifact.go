package media

import (
	"os"
	"time"
)

// Kind is the media type of an Artifact.
type Kind int

const (
	KindImage Kind = iota + 1
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	}
	return "media"
}

// Artifact is a media file on local disk.
type Artifact struct {
	Path      string
	Kind      Kind
	CreatedAt time.Time

	// Owned is true for files fetched or derived during the request. They
	// are deleted when the owning Scope closes. Caller-supplied local files
	// are not owned and are never deleted.
	Owned bool
}

// Open opens the artifact for reading.
func (a Artifact) Open() (*os.File, error) {
	return os.Open(a.Path)
}

// Size returns the artifact's size in bytes.
func (a Artifact) Size() (int64, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
