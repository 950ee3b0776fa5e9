package media

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPayload is wrapped by a FetchError when a source has no bytes.
	ErrEmptyPayload = errors.New("media: empty payload")

	// ErrTooLarge is wrapped by a FetchError when a source exceeds the
	// fetcher's size limit.
	ErrTooLarge = errors.New("media: payload too large")

	// ErrLocalDisallowed is wrapped by a FetchError when a local path is
	// fetched by a Fetcher that does not accept them.
	ErrLocalDisallowed = errors.New("media: local paths are not allowed")

	// ErrNoObjectStore is wrapped by a FetchError when an s3:// reference is
	// fetched without a configured object store.
	ErrNoObjectStore = errors.New("media: no object store configured")
)

// FetchError reports a failure to retrieve a Reference.
type FetchError struct {
	Ref string

	// StatusCode is the HTTP status of a remote fetch, or 0.
	StatusCode int

	Err error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("media: fetch %s: status %d: %v", e.Ref, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("media: fetch %s: status %d", e.Ref, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("media: fetch %s: %v", e.Ref, e.Err)
	}
	return fmt.Sprintf("media: fetch %s failed", e.Ref)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CodecError reports media that could not be decoded or converted.
type CodecError struct {
	Path string
	Err  error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("media: codec %s: %v", e.Path, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is or wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsCodecError reports whether err is or wraps a *CodecError.
func IsCodecError(err error) bool {
	var ce *CodecError
	return errors.As(err, &ce)
}
