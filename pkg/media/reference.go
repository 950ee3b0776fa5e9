package media

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// RefKind identifies where a Reference points.
type RefKind int

const (
	RefRemote RefKind = iota + 1 // http or https URL
	RefLocal                     // path on the local filesystem
	RefObject                    // s3://bucket/key
)

func (k RefKind) String() string {
	switch k {
	case RefRemote:
		return "remote"
	case RefLocal:
		return "local"
	case RefObject:
		return "object"
	}
	return "invalid"
}

// ErrEmptyReference is returned by ParseReference for blank input.
var ErrEmptyReference = errors.New("media: empty reference")

// Reference locates one media item. The zero value is invalid.
type Reference struct {
	kind   RefKind
	raw    string
	bucket string
	key    string
}

// ParseReference classifies s as a remote URL, an object reference, or a
// local path. file:// URLs are treated as local paths.
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, ErrEmptyReference
	}
	scheme, _, found := strings.Cut(s, "://")
	if !found {
		return LocalRef(s), nil
	}
	switch strings.ToLower(scheme) {
	case "http", "https":
		return RemoteRef(s)
	case "s3":
		u, err := url.Parse(s)
		if err != nil {
			return Reference{}, fmt.Errorf("media: parse %q: %w", s, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Reference{}, fmt.Errorf("media: object reference %q needs bucket and key", s)
		}
		return ObjectRef(u.Host, key), nil
	case "file":
		u, err := url.Parse(s)
		if err != nil {
			return Reference{}, fmt.Errorf("media: parse %q: %w", s, err)
		}
		if u.Path == "" {
			return Reference{}, fmt.Errorf("media: file reference %q has no path", s)
		}
		return LocalRef(u.Path), nil
	}
	return Reference{}, fmt.Errorf("media: unsupported scheme %q", scheme)
}

// RemoteRef returns a reference to an http or https URL.
func RemoteRef(rawURL string) (Reference, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Reference{}, fmt.Errorf("media: parse %q: %w", rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Reference{}, fmt.Errorf("media: invalid remote reference %q", rawURL)
	}
	return Reference{kind: RefRemote, raw: u.String()}, nil
}

// LocalRef returns a reference to a local file.
func LocalRef(path string) Reference {
	return Reference{kind: RefLocal, raw: filepath.Clean(path)}
}

// ObjectRef returns a reference to an object in an S3-compatible store.
func ObjectRef(bucket, key string) Reference {
	return Reference{
		kind:   RefObject,
		raw:    "s3://" + bucket + "/" + key,
		bucket: bucket,
		key:    key,
	}
}

// Kind returns the reference variant.
func (r Reference) Kind() RefKind { return r.kind }

// IsZero reports whether r is the zero Reference.
func (r Reference) IsZero() bool { return r.kind == 0 }

// String returns the URL or path the reference was built from.
func (r Reference) String() string { return r.raw }

// Bucket returns the bucket of an object reference.
func (r Reference) Bucket() string { return r.bucket }

// Key returns the object key of an object reference.
func (r Reference) Key() string { return r.key }

// Ext returns the file extension of the referenced name, lower-cased and
// without the dot, or "" if it has none.
func (r Reference) Ext() string {
	name := r.raw
	switch r.kind {
	case RefRemote:
		if u, err := url.Parse(r.raw); err == nil {
			name = u.Path
		}
	case RefObject:
		name = r.key
	}
	return cleanExt(filepath.Ext(name))
}

// cleanExt accepts short alphanumeric extensions only, so that names built
// from untrusted URLs stay well-formed.
func cleanExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 5 {
		return ""
	}
	for _, c := range ext {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
