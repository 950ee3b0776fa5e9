package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/biovault/verify/pkg/storage"
)

// DefaultMaxBytes is the default download limit per reference.
const DefaultMaxBytes = 32 << 20

// Fetcher retrieves referenced media into a request's Scope.
type Fetcher struct {
	httpClient *http.Client
	s3         storage.S3Client
	maxBytes   int64
	allowLocal bool
	logger     *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the client used for remote references.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpClient = c }
}

// WithS3Client enables s3:// references.
func WithS3Client(c storage.S3Client) FetcherOption {
	return func(f *Fetcher) { f.s3 = c }
}

// WithMaxBytes limits the size of a single download.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) { f.maxBytes = n }
}

// WithLocalPaths controls whether local path references are accepted.
// They are accepted by default.
func WithLocalPaths(allow bool) FetcherOption {
	return func(f *Fetcher) { f.allowLocal = allow }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxBytes:   DefaultMaxBytes,
		allowLocal: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AllowsLocal reports whether local path references are accepted.
func (f *Fetcher) AllowsLocal() bool {
	return f.allowLocal
}

// Fetch makes ref available as a local file. Remote and object references
// are downloaded into one new owned file in scope. Local references are
// returned as-is and are not owned. All failures are *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, scope *Scope, ref Reference, kind Kind) (Artifact, error) {
	switch ref.Kind() {
	case RefLocal:
		return f.fetchLocal(ref, kind)
	case RefRemote:
		return f.fetchRemote(ctx, scope, ref, kind)
	case RefObject:
		return f.fetchObject(ctx, scope, ref, kind)
	}
	return Artifact{}, &FetchError{Ref: ref.String(), Err: errors.New("invalid reference")}
}

func (f *Fetcher) fetchLocal(ref Reference, kind Kind) (Artifact, error) {
	if !f.allowLocal {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: ErrLocalDisallowed}
	}
	path, err := filepath.Abs(ref.String())
	if err != nil {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: err}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: err}
	}
	if !info.Mode().IsRegular() {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: errors.New("not a regular file")}
	}
	if info.Size() == 0 {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: ErrEmptyPayload}
	}
	return Artifact{Path: path, Kind: kind, CreatedAt: info.ModTime(), Owned: false}, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, scope *Scope, ref Reference, kind Kind) (Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.String(), nil)
	if err != nil {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: err}
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Artifact{}, &FetchError{Ref: ref.String(), StatusCode: resp.StatusCode}
	}
	if resp.ContentLength > f.maxBytes {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: ErrTooLarge}
	}

	ext := ref.Ext()
	if ext == "" {
		ext = extFromContentType(resp.Header.Get("Content-Type"))
	}
	return f.save(scope, ref, kind, ext, resp.Body)
}

func (f *Fetcher) fetchObject(ctx context.Context, scope *Scope, ref Reference, kind Kind) (Artifact, error) {
	if f.s3 == nil {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: ErrNoObjectStore}
	}
	rc, size, err := storage.NewS3(f.s3, ref.Bucket()).Open(ctx, ref.Key())
	if err != nil {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: err}
	}
	defer rc.Close()
	if size > f.maxBytes {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: ErrTooLarge}
	}
	return f.save(scope, ref, kind, ref.Ext(), rc)
}

// save copies body into a new scope file, enforcing the size limit.
func (f *Fetcher) save(scope *Scope, ref Reference, kind Kind, ext string, body io.Reader) (Artifact, error) {
	file, art, err := scope.Create(kind, ext)
	if err != nil {
		return Artifact{}, &FetchError{Ref: ref.String(), Err: err}
	}
	n, err := io.Copy(file, io.LimitReader(body, f.maxBytes+1))
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		return Artifact{}, &FetchError{Ref: ref.String(), Err: fmt.Errorf("copy: %w", err)}
	case n == 0:
		return Artifact{}, &FetchError{Ref: ref.String(), Err: ErrEmptyPayload}
	case n > f.maxBytes:
		return Artifact{}, &FetchError{Ref: ref.String(), Err: ErrTooLarge}
	}
	f.logger.Debug("media: fetched", "ref", ref.String(), "path", art.Path, "bytes", n)
	return art, nil
}

func extFromContentType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	switch mt {
	case "image/jpeg":
		return "jpg"
	case "audio/mpeg":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	}
	exts, err := mime.ExtensionsByType(mt)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return cleanExt(exts[0])
}
