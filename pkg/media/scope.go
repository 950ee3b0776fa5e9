package media

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/biovault/verify/pkg/storage"
)

// Scope owns the transient files of one request. Files are registered when
// they are created and removed, newest first, by Close.
//
// A Scope is safe for concurrent use. Close does not take a context: it runs
// to completion even when the request has been cancelled.
type Scope struct {
	dir    *storage.Local
	logger *slog.Logger
	remove func(name string) error
	now    func() time.Time

	mu     sync.Mutex
	names  []string
	closed bool
}

// NewScope returns a Scope creating files in dir. A nil logger uses
// slog.Default().
func NewScope(dir *storage.Local, logger *slog.Logger) *Scope {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scope{
		dir:    dir,
		logger: logger,
		remove: dir.Delete,
		now:    time.Now,
	}
}

// Create creates a new owned artifact file of the given kind. The file is
// registered before it is returned, so it is removed on Close even if the
// caller fails while writing it. The caller must close the returned file.
//
// Names have the form <kind>-<UTC timestamp>-<xid>.<ext>.
func (s *Scope) Create(kind Kind, ext string) (*os.File, Artifact, error) {
	now := s.now().UTC()
	name := fmt.Sprintf("%s-%s-%s", kind, now.Format("20060102T150405Z"), xid.NewWithTime(now))
	if ext = cleanExt(ext); ext != "" {
		name += "." + ext
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, Artifact{}, errors.New("media: scope closed")
	}
	f, path, err := s.dir.Create(name)
	if err != nil {
		return nil, Artifact{}, fmt.Errorf("media: create %s: %w", name, err)
	}
	s.names = append(s.names, name)
	return f, Artifact{Path: path, Kind: kind, CreatedAt: now, Owned: true}, nil
}

// Len returns the number of files currently registered.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

// Close deletes every registered file from the transient store in reverse
// creation order. Files already gone are skipped. Other failures are logged
// at warn level and joined into the returned error; callers normally
// discard it. Close is idempotent.
func (s *Scope) Close() error {
	s.mu.Lock()
	names := s.names
	s.names = nil
	s.closed = true
	s.mu.Unlock()

	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		if err := s.remove(names[i]); err != nil {
			s.logger.Warn("media: cleanup failed", "path", s.dir.Path(names[i]), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
