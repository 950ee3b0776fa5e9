package media

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/biovault/verify/pkg/storage"
)

func newTestScope(t *testing.T) (*Scope, *storage.Local) {
	t.Helper()
	dir, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewScope(dir, nil), dir
}

func countFiles(t *testing.T, dir *storage.Local) int {
	t.Helper()
	names, err := dir.List()
	if err != nil {
		t.Fatal(err)
	}
	return len(names)
}

var artifactName = regexp.MustCompile(`^(image|audio)-\d{8}T\d{6}Z-[0-9a-v]{20}(\.[a-z0-9]+)?$`)

func TestScopeCreateNaming(t *testing.T) {
	s, dir := newTestScope(t)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 45, 0, time.FixedZone("X", 3600)) }

	f, art, err := s.Create(KindAudio, "wav")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	name := filepath.Base(art.Path)
	if !artifactName.MatchString(name) {
		t.Errorf("name %q does not match pattern", name)
	}
	if !strings.HasPrefix(name, "audio-20240301T113045Z-") {
		t.Errorf("name %q should carry the UTC timestamp", name)
	}
	if filepath.Dir(art.Path) != dir.Root() {
		t.Errorf("artifact created outside transient dir: %s", art.Path)
	}
	if !art.Owned || art.Kind != KindAudio {
		t.Errorf("artifact = %+v", art)
	}
}

func TestScopeCreateUnique(t *testing.T) {
	s, dir := newTestScope(t)
	const n = 200

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, _, err := s.Create(KindImage, "png")
			if err != nil {
				errs <- err
				return
			}
			f.Close()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	if got := countFiles(t, dir); got != n {
		t.Fatalf("created %d files, want %d", got, n)
	}
	if s.Len() != n {
		t.Fatalf("Len = %d, want %d", s.Len(), n)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := countFiles(t, dir); got != 0 {
		t.Fatalf("%d files left after Close", got)
	}
}

func TestScopeCloseReverseOrder(t *testing.T) {
	s, dir := newTestScope(t)
	var created []string
	for i := 0; i < 3; i++ {
		f, art, err := s.Create(KindImage, "")
		if err != nil {
			t.Fatal(err)
		}
		f.Close()
		created = append(created, filepath.Base(art.Path))
	}

	var removed []string
	s.remove = func(name string) error {
		removed = append(removed, name)
		return dir.Delete(name)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	want := []string{created[2], created[1], created[0]}
	for i := range want {
		if removed[i] != want[i] {
			t.Fatalf("removal order = %v, want %v", removed, want)
		}
	}
}

func TestScopeCloseContinuesAfterFailure(t *testing.T) {
	s, dir := newTestScope(t)
	for i := 0; i < 3; i++ {
		f, _, err := s.Create(KindAudio, "wav")
		if err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	calls := 0
	boom := errors.New("device busy")
	s.remove = func(name string) error {
		calls++
		if calls == 1 {
			return boom
		}
		return dir.Delete(name)
	}
	err := s.Close()
	if !errors.Is(err, boom) {
		t.Fatalf("Close err = %v, want %v", err, boom)
	}
	if calls != 3 {
		t.Errorf("remove called %d times, want 3", calls)
	}
	if got := countFiles(t, dir); got != 1 {
		t.Errorf("%d files left, want 1", got)
	}
}

func TestScopeClosedRejectsCreate(t *testing.T) {
	s, dir := newTestScope(t)
	s.Close()
	if _, _, err := s.Create(KindImage, "png"); err == nil {
		t.Fatal("Create after Close should fail")
	}
	if got := countFiles(t, dir); got != 0 {
		t.Errorf("%d files left", got)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestScopeCloseSkipsMissingFiles(t *testing.T) {
	s, dir := newTestScope(t)
	var paths []string
	for i := 0; i < 2; i++ {
		f, art, err := s.Create(KindImage, "png")
		if err != nil {
			t.Fatal(err)
		}
		f.Close()
		paths = append(paths, art.Path)
	}
	if err := os.Remove(paths[0]); err != nil {
		t.Fatal(err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close = %v, want nil for a file removed elsewhere", err)
	}
	if got := countFiles(t, dir); got != 0 {
		t.Errorf("%d files left after Close", got)
	}
}
