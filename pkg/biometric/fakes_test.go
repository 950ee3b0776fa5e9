package biometric

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/biovault/verify/pkg/audio/pcm"
	"github.com/biovault/verify/pkg/backend"
	"github.com/biovault/verify/pkg/diarize"
	"github.com/biovault/verify/pkg/imaging"
	"github.com/biovault/verify/pkg/media"
	"github.com/biovault/verify/pkg/storage"
)

// Each test person is a solid-color image; the fake detector identifies
// people by the color of the canonical PNG it receives.
var (
	alice   = color.RGBA{200, 10, 10, 255}
	alice2  = color.RGBA{201, 10, 10, 255}
	bob     = color.RGBA{10, 200, 10, 255}
	nobody  = color.RGBA{10, 10, 200, 255}
	crowd   = color.RGBA{90, 90, 90, 255}
	explode = color.RGBA{1, 2, 3, 255}
)

func solidPNG(c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

type fakeDetector struct {
	faces map[color.RGBA][]backend.Face
	err   error
}

func newFakeDetector() *fakeDetector {
	return &fakeDetector{faces: map[color.RGBA][]backend.Face{
		alice:  {{Embedding: []float64{0, 0, 0}, Score: 0.99}},
		alice2: {{Embedding: []float64{0.3, 0, 0}, Score: 0.97}},
		bob:    {{Embedding: []float64{0, 0.9, 0}, Score: 0.95}},
		nobody: nil,
		crowd: {
			{Embedding: []float64{5, 5, 5}, Score: 0.4},
			{Embedding: []float64{0, 0.1, 0}, Score: 0.9},
		},
	}}
}

func (d *fakeDetector) DetectFaces(ctx context.Context, path string) ([]backend.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.err != nil {
		return nil, d.err
	}
	img, _, err := imaging.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	r, g, b, a := img.At(0, 0).RGBA()
	c := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	if c == explode {
		panic("model crashed")
	}
	return d.faces[c], nil
}

// toneWAV returns a canonical WAV of d non-silent audio.
func toneWAV(d time.Duration) []byte {
	data := make([]byte, pcm.Canonical.BytesInDuration(d))
	for i := 0; i+1 < len(data); i += 2 {
		s := int16(3000)
		if (i/2/40)%2 == 1 {
			s = -3000
		}
		data[i], data[i+1] = byte(s), byte(s>>8)
	}
	var buf bytes.Buffer
	pcm.WriteWAV(&buf, pcm.Canonical, pcm.Canonical.DataChunk(data))
	return buf.Bytes()
}

// fakeDiarizer records the length of every stream it is given and returns
// a fixed result.
type fakeDiarizer struct {
	mu        sync.Mutex
	durations []time.Duration
	result    []diarize.Segment
	err       error
}

func (d *fakeDiarizer) Diarize(ctx context.Context, path string) ([]diarize.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := pcm.ReadWAVHeader(f)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.durations = append(d.durations, pcm.Canonical.Duration(info.DataSize))
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

// mediaServer serves test media by path.
func mediaServer(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("slow") != "" {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
		w.Write(data)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTransient(t *testing.T) *storage.Local {
	t.Helper()
	dir, err := storage.NewLocal(filepath.Join(t.TempDir(), "transient"))
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func assertEmpty(t *testing.T, dir *storage.Local) {
	t.Helper()
	names, err := dir.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("%d transient files leaked: %v", len(names), names)
	}
}

func ref(t *testing.T, s string) media.Reference {
	t.Helper()
	r, err := media.ParseReference(s)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

var errBackendDown = &backend.Error{HTTPStatus: 503, Message: "overloaded"}

