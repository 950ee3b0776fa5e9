package normalize

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/biovault/verify/pkg/audio/pcm"
	"github.com/biovault/verify/pkg/media"
	"github.com/biovault/verify/pkg/storage"
)

func newScope(t *testing.T) (*media.Scope, *storage.Local) {
	t.Helper()
	dir, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return media.NewScope(dir, nil), dir
}

// writeWAV writes a 16-bit PCM WAV with a sine tone and returns its path.
func writeWAV(t *testing.T, rate, channels int, seconds float64) string {
	t.Helper()
	n := int(float64(rate) * seconds)
	data := make([]byte, 0, n*channels*2)
	for i := 0; i < n; i++ {
		s := int16(6000 * math.Sin(2*math.Pi*330*float64(i)/float64(rate)))
		for c := 0; c < channels; c++ {
			data = append(data, byte(s), byte(s>>8))
		}
	}
	var buf bytes.Buffer
	writeRawWAV(&buf, rate, channels, 16, data)
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeRawWAV(buf *bytes.Buffer, rate, channels, bits int, data []byte) {
	le32 := func(v int) { buf.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}) }
	le16 := func(v int) { buf.Write([]byte{byte(v), byte(v >> 8)}) }
	align := channels * bits / 8
	buf.WriteString("RIFF")
	le32(36 + len(data))
	buf.WriteString("WAVEfmt ")
	le32(16)
	le16(1)
	le16(channels)
	le32(rate)
	le32(rate * align)
	le16(align)
	le16(bits)
	buf.WriteString("data")
	le32(len(data))
	buf.Write(data)
}

func TestNormalizeNativeWAV(t *testing.T) {
	tests := []struct {
		name     string
		rate, ch int
	}{
		{"stereo 44.1k", 44100, 2},
		{"mono 48k", 48000, 1},
		{"already canonical", 16000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, dir := newScope(t)
			src := media.Artifact{Path: writeWAV(t, tt.rate, tt.ch, 1), Kind: media.KindAudio}

			n := New()
			n.runner = failRunner{t}
			out, err := n.Normalize(context.Background(), scope, src)
			if err != nil {
				t.Fatal(err)
			}
			if !out.Owned {
				t.Error("normalized artifact must be owned")
			}
			info, err := Validate(out.Path)
			if err != nil {
				t.Fatal(err)
			}
			if d := pcm.Canonical.Duration(info.DataSize); d != time.Second {
				t.Errorf("duration = %v, want 1s", d)
			}

			scope.Close()
			if names, _ := dir.List(); len(names) != 0 {
				t.Errorf("files left: %v", names)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	scope, _ := newScope(t)
	defer scope.Close()
	src := media.Artifact{Path: writeWAV(t, 44100, 2, 2), Kind: media.KindAudio}
	n := New()

	a, err := n.Normalize(context.Background(), scope, src)
	if err != nil {
		t.Fatal(err)
	}
	b, err := n.Normalize(context.Background(), scope, src)
	if err != nil {
		t.Fatal(err)
	}
	if a.Path == b.Path {
		t.Fatal("each call must produce a new artifact")
	}
	da, _ := os.ReadFile(a.Path)
	db, _ := os.ReadFile(b.Path)
	if !bytes.Equal(da, db) {
		t.Error("normalizing the same input twice produced different bytes")
	}

	// Normalizing canonical output is a fixed point.
	c, err := n.Normalize(context.Background(), scope, a)
	if err != nil {
		t.Fatal(err)
	}
	dc, _ := os.ReadFile(c.Path)
	if !bytes.Equal(da, dc) {
		t.Error("normalizing canonical audio changed it")
	}
}

// failRunner fails the test if ffmpeg is invoked.
type failRunner struct{ t *testing.T }

func (r failRunner) Run(context.Context, string, ...string) (commandResult, error) {
	r.t.Error("ffmpeg must not run for PCM WAV input")
	return commandResult{}, errors.New("unexpected")
}

// fakeFFmpeg writes a canonical WAV to the output argument.
type fakeFFmpeg struct {
	args []string
	out  []byte
	err  error
}

func (f *fakeFFmpeg) Run(_ context.Context, _ string, args ...string) (commandResult, error) {
	f.args = args
	if f.err != nil {
		return commandResult{Stderr: "Invalid data found when processing input\n", ExitCode: 1}, f.err
	}
	return commandResult{}, os.WriteFile(args[len(args)-1], f.out, 0o600)
}

func TestNormalizeTranscodes(t *testing.T) {
	scope, _ := newScope(t)
	defer scope.Close()
	src := filepath.Join(t.TempDir(), "clip.mp3")
	os.WriteFile(src, []byte("ID3\x04 not really mp3"), 0o600)

	var canonical bytes.Buffer
	pcm.WriteWAV(&canonical, pcm.Canonical, pcm.Canonical.SilenceChunk(pcm.Canonical.Duration(3200)))
	fake := &fakeFFmpeg{out: canonical.Bytes()}

	n := New(WithFFmpeg("/opt/ffmpeg/bin/ffmpeg"))
	n.runner = fake
	out, err := n.Normalize(context.Background(), scope, media.Artifact{Path: src, Kind: media.KindAudio})
	if err != nil {
		t.Fatal(err)
	}
	want := FFmpegArgs(src, out.Path)
	if len(fake.args) != len(want) {
		t.Fatalf("args = %v, want %v", fake.args, want)
	}
	for i := range want {
		if fake.args[i] != want[i] {
			t.Fatalf("args = %v, want %v", fake.args, want)
		}
	}
}

func TestNormalizeFailures(t *testing.T) {
	var wrongRate bytes.Buffer
	writeRawWAV(&wrongRate, 8000, 1, 16, make([]byte, 1600))

	tests := []struct {
		name   string
		ffmpeg *fakeFFmpeg
	}{
		{"ffmpeg fails", &fakeFFmpeg{err: errors.New("exit status 1")}},
		{"ffmpeg writes nothing", &fakeFFmpeg{out: nil}},
		{"ffmpeg writes wrong format", &fakeFFmpeg{out: wrongRate.Bytes()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, dir := newScope(t)
			src := filepath.Join(t.TempDir(), "clip.m4a")
			os.WriteFile(src, []byte("....ftypM4A "), 0o600)

			n := New()
			n.runner = tt.ffmpeg
			_, err := n.Normalize(context.Background(), scope, media.Artifact{Path: src, Kind: media.KindAudio})
			if !media.IsCodecError(err) {
				t.Fatalf("err = %v, want *media.CodecError", err)
			}
			scope.Close()
			if names, _ := dir.List(); len(names) != 0 {
				t.Errorf("files left: %v", names)
			}
		})
	}
}

func TestNormalizeEmptyWAV(t *testing.T) {
	scope, _ := newScope(t)
	defer scope.Close()
	var buf bytes.Buffer
	writeRawWAV(&buf, 44100, 2, 16, []byte{1, 2, 3})
	src := filepath.Join(t.TempDir(), "empty.wav")
	os.WriteFile(src, buf.Bytes(), 0o600)

	n := New()
	n.runner = failRunner{t}
	_, err := n.Normalize(context.Background(), scope, media.Artifact{Path: src, Kind: media.KindAudio})
	if !media.IsCodecError(err) || !errors.Is(err, ErrNoSamples) {
		t.Fatalf("err = %v, want codec error wrapping ErrNoSamples", err)
	}
}

func TestNormalizeWithFFmpeg(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	scope, _ := newScope(t)
	defer scope.Close()

	// 24-bit input forces the ffmpeg path.
	var buf bytes.Buffer
	data := make([]byte, 48000*3)
	for i := 0; i < 48000; i++ {
		v := int32(2000000 * math.Sin(2*math.Pi*440*float64(i)/48000))
		data[i*3], data[i*3+1], data[i*3+2] = byte(v), byte(v>>8), byte(v>>16)
	}
	writeRawWAV(&buf, 48000, 1, 24, data)
	src := filepath.Join(t.TempDir(), "hi-res.wav")
	os.WriteFile(src, buf.Bytes(), 0o600)

	n := New(WithFFmpeg(ffmpeg))
	a, err := n.Normalize(context.Background(), scope, media.Artifact{Path: src, Kind: media.KindAudio})
	if err != nil {
		t.Fatal(err)
	}
	b, err := n.Normalize(context.Background(), scope, media.Artifact{Path: src, Kind: media.KindAudio})
	if err != nil {
		t.Fatal(err)
	}
	da, _ := os.ReadFile(a.Path)
	db, _ := os.ReadFile(b.Path)
	if !bytes.Equal(da, db) {
		t.Error("ffmpeg output differs between runs")
	}
}

func TestCheckFFmpeg(t *testing.T) {
	if err := New(WithFFmpeg("/nonexistent/ffmpeg")).CheckFFmpeg(); err == nil {
		t.Error("missing binary should fail the check")
	}

	fake := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := New(WithFFmpeg(fake)).CheckFFmpeg(); err != nil {
		t.Errorf("CheckFFmpeg(%s) = %v", fake, err)
	}
}
