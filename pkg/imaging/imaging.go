// Package imaging decodes face images in any supported container and
// rewrites them as bounded-size PNG, the form sent to face detection.
package imaging

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/biovault/verify/pkg/media"
)

const (
	// DefaultMaxSide bounds the longer edge of canonical images.
	DefaultMaxSide = 1024

	// MaxPixels rejects images whose declared size would exhaust memory
	// when decoded.
	MaxPixels = 50_000_000
)

// ErrTooManyPixels is wrapped by a CodecError for oversized images.
var ErrTooManyPixels = errors.New("imaging: image dimensions too large")

// Canonicalizer converts image artifacts to PNG.
type Canonicalizer struct {
	maxSide int
}

// New creates a Canonicalizer that scales images so neither edge exceeds
// maxSide. A non-positive maxSide uses DefaultMaxSide.
func New(maxSide int) *Canonicalizer {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	return &Canonicalizer{maxSide: maxSide}
}

// Canonicalize decodes src and writes it as a new owned PNG artifact in
// scope. Decode failures are *media.CodecError.
func (c *Canonicalizer) Canonicalize(ctx context.Context, scope *media.Scope, src media.Artifact) (media.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return media.Artifact{}, err
	}
	img, _, err := DecodeFile(src.Path)
	if err != nil {
		return media.Artifact{}, &media.CodecError{Path: src.Path, Err: err}
	}
	img = Fit(img, c.maxSide)

	f, out, err := scope.Create(media.KindImage, "png")
	if err != nil {
		return media.Artifact{}, err
	}
	w := bufio.NewWriter(f)
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	err = enc.Encode(w, img)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return media.Artifact{}, fmt.Errorf("imaging: write %s: %w", out.Path, err)
	}
	return out, nil
}

// DecodeFile decodes the image at path and returns it with its format name.
func DecodeFile(path string) (image.Image, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return Decode(bytes.NewReader(data))
}

// Decode decodes a PNG, JPEG, GIF, WebP, BMP or TIFF image after checking
// its declared dimensions against MaxPixels.
func Decode(r io.ReadSeeker) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return nil, "", fmt.Errorf("imaging: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("imaging: invalid %s dimensions %dx%d", format, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", ErrTooManyPixels
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("imaging: decode %s: %w", format, err)
	}
	return img, format, nil
}

// Fit scales img down so neither edge exceeds maxSide, keeping the aspect
// ratio. Images already within bounds are returned unchanged.
func Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
