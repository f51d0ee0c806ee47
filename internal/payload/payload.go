// Package payload carries the in-memory image representation exchanged
// between the application and the external-tool orchestrator: a decoded
// pixel buffer plus a key/value metadata map.
package payload

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Well-known metadata keys written by the orchestrator.
const (
	MetaProcessedBy      = "processed_by"
	MetaResolutionKm     = "res_km"
	MetaProcessingTimeMS = "processing_time_ms"
	MetaProcessingFailed = "processing_failed"
	MetaFailureReason    = "failure_reason"
	MetaSourceFile       = "source_file"
)

// Image is the payload shape: decoded pixels, the source format name, and
// arbitrary key/value metadata. The pixel buffer is treated as immutable
// after construction; Clone shares it and deep-copies only the metadata.
type Image struct {
	Pixels image.Image
	Format string
	Meta   map[string]any
}

// New wraps decoded pixels into a payload with empty metadata.
func New(pixels image.Image, format string) *Image {
	return &Image{Pixels: pixels, Format: format, Meta: map[string]any{}}
}

// Clone returns a copy sharing the pixel buffer with an independent
// metadata map.
func (p *Image) Clone() *Image {
	meta := make(map[string]any, len(p.Meta))
	for k, v := range p.Meta {
		meta[k] = v
	}
	return &Image{Pixels: p.Pixels, Format: p.Format, Meta: meta}
}

// Bounds returns the pixel dimensions.
func (p *Image) Bounds() (width, height int) {
	b := p.Pixels.Bounds()
	return b.Dx(), b.Dy()
}

// Load decodes the image file at path into a payload. Supported formats
// are png, jpeg, gif, bmp, tiff and webp (decode only).
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	p := New(img, format)
	p.Meta[MetaSourceFile] = filepath.Base(path)
	return p, nil
}

// Decode builds a payload from in-memory image bytes.
func Decode(data []byte) (*Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image bytes: %w", err)
	}
	return New(img, format), nil
}

// Save encodes the payload to path; the encoder is chosen by extension
// (.png, .jpg/.jpeg, .bmp, .tif/.tiff).
func (p *Image) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, p.Pixels)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, p.Pixels, &jpeg.Options{Quality: 95})
	case ".bmp":
		err = bmp.Encode(f, p.Pixels)
	case ".tif", ".tiff":
		err = tiff.Encode(f, p.Pixels, nil)
	default:
		err = fmt.Errorf("unsupported output extension %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("encode image %s: %w", filepath.Base(path), err)
	}
	return nil
}
