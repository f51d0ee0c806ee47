package payload

import (
	"fmt"
	"image"
	"os"
)

// Input acceptance bounds. Validation decodes the actual header rather
// than trusting the extension.
const (
	MinDimension = 100
	MaxDimension = 10000
	MaxFileSize  = 500 * 1024 * 1024
)

// ValidateFile checks that path names a real, bounded, decodable image:
// it must exist, be non-empty and under MaxFileSize, carry a header one of
// the registered decoders recognizes, and have dimensions within
// [MinDimension, MaxDimension] on both axes.
func ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input file %s is a directory", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("input file %s is empty", path)
	}
	if info.Size() > MaxFileSize {
		return fmt.Errorf("input file %s is %d bytes, limit is %d", path, info.Size(), MaxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("unrecognized image header in %s: %w", path, err)
	}
	if cfg.Width < MinDimension || cfg.Height < MinDimension {
		return fmt.Errorf("image %s is %dx%d (%s), below minimum %dx%d",
			path, cfg.Width, cfg.Height, format, MinDimension, MinDimension)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return fmt.Errorf("image %s is %dx%d (%s), above maximum %dx%d",
			path, cfg.Width, cfg.Height, format, MaxDimension, MaxDimension)
	}
	return nil
}
