package domain

import (
	"image"
	"path/filepath"
	"time"
)

// Fingerprint identifies the content state of a source image file.
// It is the hex encoded xxhash64 of the file's stamp and sampled content.
type Fingerprint string

// String returns the fingerprint as a string.
func (f Fingerprint) String() string {
	return string(f)
}

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f == ""
}

// SourceImage is an original micrograph file on disk.
// Width and Height are zero until a decoder has inspected the file.
type SourceImage struct {
	Path        string      `json:"path"`
	Width       int         `json:"width,omitzero"`
	Height      int         `json:"height,omitzero"`
	Size        int64       `json:"size"`
	ModTime     time.Time   `json:"mod_time"`
	Fingerprint Fingerprint `json:"fingerprint"`
}

// Name returns the file name used in progress reports.
func (s SourceImage) Name() string {
	return filepath.Base(s.Path)
}

// Bounds returns the full-resolution pixel rectangle of the image.
func (s SourceImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// SameStamp reports whether two observations of a file agree on size and mtime.
func (s SourceImage) SameStamp(size int64, modTime time.Time) bool {
	return s.Size == size && s.ModTime.Equal(modTime)
}
