package ports

import (
	"context"
	"image"
	"io"
)

//go:generate go run go.uber.org/mock/mockgen -source=decoder.go -destination=mocks/mock_decoder.go -package=mocks

// Decoder opens source images for random-access reads.
type Decoder interface {
	// CanOpen reports whether the decoder recognizes the file by name.
	CanOpen(path string) bool
	// Open returns a handle to the image without decoding its pixels.
	// It fails with domain.ErrUnsupportedFormat or domain.ErrCorruptFile.
	Open(ctx context.Context, path string) (ImageHandle, error)
}

// ImageHandle is an open source image. Close must be called exactly once.
type ImageHandle interface {
	io.Closer
	// Size returns the full-resolution dimensions.
	Size() image.Point
	// Format names the decoder that opened the image.
	Format() string
	// ReadRegion returns the pixels of r resampled to size. The target scale
	// is size/r.Size(); reads outside the image fail with domain.ErrOutOfBounds.
	ReadRegion(ctx context.Context, r image.Rectangle, size image.Point) (*image.RGBA, error)
}
