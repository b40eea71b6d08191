package decoder

import (
	"context"
	"errors"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"os"
	"sync"

	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
	_ "golang.org/x/image/bmp" // register BMP
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP
)

// standardDecoder reads the formats registered with the image package. They
// have no random access, so the whole image is decoded on the first read.
type standardDecoder struct {
	opts   Options
	interp draw.Interpolator
}

func newStandard(opts Options) *standardDecoder {
	if opts.MaxDecodePixels <= 0 {
		opts.MaxDecodePixels = domain.DefaultConfig().MaxDecodePixels
	}
	return &standardDecoder{opts: opts, interp: interpolator(opts.Filter)}
}

func (d *standardDecoder) CanOpen(path string) bool {
	return hasExt(path, ".png", ".jpg", ".jpeg", ".gif", ".tif", ".tiff", ".bmp", ".webp")
}

func (d *standardDecoder) Sniff(header []byte) bool {
	if hasPrefix(header, "\x89PNG", "\xff\xd8", "GIF8", "II*\x00", "MM\x00*", "BM") {
		return true
	}
	return len(header) >= 12 && hasPrefix(header, "RIFF") && string(header[8:12]) == "WEBP"
}

func (d *standardDecoder) Open(_ context.Context, path string) (ports.ImageHandle, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		if os.IsNotExist(err) {
			return nil, zerr.With(zerr.Wrap(domain.ErrSourceNotFound, "open image"), "path", path)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to open image"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, zerr.With(zerr.Wrap(domain.ErrUnsupportedFormat, "open image"), "path", path)
		}
		return nil, corrupt(path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, corrupt(path, nil)
	}

	return &standardHandle{
		path:   path,
		size:   image.Point{X: cfg.Width, Y: cfg.Height},
		format: format,
		limit:  d.opts.MaxDecodePixels,
		interp: d.interp,
	}, nil
}

type standardHandle struct {
	path   string
	size   image.Point
	format string
	limit  int64
	interp draw.Interpolator

	mu        sync.Mutex
	img       image.Image
	decodeErr error
	closed    bool
}

func (h *standardHandle) Size() image.Point {
	return h.size
}

func (h *standardHandle) Format() string {
	return h.format
}

func (h *standardHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.img = nil
	return nil
}

// ReadRegion decodes the image once and resamples r with the configured filter.
func (h *standardHandle) ReadRegion(ctx context.Context, r image.Rectangle, size image.Point) (*image.RGBA, error) {
	if err := checkRegion(h.path, h.size, r, size); err != nil {
		return nil, err
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	img, err := h.decoded()
	if err != nil {
		return nil, err
	}

	// Decoded images may not start at the origin.
	sr := r.Add(img.Bounds().Min)
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	if size == r.Size() {
		draw.Copy(dst, image.Point{}, img, sr, draw.Src, nil)
	} else {
		scale(dst, img, sr, h.interp)
	}
	return dst, nil
}

// decoded returns the whole image, decoding it on first use. Failures are
// remembered so a broken file is read only once.
func (h *standardHandle) decoded() (image.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed:
		return nil, zerr.With(errHandleClosed, "path", h.path)
	case h.img != nil:
		return h.img, nil
	case h.decodeErr != nil:
		return nil, h.decodeErr
	}

	if pixels := int64(h.size.X) * int64(h.size.Y); pixels > h.limit {
		h.decodeErr = zerr.With(zerr.With(zerr.Wrap(domain.ErrImageTooLarge, "decode"), "path", h.path), "pixels", pixels)
		return nil, h.decodeErr
	}

	f, err := os.Open(h.path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open image"), "path", h.path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	img, _, err := image.Decode(f)
	if err != nil {
		h.decodeErr = corrupt(h.path, err)
		return nil, h.decodeErr
	}
	h.img = img
	return img, nil
}
