//go:build opencv

package decoder

import (
	"context"
	"errors"
	"image"
	"os"
	"sync"

	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// opencvDecoder reads TIFF and JPEG through OpenCV, which can decode at 1/2,
// 1/4 or 1/8 resolution without materializing the full image.
type opencvDecoder struct {
	opts   Options
	interp draw.Interpolator
}

func newOpenCV(opts Options) *opencvDecoder {
	if opts.MaxDecodePixels <= 0 {
		opts.MaxDecodePixels = domain.DefaultConfig().MaxDecodePixels
	}
	return &opencvDecoder{opts: opts, interp: interpolator(opts.Filter)}
}

func (d *opencvDecoder) CanOpen(path string) bool {
	return hasExt(path, ".tif", ".tiff", ".jpg", ".jpeg")
}

func (d *opencvDecoder) Sniff(header []byte) bool {
	return hasPrefix(header, "II*\x00", "MM\x00*", "\xff\xd8")
}

func (d *opencvDecoder) Open(_ context.Context, path string) (ports.ImageHandle, error) {
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

	return &opencvHandle{
		path:   path,
		size:   image.Point{X: cfg.Width, Y: cfg.Height},
		format: "opencv/" + format,
		limit:  d.opts.MaxDecodePixels,
		interp: d.interp,
	}, nil
}

// reductions pairs each reduced-read flag with its downscale factor, coarsest first.
var reductions = []struct {
	factor int
	flag   gocv.IMReadFlag
}{
	{8, gocv.IMReadReducedColor8},
	{4, gocv.IMReadReducedColor4},
	{2, gocv.IMReadReducedColor2},
	{1, gocv.IMReadColor},
}

type opencvHandle struct {
	path   string
	size   image.Point
	format string
	limit  int64
	interp draw.Interpolator

	mu     sync.Mutex
	factor int
	img    *image.RGBA
	closed bool
}

func (h *opencvHandle) Size() image.Point {
	return h.size
}

func (h *opencvHandle) Format() string {
	return h.format
}

func (h *opencvHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.img = nil
	return nil
}

// ReadRegion picks the coarsest native reduction that still has at least the
// requested density and resamples the remainder in software.
func (h *opencvHandle) ReadRegion(ctx context.Context, r image.Rectangle, size image.Point) (*image.RGBA, error) {
	if err := checkRegion(h.path, h.size, r, size); err != nil {
		return nil, err
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	factor := 1
	for _, red := range reductions {
		if r.Dx() >= size.X*red.factor && r.Dy() >= size.Y*red.factor {
			factor = red.factor
			break
		}
	}

	img, err := h.reduced(factor)
	if err != nil {
		return nil, err
	}

	sr := image.Rect(r.Min.X/factor, r.Min.Y/factor, ceilDiv(r.Max.X, factor), ceilDiv(r.Max.Y, factor)).
		Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	if sr.Size() == size {
		draw.Copy(dst, image.Point{}, img, sr, draw.Src, nil)
	} else {
		scale(dst, img, sr, h.interp)
	}
	return dst, nil
}

// reduced returns the image decoded at 1/factor, keeping the last decode.
func (h *opencvHandle) reduced(factor int) (*image.RGBA, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, zerr.With(errHandleClosed, "path", h.path)
	}
	if h.img != nil && h.factor == factor {
		return h.img, nil
	}

	pixels := int64(h.size.X/factor) * int64(h.size.Y/factor)
	if pixels > h.limit {
		cause := domain.ErrImageTooLarge
		if factor < reductions[0].factor {
			cause = domain.ErrScaleTooLarge
		}
		err := zerr.With(zerr.With(zerr.Wrap(cause, "decode"), "path", h.path), "pixels", pixels)
		return nil, zerr.With(err, "factor", factor)
	}

	flag := gocv.IMReadColor
	for _, red := range reductions {
		if red.factor == factor {
			flag = red.flag
		}
	}

	mat := gocv.IMRead(h.path, flag)
	defer mat.Close() //nolint:errcheck // Best effort close in defer
	if mat.Empty() {
		return nil, corrupt(h.path, nil)
	}

	rgba := gocv.NewMat()
	defer rgba.Close() //nolint:errcheck // Best effort close in defer
	gocv.CvtColor(mat, &rgba, gocv.ColorBGRToRGBA)

	decoded, err := rgba.ToImage()
	if err != nil {
		return nil, corrupt(h.path, err)
	}

	img, ok := decoded.(*image.RGBA)
	if !ok {
		img = image.NewRGBA(decoded.Bounds())
		draw.Draw(img, img.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	}
	h.img, h.factor = img, factor
	return img, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
