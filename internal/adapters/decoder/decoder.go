// Package decoder provides random-access readers for source micrographs.
package decoder

import (
	"context"
	"errors"
	"image"

	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/image/draw"
)

// Options configures the decoder backends.
type Options struct {
	// Filter names the resampling kernel used by whole-image backends.
	// The area filter is the default.
	Filter string
	// MaxDecodePixels bounds whole-image decodes.
	MaxDecodePixels int64
}

// OptionsFromConfig extracts decoder options from the runtime settings.
func OptionsFromConfig(cfg domain.Config) Options {
	return Options{Filter: cfg.Filter, MaxDecodePixels: cfg.MaxDecodePixels}
}

// interpolator maps a filter name to an x/image/draw kernel. The area filter
// has no kernel and yields nil.
func interpolator(filter string) draw.Interpolator {
	switch filter {
	case domain.FilterArea, "":
		return nil
	case domain.FilterNearest:
		return draw.NearestNeighbor
	case domain.FilterApproxBiLinear:
		return draw.ApproxBiLinear
	case domain.FilterCatmullRom:
		return draw.CatmullRom
	default:
		return draw.BiLinear
	}
}

// scale resamples the sr part of src into dst. A nil kernel averages the
// source pixels under each output pixel when shrinking both axes and uses
// bilinear interpolation otherwise.
func scale(dst *image.RGBA, src image.Image, sr image.Rectangle, interp draw.Interpolator) {
	if interp != nil || dst.Rect.Dx() > sr.Dx() || dst.Rect.Dy() > sr.Dy() {
		if interp == nil {
			interp = draw.BiLinear
		}
		interp.Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)
		return
	}

	rgba, ok := src.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, sr.Dx(), sr.Dy()))
		draw.Copy(rgba, image.Point{}, src, sr, draw.Src, nil)
		sr = rgba.Rect
	}
	areaAverage(dst, rgba, sr)
}

// areaAverage box-filters sr of src onto dst. Premultiplied samples average
// without separate alpha handling.
func areaAverage(dst, src *image.RGBA, sr image.Rectangle) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	x0s := make([]int, w)
	x1s := make([]int, w)
	for ox := range w {
		x0s[ox], x1s[ox] = span(ox, sr.Dx(), w)
	}

	for oy := range h {
		y0, y1 := span(oy, sr.Dy(), h)
		for ox := range w {
			var sum [4]uint64
			for y := y0; y < y1; y++ {
				start := src.PixOffset(sr.Min.X+x0s[ox], sr.Min.Y+y)
				end := start + 4*(x1s[ox]-x0s[ox])
				for i := start; i < end; i += 4 {
					for c := range 4 {
						sum[c] += uint64(src.Pix[i+c])
					}
				}
			}
			n := uint64((y1 - y0) * (x1s[ox] - x0s[ox])) //nolint:gosec // spans are non-empty
			p := dst.Pix[dst.PixOffset(ox, oy):]
			for c := range 4 {
				p[c] = uint8((sum[c] + n/2) / n) //nolint:gosec // mean of bytes
			}
		}
	}
}

var errHandleClosed = zerr.New("image handle is closed")

// checkRegion validates a read request against the image size.
func checkRegion(path string, imgSize image.Point, r image.Rectangle, size image.Point) error {
	if r.Empty() || size.X <= 0 || size.Y <= 0 || !r.In(image.Rectangle{Max: imgSize}) {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrOutOfBounds, "read region"), "path", path), "rect", r.String())
	}
	return nil
}

// corrupt annotates a decode failure of path.
func corrupt(path string, cause error) error {
	if cause == nil {
		return zerr.With(zerr.Wrap(domain.ErrCorruptFile, "decode"), "path", path)
	}
	return zerr.With(zerr.Wrap(errors.Join(domain.ErrCorruptFile, cause), "decode"), "path", path)
}

// ctxErr returns the context error, if any, without blocking.
func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
