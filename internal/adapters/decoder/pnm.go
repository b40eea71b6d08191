package decoder

import (
	"bufio"
	"context"
	"errors"
	"image"
	"io"
	"os"
	"sync/atomic"

	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	errPNMHeader    = errors.New("malformed pnm header")
	errPNMTruncated = errors.New("pnm pixel data truncated")
)

// pnmDecoder reads binary greymap (P5) and pixmap (P6) files. The pixel data is
// uncompressed, so regions are read in place without decoding the whole file.
type pnmDecoder struct{}

func newPNM() *pnmDecoder {
	return &pnmDecoder{}
}

func (d *pnmDecoder) CanOpen(path string) bool {
	return hasExt(path, ".pnm", ".ppm", ".pgm")
}

func (d *pnmDecoder) Sniff(header []byte) bool {
	return hasPrefix(header, "P5", "P6")
}

func (d *pnmDecoder) Open(_ context.Context, path string) (ports.ImageHandle, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		if os.IsNotExist(err) {
			return nil, zerr.With(zerr.Wrap(domain.ErrSourceNotFound, "open image"), "path", path)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to open image"), "path", path)
	}

	hdr, err := parsePNMHeader(bufio.NewReader(f))
	if err != nil {
		_ = f.Close()
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return nil, zerr.With(zerr.Wrap(err, "open image"), "path", path)
		}
		return nil, corrupt(path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, zerr.With(zerr.Wrap(err, "failed to stat image"), "path", path)
	}
	if info.Size() < hdr.offset+int64(hdr.width)*int64(hdr.height)*int64(hdr.pixelBytes()) {
		_ = f.Close()
		return nil, corrupt(path, errPNMTruncated)
	}

	return &pnmHandle{path: path, file: f, hdr: hdr}, nil
}

type pnmHeader struct {
	width       int
	height      int
	maxval      int
	channels    int
	sampleBytes int
	offset      int64
}

func (h pnmHeader) pixelBytes() int {
	return h.channels * h.sampleBytes
}

// parsePNMHeader reads the magic number, dimensions and maxval. The single
// whitespace byte after maxval is consumed; offset points at the first sample.
func parsePNMHeader(r *bufio.Reader) (pnmHeader, error) {
	var h pnmHeader

	magic := make([]byte, 2)
	if _, err := io.ReadFull(r, magic); err != nil {
		return h, errPNMHeader
	}
	switch string(magic) {
	case "P5":
		h.channels = 1
	case "P6":
		h.channels = 3
	default:
		return h, zerr.With(zerr.Wrap(domain.ErrUnsupportedFormat, "parse header"), "magic", string(magic))
	}
	h.offset = 2

	next := func() (byte, error) {
		b, err := r.ReadByte()
		if err != nil {
			return 0, errPNMHeader
		}
		h.offset++
		return b, nil
	}

	readInt := func() (int, error) {
		for {
			b, err := next()
			if err != nil {
				return 0, err
			}
			if b == '#' {
				for b != '\n' && b != '\r' {
					if b, err = next(); err != nil {
						return 0, err
					}
				}
				continue
			}
			if isSpace(b) {
				continue
			}
			if b < '0' || b > '9' {
				return 0, errPNMHeader
			}
			n := int(b - '0')
			for {
				if b, err = next(); err != nil {
					return 0, err
				}
				if !isSpace(b) {
					if b < '0' || b > '9' || n > 1<<30 {
						return 0, errPNMHeader
					}
					n = n*10 + int(b-'0')
					continue
				}
				return n, nil
			}
		}
	}

	var err error
	if h.width, err = readInt(); err != nil {
		return h, err
	}
	if h.height, err = readInt(); err != nil {
		return h, err
	}
	if h.maxval, err = readInt(); err != nil {
		return h, err
	}
	if h.width <= 0 || h.height <= 0 || h.maxval <= 0 || h.maxval > 65535 {
		return h, errPNMHeader
	}

	h.sampleBytes = 1
	if h.maxval > 255 {
		h.sampleBytes = 2
	}
	return h, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

type pnmHandle struct {
	path   string
	file   *os.File
	hdr    pnmHeader
	closed atomic.Bool
}

func (h *pnmHandle) Size() image.Point {
	return image.Point{X: h.hdr.width, Y: h.hdr.height}
}

func (h *pnmHandle) Format() string {
	return "pnm"
}

func (h *pnmHandle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	return h.file.Close()
}

// ReadRegion streams the rows of r through an area-average accumulator. Only
// one source row and one output row are held in memory.
func (h *pnmHandle) ReadRegion(ctx context.Context, r image.Rectangle, size image.Point) (*image.RGBA, error) {
	if h.closed.Load() {
		return nil, zerr.With(errHandleClosed, "path", h.path)
	}
	if err := checkRegion(h.path, h.Size(), r, size); err != nil {
		return nil, err
	}

	channels := h.hdr.channels
	pixelBytes := h.hdr.pixelBytes()
	rw, rh := r.Dx(), r.Dy()

	x0s := make([]int, size.X)
	x1s := make([]int, size.X)
	for ox := range size.X {
		x0s[ox], x1s[ox] = span(ox, rw, size.X)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	row := make([]byte, rw*pixelBytes)
	acc := make([]uint64, size.X*channels)
	lastY := -1

	for oy := range size.Y {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}

		y0, y1 := span(oy, rh, size.Y)
		clear(acc)
		for y := y0; y < y1; y++ {
			if y != lastY {
				off := h.hdr.offset + (int64(r.Min.Y+y)*int64(h.hdr.width)+int64(r.Min.X))*int64(pixelBytes)
				if _, err := h.file.ReadAt(row, off); err != nil {
					return nil, corrupt(h.path, err)
				}
				lastY = y
			}
			for ox := range size.X {
				a := acc[ox*channels : ox*channels+channels]
				for x := x0s[ox]; x < x1s[ox]; x++ {
					for c := range channels {
						a[c] += uint64(h.sample(row, x*pixelBytes+c*h.hdr.sampleBytes))
					}
				}
			}
		}

		out := dst.Pix[oy*dst.Stride : oy*dst.Stride+4*size.X]
		rows := uint64(y1 - y0) //nolint:gosec // spans are non-empty
		for ox := range size.X {
			count := rows * uint64(x1s[ox]-x0s[ox]) //nolint:gosec // spans are non-empty
			p := out[4*ox : 4*ox+4 : 4*ox+4]
			for c := range channels {
				p[c] = h.to8(acc[ox*channels+c], count)
			}
			if channels == 1 {
				p[1], p[2] = p[0], p[0]
			}
			p[3] = 0xff
		}
	}
	return dst, nil
}

func (h *pnmHandle) sample(row []byte, i int) uint32 {
	if h.hdr.sampleBytes == 1 {
		return uint32(row[i])
	}
	return uint32(row[i])<<8 | uint32(row[i+1])
}

// to8 rounds the mean of count samples to 8 bits.
func (h *pnmHandle) to8(sum, count uint64) uint8 {
	maxval := uint64(h.hdr.maxval) //nolint:gosec // maxval is in 1..65535
	v := (sum*510 + maxval*count) / (2 * maxval * count)
	return uint8(min(v, 255)) //nolint:gosec // clamped
}

// span returns the source interval [start, end) feeding output sample i when n
// source samples map onto m output samples. Intervals are never empty.
func span(i, n, m int) (int, int) {
	start := i * n / m
	end := (i + 1) * n / m
	if end <= start {
		end = start + 1
	}
	return start, end
}
