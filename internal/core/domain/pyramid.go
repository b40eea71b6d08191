package domain

import (
	"image"
	"iter"
	"math"

	"go.trai.ch/zerr"
)

const (
	// DefaultTileSize is the edge length of a square tile in pixels.
	DefaultTileSize = 256

	// DefaultScaleRatio is the scale factor between consecutive pyramid levels.
	DefaultScaleRatio = 0.5
)

// PyramidLevel describes one resolution level of a tile pyramid.
type PyramidLevel struct {
	Level  int     `json:"level"`
	Scale  float64 `json:"scale"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Cols   int     `json:"cols"`
	Rows   int     `json:"rows"`
}

// TileCount returns the number of tiles on this level.
func (l PyramidLevel) TileCount() int {
	return l.Cols * l.Rows
}

// PyramidDescriptor is the level geometry of a source image.
// Level 0 is full resolution and the last level fits in a single tile.
type PyramidDescriptor struct {
	Fingerprint Fingerprint    `json:"fingerprint"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	TileSize    int            `json:"tile_size"`
	ScaleRatio  float64        `json:"scale_ratio"`
	Levels      []PyramidLevel `json:"levels"`
}

// Describe computes the pyramid for an image of the given size.
// Each level shrinks the previous one by ratio, rounding up, until both
// dimensions fit in one tile. The result depends only on its arguments.
func Describe(fp Fingerprint, width, height, tileSize int, ratio float64) (PyramidDescriptor, error) {
	if width <= 0 || height <= 0 || tileSize <= 0 {
		err := zerr.With(zerr.Wrap(ErrInvalidDimensions, "describe pyramid"), "width", width)
		return PyramidDescriptor{}, zerr.With(zerr.With(err, "height", height), "tile_size", tileSize)
	}
	if ratio <= 0 || ratio >= 1 {
		return PyramidDescriptor{}, zerr.With(zerr.Wrap(ErrInvalidDimensions, "describe pyramid"), "scale_ratio", ratio)
	}

	d := PyramidDescriptor{
		Fingerprint: fp,
		Width:       width,
		Height:      height,
		TileSize:    tileSize,
		ScaleRatio:  ratio,
	}

	w, h, scale := width, height, 1.0
	for level := 0; ; level++ {
		d.Levels = append(d.Levels, PyramidLevel{
			Level:  level,
			Scale:  scale,
			Width:  w,
			Height: h,
			Cols:   ceilDiv(w, tileSize),
			Rows:   ceilDiv(h, tileSize),
		})
		if w <= tileSize && h <= tileSize {
			break
		}
		w = shrink(w, ratio)
		h = shrink(h, ratio)
		scale *= ratio
	}

	return d, nil
}

// shrink scales n by ratio rounding up, always making progress while n > 1.
func shrink(n int, ratio float64) int {
	next := int(math.Ceil(float64(n) * ratio))
	if next >= n && n > 1 {
		next = n - 1
	}
	return max(next, 1)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Level returns the level with the given index.
func (d PyramidDescriptor) Level(level int) (PyramidLevel, bool) {
	if level < 0 || level >= len(d.Levels) {
		return PyramidLevel{}, false
	}
	return d.Levels[level], true
}

// Coarsest returns the single-tile level at the top of the pyramid.
func (d PyramidDescriptor) Coarsest() PyramidLevel {
	return d.Levels[len(d.Levels)-1]
}

// PreviewLevels returns the indices of the n coarsest levels, coarsest first.
func (d PyramidDescriptor) PreviewLevels(n int) []int {
	n = min(max(n, 1), len(d.Levels))
	out := make([]int, 0, n)
	for l := len(d.Levels) - 1; l >= len(d.Levels)-n; l-- {
		out = append(out, l)
	}
	return out
}

// AllLevels returns every level index, coarsest first.
func (d PyramidDescriptor) AllLevels() []int {
	return d.PreviewLevels(len(d.Levels))
}

// TileCount returns the number of tiles on the given levels, or on all levels when none are given.
func (d PyramidDescriptor) TileCount(levels ...int) int {
	if len(levels) == 0 {
		levels = d.AllLevels()
	}
	total := 0
	for _, l := range levels {
		if lvl, ok := d.Level(l); ok {
			total += lvl.TileCount()
		}
	}
	return total
}

// Contains reports whether the tile coordinates exist in the pyramid.
func (d PyramidDescriptor) Contains(level, row, col int) bool {
	lvl, ok := d.Level(level)
	return ok && row >= 0 && col >= 0 && row < lvl.Rows && col < lvl.Cols
}

// Key returns the cache key for a tile of this pyramid.
func (d PyramidDescriptor) Key(level, row, col int) TileKey {
	return TileKey{Fingerprint: d.Fingerprint, Level: level, Row: row, Col: col}
}

// TileRect returns the tile's rectangle in level pixel coordinates.
// Edge tiles are clipped to the level size.
func (d PyramidDescriptor) TileRect(level, row, col int) (image.Rectangle, error) {
	if !d.Contains(level, row, col) {
		return image.Rectangle{}, zerr.With(zerr.Wrap(ErrOutOfBounds, "locate tile"), "tile", d.Key(level, row, col).String())
	}
	lvl := d.Levels[level]
	r := image.Rect(col*d.TileSize, row*d.TileSize, (col+1)*d.TileSize, (row+1)*d.TileSize)
	return r.Intersect(image.Rect(0, 0, lvl.Width, lvl.Height)), nil
}

// SourceRect returns the full-resolution rectangle a tile is built from.
func (d PyramidDescriptor) SourceRect(level, row, col int) (image.Rectangle, error) {
	r, err := d.TileRect(level, row, col)
	if err != nil {
		return image.Rectangle{}, err
	}
	lvl := d.Levels[level]
	x0 := floorScale(r.Min.X, d.Width, lvl.Width)
	y0 := floorScale(r.Min.Y, d.Height, lvl.Height)
	x1 := min(ceilScale(r.Max.X, d.Width, lvl.Width), d.Width)
	y1 := min(ceilScale(r.Max.Y, d.Height, lvl.Height), d.Height)
	return image.Rect(x0, y0, x1, y1), nil
}

// Ancestor returns the tile on a coarser level that covers the given tile,
// plus the sub-rectangle of the ancestor (in its own pixel space) that
// corresponds to the requested tile.
func (d PyramidDescriptor) Ancestor(key TileKey, level int) (TileKey, image.Rectangle, bool) {
	if level <= key.Level || !d.Contains(key.Level, key.Row, key.Col) {
		return TileKey{}, image.Rectangle{}, false
	}
	anc, ok := d.Level(level)
	if !ok {
		return TileKey{}, image.Rectangle{}, false
	}
	src, err := d.SourceRect(key.Level, key.Row, key.Col)
	if err != nil {
		return TileKey{}, image.Rectangle{}, false
	}

	// Source rect projected onto the ancestor level.
	proj := image.Rect(
		floorScale(src.Min.X, anc.Width, d.Width),
		floorScale(src.Min.Y, anc.Height, d.Height),
		ceilScale(src.Max.X, anc.Width, d.Width),
		ceilScale(src.Max.Y, anc.Height, d.Height),
	)
	cx := (proj.Min.X + proj.Max.X) / 2
	cy := (proj.Min.Y + proj.Max.Y) / 2
	col := min(cx/d.TileSize, anc.Cols-1)
	row := min(cy/d.TileSize, anc.Rows-1)

	tileRect, err := d.TileRect(level, row, col)
	if err != nil {
		return TileKey{}, image.Rectangle{}, false
	}
	sub := proj.Intersect(tileRect).Sub(tileRect.Min)
	if sub.Empty() {
		return TileKey{}, image.Rectangle{}, false
	}
	return d.Key(level, row, col), sub, true
}

// TileKeys yields the keys of the given levels in level-then-row-then-col order.
func (d PyramidDescriptor) TileKeys(levels ...int) iter.Seq[TileKey] {
	return func(yield func(TileKey) bool) {
		for _, l := range levels {
			lvl, ok := d.Level(l)
			if !ok {
				continue
			}
			for row := range lvl.Rows {
				for col := range lvl.Cols {
					if !yield(d.Key(l, row, col)) {
						return
					}
				}
			}
		}
	}
}

// floorScale returns floor(v * num / den) using 64-bit arithmetic.
func floorScale(v, num, den int) int {
	return int(int64(v) * int64(num) / int64(den))
}

// ceilScale returns ceil(v * num / den) using 64-bit arithmetic.
func ceilScale(v, num, den int) int {
	p := int64(v) * int64(num)
	return int((p + int64(den) - 1) / int64(den))
}
