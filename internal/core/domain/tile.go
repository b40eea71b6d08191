package domain

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// TileKey addresses one tile of one source state.
// Keys of different fingerprints never collide.
type TileKey struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Level       int         `json:"level"`
	Row         int         `json:"row"`
	Col         int         `json:"col"`
}

// String renders the key as fingerprint/level/row_col.
func (k TileKey) String() string {
	return fmt.Sprintf("%s/%d/%d_%d", k.Fingerprint, k.Level, k.Row, k.Col)
}

// Tile is an immutable RGBA pixel block.
// Pixels are tightly packed, four bytes per pixel, row-major.
type Tile struct {
	Key    TileKey
	width  int
	height int
	pix    []byte
}

// NewTile copies the pixels of img into a new tile.
func NewTile(key TileKey, img image.Image) *Tile {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		b = rgba.Bounds()
	}
	pix := make([]byte, 4*b.Dx()*b.Dy())
	copy(pix, rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y):])
	return &Tile{Key: key, width: b.Dx(), height: b.Dy(), pix: pix}
}

// Width returns the tile width in pixels.
func (t *Tile) Width() int { return t.width }

// Height returns the tile height in pixels.
func (t *Tile) Height() int { return t.height }

// Bounds returns the tile rectangle anchored at the origin.
func (t *Tile) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.width, t.height)
}

// ByteSize returns the size of the decoded pixel buffer.
func (t *Tile) ByteSize() int64 {
	return int64(len(t.pix))
}

// Pixels returns a copy of the pixel buffer.
func (t *Tile) Pixels() []byte {
	out := make([]byte, len(t.pix))
	copy(out, t.pix)
	return out
}

// Image returns a read-only view of the tile.
func (t *Tile) Image() image.Image {
	return tileView{t: t}
}

// Equal reports whether two tiles hold identical pixels.
func (t *Tile) Equal(other *Tile) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.width == other.width && t.height == other.height && bytes.Equal(t.pix, other.pix)
}

// tileView exposes tile pixels through image.Image without handing out the buffer.
type tileView struct {
	t *Tile
}

func (v tileView) ColorModel() color.Model { return color.RGBAModel }

func (v tileView) Bounds() image.Rectangle { return v.t.Bounds() }

func (v tileView) At(x, y int) color.Color {
	return v.RGBAAt(x, y)
}

// RGBAAt returns the pixel at (x, y), or transparent black outside the tile.
func (v tileView) RGBAAt(x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}).In(v.t.Bounds()) {
		return color.RGBA{}
	}
	i := 4 * (y*v.t.width + x)
	p := v.t.pix[i : i+4 : i+4]
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}
