package domain

import (
	"math"

	"go.trai.ch/zerr"
)

// Point is a position in a continuous coordinate space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in a continuous coordinate space.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// RectXYWH builds a rectangle from its origin and size.
func RectXYWH(x, y, w, h float64) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// Intersects reports whether r and o overlap with positive area.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Intersect returns the overlap of r and o.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		MinX: math.Max(r.MinX, o.MinX),
		MinY: math.Max(r.MinY, o.MinY),
		MaxX: math.Min(r.MaxX, o.MaxX),
		MaxY: math.Min(r.MaxY, o.MaxY),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Corners returns the four corners of r clockwise from the origin.
func (r Rect) Corners() Quad {
	return Quad{
		{X: r.MinX, Y: r.MinY},
		{X: r.MaxX, Y: r.MinY},
		{X: r.MaxX, Y: r.MaxY},
		{X: r.MinX, Y: r.MaxY},
	}
}

// Quad is a convex quadrilateral, typically a transformed rectangle.
type Quad [4]Point

// Transform applies m to every corner.
func (q Quad) Transform(m Affine) Quad {
	var out Quad
	for i, p := range q {
		out[i] = m.ApplyPoint(p)
	}
	return out
}

// Bounds returns the axis-aligned bounding box of q.
func (q Quad) Bounds() Rect {
	r := Rect{MinX: q[0].X, MinY: q[0].Y, MaxX: q[0].X, MaxY: q[0].Y}
	for _, p := range q[1:] {
		r.MinX = math.Min(r.MinX, p.X)
		r.MinY = math.Min(r.MinY, p.Y)
		r.MaxX = math.Max(r.MaxX, p.X)
		r.MaxY = math.Max(r.MaxY, p.Y)
	}
	return r
}

// Intersects reports whether two convex quads overlap with positive area,
// using the separating axis test on the edge normals of both shapes.
func (q Quad) Intersects(o Quad) bool {
	for _, shape := range [2]Quad{q, o} {
		for i := range shape {
			a, b := shape[i], shape[(i+1)%4]
			nx, ny := b.Y-a.Y, a.X-b.X
			if nx == 0 && ny == 0 {
				continue
			}
			qMin, qMax := project(q, nx, ny)
			oMin, oMax := project(o, nx, ny)
			if qMax <= oMin+overlapEpsilon || oMax <= qMin+overlapEpsilon {
				return false
			}
		}
	}
	return true
}

const overlapEpsilon = 1e-9

func project(q Quad, nx, ny float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range q {
		v := p.X*nx + p.Y*ny
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// ViewportState is what the display currently shows: a zoom factor in screen
// pixels per reference pixel and the visible rectangle in reference space.
type ViewportState struct {
	Zoom    float64 `json:"zoom"`
	Visible Rect    `json:"visible"`
}

// Validate checks that the viewport can be resolved.
func (v ViewportState) Validate() error {
	if v.Zoom <= 0 || math.IsNaN(v.Zoom) || math.IsInf(v.Zoom, 0) {
		return zerr.With(zerr.Wrap(ErrInvalidViewport, "check zoom"), "zoom", v.Zoom)
	}
	if v.Visible.Empty() {
		return zerr.Wrap(ErrInvalidViewport, "visible rectangle is empty")
	}
	return nil
}

// ScreenTransform maps reference space to screen pixels.
func (v ViewportState) ScreenTransform() Affine {
	return Scale(v.Zoom, v.Zoom).Multiply(Translate(-v.Visible.MinX, -v.Visible.MinY))
}
