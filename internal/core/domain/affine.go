package domain

import "math"

// Affine is a 2D affine transform:
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the transform that leaves points unchanged.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Affine {
	return Affine{A: 1, C: tx, E: 1, F: ty}
}

// Scale returns a scale by (sx, sy) around the origin.
func Scale(sx, sy float64) Affine {
	return Affine{A: sx, E: sy}
}

// Rotate returns a rotation by angle radians around the origin.
// With y pointing down, positive angles turn clockwise on screen.
func Rotate(angle float64) Affine {
	sin, cos := math.Sincos(angle)
	return Affine{A: cos, B: -sin, D: sin, E: cos}
}

// RotateDegrees is Rotate with the angle given in degrees.
// Quarter turns are exact.
func RotateDegrees(deg float64) Affine {
	switch math.Mod(math.Mod(deg, 360)+360, 360) {
	case 0:
		return Identity()
	case 90:
		return Affine{B: -1, D: 1}
	case 180:
		return Affine{A: -1, E: -1}
	case 270:
		return Affine{B: 1, D: -1}
	}
	return Rotate(deg * math.Pi / 180)
}

// Multiply returns m * o: the result applies o first, then m.
func (m Affine) Multiply(o Affine) Affine {
	return Affine{
		A: m.A*o.A + m.B*o.D,
		B: m.A*o.B + m.B*o.E,
		C: m.A*o.C + m.B*o.F + m.C,
		D: m.D*o.A + m.E*o.D,
		E: m.D*o.B + m.E*o.E,
		F: m.D*o.C + m.E*o.F + m.F,
	}
}

// Determinant returns the determinant of the linear part.
func (m Affine) Determinant() float64 {
	return m.A*m.E - m.B*m.D
}

// Invert returns the inverse transform, or false when m is singular.
func (m Affine) Invert() (Affine, bool) {
	det := m.Determinant()
	if math.Abs(det) < 1e-12 {
		return Affine{}, false
	}
	inv := 1 / det
	return Affine{
		A: m.E * inv,
		B: -m.B * inv,
		C: (m.B*m.F - m.C*m.E) * inv,
		D: -m.D * inv,
		E: m.A * inv,
		F: (m.C*m.D - m.A*m.F) * inv,
	}, true
}

// Apply transforms the point (x, y).
func (m Affine) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.B*y + m.C, m.D*x + m.E*y + m.F
}

// ApplyPoint transforms p.
func (m Affine) ApplyPoint(p Point) Point {
	x, y := m.Apply(p.X, p.Y)
	return Point{X: x, Y: y}
}

// LinearScale returns the mean scale factor of the transform, sqrt(|det|).
func (m Affine) LinearScale() float64 {
	return math.Sqrt(math.Abs(m.Determinant()))
}

// ApproxEqual reports whether two transforms agree within eps.
func (m Affine) ApproxEqual(o Affine, eps float64) bool {
	return math.Abs(m.A-o.A) <= eps && math.Abs(m.B-o.B) <= eps && math.Abs(m.C-o.C) <= eps &&
		math.Abs(m.D-o.D) <= eps && math.Abs(m.E-o.E) <= eps && math.Abs(m.F-o.F) <= eps
}
