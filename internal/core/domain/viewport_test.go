package domain_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lithotile/internal/core/domain"
)

func TestRect(t *testing.T) {
	r := domain.RectXYWH(10, 20, 30, 40)
	assert.InDelta(t, 30.0, r.Width(), 0)
	assert.InDelta(t, 40.0, r.Height(), 0)
	assert.False(t, r.Empty())
	assert.True(t, domain.RectXYWH(0, 0, 0, 5).Empty())

	o := domain.RectXYWH(30, 50, 100, 100)
	assert.True(t, r.Intersects(o))
	assert.Equal(t, domain.Rect{MinX: 30, MinY: 50, MaxX: 40, MaxY: 60}, r.Intersect(o))

	touching := domain.RectXYWH(40, 20, 10, 10)
	assert.False(t, r.Intersects(touching))
	assert.Equal(t, domain.Rect{}, r.Intersect(touching))
}

func TestQuad_Bounds(t *testing.T) {
	q := domain.RectXYWH(0, 0, 10, 10).Corners().Transform(domain.RotateDegrees(45))
	b := q.Bounds()
	h := 10 / math.Sqrt2
	assert.InDelta(t, -h, b.MinX, 1e-9)
	assert.InDelta(t, 0.0, b.MinY, 1e-9)
	assert.InDelta(t, h, b.MaxX, 1e-9)
	assert.InDelta(t, 2*h, b.MaxY, 1e-9)
}

func TestQuad_Intersects(t *testing.T) {
	square := domain.RectXYWH(0, 0, 10, 10).Corners()
	// A diamond whose bounding box overlaps the square but whose area does not.
	diamond := domain.Quad{{X: 15, Y: 8}, {X: 22, Y: 15}, {X: 15, Y: 22}, {X: 8, Y: 15}}

	tests := []struct {
		name string
		o    domain.Quad
		want bool
	}{
		{name: "Overlapping", o: domain.RectXYWH(5, 5, 10, 10).Corners(), want: true},
		{name: "Contained", o: domain.RectXYWH(2, 2, 1, 1).Corners(), want: true},
		{name: "Touching edge", o: domain.RectXYWH(10, 0, 5, 5).Corners(), want: false},
		{name: "Separate", o: domain.RectXYWH(20, 20, 5, 5).Corners(), want: false},
		{name: "Bounding boxes overlap only", o: diamond, want: false},
		{
			name: "Rotated overlap",
			o:    domain.RectXYWH(-5, -5, 10, 10).Corners().Transform(domain.RotateDegrees(30)),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, square.Intersects(tt.o))
			assert.Equal(t, tt.want, tt.o.Intersects(square))
		})
	}
}

func TestViewportState_Validate(t *testing.T) {
	valid := domain.RectXYWH(0, 0, 100, 100)
	tests := []struct {
		name string
		vp   domain.ViewportState
		ok   bool
	}{
		{name: "Valid", vp: domain.ViewportState{Zoom: 1, Visible: valid}, ok: true},
		{name: "Zero zoom", vp: domain.ViewportState{Visible: valid}},
		{name: "Negative zoom", vp: domain.ViewportState{Zoom: -1, Visible: valid}},
		{name: "NaN zoom", vp: domain.ViewportState{Zoom: math.NaN(), Visible: valid}},
		{name: "Infinite zoom", vp: domain.ViewportState{Zoom: math.Inf(1), Visible: valid}},
		{name: "Empty rect", vp: domain.ViewportState{Zoom: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vp.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrInvalidViewport)
		})
	}
}

func TestViewportState_ScreenTransform(t *testing.T) {
	vp := domain.ViewportState{Zoom: 2, Visible: domain.RectXYWH(100, 50, 200, 100)}
	m := vp.ScreenTransform()

	assertPoint(t, domain.Point{}, m.ApplyPoint(domain.Point{X: 100, Y: 50}))
	assertPoint(t, domain.Point{X: 20, Y: 10}, m.ApplyPoint(domain.Point{X: 110, Y: 55}))
	assertPoint(t, domain.Point{X: 400, Y: 200}, m.ApplyPoint(domain.Point{X: 300, Y: 150}))
}
