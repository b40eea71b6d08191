// Package overlay decides which pyramid level and tiles each overlay image
// needs for a viewport. It performs no I/O.
package overlay

import (
	"math"

	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/zerr"
)

// scaleEpsilon absorbs float error when comparing level scales to densities.
const scaleEpsilon = 1e-9

// Options tune level-of-detail selection.
type Options struct {
	// MinOverlayPixels is the on-screen size below which a node is drawn
	// from a single coarse tile.
	MinOverlayPixels float64
}

// OptionsFromConfig extracts resolver options from the settings.
func OptionsFromConfig(cfg domain.Config) Options {
	return Options{MinOverlayPixels: cfg.MinOverlayPixels}
}

// Plan is the resolver output: tile plans in paint order and data-integrity warnings.
type Plan struct {
	Items    []domain.TilePlan
	Warnings []error
	// Unplaced lists images below an unreadable, rotated ancestor, in walk order.
	Unplaced []string
}

// Resolver computes tile plans for overlay forests.
type Resolver struct {
	opts Options
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

// Resolve walks the forest depth-first, parents before children and roots in
// input order. descriptors maps image ids to their pyramids. A node without
// one gets no tiles; its children are still placed when the node's transform
// does not depend on its size, and are listed in Plan.Unplaced otherwise.
func (r *Resolver) Resolve(
	forest []*domain.OverlayNode,
	viewport domain.ViewportState,
	descriptors map[string]domain.PyramidDescriptor,
) (Plan, error) {
	if err := viewport.Validate(); err != nil {
		return Plan{}, err
	}

	w := walk{
		r:           r,
		viewport:    viewport,
		screen:      viewport.ScreenTransform(),
		visible:     viewport.Visible.Corners(),
		descriptors: descriptors,
		seen:        make(map[string]bool),
	}
	for _, root := range forest {
		w.visit(root, domain.Identity(), 0)
	}
	return w.plan, nil
}

type walk struct {
	r           *Resolver
	viewport    domain.ViewportState
	screen      domain.Affine
	visible     domain.Quad
	descriptors map[string]domain.PyramidDescriptor
	seen        map[string]bool
	plan        Plan
}

func (w *walk) visit(node *domain.OverlayNode, parent domain.Affine, depth int) {
	if w.seen[node.ImageID] {
		w.warn(zerr.With(zerr.Wrap(domain.ErrOverlayCycle, "resolve overlay"), "image_id", node.ImageID))
		return
	}
	w.seen[node.ImageID] = true

	desc, ok := w.descriptors[node.ImageID]
	if !ok || len(desc.Levels) == 0 {
		w.warn(zerr.With(zerr.Wrap(domain.ErrInvalidDimensions, "no pyramid for overlay image"), "image_id", node.ImageID))
		if !node.SizeIndependent() {
			for _, child := range node.Children {
				w.strand(child, node.ImageID)
			}
			return
		}
		abs := parent.Multiply(node.LocalTransform(0, 0))
		for _, child := range node.Children {
			w.visit(child, abs, depth+1)
		}
		return
	}

	abs := parent.Multiply(node.LocalTransform(desc.Width, desc.Height))

	if node.Visible && node.Opacity > 0 {
		if item, ok := w.r.planNode(node, desc, abs, w.viewport, w.screen, w.visible); ok {
			item.Depth = depth
			w.plan.Items = append(w.plan.Items, item)
		}
	}

	for _, child := range node.Children {
		w.visit(child, abs, depth+1)
	}
}

// strand records node and its subtree as impossible to place.
func (w *walk) strand(node *domain.OverlayNode, ancestor string) {
	if w.seen[node.ImageID] {
		w.warn(zerr.With(zerr.Wrap(domain.ErrOverlayCycle, "resolve overlay"), "image_id", node.ImageID))
		return
	}
	w.seen[node.ImageID] = true

	w.plan.Unplaced = append(w.plan.Unplaced, node.ImageID)
	err := zerr.With(zerr.Wrap(domain.ErrParentUnavailable, "resolve overlay"), "image_id", node.ImageID)
	w.warn(zerr.With(err, "parent_id", ancestor))
	for _, child := range node.Children {
		w.strand(child, ancestor)
	}
}

func (w *walk) warn(err error) {
	w.plan.Warnings = append(w.plan.Warnings, err)
}

// planNode selects the level and tiles for one visible node.
func (r *Resolver) planNode(
	node *domain.OverlayNode,
	desc domain.PyramidDescriptor,
	abs domain.Affine,
	viewport domain.ViewportState,
	screen domain.Affine,
	visible domain.Quad,
) (domain.TilePlan, bool) {
	bounds := domain.RectXYWH(0, 0, float64(desc.Width), float64(desc.Height)).Corners()
	if !bounds.Transform(abs).Intersects(visible) {
		return domain.TilePlan{}, false
	}

	toScreen := screen.Multiply(abs)
	item := domain.TilePlan{
		ImageID:         node.ImageID,
		Path:            node.Path,
		Fingerprint:     desc.Fingerprint,
		ScreenTransform: toScreen,
		Opacity:         math.Min(node.Opacity, 1),
	}

	footprint := bounds.Transform(toScreen).Bounds()
	if footprint.Width() < r.opts.MinOverlayPixels && footprint.Height() < r.opts.MinOverlayPixels {
		top := desc.Coarsest()
		item.Level = top.Level
		item.Tiles = []domain.TileKey{desc.Key(top.Level, 0, 0)}
		item.Thumbnail = true
		return item, true
	}

	density := viewport.Zoom * abs.LinearScale()
	item.Level = ChooseLevel(desc, density)

	inv, ok := abs.Invert()
	if !ok {
		return domain.TilePlan{}, false
	}
	item.Tiles = visibleTiles(desc, item.Level, visible.Transform(inv))
	if len(item.Tiles) == 0 {
		return domain.TilePlan{}, false
	}
	return item, true
}

// ChooseLevel returns the coarsest level whose native scale still meets the
// on-screen density, so a level is never stretched past 1:1. Densities of 1
// or more use full resolution.
func ChooseLevel(desc domain.PyramidDescriptor, density float64) int {
	if density >= 1 {
		return 0
	}
	for l := len(desc.Levels) - 1; l >= 0; l-- {
		if desc.Levels[l].Scale >= density-scaleEpsilon {
			return l
		}
	}
	return desc.Coarsest().Level
}

// visibleTiles lists the tiles of level whose area intersects view, a quad in
// the node's full-resolution pixel space.
func visibleTiles(desc domain.PyramidDescriptor, level int, view domain.Quad) []domain.TileKey {
	lvl := desc.Levels[level]
	toLevel := domain.Scale(
		float64(lvl.Width)/float64(desc.Width),
		float64(lvl.Height)/float64(desc.Height),
	)
	q := view.Transform(toLevel)
	b := q.Bounds()

	ts := float64(desc.TileSize)
	c0 := clamp(int(math.Floor(b.MinX/ts)), 0, lvl.Cols-1)
	c1 := clamp(int(math.Floor(b.MaxX/ts)), 0, lvl.Cols-1)
	r0 := clamp(int(math.Floor(b.MinY/ts)), 0, lvl.Rows-1)
	r1 := clamp(int(math.Floor(b.MaxY/ts)), 0, lvl.Rows-1)

	var keys []domain.TileKey
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			tr, err := desc.TileRect(level, row, col)
			if err != nil {
				continue
			}
			tile := domain.Rect{
				MinX: float64(tr.Min.X), MinY: float64(tr.Min.Y),
				MaxX: float64(tr.Max.X), MaxY: float64(tr.Max.Y),
			}
			if tile.Corners().Intersects(q) {
				keys = append(keys, desc.Key(level, row, col))
			}
		}
	}
	return keys
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// TileScreenTransform maps the pixels of a planned tile to the screen.
func TileScreenTransform(item domain.TilePlan, desc domain.PyramidDescriptor, key domain.TileKey) domain.Affine {
	lvl, ok := desc.Level(key.Level)
	if !ok {
		return item.ScreenTransform
	}
	tr, err := desc.TileRect(key.Level, key.Row, key.Col)
	if err != nil {
		return item.ScreenTransform
	}
	return item.ScreenTransform.
		Multiply(domain.Scale(float64(desc.Width)/float64(lvl.Width), float64(desc.Height)/float64(lvl.Height))).
		Multiply(domain.Translate(float64(tr.Min.X), float64(tr.Min.Y)))
}
