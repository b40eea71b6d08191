package domain

import (
	"math"

	"go.trai.ch/zerr"
)

// OverlayRecord is the flat form of an overlay placement as stored in a project.
// An empty ParentID marks a reference image at the root of the forest.
type OverlayRecord struct {
	ImageID         string
	ParentID        string
	Path            string
	XOffset         float64
	YOffset         float64
	RotationDegrees float64
	Scale           float64
	Opacity         float64
	Visible         bool
}

// OverlayNode places one image relative to its parent.
// Offsets are in parent pixel coordinates; rotation turns the image about
// its own centre; Scale is the size of one image pixel in parent pixels.
type OverlayNode struct {
	ImageID         string
	ParentID        string
	Path            string
	XOffset         float64
	YOffset         float64
	RotationDegrees float64
	Scale           float64
	Opacity         float64
	Visible         bool
	Children        []*OverlayNode
}

// LocalTransform maps the node's pixel space into its parent's pixel space
// for an image of the given size.
func (n *OverlayNode) LocalTransform(width, height int) Affine {
	s := n.Scale
	if s <= 0 {
		s = 1
	}
	cx, cy := float64(width)/2, float64(height)/2
	return Translate(n.XOffset, n.YOffset).
		Multiply(Translate(cx*s, cy*s)).
		Multiply(RotateDegrees(n.RotationDegrees)).
		Multiply(Scale(s, s)).
		Multiply(Translate(-cx, -cy))
}

// SizeIndependent reports whether LocalTransform is the same for every image
// size. Without rotation the centre terms cancel and the transform reduces to
// Translate(XOffset, YOffset) times Scale, so children of an unreadable image
// can still be placed.
func (n *OverlayNode) SizeIndependent() bool {
	return math.Mod(n.RotationDegrees, 360) == 0
}

// BuildForest links flat records into trees, roots in input order and
// children in input order. Records that cannot be placed (unknown parent,
// cycles, duplicate ids) are dropped with their subtree and reported as
// warnings; the rest of the forest is still returned.
func BuildForest(records []OverlayRecord) ([]*OverlayNode, []error) {
	var warnings []error

	nodes := make(map[string]*OverlayNode, len(records))
	order := make([]*OverlayNode, 0, len(records))
	for _, r := range records {
		if _, dup := nodes[r.ImageID]; dup {
			warnings = append(warnings, zerr.With(zerr.Wrap(ErrDuplicateImage, "build overlay forest"), "image_id", r.ImageID))
			continue
		}
		n := &OverlayNode{
			ImageID:         r.ImageID,
			ParentID:        r.ParentID,
			Path:            r.Path,
			XOffset:         r.XOffset,
			YOffset:         r.YOffset,
			RotationDegrees: r.RotationDegrees,
			Scale:           r.Scale,
			Opacity:         r.Opacity,
			Visible:         r.Visible,
		}
		nodes[r.ImageID] = n
		order = append(order, n)
	}

	var roots []*OverlayNode
	for _, n := range order {
		if n.ParentID == "" {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[n.ParentID]
		if !ok {
			warnings = append(warnings, zerr.With(zerr.With(zerr.Wrap(ErrOverlayOrphan, "build overlay forest"),
				"image_id", n.ImageID), "parent_id", n.ParentID))
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	// Anything not reachable from a root sits on a parent cycle.
	reached := make(map[string]bool, len(order))
	var mark func(n *OverlayNode)
	mark = func(n *OverlayNode) {
		reached[n.ImageID] = true
		for _, c := range n.Children {
			mark(c)
		}
	}
	for _, r := range roots {
		mark(r)
	}
	for _, n := range order {
		if reached[n.ImageID] || !onCycle(n, nodes) {
			continue
		}
		warnings = append(warnings, zerr.With(zerr.Wrap(ErrOverlayCycle, "build overlay forest"), "image_id", n.ImageID))
	}

	return roots, warnings
}

// onCycle follows parent links from n and reports whether they loop.
// Chains ending at a missing parent belong to an orphan and are not cycles.
func onCycle(n *OverlayNode, nodes map[string]*OverlayNode) bool {
	seen := make(map[string]bool)
	for cur := n; cur != nil && cur.ParentID != ""; cur = nodes[cur.ParentID] {
		if seen[cur.ImageID] {
			return true
		}
		seen[cur.ImageID] = true
	}
	return false
}
