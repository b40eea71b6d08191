package domain

import "image"

// TilePlan lists the tiles one overlay node needs for a viewport.
// ScreenTransform maps the node's level-0 pixel space to screen pixels.
type TilePlan struct {
	ImageID         string
	Path            string
	Fingerprint     Fingerprint
	Level           int
	Tiles           []TileKey
	ScreenTransform Affine
	Opacity         float64
	Depth           int
	Thumbnail       bool
}

// TileKind says how a renderable tile was satisfied.
type TileKind string

const (
	// TileReady is the requested tile itself.
	TileReady TileKind = "ready"
	// TilePlaceholder is a cached coarser tile standing in for the requested one.
	TilePlaceholder TileKind = "placeholder"
	// TileMissing means nothing is cached yet; the tile is being built.
	TileMissing TileKind = "missing"
	// TileError means the source image cannot produce tiles.
	TileError TileKind = "error"
)

// RenderableTile is one entry of a frame: which pixels to draw and where.
// Tile and SourceRect describe the pixels to sample; ScreenTransform maps the
// requested tile's level pixels to the screen.
type RenderableTile struct {
	ImageID         string
	Key             TileKey
	Kind            TileKind
	Tile            *Tile
	SourceRect      image.Rectangle
	ScreenTransform Affine
	Opacity         float64
	Err             error
}

// Frame is the router's answer to a viewport query.
type Frame struct {
	Tiles    []RenderableTile
	Deferred int
	Warnings []error
}
