package ports

import (
	"context"

	"go.trai.ch/lithotile/internal/core/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=builder.go -destination=mocks/mock_builder.go -package=mocks

// PyramidBuilder derives pyramid geometry and tiles from source images.
type PyramidBuilder interface {
	// Source fingerprints and inspects the image at path.
	Source(ctx context.Context, path string) (domain.SourceImage, error)
	// Describe returns the pyramid of an inspected source.
	Describe(src domain.SourceImage) (domain.PyramidDescriptor, error)
	// BuildTile renders one tile. Equal inputs yield byte-identical tiles.
	BuildTile(ctx context.Context, src domain.SourceImage, level, row, col int) (*domain.Tile, error)
	// Forget releases handles and memoized state for path.
	Forget(path string)
}
