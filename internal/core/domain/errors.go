package domain

import "go.trai.ch/zerr"

var (
	// ErrUnsupportedFormat is returned when no decoder can open a source image.
	ErrUnsupportedFormat = zerr.New("unsupported image format")

	// ErrCorruptFile is returned when a source image cannot be decoded.
	ErrCorruptFile = zerr.New("corrupt image file")

	// ErrOutOfBounds is returned when a region or tile lies outside the image or pyramid.
	ErrOutOfBounds = zerr.New("region out of bounds")

	// ErrSourceNotFound is returned when a source image path does not exist.
	ErrSourceNotFound = zerr.New("source image not found")

	// ErrImageTooLarge is returned when a whole-image decoder would exceed its pixel budget.
	ErrImageTooLarge = zerr.New("image too large for whole-image decode")

	// ErrScaleTooLarge is returned when a decode at one scale would exceed the
	// pixel budget while coarser scales still fit. It fails single tiles.
	ErrScaleTooLarge = zerr.New("image too large to decode at this scale")

	// ErrInvalidDimensions is returned when a pyramid is described with non-positive sizes.
	ErrInvalidDimensions = zerr.New("invalid pyramid dimensions")

	// ErrBuildFailed is returned when a tile could not be produced from its source.
	ErrBuildFailed = zerr.New("tile build failed")

	// ErrCacheIO is returned when the tile cache cannot read or write its storage.
	ErrCacheIO = zerr.New("tile cache i/o failed")

	// ErrCacheCorrupt is returned when a cached tile file cannot be decoded.
	ErrCacheCorrupt = zerr.New("cached tile is corrupt")

	// ErrIndexFailed is returned when the persistent cache index rejects an operation.
	ErrIndexFailed = zerr.New("cache index operation failed")

	// ErrStoreClosed is returned when the tile store is used after Close.
	ErrStoreClosed = zerr.New("tile store is closed")

	// ErrOverlayCycle is reported when an overlay tree references itself.
	ErrOverlayCycle = zerr.New("overlay cycle detected")

	// ErrOverlayOrphan is reported when an overlay references a parent that does not exist.
	ErrOverlayOrphan = zerr.New("overlay parent not found")

	// ErrParentUnavailable is reported for an overlay that cannot be placed
	// because an ancestor image could not be read.
	ErrParentUnavailable = zerr.New("overlay parent image unavailable")

	// ErrDuplicateImage is reported when two overlay records share an image id.
	ErrDuplicateImage = zerr.New("duplicate overlay image id")

	// ErrInvalidViewport is returned when a viewport has a non-positive zoom or empty rect.
	ErrInvalidViewport = zerr.New("invalid viewport")

	// ErrInvalidConfig is returned when configuration values fail validation.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrProjectNotFound is returned when a project file cannot be read.
	ErrProjectNotFound = zerr.New("project file not found")

	// ErrPreparationFailed is returned when at least one image of a batch could not be prepared.
	ErrPreparationFailed = zerr.New("image preparation failed")

	// ErrNoImages is returned when a command is given a project without images.
	ErrNoImages = zerr.New("no images specified")
)
