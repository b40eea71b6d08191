// Package pyramid derives tile pyramids from source images and renders their tiles.
package pyramid

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

var _ ports.PyramidBuilder = (*Builder)(nil)

// Options configure pyramid geometry and the open handle pool.
type Options struct {
	TileSize   int
	ScaleRatio float64
	HandlePool int
}

// OptionsFromConfig extracts builder options from the settings.
func OptionsFromConfig(cfg domain.Config) Options {
	return Options{
		TileSize:   cfg.TileSize,
		ScaleRatio: cfg.ScaleRatio,
		HandlePool: cfg.HandlePool,
	}
}

// Builder implements ports.PyramidBuilder on top of a decoder.
type Builder struct {
	opts          Options
	fingerprinter ports.Fingerprinter
	decoder       ports.Decoder
	tracer        ports.Tracer

	mu       sync.Mutex
	handles  *lru.Cache[domain.Fingerprint, *pooledHandle]
	sources  map[domain.Fingerprint]domain.SourceImage
	failures map[domain.Fingerprint]error
	byPath   map[string]domain.Fingerprint

	opening singleflight.Group
}

// pooledHandle counts the reads currently using a handle. A handle evicted
// from the pool is closed by its last reader.
type pooledHandle struct {
	handle  ports.ImageHandle
	refs    int
	evicted bool
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options, fingerprinter ports.Fingerprinter, decoder ports.Decoder, tracer ports.Tracer) *Builder {
	if opts.TileSize <= 0 {
		opts.TileSize = domain.DefaultTileSize
	}
	if opts.ScaleRatio <= 0 || opts.ScaleRatio >= 1 {
		opts.ScaleRatio = domain.DefaultScaleRatio
	}
	opts.HandlePool = max(opts.HandlePool, 1)

	b := &Builder{
		opts:          opts,
		fingerprinter: fingerprinter,
		decoder:       decoder,
		tracer:        tracer,
		sources:       make(map[domain.Fingerprint]domain.SourceImage),
		failures:      make(map[domain.Fingerprint]error),
		byPath:        make(map[string]domain.Fingerprint),
	}
	// Size is positive, so NewWithEvict cannot fail.
	b.handles, _ = lru.NewWithEvict(opts.HandlePool, b.onEvict)
	return b
}

// onEvict runs with b.mu held.
func (b *Builder) onEvict(_ domain.Fingerprint, ph *pooledHandle) {
	ph.evicted = true
	if ph.refs == 0 {
		_ = ph.handle.Close()
	}
}

// Source fingerprints the file and reads its dimensions. Dimensions are
// memoized per fingerprint, so an unchanged file is opened once.
func (b *Builder) Source(ctx context.Context, path string) (domain.SourceImage, error) {
	src, err := b.fingerprinter.Fingerprint(path)
	if err != nil {
		return domain.SourceImage{}, err
	}

	b.mu.Lock()
	b.byPath[src.Path] = src.Fingerprint
	known, ok := b.sources[src.Fingerprint]
	failure := b.failures[src.Fingerprint]
	b.mu.Unlock()
	if failure != nil {
		return domain.SourceImage{}, failure
	}
	if ok {
		src.Width, src.Height = known.Width, known.Height
		return src, nil
	}

	ph, err := b.acquire(ctx, src)
	if err != nil {
		return domain.SourceImage{}, err
	}
	size := ph.handle.Size()
	b.release(ph)

	src.Width, src.Height = size.X, size.Y

	b.mu.Lock()
	b.sources[src.Fingerprint] = src
	b.mu.Unlock()

	return src, nil
}

// Describe returns the pyramid of src using the configured tile size and ratio.
func (b *Builder) Describe(src domain.SourceImage) (domain.PyramidDescriptor, error) {
	d, err := domain.Describe(src.Fingerprint, src.Width, src.Height, b.opts.TileSize, b.opts.ScaleRatio)
	if err != nil {
		return domain.PyramidDescriptor{}, zerr.With(err, "path", src.Path)
	}
	return d, nil
}

// BuildTile renders one tile. Image-scoped failures are remembered so later
// tiles of the same image fail fast with the same error.
func (b *Builder) BuildTile(ctx context.Context, src domain.SourceImage, level, row, col int) (*domain.Tile, error) {
	ctx, span := b.tracer.Start(ctx, "pyramid.build_tile")
	defer span.End()

	key := domain.TileKey{Fingerprint: src.Fingerprint, Level: level, Row: row, Col: col}
	span.SetAttribute("tile", key)
	span.SetAttribute("path", src.Path)

	tile, err := b.buildTile(ctx, src, key)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return tile, nil
}

func (b *Builder) buildTile(ctx context.Context, src domain.SourceImage, key domain.TileKey) (*domain.Tile, error) {
	if err := b.failure(src.Fingerprint); err != nil {
		return nil, err
	}

	desc, err := b.Describe(src)
	if err != nil {
		return nil, err
	}
	region, err := desc.SourceRect(key.Level, key.Row, key.Col)
	if err != nil {
		return nil, err
	}
	target, err := desc.TileRect(key.Level, key.Row, key.Col)
	if err != nil {
		return nil, err
	}

	ph, err := b.acquire(ctx, src)
	if err != nil {
		return nil, err
	}
	defer b.release(ph)

	rgba, err := ph.handle.ReadRegion(ctx, region, target.Size())
	if err != nil {
		if IsImageScoped(err) {
			return nil, b.remember(src.Fingerprint, err)
		}
		return nil, zerr.With(zerr.Wrap(errors.Join(domain.ErrBuildFailed, err), "build tile"), "tile", key.String())
	}

	return domain.NewTile(key, rgba), nil
}

// Forget drops handles, dimensions and remembered failures for path, and
// invalidates its fingerprint.
func (b *Builder) Forget(path string) {
	b.fingerprinter.Invalidate(path)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fp, ok := b.byPath[abs]
	if !ok {
		return
	}
	delete(b.byPath, abs)
	delete(b.sources, fp)
	delete(b.failures, fp)
	b.handles.Remove(fp)
}

// Close releases every pooled handle.
func (b *Builder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handles.Purge()
	return nil
}

// acquire returns a pinned pooled handle for src, opening it when needed.
func (b *Builder) acquire(ctx context.Context, src domain.SourceImage) (*pooledHandle, error) {
	for {
		b.mu.Lock()
		if ph, ok := b.handles.Get(src.Fingerprint); ok {
			ph.refs++
			b.mu.Unlock()
			return ph, nil
		}
		b.mu.Unlock()

		_, err, _ := b.opening.Do(string(src.Fingerprint), func() (any, error) {
			h, err := b.decoder.Open(ctx, src.Path)
			if err != nil {
				if IsImageScoped(err) {
					return nil, b.remember(src.Fingerprint, err)
				}
				return nil, err
			}
			b.mu.Lock()
			b.handles.Add(src.Fingerprint, &pooledHandle{handle: h})
			b.mu.Unlock()
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (b *Builder) release(ph *pooledHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ph.refs--
	if ph.evicted && ph.refs == 0 {
		_ = ph.handle.Close()
	}
}

func (b *Builder) failure(fp domain.Fingerprint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[fp]
}

func (b *Builder) remember(fp domain.Fingerprint, err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.failures[fp]; ok {
		return prev
	}
	err = zerr.With(zerr.Wrap(err, "image unusable"), "fingerprint", fp.String())
	b.failures[fp] = err
	return err
}

// IsImageScoped reports whether err condemns every tile of an image rather
// than a single tile. ErrScaleTooLarge is tile scoped: coarser levels of the
// same image may still decode.
func IsImageScoped(err error) bool {
	return errors.Is(err, domain.ErrCorruptFile) ||
		errors.Is(err, domain.ErrUnsupportedFormat) ||
		errors.Is(err, domain.ErrImageTooLarge) ||
		errors.Is(err, domain.ErrSourceNotFound)
}
