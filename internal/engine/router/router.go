// Package router answers per-frame viewport queries with renderable tiles,
// building missing tiles within a frame budget and deferring the rest to
// background workers.
package router

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/lithotile/internal/engine/overlay"
	"go.trai.ch/lithotile/internal/engine/pyramid"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

var (
	// errDeadline reports a synchronous build that did not finish in time.
	errDeadline = zerr.New("tile build deadline exceeded")
	// errClosed reports a build requested after Close.
	errClosed = zerr.New("router closed")
)

// Options configure the router.
type Options struct {
	// FrameBudget bounds the synchronous build work of one ResolveViewport call.
	FrameBudget time.Duration
	// BuildDeadline bounds a single synchronous tile build.
	BuildDeadline   time.Duration
	BackfillWorkers int
	BackfillQueue   int
	// MinOverlayPixels is passed to the overlay resolver.
	MinOverlayPixels float64
}

// OptionsFromConfig extracts router options from the settings.
func OptionsFromConfig(cfg domain.Config) Options {
	return Options{
		FrameBudget:      cfg.FrameBudget,
		BuildDeadline:    cfg.BuildDeadline,
		BackfillWorkers:  cfg.BackfillWorkers,
		BackfillQueue:    cfg.BackfillQueue,
		MinOverlayPixels: cfg.MinOverlayPixels,
	}
}

type backfillItem struct {
	src domain.SourceImage
	key domain.TileKey
}

// Router resolves viewports into frames.
type Router struct {
	builder  ports.PyramidBuilder
	store    ports.TileStore
	resolver *overlay.Resolver
	tracer   ports.Tracer
	log      ports.Logger
	opts     Options

	// flight is shared by frame builds and backfill so a tile is built once.
	flight singleflight.Group

	ctx      context.Context
	cancel   context.CancelFunc
	backfill chan backfillItem

	// wg counts backfill workers and frame builds. Frame builds join it
	// under mu and only while the router is open.
	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
	queued map[domain.TileKey]struct{}
}

// New creates a Router and starts its backfill workers. Close stops them.
func New(
	builder ports.PyramidBuilder,
	store ports.TileStore,
	tracer ports.Tracer,
	log ports.Logger,
	opts Options,
) *Router {
	opts.BackfillWorkers = max(opts.BackfillWorkers, 1)
	opts.BackfillQueue = max(opts.BackfillQueue, 1)

	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		builder:  builder,
		store:    store,
		resolver: overlay.NewResolver(overlay.Options{MinOverlayPixels: opts.MinOverlayPixels}),
		tracer:   tracer,
		log:      log,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		backfill: make(chan backfillItem, opts.BackfillQueue),
		queued:   make(map[domain.TileKey]struct{}),
	}

	r.wg.Add(opts.BackfillWorkers)
	for range opts.BackfillWorkers {
		go r.worker()
	}
	return r
}

// Close stops the backfill workers and waits for running builds, including
// those started by frames, to return. Queued backfill work is dropped.
func (r *Router) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	return nil
}

// ResolveViewport returns the tiles to draw for viewport, in paint order.
// Cached tiles are returned as they are; missing tiles are built while the
// frame budget lasts and otherwise replaced by the nearest cached ancestor
// and queued for background completion.
func (r *Router) ResolveViewport(
	ctx context.Context,
	forest []*domain.OverlayNode,
	viewport domain.ViewportState,
) (domain.Frame, error) {
	ctx, span := r.tracer.Start(ctx, "router.resolve_viewport")
	defer span.End()

	deadline := time.Now().Add(r.opts.FrameBudget)

	images := r.inspect(ctx, forest)

	plan, err := r.resolver.Resolve(forest, viewport, images.descriptors)
	if err != nil {
		span.RecordError(err)
		return domain.Frame{}, err
	}

	frame := domain.Frame{Warnings: plan.Warnings}
	for _, item := range plan.Items {
		src := images.sources[item.ImageID]
		desc := images.descriptors[item.ImageID]
		for _, key := range item.Tiles {
			frame.Tiles = append(frame.Tiles, r.resolveTile(ctx, &frame, images, item, src, desc, key, deadline))
		}
	}

	unplaced := make(map[string]bool, len(plan.Unplaced))
	for _, id := range plan.Unplaced {
		unplaced[id] = true
	}
	for _, id := range images.order {
		err, failed := images.failed[id]
		switch {
		case failed && images.plannedFailure[id]:
			continue
		case !failed && unplaced[id]:
			err = zerr.With(zerr.Wrap(domain.ErrParentUnavailable, "place overlay"), "image_id", id)
		case !failed:
			continue
		}
		frame.Tiles = append(frame.Tiles, domain.RenderableTile{
			ImageID: id,
			Key:     domain.TileKey{Fingerprint: images.sources[id].Fingerprint},
			Kind:    domain.TileError,
			Err:     err,
		})
	}

	span.SetAttribute("tiles", len(frame.Tiles))
	span.SetAttribute("deferred", frame.Deferred)
	span.SetAttribute("budget_left", time.Until(deadline))
	return frame, nil
}

type frameImages struct {
	order       []string
	sources     map[string]domain.SourceImage
	descriptors map[string]domain.PyramidDescriptor
	failed      map[string]error
	// plannedFailure marks images that failed after planning, while building
	// their tiles; they already carry Error tiles.
	plannedFailure map[string]bool
}

// inspect fetches source metadata for every node. Images that cannot be read
// are left out of descriptors; their children are still inspected.
func (r *Router) inspect(ctx context.Context, forest []*domain.OverlayNode) *frameImages {
	images := &frameImages{
		sources:        make(map[string]domain.SourceImage),
		descriptors:    make(map[string]domain.PyramidDescriptor),
		failed:         make(map[string]error),
		plannedFailure: make(map[string]bool),
	}

	var visit func(n *domain.OverlayNode)
	visit = func(n *domain.OverlayNode) {
		if _, seen := images.sources[n.ImageID]; seen {
			return
		}
		if _, seen := images.failed[n.ImageID]; seen {
			return
		}
		images.order = append(images.order, n.ImageID)

		src, err := r.builder.Source(ctx, n.Path)
		if err == nil {
			images.sources[n.ImageID] = src
			var desc domain.PyramidDescriptor
			if desc, err = r.builder.Describe(src); err == nil {
				images.descriptors[n.ImageID] = desc
			}
		}
		if err != nil {
			images.failed[n.ImageID] = zerr.With(zerr.Wrap(err, "image unavailable"), "image_id", n.ImageID)
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, root := range forest {
		visit(root)
	}
	return images
}

func (r *Router) resolveTile(
	ctx context.Context,
	frame *domain.Frame,
	images *frameImages,
	item domain.TilePlan,
	src domain.SourceImage,
	desc domain.PyramidDescriptor,
	key domain.TileKey,
	deadline time.Time,
) domain.RenderableTile {
	rt := domain.RenderableTile{
		ImageID:         item.ImageID,
		Key:             key,
		ScreenTransform: overlay.TileScreenTransform(item, desc, key),
		Opacity:         item.Opacity,
	}

	if err, failed := images.failed[item.ImageID]; failed {
		rt.Kind = domain.TileError
		rt.Err = err
		return rt
	}

	tile, ok, err := r.store.Get(key)
	if err != nil {
		r.log.Warn(fmt.Sprintf("tile %s unreadable, rebuilding: %v", key, err))
	}
	if ok {
		return ready(rt, tile)
	}

	if remaining := time.Until(deadline); remaining > 0 {
		tile, err = r.fetch(ctx, src, key, min(r.opts.BuildDeadline, remaining))
		switch {
		case err == nil:
			return ready(rt, tile)
		case pyramid.IsImageScoped(err):
			images.failed[item.ImageID] = err
			images.plannedFailure[item.ImageID] = true
			rt.Kind = domain.TileError
			rt.Err = err
			return rt
		}
	}

	if anc, sub, ok := r.placeholder(desc, key); ok {
		rt.Kind = domain.TilePlaceholder
		rt.Tile = anc
		rt.SourceRect = sub
	} else {
		rt.Kind = domain.TileMissing
	}
	r.enqueue(src, key)
	frame.Deferred++
	return rt
}

func ready(rt domain.RenderableTile, tile *domain.Tile) domain.RenderableTile {
	rt.Kind = domain.TileReady
	rt.Tile = tile
	rt.SourceRect = tile.Bounds()
	return rt
}

// fetch waits up to timeout for a shared build of key. The build itself is
// bound to the router's lifetime and is stored when it finishes, whether or
// not this frame still waits for it.
func (r *Router) fetch(ctx context.Context, src domain.SourceImage, key domain.TileKey, timeout time.Duration) (*domain.Tile, error) {
	ch := r.flight.DoChan(key.String(), func() (any, error) {
		if !r.join() {
			return nil, errClosed
		}
		defer r.wg.Done()
		return r.build(src, key)
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		tile, _ := res.Val.(*domain.Tile)
		return tile, nil
	case <-timer.C:
		return nil, errDeadline
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// join counts a frame build in wg unless the router is closed.
func (r *Router) join() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.wg.Add(1)
	return true
}

func (r *Router) build(src domain.SourceImage, key domain.TileKey) (*domain.Tile, error) {
	tile, err := r.builder.BuildTile(r.ctx, src, key.Level, key.Row, key.Col)
	if err != nil {
		return nil, err
	}
	if err := r.store.Put(key, tile); err != nil {
		r.log.Warn(fmt.Sprintf("tile %s not cached: %v", key, err))
	}
	return tile, nil
}

// placeholder returns the nearest cached coarser tile covering key and the
// part of it that corresponds to key.
func (r *Router) placeholder(desc domain.PyramidDescriptor, key domain.TileKey) (*domain.Tile, image.Rectangle, bool) {
	for level := key.Level + 1; level < len(desc.Levels); level++ {
		anc, sub, ok := desc.Ancestor(key, level)
		if !ok {
			continue
		}
		tile, hit, err := r.store.Get(anc)
		if err == nil && hit {
			return tile, sub, true
		}
	}
	return nil, image.Rectangle{}, false
}

// enqueue hands key to the backfill workers unless it is already queued.
// A full queue drops the request; the next frame asks again.
func (r *Router) enqueue(src domain.SourceImage, key domain.TileKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.queued[key]; ok {
		return
	}
	select {
	case r.backfill <- backfillItem{src: src, key: key}:
		r.queued[key] = struct{}{}
	default:
	}
}

func (r *Router) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case item := <-r.backfill:
			r.runBackfill(item)
		}
	}
}

func (r *Router) runBackfill(item backfillItem) {
	defer func() {
		r.mu.Lock()
		delete(r.queued, item.key)
		r.mu.Unlock()
	}()

	if r.ctx.Err() != nil || r.store.Has(item.key) {
		return
	}

	_, err, _ := r.flight.Do(item.key.String(), func() (any, error) {
		return r.build(item.src, item.key)
	})
	if err != nil && !pyramid.IsImageScoped(err) && r.ctx.Err() == nil {
		r.log.Warn(fmt.Sprintf("backfill of tile %s failed: %v", item.key, err))
	}
}
