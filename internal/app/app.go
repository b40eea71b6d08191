// Package app implements the application layer for lithotile.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/lithotile/internal/adapters/watcher" //nolint:depguard // Debouncer is app orchestration
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/lithotile/internal/engine/router"
	"go.trai.ch/lithotile/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	resolver     ports.ImageResolver
	builder      ports.PyramidBuilder
	store        ports.TileStore
	scheduler    *scheduler.Scheduler
	router       *router.Router
	watcher      ports.Watcher
	logger       ports.Logger
	debounce     time.Duration
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	resolver ports.ImageResolver,
	builder ports.PyramidBuilder,
	store ports.TileStore,
	sched *scheduler.Scheduler,
	rt *router.Router,
	w ports.Watcher,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		resolver:     resolver,
		builder:      builder,
		store:        store,
		scheduler:    sched,
		router:       rt,
		watcher:      w,
		logger:       log,
		debounce:     watcher.DefaultDebounceWindow,
	}
}

// WithDebounce sets the window used to coalesce file change events.
func (a *App) WithDebounce(window time.Duration) *App {
	a.debounce = window
	return a
}

// OpenProject loads a project. A single .yaml/.yml argument is read as a
// project file; anything else is a list of image files, directories or glob
// patterns, each image becoming a root of the overlay forest.
func (a *App) OpenProject(args []string) (domain.Project, error) {
	if len(args) == 0 {
		return domain.Project{}, zerr.Wrap(domain.ErrNoImages, "open project")
	}

	if len(args) == 1 && isProjectFile(args[0]) {
		project, err := a.configLoader.LoadProject(args[0])
		if err != nil {
			return domain.Project{}, zerr.Wrap(err, "failed to load project")
		}
		return project, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return domain.Project{}, zerr.Wrap(err, "failed to get working directory")
	}
	paths, err := a.resolver.ResolveImages(args, cwd)
	if err != nil {
		return domain.Project{}, zerr.Wrap(err, "failed to resolve images")
	}
	if len(paths) == 0 {
		return domain.Project{}, zerr.Wrap(domain.ErrNoImages, "open project")
	}

	project := domain.Project{Name: filepath.Base(cwd), Root: cwd}
	for _, p := range paths {
		id := p
		if rel, err := filepath.Rel(cwd, p); err == nil && !strings.HasPrefix(rel, "..") {
			id = rel
		}
		project.Images = append(project.Images, domain.ProjectImage{
			ID:      id,
			Path:    p,
			Name:    filepath.Base(p),
			Scale:   1,
			Opacity: 1,
			Visible: true,
		})
	}
	return project, nil
}

func isProjectFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// PrepareOptions configuration for the Prepare method.
type PrepareOptions struct {
	Full     bool
	Progress ports.ProgressSink
}

// Prepare builds the pyramids of every project image. The batch result is
// returned even when images failed; the error then wraps ErrPreparationFailed.
func (a *App) Prepare(ctx context.Context, args []string, opts PrepareOptions) (domain.BatchResult, error) {
	project, err := a.OpenProject(args)
	if err != nil {
		return domain.BatchResult{}, err
	}

	res, err := a.scheduler.Prepare(ctx, project.Requests(), scheduler.PrepareOptions{
		Full:     opts.Full,
		Progress: opts.Progress,
	})
	if err != nil {
		return res, zerr.Wrap(err, "failed to prepare images")
	}
	if res.Failed > 0 {
		return res, zerr.With(zerr.Wrap(domain.ErrPreparationFailed, "prepare batch"), "failed", res.Failed)
	}
	return res, nil
}

// ImageStatus is the cache state of one project image.
type ImageStatus struct {
	ID          string
	Name        string
	Path        string
	Fingerprint domain.Fingerprint
	Width       int
	Height      int
	Levels      int
	Tiles       int
	Cached      bool
	Err         error
}

// Status reports, per image, whether the levels a batch would need are cached.
func (a *App) Status(ctx context.Context, args []string, full bool) ([]ImageStatus, error) {
	project, err := a.OpenProject(args)
	if err != nil {
		return nil, err
	}

	out := make([]ImageStatus, 0, len(project.Images))
	for _, img := range project.Images {
		st := ImageStatus{ID: img.ID, Name: img.Name, Path: project.ResolvedPath(img)}
		if st.Name == "" {
			st.Name = filepath.Base(st.Path)
		}

		src, err := a.builder.Source(ctx, st.Path)
		if err != nil {
			st.Err = err
			out = append(out, st)
			continue
		}
		st.Fingerprint = src.Fingerprint
		st.Width, st.Height = src.Width, src.Height

		if desc, err := a.builder.Describe(src); err == nil {
			st.Levels = len(desc.Levels)
			st.Tiles = desc.TileCount()
		}
		st.Cached, st.Err = a.scheduler.IsCached(ctx, st.Path, full)
		out = append(out, st)
	}
	return out, nil
}

// SetLogJSON switches the logger to JSON records when it supports that.
func (a *App) SetLogJSON(enable bool) {
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(enable)
	}
}

// Stats returns the tile cache totals.
func (a *App) Stats() domain.CacheStats {
	return a.store.Stats()
}

// Clear empties the tile cache.
func (a *App) Clear() error {
	a.logger.Info("clearing tile cache...")
	if err := a.store.ClearAll(); err != nil {
		return zerr.Wrap(err, "failed to clear tile cache")
	}
	a.logger.Info("tile cache cleared")
	return nil
}

// GCOptions configuration for the GC method.
type GCOptions struct {
	// Keep, when set, names a project whose current images are kept; tiles of
	// every other fingerprint are evicted.
	Keep []string
}

// GCResult counts the entries removed by GC.
type GCResult struct {
	Stale   int
	Evicted int
}

// GC evicts least recently used tiles until the cache fits its budget,
// after optionally dropping every tile not belonging to a project.
func (a *App) GC(ctx context.Context, opts GCOptions) (GCResult, error) {
	var res GCResult

	if len(opts.Keep) > 0 {
		project, err := a.OpenProject(opts.Keep)
		if err != nil {
			return res, err
		}
		keep := make([]domain.Fingerprint, 0, len(project.Images))
		for _, req := range project.Requests() {
			src, err := a.builder.Source(ctx, req.Path)
			if err != nil {
				a.logger.Warn(fmt.Sprintf("skipping %s: %v", req.Path, err))
				continue
			}
			keep = append(keep, src.Fingerprint)
		}
		n, err := a.store.Evict(domain.ExceptFingerprints(keep...))
		if err != nil {
			return res, zerr.Wrap(err, "failed to evict stale tiles")
		}
		res.Stale = n
	}

	n, err := a.store.Reclaim()
	if err != nil {
		return res, zerr.Wrap(err, "failed to reclaim cache space")
	}
	res.Evicted = n
	return res, nil
}

// ResolveOptions configuration for the Resolve method.
type ResolveOptions struct {
	Zoom float64
	// Visible is the viewport rectangle in reference pixels. When empty the
	// full extent of the first root image is used.
	Visible domain.Rect
}

// Resolve answers a single viewport query against a project.
func (a *App) Resolve(ctx context.Context, args []string, opts ResolveOptions) (domain.Frame, error) {
	project, err := a.OpenProject(args)
	if err != nil {
		return domain.Frame{}, err
	}

	forest, warnings := domain.BuildForest(project.OverlayRecords())
	for _, w := range warnings {
		a.logger.Warn(w.Error())
	}
	if len(forest) == 0 {
		return domain.Frame{Warnings: warnings}, zerr.Wrap(domain.ErrNoImages, "resolve viewport")
	}

	visible := opts.Visible
	if visible.Empty() {
		src, err := a.builder.Source(ctx, forest[0].Path)
		if err != nil {
			return domain.Frame{Warnings: warnings}, zerr.Wrap(err, "failed to read reference image")
		}
		visible = domain.RectXYWH(0, 0, float64(src.Width), float64(src.Height))
	}

	frame, err := a.router.ResolveViewport(ctx, forest, domain.ViewportState{Zoom: opts.Zoom, Visible: visible})
	if err != nil {
		return domain.Frame{Warnings: warnings}, zerr.Wrap(err, "failed to resolve viewport")
	}
	frame.Warnings = append(warnings, frame.Warnings...)
	return frame, nil
}

// BatchFunc runs one batch, publishing progress to sink.
type BatchFunc func(ctx context.Context, sink ports.ProgressSink) (domain.BatchResult, error)

// WatchOptions configuration for the Watch method.
type WatchOptions struct {
	Prepare PrepareOptions
	// Present runs each batch inside a progress view. Without it batches
	// report to Prepare.Progress.
	Present func(ctx context.Context, run BatchFunc) (domain.BatchResult, error)
	// OnBatch is called after the initial batch and after every re-preparation.
	OnBatch func(domain.BatchResult)
}

// Watch prepares the project, then re-prepares images whenever their files
// change until ctx is cancelled. Tiles of replaced file contents are evicted.
func (a *App) Watch(ctx context.Context, args []string, opts WatchOptions) error {
	project, err := a.OpenProject(args)
	if err != nil {
		return err
	}

	requests := make(map[string]domain.ImageRequest, len(project.Images))
	paths := make([]string, 0, len(project.Images))
	for _, req := range project.Requests() {
		abs, err := filepath.Abs(req.Path)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to resolve path"), "path", req.Path)
		}
		req.Path = abs
		requests[abs] = req
		paths = append(paths, abs)
	}

	fingerprints := make(map[string]domain.Fingerprint, len(paths))
	a.runBatch(ctx, project.Requests(), opts, fingerprints)

	if err := a.watcher.Start(ctx, paths...); err != nil {
		return zerr.Wrap(err, "failed to start file watcher")
	}
	defer func() {
		_ = a.watcher.Stop()
	}()

	changed := make(chan []ports.WatchEvent)
	debouncer := watcher.NewDebouncer(a.debounce, 0, func(batch []ports.WatchEvent) {
		select {
		case changed <- batch:
		case <-ctx.Done():
		}
	})
	go func() {
		for event := range a.watcher.Events() {
			debouncer.Add(event)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-changed:
			var reqs []domain.ImageRequest
			for _, ev := range batch {
				a.builder.Forget(ev.Path)
				req, ok := requests[ev.Path]
				if !ok {
					continue
				}
				if ev.Operation == ports.OpRemove {
					a.logger.Warn(fmt.Sprintf("%s is gone, keeping its tiles until gc", ev.Path))
					continue
				}
				reqs = append(reqs, req)
			}
			if len(reqs) > 0 {
				a.logger.Info(fmt.Sprintf("%d image(s) changed, preparing", len(reqs)))
				a.runBatch(ctx, reqs, opts, fingerprints)
			}
		}
	}
}

// runBatch prepares requests, reports the result and evicts the tiles of
// fingerprints that a path no longer has.
func (a *App) runBatch(
	ctx context.Context,
	requests []domain.ImageRequest,
	opts WatchOptions,
	fingerprints map[string]domain.Fingerprint,
) {
	run := func(ctx context.Context, sink ports.ProgressSink) (domain.BatchResult, error) {
		return a.scheduler.Prepare(ctx, requests, scheduler.PrepareOptions{
			Full:     opts.Prepare.Full,
			Progress: sink,
		})
	}

	var (
		res domain.BatchResult
		err error
	)
	if opts.Present != nil {
		res, err = opts.Present(ctx, run)
	} else {
		res, err = run(ctx, opts.Prepare.Progress)
	}
	if err != nil {
		a.logger.Error(zerr.Wrap(err, "failed to prepare images"))
		return
	}

	for _, job := range res.Jobs {
		if job.Source.Fingerprint.IsZero() {
			continue
		}
		old, seen := fingerprints[job.Source.Path]
		fingerprints[job.Source.Path] = job.Source.Fingerprint
		if !seen || old == job.Source.Fingerprint {
			continue
		}
		if n, err := a.store.Evict(domain.ForFingerprint(old)); err != nil {
			a.logger.Warn(fmt.Sprintf("failed to evict stale tiles of %s: %v", job.Name, err))
		} else if n > 0 {
			a.logger.Info(fmt.Sprintf("evicted %d stale tile(s) of %s", n, job.Name))
		}
	}

	if opts.OnBatch != nil {
		opts.OnBatch(res)
	}
}

// Close releases the router workers, open source images and the tile store.
func (a *App) Close() error {
	var errs error
	if a.router != nil {
		errs = errors.Join(errs, a.router.Close())
	}
	if c, ok := a.builder.(io.Closer); ok {
		errs = errors.Join(errs, c.Close())
	}
	if a.store != nil {
		errs = errors.Join(errs, a.store.Close())
	}
	return errs
}
