// Package scheduler prepares tile pyramids for batches of source images.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/lithotile/internal/engine/pyramid"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Options configure the scheduler.
type Options struct {
	Workers       int
	PreviewLevels int
}

// OptionsFromConfig extracts scheduler options from the settings.
func OptionsFromConfig(cfg domain.Config) Options {
	return Options{Workers: cfg.Workers, PreviewLevels: cfg.PreviewLevels}
}

// PrepareOptions tune a single batch.
type PrepareOptions struct {
	// Full prepares every level instead of the preview levels.
	Full bool
	// Progress receives batch progress; nil discards it.
	Progress ports.ProgressSink
}

// Scheduler drives the pyramid builder over batches of images.
type Scheduler struct {
	builder   ports.PyramidBuilder
	store     ports.TileStore
	telemetry ports.Telemetry
	tracer    ports.Tracer
	log       ports.Logger
	opts      Options

	flight singleflight.Group
	nextID atomic.Int64

	mu sync.RWMutex
	// jobStatus holds the jobs of the latest batch.
	jobStatus map[int]domain.JobStatus
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	builder ports.PyramidBuilder,
	store ports.TileStore,
	telemetry ports.Telemetry,
	tracer ports.Tracer,
	log ports.Logger,
	opts Options,
) *Scheduler {
	opts.Workers = max(opts.Workers, 1)
	opts.PreviewLevels = max(opts.PreviewLevels, 1)
	return &Scheduler{
		builder:   builder,
		store:     store,
		telemetry: telemetry,
		tracer:    tracer,
		log:       log,
		opts:      opts,
		jobStatus: make(map[int]domain.JobStatus),
	}
}

// updateStatus moves a job to status. Terminal states are never left.
func (s *Scheduler) updateStatus(job *domain.PreparationJob, status domain.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.Status.IsTerminal() {
		return
	}
	job.Status = status
	s.jobStatus[job.ID] = status
}

// Prepare fingerprints every requested image, skips those whose required
// levels are already cached and builds the rest on a bounded worker pool.
// Cancelling ctx stops the batch between tiles; the partial result is
// returned without error.
func (s *Scheduler) Prepare(ctx context.Context, requests []domain.ImageRequest, opts PrepareOptions) (domain.BatchResult, error) {
	if len(requests) == 0 {
		return domain.BatchResult{}, zerr.Wrap(domain.ErrNoImages, "prepare batch")
	}

	s.mu.Lock()
	clear(s.jobStatus)
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "scheduler.prepare")
	defer span.End()
	span.SetAttribute("images", len(requests))
	span.SetAttribute("full", opts.Full)

	state := s.newRunState(ctx, opts)
	state.inspect(requests)

	span.SetAttribute("queued", len(state.ready))
	state.publish("", true)
	state.runExecutionLoop()
	state.publish("", false)

	return state.result(), nil
}

// IsCached reports whether the levels a batch would require for path are
// already in the store.
func (s *Scheduler) IsCached(ctx context.Context, path string, full bool) (bool, error) {
	src, err := s.builder.Source(ctx, path)
	if err != nil {
		return false, err
	}
	desc, err := s.builder.Describe(src)
	if err != nil {
		return false, err
	}
	return s.complete(desc, s.levels(desc, full)), nil
}

func (s *Scheduler) levels(desc domain.PyramidDescriptor, full bool) []int {
	if full {
		return desc.AllLevels()
	}
	return desc.PreviewLevels(s.opts.PreviewLevels)
}

func (s *Scheduler) complete(desc domain.PyramidDescriptor, levels []int) bool {
	for _, l := range levels {
		lvl, ok := desc.Level(l)
		if !ok || !s.store.LevelComplete(desc.Fingerprint, l, lvl.TileCount()) {
			return false
		}
	}
	return true
}

type result struct {
	job       *domain.PreparationJob
	completed int
	err       error
	cancelled bool
}

type queued struct {
	job    *domain.PreparationJob
	desc   domain.PyramidDescriptor
	vertex ports.Vertex
	// dups are requests folded into job because they share its fingerprint.
	dups []*domain.PreparationJob
}

type schedulerRunState struct {
	ctx       context.Context
	s         *Scheduler
	opts      PrepareOptions
	jobs      []*domain.PreparationJob
	byFP      map[domain.Fingerprint]*queued
	ready     []*queued
	running   map[*domain.PreparationJob]*queued
	active    int
	finished  int
	resultsCh chan result
}

func (s *Scheduler) newRunState(ctx context.Context, opts PrepareOptions) *schedulerRunState {
	return &schedulerRunState{
		ctx:       ctx,
		s:         s,
		opts:      opts,
		byFP:      make(map[domain.Fingerprint]*queued),
		running:   make(map[*domain.PreparationJob]*queued),
		resultsCh: make(chan result, s.opts.Workers),
	}
}

// inspect creates a job per request. Fingerprints and dimensions are read
// concurrently; queueing happens afterwards in request order.
func (state *schedulerRunState) inspect(requests []domain.ImageRequest) {
	type inspected struct {
		src  domain.SourceImage
		desc domain.PyramidDescriptor
		err  error
	}
	found := make([]inspected, len(requests))

	g, ctx := errgroup.WithContext(state.ctx)
	g.SetLimit(state.s.opts.Workers)
	for i, req := range requests {
		g.Go(func() error {
			src, err := state.s.builder.Source(ctx, req.Path)
			if err != nil {
				found[i].err = err
				return nil
			}
			desc, err := state.s.builder.Describe(src)
			found[i] = inspected{src: src, desc: desc, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, req := range requests {
		job := &domain.PreparationJob{
			ID:     int(state.s.nextID.Add(1)),
			Name:   req.Name,
			Source: domain.SourceImage{Path: req.Path},
			Status: domain.JobPending,
		}
		state.s.mu.Lock()
		state.s.jobStatus[job.ID] = domain.JobPending
		state.s.mu.Unlock()

		in := found[i]
		if in.err == nil {
			job.Source = in.src
		}
		if job.Name == "" {
			job.Name = job.Source.Name()
		}

		if q, dup := state.byFP[in.src.Fingerprint]; in.err == nil && dup {
			q.dups = append(q.dups, job)
			continue
		}
		state.jobs = append(state.jobs, job)

		_, vertex := state.s.telemetry.Record(state.ctx, job.Name)

		if in.err != nil && state.ctx.Err() != nil {
			job.Err = state.ctx.Err()
			state.s.updateStatus(job, domain.JobCancelled)
			vertex.Complete(job.Err)
			state.finished++
			continue
		}
		if in.err != nil {
			job.Err = in.err
			state.s.updateStatus(job, domain.JobFailed)
			state.s.log.Error(zerr.With(zerr.Wrap(in.err, "failed to inspect image"), "image", job.Name))
			vertex.Complete(in.err)
			state.finished++
			continue
		}

		job.Levels = state.s.levels(in.desc, state.opts.Full)
		job.TotalTiles = in.desc.TileCount(job.Levels...)

		if state.s.complete(in.desc, job.Levels) {
			job.CompletedTiles = job.TotalTiles
			state.s.updateStatus(job, domain.JobCached)
			vertex.Cached()
			vertex.Complete(nil)
			state.finished++
			state.byFP[in.src.Fingerprint] = &queued{job: job, desc: in.desc}
			continue
		}

		q := &queued{job: job, desc: in.desc, vertex: vertex}
		state.byFP[in.src.Fingerprint] = q
		state.ready = append(state.ready, q)
	}
}

func (state *schedulerRunState) runExecutionLoop() {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil {
			state.cancelPending()
			if state.active == 0 {
				break
			}
			state.handleResult(<-state.resultsCh)
			continue
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.s.opts.Workers && state.ctx.Err() == nil {
		q := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.running[q.job] = q
		state.s.updateStatus(q.job, domain.JobRunning)

		go state.executeJob(q)
	}
}

// cancelPending ends every job that never started.
func (state *schedulerRunState) cancelPending() {
	for _, q := range state.ready {
		q.job.Err = state.ctx.Err()
		state.s.updateStatus(q.job, domain.JobCancelled)
		q.vertex.Complete(q.job.Err)
		state.finished++
	}
	state.ready = nil
}

func (state *schedulerRunState) executeJob(q *queued) {
	res := func() result {
		ctx, span := state.s.tracer.Start(state.ctx, "scheduler.prepare_image")
		defer span.End()
		span.SetAttribute("image", q.job.Name)
		span.SetAttribute("fingerprint", q.job.Source.Fingerprint.String())
		span.SetAttribute("tiles", q.job.TotalTiles)

		res := state.s.buildShared(ctx, q)
		if res.err != nil {
			span.RecordError(res.err)
		}
		return res
	}()

	state.resultsCh <- res
}

type outcome struct {
	completed int
	err       error
	cancelled bool
}

// buildShared builds the job's tiles. Batches preparing the same fingerprint
// at the same time share one build; a caller whose shared build was cancelled
// by another batch retries with its own context.
func (s *Scheduler) buildShared(ctx context.Context, q *queued) result {
	for {
		key := fmt.Sprintf("%s/%v", q.job.Source.Fingerprint, q.job.Levels)
		v, _, _ := s.flight.Do(key, func() (any, error) {
			return s.buildTiles(ctx, q), nil
		})
		out, _ := v.(outcome)
		if out.cancelled && ctx.Err() == nil {
			continue
		}
		return result{job: q.job, completed: out.completed, err: out.err, cancelled: out.cancelled}
	}
}

// buildTiles builds the job's levels coarsest first, then row by row.
// Cancellation is checked between tiles; a started build always finishes.
func (s *Scheduler) buildTiles(ctx context.Context, q *queued) outcome {
	var (
		out       outcome
		failed    int
		firstFail error
	)
	for key := range q.desc.TileKeys(q.job.Levels...) {
		if ctx.Err() != nil {
			out.cancelled = true
			return out
		}
		if s.store.Has(key) {
			out.completed++
			continue
		}

		tile, err := s.builder.BuildTile(context.WithoutCancel(ctx), q.job.Source, key.Level, key.Row, key.Col)
		if err != nil {
			if pyramid.IsImageScoped(err) {
				out.err = err
				return out
			}
			failed++
			if firstFail == nil {
				firstFail = err
			}
			q.vertex.Log(slog.LevelWarn, fmt.Sprintf("tile %s failed: %v", key, err))
			continue
		}

		if err := s.store.Put(key, tile); err != nil {
			s.log.Warn(fmt.Sprintf("tile %s not cached: %v", key, err))
			q.vertex.Log(slog.LevelWarn, fmt.Sprintf("tile %s not cached: %v", key, err))
			continue
		}
		out.completed++
		if lvl := q.desc.Levels[key.Level]; key.Row == lvl.Rows-1 && key.Col == lvl.Cols-1 {
			q.vertex.Log(slog.LevelDebug, fmt.Sprintf("level %d done", key.Level))
		}
	}

	if failed > 0 {
		out.err = zerr.With(zerr.With(firstFail, "failed_tiles", failed), "image", q.job.Name)
	}
	return out
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--
	q := state.running[res.job]
	delete(state.running, res.job)

	job := res.job
	job.CompletedTiles = res.completed

	switch {
	case res.cancelled:
		job.Err = state.ctx.Err()
		state.s.updateStatus(job, domain.JobCancelled)
	case res.err != nil:
		job.Err = res.err
		state.s.updateStatus(job, domain.JobFailed)
		state.s.log.Error(zerr.With(zerr.Wrap(res.err, "failed to prepare image"), "image", job.Name))
	default:
		state.s.updateStatus(job, domain.JobDone)
	}

	if q != nil && q.vertex != nil {
		q.vertex.Complete(job.Err)
	}

	state.finished++
	state.publish(job.Name, true)
}

func (state *schedulerRunState) publish(name string, preparing bool) {
	if state.opts.Progress == nil {
		return
	}
	state.opts.Progress.Publish(domain.Progress{
		TotalImages:        len(state.jobs),
		CompletedImages:    state.finished,
		CurrentImageName:   name,
		IsPreparationPhase: preparing,
	})
}

// result summarizes the batch with one job per request. Requests folded into
// another job report and count that job's outcome.
func (state *schedulerRunState) result() domain.BatchResult {
	var out domain.BatchResult
	tally := func(job *domain.PreparationJob) {
		out.Total++
		switch job.Status {
		case domain.JobDone:
			out.Prepared++
		case domain.JobCached:
			out.Cached++
		case domain.JobFailed:
			out.Failed++
		case domain.JobCancelled:
			out.Cancelled++
		}
		out.Jobs = append(out.Jobs, *job)
	}

	for _, job := range state.jobs {
		tally(job)
	}
	for _, job := range state.jobs {
		q, ok := state.byFP[job.Source.Fingerprint]
		if !ok || q.job != job {
			continue
		}
		for _, dup := range q.dups {
			dup.Levels = q.job.Levels
			dup.TotalTiles = q.job.TotalTiles
			dup.CompletedTiles = q.job.CompletedTiles
			dup.Err = q.job.Err
			state.s.updateStatus(dup, q.job.Status)
			tally(dup)
		}
	}
	return out
}
