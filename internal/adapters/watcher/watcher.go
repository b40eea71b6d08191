// Package watcher reports changes to source image files using fsnotify.
package watcher

import (
	"context"
	"iter"
	"path/filepath"
	"sync"
	"unique"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 100

// Watcher implements ports.Watcher. fsnotify only watches directories, so the
// parent directory of every source is watched and events are filtered down to
// the registered files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	log       ports.Logger
	events    chan ports.WatchEvent

	mu    sync.RWMutex
	files map[unique.Handle[string]]struct{}
	dirs  map[string]struct{}
}

// NewWatcher creates a new file system watcher.
func NewWatcher(log ports.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create file watcher")
	}
	return &Watcher{
		fsWatcher: watcher,
		log:       log,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
		files:     make(map[unique.Handle[string]]struct{}),
		dirs:      make(map[string]struct{}),
	}, nil
}

// Start watches the directories holding paths and begins forwarding events.
func (w *Watcher) Start(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		if err := w.add(p); err != nil {
			return err
		}
	}

	go w.processEvents(ctx)

	return nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to resolve path"), "path", path)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.files[unique.Make(abs)] = struct{}{}
	if _, ok := w.dirs[dir]; ok {
		return nil
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to watch directory"), "dir", dir)
	}
	w.dirs[dir] = struct{}{}
	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator of file system events.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func (w *Watcher) watched(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[unique.Make(filepath.Clean(path))]
	return ok
}

// processEvents converts raw fsnotify events for watched files.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.watched(event.Name) {
				continue
			}

			watchEvent, ok := convertEvent(event)
			if !ok {
				continue
			}

			select {
			case w.events <- watchEvent:
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error: " + err.Error())
		}
	}
}

// convertEvent converts an fsnotify event to a ports.WatchEvent.
// Chmod-only events carry no content change and are dropped.
func convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	path := filepath.Clean(event.Name)

	switch {
	case event.Has(fsnotify.Write):
		return ports.WatchEvent{Path: path, Operation: ports.OpWrite}, true
	case event.Has(fsnotify.Create):
		return ports.WatchEvent{Path: path, Operation: ports.OpCreate}, true
	case event.Has(fsnotify.Remove):
		return ports.WatchEvent{Path: path, Operation: ports.OpRemove}, true
	case event.Has(fsnotify.Rename):
		return ports.WatchEvent{Path: path, Operation: ports.OpRename}, true
	default:
		return ports.WatchEvent{}, false
	}
}
