package watcher

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"go.trai.ch/lithotile/internal/core/ports"
)

// Debouncer folds bursts of file events into one net change per image.
//
// A batch fires once no event arrived for the quiet window, or once maxWait
// has passed since the first pending event, whichever comes first. The
// second bound keeps a slow copy of a large micrograph from postponing the
// batch forever.
type Debouncer struct {
	quiet   time.Duration
	maxWait time.Duration
	emit    func([]ports.WatchEvent)

	mu      sync.Mutex
	pending map[string]ports.WatchOp
	first   time.Time
	timer   *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet window. maxWait of
// zero means four quiet windows.
func NewDebouncer(quiet, maxWait time.Duration, emit func([]ports.WatchEvent)) *Debouncer {
	if maxWait <= 0 {
		maxWait = 4 * quiet
	}
	return &Debouncer{
		quiet:   quiet,
		maxWait: max(maxWait, quiet),
		emit:    emit,
		pending: make(map[string]ports.WatchOp),
	}
}

// Add records an event.
func (d *Debouncer) Add(ev ports.WatchEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if prev, ok := d.pending[ev.Path]; ok {
		d.pending[ev.Path] = fold(prev, ev.Operation)
	} else {
		if len(d.pending) == 0 {
			d.first = now
		}
		d.pending[ev.Path] = fold(ev.Operation, ev.Operation)
	}

	wait := min(d.quiet, d.first.Add(d.maxWait).Sub(now))
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(max(wait, 0), d.fire)
}

// fold merges the net change so far with the next event on the same path.
// Rename is treated as removal: the file is no longer at the watched path.
func fold(prev, next ports.WatchOp) ports.WatchOp {
	switch {
	case next == ports.OpRemove || next == ports.OpRename:
		return ports.OpRemove
	case prev == ports.OpRemove || prev == ports.OpRename:
		// Deleted and written again: an atomic save.
		return ports.OpWrite
	case prev == ports.OpCreate:
		return ports.OpCreate
	default:
		return next
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	batch := d.drain()
	d.mu.Unlock()

	if len(batch) > 0 && d.emit != nil {
		d.emit(batch)
	}
}

// Flush emits pending events now and waits for the callback to return.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	batch := d.drain()
	d.mu.Unlock()

	if len(batch) > 0 && d.emit != nil {
		d.emit(batch)
	}
}

// drain returns the pending events ordered by path. Callers hold mu.
func (d *Debouncer) drain() []ports.WatchEvent {
	out := make([]ports.WatchEvent, 0, len(d.pending))
	for path, op := range d.pending {
		out = append(out, ports.WatchEvent{Path: path, Operation: op})
	}
	clear(d.pending)
	slices.SortFunc(out, func(a, b ports.WatchEvent) int { return cmp.Compare(a.Path, b.Path) })
	return out
}
