// Package tilestore implements the on-disk tile cache.
package tilestore

import (
	"cmp"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
)

const stripeCount = 64

// reclaimTarget is the fraction of the budget a reclaim pass evicts down to.
const reclaimTarget = 0.9

var _ ports.TileStore = (*Store)(nil)

// Options configures a Store.
type Options struct {
	CacheDir      string
	BudgetBytes   int64
	MemoryTiles   int
	FlushInterval time.Duration
}

// OptionsFromConfig extracts store options from the runtime settings.
func OptionsFromConfig(cfg domain.Config) Options {
	return Options{
		CacheDir:      cfg.CacheDir,
		BudgetBytes:   cfg.CacheBudget,
		MemoryTiles:   cfg.MemoryTiles,
		FlushInterval: cfg.FlushInterval,
	}
}

// entry is the in-memory bookkeeping of one cached tile.
type entry struct {
	size   int64
	access time.Time
	// seq orders entries by recency; higher is more recent.
	seq  uint64
	pins int
}

type levelKey struct {
	fp    domain.Fingerprint
	level int
}

// Store implements ports.TileStore with PNG files under
// <cacheDir>/tiles/<fingerprint>/<level>/<row>_<col>.png, an in-memory index
// mirrored to a CacheIndex, and a bounded memory LRU of decoded tiles.
type Store struct {
	opts     Options
	tilesDir string
	index    ports.CacheIndex
	log      ports.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[domain.TileKey]*entry
	levels  map[levelKey]int
	dirty   map[domain.TileKey]struct{}
	seq     uint64

	count atomic.Int64
	bytes atomic.Int64

	// stripes serialize file operations per key. A stripe lock is always
	// taken before mu.
	stripes    [stripeCount]sync.Mutex
	hot        *lru.Cache[domain.TileKey, *domain.Tile]
	reclaiming atomic.Bool
	closed     atomic.Bool

	stop      chan struct{}
	flushDone chan struct{}
}

// New creates a Store over index. When rebuild is set the index is
// repopulated from the tile tree before use.
func New(opts Options, index ports.CacheIndex, walker Walker, log ports.Logger, rebuild bool) (*Store, error) {
	if opts.MemoryTiles <= 0 {
		opts.MemoryTiles = domain.DefaultConfig().MemoryTiles
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = domain.DefaultConfig().FlushInterval
	}

	hot, err := lru.New[domain.TileKey, *domain.Tile](opts.MemoryTiles)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create memory cache")
	}

	s := &Store{
		opts:      opts,
		tilesDir:  domain.TilesPath(opts.CacheDir),
		index:     index,
		log:       log,
		now:       time.Now,
		entries:   make(map[domain.TileKey]*entry),
		levels:    make(map[levelKey]int),
		dirty:     make(map[domain.TileKey]struct{}),
		hot:       hot,
		stop:      make(chan struct{}),
		flushDone: make(chan struct{}),
	}

	if err := os.MkdirAll(s.tilesDir, domain.DirPerm); err != nil {
		return nil, s.ioErr(err, "create tile directory", s.tilesDir)
	}

	if rebuild {
		if err := s.rebuild(walker); err != nil {
			return nil, err
		}
	} else if err := s.load(); err != nil {
		return nil, err
	}

	go s.flushLoop()
	return s, nil
}

// load fills the in-memory index from the persistent one.
func (s *Store) load() error {
	loaded, err := s.index.Load()
	if err != nil {
		return err
	}
	slices.SortFunc(loaded, func(a, b domain.CacheEntry) int {
		return a.LastAccess.Compare(b.LastAccess)
	})
	for _, e := range loaded {
		s.track(e.Key, e.ByteSize, e.LastAccess)
	}
	return nil
}

// track records a new or replaced entry. Callers hold s.mu or own s exclusively.
func (s *Store) track(key domain.TileKey, size int64, at time.Time) {
	s.seq++
	if e, ok := s.entries[key]; ok {
		s.bytes.Add(size - e.size)
		e.size, e.access, e.seq = size, at, s.seq
		return
	}
	s.entries[key] = &entry{size: size, access: at, seq: s.seq}
	s.levels[levelKey{key.Fingerprint, key.Level}]++
	s.count.Add(1)
	s.bytes.Add(size)
}

// untrack forgets an entry. Callers hold s.mu.
func (s *Store) untrack(key domain.TileKey) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	delete(s.dirty, key)
	lk := levelKey{key.Fingerprint, key.Level}
	if s.levels[lk]--; s.levels[lk] <= 0 {
		delete(s.levels, lk)
	}
	s.count.Add(-1)
	s.bytes.Add(-e.size)
}

func (s *Store) stripe(key domain.TileKey) *sync.Mutex {
	return &s.stripes[xxhash.Sum64String(key.String())%stripeCount]
}

func (s *Store) path(key domain.TileKey) string {
	return domain.TilePath(s.opts.CacheDir, key)
}

// Has reports whether key is cached.
func (s *Store) Has(key domain.TileKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Get returns the tile for key. Unreadable or corrupt files are dropped and
// reported as misses.
func (s *Store) Get(key domain.TileKey) (*domain.Tile, bool, error) {
	if s.closed.Load() {
		return nil, false, domain.ErrStoreClosed
	}

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return nil, false, nil
	}
	s.seq++
	e.pins++
	e.access, e.seq = s.now(), s.seq
	s.dirty[key] = struct{}{}
	s.mu.Unlock()
	defer s.unpin(key)

	if tile, ok := s.hot.Get(key); ok {
		return tile, true, nil
	}

	path := s.path(key)
	lock := s.stripe(key)
	lock.Lock()
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the key
	lock.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.forget(key)
			return nil, false, nil
		}
		return nil, false, s.ioErr(err, "read tile", path)
	}

	tile, err := decodeTile(key, data)
	if err != nil {
		s.log.Warn("dropping corrupt cached tile " + key.String())
		s.drop(key)
		return nil, false, nil
	}

	s.hot.Add(key, tile)
	return tile, true, nil
}

func (s *Store) unpin(key domain.TileKey) {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok && e.pins > 0 {
		e.pins--
	}
	s.mu.Unlock()
}

// forget drops bookkeeping for a tile whose file is already gone.
func (s *Store) forget(key domain.TileKey) {
	s.mu.Lock()
	s.untrack(key)
	s.mu.Unlock()
	s.hot.Remove(key)
	if err := s.index.Delete(key); err != nil {
		s.log.Error(err)
	}
}

// drop removes a tile file and its bookkeeping.
func (s *Store) drop(key domain.TileKey) {
	lock := s.stripe(key)
	lock.Lock()
	_ = os.Remove(s.path(key))
	lock.Unlock()
	s.forget(key)
}

// Put writes tile to disk with an atomic replace. A failed write is retried
// once before ErrCacheIO is returned.
func (s *Store) Put(key domain.TileKey, tile *domain.Tile) error {
	if s.closed.Load() {
		return domain.ErrStoreClosed
	}

	data, err := encodeTile(tile)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to encode tile"), "key", key.String())
	}

	path := s.path(key)
	lock := s.stripe(key)
	lock.Lock()
	err = writeAtomic(path, data)
	if err != nil {
		s.log.Warn("retrying tile write " + key.String())
		err = writeAtomic(path, data)
	}
	if err != nil {
		lock.Unlock()
		return s.ioErr(err, "write tile", path)
	}

	// The file and its entry appear together for remove.
	size := int64(len(data))
	at := s.now()
	s.mu.Lock()
	s.track(key, size, at)
	delete(s.dirty, key)
	s.mu.Unlock()
	s.hot.Add(key, tile)
	lock.Unlock()

	if err := s.index.Upsert(domain.CacheEntry{Key: key, ByteSize: size, LastAccess: at}); err != nil {
		s.log.Error(err)
	}

	if s.opts.BudgetBytes > 0 && s.bytes.Load() > s.opts.BudgetBytes {
		if _, err := s.Reclaim(); err != nil {
			s.log.Error(err)
		}
	}
	return nil
}

// writeAtomic writes data to a temporary file next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tile-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Evict removes every unpinned entry matching pred.
func (s *Store) Evict(pred domain.EvictPredicate) (int, error) {
	if s.closed.Load() {
		return 0, domain.ErrStoreClosed
	}

	s.mu.Lock()
	var keys []domain.TileKey
	for key, e := range s.entries {
		if e.pins > 0 {
			continue
		}
		if pred(domain.CacheEntry{Key: key, ByteSize: e.size, LastAccess: e.access}) {
			keys = append(keys, key)
		}
	}
	s.mu.Unlock()

	return s.remove(keys)
}

// remove deletes keys from memory, disk and the index. Entries pinned after
// selection are skipped. Each key's stripe is held from untracking through the
// file removal so a concurrent Put lands either before or after it.
func (s *Store) remove(keys []domain.TileKey) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	removed := make([]domain.TileKey, 0, len(keys))
	var errs []error
	for _, key := range keys {
		path := s.path(key)
		lock := s.stripe(key)
		lock.Lock()

		s.mu.Lock()
		e, ok := s.entries[key]
		if !ok || e.pins > 0 {
			s.mu.Unlock()
			lock.Unlock()
			continue
		}
		s.untrack(key)
		s.mu.Unlock()
		s.hot.Remove(key)

		err := os.Remove(path)
		lock.Unlock()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, s.ioErr(err, "remove tile", path))
		}
		removed = append(removed, key)
	}

	if err := s.index.Delete(removed...); err != nil {
		errs = append(errs, err)
	}
	if err := s.reindex(removed); err != nil {
		errs = append(errs, err)
	}
	s.pruneDirs(removed)

	return len(removed), errors.Join(errs...)
}

// reindex restores index rows of removed keys that a Put cached again before
// the batch delete.
func (s *Store) reindex(removed []domain.TileKey) error {
	var back []domain.CacheEntry
	s.mu.Lock()
	for _, key := range removed {
		if e, ok := s.entries[key]; ok {
			back = append(back, domain.CacheEntry{Key: key, ByteSize: e.size, LastAccess: e.access})
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, ce := range back {
		if err := s.index.Upsert(ce); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pruneDirs removes fingerprint directories left without tiles.
func (s *Store) pruneDirs(removed []domain.TileKey) {
	seen := make(map[domain.Fingerprint]bool)
	for _, key := range removed {
		if seen[key.Fingerprint] {
			continue
		}
		seen[key.Fingerprint] = true

		s.mu.Lock()
		empty := true
		for lk := range s.levels {
			if lk.fp == key.Fingerprint {
				empty = false
				break
			}
		}
		s.mu.Unlock()
		if !empty {
			continue
		}
		// Only empty directories go, so a tile written meanwhile survives.
		dir := domain.FingerprintPath(s.opts.CacheDir, key.Fingerprint)
		levels, _ := os.ReadDir(dir)
		for _, level := range levels {
			_ = os.Remove(filepath.Join(dir, level.Name()))
		}
		_ = os.Remove(dir)
	}
}

// ClearAll removes every tile with a single directory removal.
func (s *Store) ClearAll() error {
	if s.closed.Load() {
		return domain.ErrStoreClosed
	}

	s.mu.Lock()
	clear(s.entries)
	clear(s.levels)
	clear(s.dirty)
	s.count.Store(0)
	s.bytes.Store(0)
	s.mu.Unlock()
	s.hot.Purge()

	var errs []error
	if err := s.index.Clear(); err != nil {
		errs = append(errs, err)
	}
	if err := os.RemoveAll(s.tilesDir); err != nil {
		errs = append(errs, s.ioErr(err, "clear tiles", s.tilesDir))
	}
	if err := os.MkdirAll(s.tilesDir, domain.DirPerm); err != nil {
		errs = append(errs, s.ioErr(err, "create tile directory", s.tilesDir))
	}
	return errors.Join(errs...)
}

// Stats returns the current totals.
func (s *Store) Stats() domain.CacheStats {
	return domain.CacheStats{
		TileCount:   s.count.Load(),
		TotalBytes:  s.bytes.Load(),
		BudgetBytes: s.opts.BudgetBytes,
	}
}

// LevelComplete reports whether at least want tiles of the level are cached.
func (s *Store) LevelComplete(fp domain.Fingerprint, level, want int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[levelKey{fp, level}] >= want
}

// Reclaim evicts least recently used, unpinned entries until the cache holds
// at most 90% of its budget. Only one pass runs at a time; concurrent calls
// return immediately.
func (s *Store) Reclaim() (int, error) {
	if s.opts.BudgetBytes <= 0 || s.bytes.Load() <= s.opts.BudgetBytes {
		return 0, nil
	}
	if !s.reclaiming.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer s.reclaiming.Store(false)

	target := int64(float64(s.opts.BudgetBytes) * reclaimTarget)

	type candidate struct {
		key  domain.TileKey
		size int64
		seq  uint64
	}

	s.mu.Lock()
	candidates := make([]candidate, 0, len(s.entries))
	for key, e := range s.entries {
		if e.pins == 0 {
			candidates = append(candidates, candidate{key: key, size: e.size, seq: e.seq})
		}
	}
	s.mu.Unlock()

	slices.SortFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(a.seq, b.seq)
	})

	excess := s.bytes.Load() - target
	var keys []domain.TileKey
	for _, c := range candidates {
		if excess <= 0 {
			break
		}
		keys = append(keys, c.key)
		excess -= c.size
	}

	return s.remove(keys)
}

// Close flushes pending access times and closes the index.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.stop)
	<-s.flushDone

	var errs []error
	if err := s.flush(); err != nil {
		errs = append(errs, err)
	}
	if err := s.index.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Store) ioErr(err error, op, path string) error {
	return zerr.With(zerr.Wrap(errors.Join(domain.ErrCacheIO, err), op), "path", path)
}
