package ports

import "go.trai.ch/lithotile/internal/core/domain"

//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// TileStore is the persistent tile cache.
type TileStore interface {
	// Has reports whether a tile is cached without touching its access time.
	Has(key domain.TileKey) bool
	// Get returns a cached tile. A hit refreshes the entry's access time.
	// A miss returns (nil, false, nil).
	Get(key domain.TileKey) (*domain.Tile, bool, error)
	// Put stores a tile, atomically replacing any previous one.
	Put(key domain.TileKey, tile *domain.Tile) error
	// Evict removes every entry matching pred and returns how many were removed.
	Evict(pred domain.EvictPredicate) (int, error)
	// ClearAll empties the cache.
	ClearAll() error
	// Stats returns tile count and byte totals.
	Stats() domain.CacheStats
	// LevelComplete reports whether want tiles of a level are cached.
	LevelComplete(fp domain.Fingerprint, level, want int) bool
	// Reclaim evicts least recently used entries until the cache fits its budget.
	Reclaim() (int, error)
	// Close flushes pending bookkeeping and releases the store.
	Close() error
}

// CacheIndex persists cache bookkeeping across restarts.
type CacheIndex interface {
	// Load returns every recorded entry.
	Load() ([]domain.CacheEntry, error)
	// Upsert records entries, replacing existing ones.
	Upsert(entries ...domain.CacheEntry) error
	// Delete forgets entries.
	Delete(keys ...domain.TileKey) error
	// Clear forgets every entry.
	Clear() error
	// Close releases the index.
	Close() error
}
