package domain

import "time"

// CacheEntry is the bookkeeping record of one cached tile.
type CacheEntry struct {
	Key        TileKey   `json:"key"`
	ByteSize   int64     `json:"byte_size"`
	LastAccess time.Time `json:"last_access"`
}

// CacheStats summarizes the tile cache.
type CacheStats struct {
	TileCount   int64 `json:"tile_count"`
	TotalBytes  int64 `json:"total_bytes"`
	BudgetBytes int64 `json:"budget_bytes,omitzero"`
}

// EvictPredicate selects cache entries for removal.
type EvictPredicate func(CacheEntry) bool

// ForFingerprint selects every entry of one source state.
func ForFingerprint(fp Fingerprint) EvictPredicate {
	return func(e CacheEntry) bool {
		return e.Key.Fingerprint == fp
	}
}

// AccessedBefore selects entries not read since t.
func AccessedBefore(t time.Time) EvictPredicate {
	return func(e CacheEntry) bool {
		return e.LastAccess.Before(t)
	}
}

// ExceptFingerprints selects entries whose fingerprint is not in keep.
func ExceptFingerprints(keep ...Fingerprint) EvictPredicate {
	set := make(map[Fingerprint]struct{}, len(keep))
	for _, fp := range keep {
		set[fp] = struct{}{}
	}
	return func(e CacheEntry) bool {
		_, ok := set[e.Key.Fingerprint]
		return !ok
	}
}
