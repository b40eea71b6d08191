package tilestore

import (
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/lithotile/internal/core/domain"
)

// Walker enumerates the tile files below a tile tree.
type Walker interface {
	WalkTiles(root string) iter.Seq[string]
}

// rebuild repopulates the index from the tile tree. File modification times
// stand in for access times.
func (s *Store) rebuild(walker Walker) error {
	var entries []domain.CacheEntry
	for path := range walker.WalkTiles(s.tilesDir) {
		key, ok := parseTilePath(s.tilesDir, path)
		if !ok {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		entries = append(entries, domain.CacheEntry{Key: key, ByteSize: info.Size(), LastAccess: info.ModTime()})
	}

	if err := s.index.Clear(); err != nil {
		return err
	}
	if err := s.index.Upsert(entries...); err != nil {
		return err
	}
	if len(entries) > 0 {
		s.log.Info("rebuilt tile index with " + strconv.Itoa(len(entries)) + " entries")
	}

	for _, e := range entries {
		s.track(e.Key, e.ByteSize, e.LastAccess)
	}
	return nil
}

// parseTilePath inverts domain.TilePath for files below tilesDir.
func parseTilePath(tilesDir, path string) (domain.TileKey, bool) {
	rel, err := filepath.Rel(tilesDir, path)
	if err != nil {
		return domain.TileKey{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 || parts[0] == "" {
		return domain.TileKey{}, false
	}

	level, err := strconv.Atoi(parts[1])
	if err != nil || level < 0 {
		return domain.TileKey{}, false
	}

	name, ok := strings.CutSuffix(parts[2], domain.TileExt)
	if !ok {
		return domain.TileKey{}, false
	}
	rowText, colText, ok := strings.Cut(name, "_")
	if !ok {
		return domain.TileKey{}, false
	}
	row, errRow := strconv.Atoi(rowText)
	col, errCol := strconv.Atoi(colText)
	if errRow != nil || errCol != nil || row < 0 || col < 0 {
		return domain.TileKey{}, false
	}

	return domain.TileKey{Fingerprint: domain.Fingerprint(parts[0]), Level: level, Row: row, Col: col}, true
}
