package tilestore

import "go.trai.ch/lithotile/internal/core/domain"

// Pin holds key as if a read were in progress and returns the release func.
func (s *Store) Pin(key domain.TileKey) func() {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		e.pins++
	}
	s.mu.Unlock()
	return func() { s.unpin(key) }
}

// ParseTilePath exposes parseTilePath for tests.
var ParseTilePath = parseTilePath
