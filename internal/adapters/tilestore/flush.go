package tilestore

import (
	"time"

	"go.trai.ch/lithotile/internal/core/domain"
)

// flushLoop persists batched access-time updates every FlushInterval.
func (s *Store) flushLoop() {
	defer close(s.flushDone)

	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.flush(); err != nil {
				s.log.Error(err)
			}
		}
	}
}

func (s *Store) flush() error {
	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := make([]domain.CacheEntry, 0, len(s.dirty))
	for key := range s.dirty {
		if e, ok := s.entries[key]; ok {
			batch = append(batch, domain.CacheEntry{Key: key, ByteSize: e.size, LastAccess: e.access})
		}
	}
	clear(s.dirty)
	s.mu.Unlock()

	return s.index.Upsert(batch...)
}
