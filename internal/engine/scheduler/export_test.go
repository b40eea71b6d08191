package scheduler

import (
	"maps"

	"go.trai.ch/lithotile/internal/core/domain"
)

// GetJobStatusMap returns a copy of the internal job status map.
// This is exported for testing purposes only.
func (s *Scheduler) GetJobStatusMap() map[int]domain.JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.jobStatus)
}
