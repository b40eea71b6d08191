package domain

import "strings"

// JobStatus is the lifecycle state of a preparation job.
type JobStatus string

const (
	// JobPending indicates the job is queued.
	JobPending JobStatus = "pending"
	// JobRunning indicates tiles are being built.
	JobRunning JobStatus = "running"
	// JobDone indicates every required tile is cached.
	JobDone JobStatus = "done"
	// JobFailed indicates the image could not be prepared.
	JobFailed JobStatus = "failed"
	// JobCancelled indicates the batch was cancelled before the job finished.
	JobCancelled JobStatus = "cancelled"
	// JobCached indicates the required tiles were already present.
	JobCached JobStatus = "cached"
)

// IsTerminal reports whether the job can no longer change state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobDone, JobFailed, JobCancelled, JobCached:
		return true
	default:
		return false
	}
}

// NormalizeJobStatus converts a string to a JobStatus, defaulting to pending if unknown.
func NormalizeJobStatus(s string) JobStatus {
	switch st := JobStatus(strings.ToLower(s)); st {
	case JobPending, JobRunning, JobDone, JobFailed, JobCancelled, JobCached:
		return st
	default:
		return JobPending
	}
}

// ImageRequest asks for one source image to be prepared.
type ImageRequest struct {
	Path string
	// Name is shown in progress reports; the file name is used when empty.
	Name string
}

// PreparationJob tracks the pyramid preparation of one source image.
type PreparationJob struct {
	ID             int         `json:"id"`
	Name           string      `json:"name"`
	Source         SourceImage `json:"source"`
	Levels         []int       `json:"levels"`
	Status         JobStatus   `json:"status"`
	CompletedTiles int         `json:"completed_tiles"`
	TotalTiles     int         `json:"total_tiles"`
	Err            error       `json:"-"`
}

// BatchResult summarizes a preparation batch.
type BatchResult struct {
	Prepared  int              `json:"prepared"`
	Cached    int              `json:"cached"`
	Failed    int              `json:"failed"`
	Cancelled int              `json:"cancelled"`
	Total     int              `json:"total"`
	Jobs      []PreparationJob `json:"jobs,omitempty"`
}

// Progress is the UI-facing state of a running batch.
type Progress struct {
	TotalImages        int    `json:"total_images"`
	CompletedImages    int    `json:"completed_images"`
	CurrentImageName   string `json:"current_image_name"`
	IsPreparationPhase bool   `json:"is_preparation_phase"`
}
