package tui

import "go.trai.ch/lithotile/internal/core/domain"

// MsgProgress carries one progress event of the running batch.
type MsgProgress struct {
	Progress domain.Progress
}

// MsgFeedEnded is sent when the progress feed has been closed.
type MsgFeedEnded struct{}

// MsgBatchDone is sent once the batch has returned.
type MsgBatchDone struct {
	Result domain.BatchResult
	Err    error
}
