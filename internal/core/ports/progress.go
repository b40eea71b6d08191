package ports

import "go.trai.ch/lithotile/internal/core/domain"

//go:generate go run go.uber.org/mock/mockgen -source=progress.go -destination=mocks/mock_progress.go -package=mocks

// ProgressSink receives batch progress, once per finished image.
type ProgressSink interface {
	Publish(p domain.Progress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(domain.Progress)

// Publish calls f(p).
func (f ProgressFunc) Publish(p domain.Progress) {
	f(p)
}
