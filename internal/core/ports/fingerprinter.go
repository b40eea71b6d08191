package ports

import "go.trai.ch/lithotile/internal/core/domain"

//go:generate go run go.uber.org/mock/mockgen -source=fingerprinter.go -destination=mocks/mock_fingerprinter.go -package=mocks

// Fingerprinter identifies the content state of source files.
type Fingerprinter interface {
	// Fingerprint stats and hashes the file. The returned SourceImage carries
	// path, size, mtime and fingerprint; dimensions are left zero.
	Fingerprint(path string) (domain.SourceImage, error)
	// Invalidate drops any memoized fingerprint for path.
	Invalidate(path string)
}
