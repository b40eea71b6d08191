package decoder

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Decoder = (*Registry)(nil)

// backend is one format family of the registry.
type backend interface {
	ports.Decoder
	// Sniff reports whether the file header belongs to the backend.
	Sniff(header []byte) bool
}

// Registry dispatches to backends by file extension, falling back to content sniffing.
type Registry struct {
	backends []backend
}

// New creates a Registry with every backend compiled into the binary.
func New(opts Options) *Registry {
	return &Registry{backends: backends(opts)}
}

// CanOpen reports whether any backend recognizes the file name.
func (r *Registry) CanOpen(path string) bool {
	for _, b := range r.backends {
		if b.CanOpen(path) {
			return true
		}
	}
	return false
}

// Open opens path with the first backend claiming its extension, or the first
// backend recognizing its header.
func (r *Registry) Open(ctx context.Context, path string) (ports.ImageHandle, error) {
	for _, b := range r.backends {
		if b.CanOpen(path) {
			return b.Open(ctx, path)
		}
	}

	header, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	for _, b := range r.backends {
		if b.Sniff(header) {
			return b.Open(ctx, path)
		}
	}
	return nil, zerr.With(zerr.Wrap(domain.ErrUnsupportedFormat, "open image"), "path", path)
}

const headerSize = 512

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		if os.IsNotExist(err) {
			return nil, zerr.With(zerr.Wrap(domain.ErrSourceNotFound, "open image"), "path", path)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to open image"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	buf := make([]byte, headerSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && n == 0 {
		return nil, corrupt(path, err)
	}
	return buf[:n], nil
}

func hasExt(path string, exts ...string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
}

func hasPrefix(header []byte, prefixes ...string) bool {
	for _, p := range prefixes {
		if bytes.HasPrefix(header, []byte(p)) {
			return true
		}
	}
	return false
}
