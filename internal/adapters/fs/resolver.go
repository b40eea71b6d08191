package fs

import (
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ImageResolver = (*Resolver)(nil)

// Resolver implements the ImageResolver interface using filepath.Glob and the Walker.
type Resolver struct {
	walker *Walker
}

// NewResolver creates a new Resolver.
func NewResolver(walker *Walker) *Resolver {
	return &Resolver{walker: walker}
}

// ResolveImages resolves the given patterns to a list of concrete image paths.
// Directories expand to the images below them; explicit files are kept even
// when their extension is unknown so the decoder can report them.
func (r *Resolver) ResolveImages(patterns []string, root string) ([]string, error) {
	unique := make(map[string]bool)

	for _, pattern := range patterns {
		path := pattern
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, pattern)
		}

		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "path", path)
		}
		if len(matches) == 0 {
			return nil, zerr.With(zerr.Wrap(domain.ErrSourceNotFound, "resolve images"), "path", path)
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, "failed to stat path"), "path", match)
			}
			if !info.IsDir() {
				unique[match] = true
				continue
			}
			for img := range r.walker.WalkImages(match) {
				unique[img] = true
			}
		}
	}

	if len(unique) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrNoImages, "resolve images"), "root", root)
	}

	result := make([]string, 0, len(unique))
	for path := range unique {
		result = append(result, path)
	}
	slices.Sort(result)

	return result, nil
}
