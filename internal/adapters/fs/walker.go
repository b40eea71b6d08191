// Package fs provides file system adapters for walking, resolving and fingerprinting files.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/lithotile/internal/core/domain"
)

// ImageExtensions lists the file extensions treated as source images.
var ImageExtensions = []string{
	".bmp", ".gif", ".jpeg", ".jpg", ".pgm", ".png", ".pnm", ".ppm", ".tif", ".tiff", ".webp",
}

// Walker enumerates regular files in a directory tree in lexical order.
// Dot entries are never visited: they hold editor swap files, thumbnails and
// the store's in-flight tile writes.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// Walk yields the files below root accepted by keep. A nil keep accepts all.
// An unreadable root yields nothing.
func (w *Walker) Walk(root string, keep func(path string) bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			switch {
			case err != nil:
				return err
			case path != root && strings.HasPrefix(d.Name(), "."):
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			case !d.Type().IsRegular():
				return nil
			case keep != nil && !keep(path):
				return nil
			case !yield(path):
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// WalkImages yields the source images below root.
func (w *Walker) WalkImages(root string) iter.Seq[string] {
	return w.Walk(root, IsImagePath)
}

// WalkTiles yields the cached tile files below a tile tree root.
func (w *Walker) WalkTiles(root string) iter.Seq[string] {
	return w.Walk(root, func(path string) bool {
		return filepath.Ext(path) == domain.TileExt
	})
}

// IsImagePath reports whether path has a known image extension.
func IsImagePath(path string) bool {
	return slices.Contains(ImageExtensions, strings.ToLower(filepath.Ext(path)))
}
