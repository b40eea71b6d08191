package fs_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lithotile/internal/adapters/fs"
	"go.trai.ch/lithotile/internal/core/domain"
)

func TestResolver_ResolveImages(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "slides/a.tif", "slides/b.png", "slides/readme.txt", "extra/c.ppm", "single.raw")

	resolver := fs.NewResolver(fs.NewWalker())

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "directory expands to images",
			patterns: []string{"slides"},
			want: []string{
				filepath.Join(root, "slides", "a.tif"),
				filepath.Join(root, "slides", "b.png"),
			},
		},
		{
			name:     "glob",
			patterns: []string{"*/*.p*m"},
			want:     []string{filepath.Join(root, "extra", "c.ppm")},
		},
		{
			name:     "explicit file kept regardless of extension",
			patterns: []string{"single.raw"},
			want:     []string{filepath.Join(root, "single.raw")},
		},
		{
			name:     "duplicates collapse",
			patterns: []string{"slides/a.tif", "slides", filepath.Join(root, "slides", "a.tif")},
			want: []string{
				filepath.Join(root, "slides", "a.tif"),
				filepath.Join(root, "slides", "b.png"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.ResolveImages(tt.patterns, root)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_ResolveImages_Errors(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "docs/readme.txt")
	resolver := fs.NewResolver(fs.NewWalker())

	_, err := resolver.ResolveImages([]string{"missing.tif"}, root)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	_, err = resolver.ResolveImages([]string{"docs"}, root)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoImages)

	_, err = resolver.ResolveImages([]string{"[bad"}, root)
	require.Error(t, err)
}
