package fs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lithotile/internal/adapters/fs"
	"go.trai.ch/lithotile/internal/core/domain"
)

func writeSource(t *testing.T, path string, data []byte, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, domain.PrivateFilePerm))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestFingerprinter_Stable(t *testing.T) {
	for _, mode := range []string{domain.FingerprintStat, domain.FingerprintSampled, domain.FingerprintContent} {
		t.Run(mode, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "slide.ppm")
			mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			writeSource(t, path, []byte("P6 1 1 255 abc"), mtime)

			fp := fs.NewFingerprinter(mode)
			a, err := fp.Fingerprint(path)
			require.NoError(t, err)
			assert.Len(t, a.Fingerprint.String(), 16)
			assert.Equal(t, int64(14), a.Size)
			assert.True(t, a.ModTime.Equal(mtime))
			assert.Zero(t, a.Width)

			b, err := fs.NewFingerprinter(mode).Fingerprint(path)
			require.NoError(t, err)
			assert.Equal(t, a.Fingerprint, b.Fingerprint)
		})
	}
}

func TestFingerprinter_ModesDiffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slide.ppm")
	writeSource(t, path, []byte("pixels"), time.Unix(1_700_000_000, 0))

	stat, err := fs.NewFingerprinter(domain.FingerprintStat).Fingerprint(path)
	require.NoError(t, err)
	sampled, err := fs.NewFingerprinter(domain.FingerprintSampled).Fingerprint(path)
	require.NoError(t, err)

	assert.NotEqual(t, stat.Fingerprint, sampled.Fingerprint)
}

func TestFingerprinter_ChangeDetection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slide.ppm")
	mtime := time.Unix(1_700_000_000, 0)
	writeSource(t, path, []byte("version one"), mtime)

	fp := fs.NewFingerprinter(domain.FingerprintSampled)
	first, err := fp.Fingerprint(path)
	require.NoError(t, err)

	t.Run("same stamp is memoized", func(t *testing.T) {
		// Same length and mtime: the memo answers without re-reading content.
		writeSource(t, path, []byte("version two"), mtime)
		again, err := fp.Fingerprint(path)
		require.NoError(t, err)
		assert.Equal(t, first.Fingerprint, again.Fingerprint)
	})

	t.Run("invalidate forces recompute", func(t *testing.T) {
		fp.Invalidate(path)
		fresh, err := fp.Fingerprint(path)
		require.NoError(t, err)
		assert.NotEqual(t, first.Fingerprint, fresh.Fingerprint)
	})

	t.Run("mtime change recomputes", func(t *testing.T) {
		before, err := fp.Fingerprint(path)
		require.NoError(t, err)

		writeSource(t, path, []byte("version two"), mtime.Add(time.Minute))
		after, err := fp.Fingerprint(path)
		require.NoError(t, err)
		assert.NotEqual(t, before.Fingerprint, after.Fingerprint)
	})
}

func TestFingerprinter_ContentModeIgnoresPath(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ppm")
	b := filepath.Join(dir, "b.ppm")
	writeSource(t, a, []byte("identical"), time.Unix(1, 0))
	writeSource(t, b, []byte("identical"), time.Unix(2, 0))

	fp := fs.NewFingerprinter(domain.FingerprintContent)
	fa, err := fp.Fingerprint(a)
	require.NoError(t, err)
	fb, err := fp.Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa.Fingerprint, fb.Fingerprint)
}

func TestFingerprinter_SampledLargeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.pgm")
	data := make([]byte, 4*fs.SampleSize)
	mtime := time.Unix(1_700_000_000, 0)
	writeSource(t, path, data, mtime)

	fp := fs.NewFingerprinter(domain.FingerprintSampled)
	before, err := fp.Fingerprint(path)
	require.NoError(t, err)

	// A change inside the middle sample is detected even with the same stamp.
	data[2*fs.SampleSize] = 1
	writeSource(t, path, data, mtime)
	fp.Invalidate(path)
	after, err := fp.Fingerprint(path)
	require.NoError(t, err)
	assert.NotEqual(t, before.Fingerprint, after.Fingerprint)
}

func TestFingerprinter_Errors(t *testing.T) {
	fp := fs.NewFingerprinter(domain.FingerprintSampled)

	_, err := fp.Fingerprint(filepath.Join(t.TempDir(), "missing.tif"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)

	_, err = fp.Fingerprint(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestComputeFileHash(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("same"), domain.PrivateFilePerm))
	require.NoError(t, os.WriteFile(b, []byte("same"), domain.PrivateFilePerm))

	ha, err := fs.ComputeFileHash(a)
	require.NoError(t, err)
	hb, err := fs.ComputeFileHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	_, err = fs.ComputeFileHash(filepath.Join(dir, "none"))
	assert.Error(t, err)
}
