package tilestore_test

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lithotile/internal/adapters/fs"
	"go.trai.ch/lithotile/internal/adapters/tilestore"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	log := mocks.NewMockLogger(gomock.NewController(t))
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()
	return log
}

func openStore(t *testing.T, opts tilestore.Options) *tilestore.Store {
	t.Helper()
	store, err := tilestore.Open(opts, fs.NewWalker(), quietLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func key(fp string, level, row, col int) domain.TileKey {
	return domain.TileKey{Fingerprint: domain.Fingerprint(fp), Level: level, Row: row, Col: col}
}

func solidTile(k domain.TileKey, shade uint8) *domain.Tile {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.SetRGBA(x, y, color.RGBA{R: shade, G: uint8(x * 16), B: uint8(y * 16), A: 255})
		}
	}
	return domain.NewTile(k, img)
}

func TestStore_PutGet(t *testing.T) {
	store := openStore(t, tilestore.Options{CacheDir: t.TempDir()})
	k := key("aa", 0, 1, 2)
	tile := solidTile(k, 40)

	require.NoError(t, store.Put(k, tile))
	assert.True(t, store.Has(k))

	got, ok, err := store.Get(k)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, tile.Equal(got))

	stats := store.Stats()
	assert.Equal(t, int64(1), stats.TileCount)
	assert.Positive(t, stats.TotalBytes)
}

func TestStore_Miss(t *testing.T) {
	store := openStore(t, tilestore.Options{CacheDir: t.TempDir()})

	got, ok, err := store.Get(key("aa", 0, 0, 0))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.False(t, store.Has(key("aa", 0, 0, 0)))
}

func TestStore_PutIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, tilestore.Options{CacheDir: dir})
	k := key("aa", 0, 0, 0)

	require.NoError(t, store.Put(k, solidTile(k, 1)))
	first := store.Stats()
	require.NoError(t, store.Put(k, solidTile(k, 1)))
	assert.Equal(t, first, store.Stats())

	// Last writer wins.
	replacement := solidTile(k, 200)
	require.NoError(t, store.Put(k, replacement))
	assert.Equal(t, int64(1), store.Stats().TileCount)

	got, ok, err := store.Get(k)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, replacement.Equal(got))

	_, err = os.Stat(domain.TilePath(dir, k))
	require.NoError(t, err)
}

func TestStore_ClearAll(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, tilestore.Options{CacheDir: dir})
	for col := range 3 {
		k := key("aa", 0, 0, col)
		require.NoError(t, store.Put(k, solidTile(k, 9)))
	}

	require.NoError(t, store.ClearAll())

	stats := store.Stats()
	assert.Zero(t, stats.TileCount)
	assert.Zero(t, stats.TotalBytes)
	assert.False(t, store.Has(key("aa", 0, 0, 0)))

	entries, err := os.ReadDir(domain.TilesPath(dir))
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The store stays usable.
	k := key("bb", 0, 0, 0)
	require.NoError(t, store.Put(k, solidTile(k, 1)))
	assert.True(t, store.Has(k))
}

func TestStore_EvictFingerprint(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, tilestore.Options{CacheDir: dir})
	for _, k := range []domain.TileKey{key("aa", 0, 0, 0), key("aa", 1, 0, 0), key("bb", 0, 0, 0)} {
		require.NoError(t, store.Put(k, solidTile(k, 3)))
	}

	removed, err := store.Evict(domain.ForFingerprint("aa"))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.False(t, store.Has(key("aa", 0, 0, 0)))
	assert.True(t, store.Has(key("bb", 0, 0, 0)))
	assert.Equal(t, int64(1), store.Stats().TileCount)

	_, err = os.Stat(domain.FingerprintPath(dir, "aa"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_EvictSkipsPinned(t *testing.T) {
	store := openStore(t, tilestore.Options{CacheDir: t.TempDir()})
	k := key("aa", 0, 0, 0)
	require.NoError(t, store.Put(k, solidTile(k, 3)))

	release := store.Pin(k)
	removed, err := store.Evict(domain.ForFingerprint("aa"))
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.True(t, store.Has(k))

	release()
	removed, err = store.Evict(domain.ForFingerprint("aa"))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestStore_LevelComplete(t *testing.T) {
	store := openStore(t, tilestore.Options{CacheDir: t.TempDir()})
	require.NoError(t, store.Put(key("aa", 2, 0, 0), solidTile(key("aa", 2, 0, 0), 1)))
	assert.False(t, store.LevelComplete("aa", 2, 2))

	require.NoError(t, store.Put(key("aa", 2, 0, 1), solidTile(key("aa", 2, 0, 1), 1)))
	assert.True(t, store.LevelComplete("aa", 2, 2))
	assert.False(t, store.LevelComplete("aa", 1, 1))
	assert.False(t, store.LevelComplete("bb", 2, 1))
}

func TestStore_ReclaimLRU(t *testing.T) {
	// All tiles have equal pixels, so equal encoded sizes.
	probe := openStore(t, tilestore.Options{CacheDir: t.TempDir()})
	require.NoError(t, probe.Put(key("p", 0, 0, 0), solidTile(key("p", 0, 0, 0), 5)))
	size := probe.Stats().TotalBytes

	store := openStore(t, tilestore.Options{CacheDir: t.TempDir(), BudgetBytes: 4 * size})
	keys := make([]domain.TileKey, 5)
	for i := range keys {
		keys[i] = key("aa", 0, 0, i)
	}
	for _, k := range keys[:4] {
		require.NoError(t, store.Put(k, solidTile(k, 5)))
	}

	// Touch the oldest entry so it becomes the most recent.
	_, ok, err := store.Get(keys[0])
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Put(keys[4], solidTile(keys[4], 5)))

	// 5 tiles over a budget of 4 evicts down to 3.6 tiles: the two least recent go.
	assert.Equal(t, int64(3), store.Stats().TileCount)
	assert.LessOrEqual(t, store.Stats().TotalBytes, 4*size*9/10)
	assert.True(t, store.Has(keys[0]))
	assert.False(t, store.Has(keys[1]))
	assert.False(t, store.Has(keys[2]))
	assert.True(t, store.Has(keys[3]))
	assert.True(t, store.Has(keys[4]))

	removed, err := store.Reclaim()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	opts := tilestore.Options{CacheDir: dir, FlushInterval: time.Hour}
	k := key("aa", 0, 0, 0)
	tile := solidTile(k, 77)

	first, err := tilestore.Open(opts, fs.NewWalker(), quietLogger(t))
	require.NoError(t, err)
	require.NoError(t, first.Put(k, tile))
	require.NoError(t, first.Close())

	second := openStore(t, opts)
	assert.True(t, second.Has(k))
	assert.Equal(t, int64(1), second.Stats().TileCount)

	got, ok, err := second.Get(k)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, tile.Equal(got))
}

func TestStore_RebuildsMissingIndex(t *testing.T) {
	dir := t.TempDir()
	opts := tilestore.Options{CacheDir: dir}

	first, err := tilestore.Open(opts, fs.NewWalker(), quietLogger(t))
	require.NoError(t, err)
	for row := range 2 {
		k := key("cc", 1, row, 0)
		require.NoError(t, first.Put(k, solidTile(k, 1)))
	}
	bytes := first.Stats().TotalBytes
	require.NoError(t, first.Close())

	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(domain.IndexPath(dir) + suffix)
	}

	second := openStore(t, opts)
	assert.Equal(t, int64(2), second.Stats().TileCount)
	assert.Equal(t, bytes, second.Stats().TotalBytes)
	assert.True(t, second.LevelComplete("cc", 1, 2))
}

func TestStore_CorruptTileIsAMiss(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, tilestore.Options{CacheDir: dir})
	k := key("aa", 0, 0, 0)
	require.NoError(t, store.Put(k, solidTile(k, 1)))

	// Reopen so the memory cache is cold, then damage the file.
	require.NoError(t, store.Close())
	require.NoError(t, os.WriteFile(domain.TilePath(dir, k), []byte("garbage"), domain.FilePerm))
	reopened := openStore(t, tilestore.Options{CacheDir: dir})

	got, ok, err := reopened.Get(k)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.False(t, reopened.Has(k))
}

func TestStore_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, tilestore.Options{CacheDir: dir})

	// A file where the fingerprint directory should be blocks every write.
	require.NoError(t, os.WriteFile(domain.FingerprintPath(dir, "blocked"), nil, domain.FilePerm))

	k := key("blocked", 0, 0, 0)
	err := store.Put(k, solidTile(k, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCacheIO)
	assert.False(t, store.Has(k))
}

func TestStore_ConcurrentSameKey(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, tilestore.Options{CacheDir: dir})
	k := key("aa", 0, 0, 0)
	tile := solidTile(k, 128)

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			assert.NoError(t, store.Put(k, tile))
			_, _, err := store.Get(k)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	got, ok, err := store.Get(k)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, tile.Equal(got))
	assert.Equal(t, int64(1), store.Stats().TileCount)

	// No temporary files are left behind.
	files, err := filepath.Glob(filepath.Join(filepath.Dir(domain.TilePath(dir, k)), ".tile-*"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStore_PutRacingEvictKeepsFileAndEntryTogether(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, tilestore.Options{CacheDir: dir})
	keys := []domain.TileKey{key("aa", 0, 0, 0), key("aa", 0, 0, 1), key("aa", 1, 0, 0)}

	for range 50 {
		var wg sync.WaitGroup
		for _, k := range keys {
			wg.Go(func() {
				assert.NoError(t, store.Put(k, solidTile(k, 9)))
			})
		}
		wg.Go(func() {
			_, err := store.Evict(domain.ForFingerprint("aa"))
			assert.NoError(t, err)
		})
		wg.Wait()

		var count int64
		for _, k := range keys {
			_, err := os.Stat(domain.TilePath(dir, k))
			exists := err == nil
			require.Equal(t, exists, store.Has(k), "tile %s", k)
			if exists {
				count++
			}
		}
		require.Equal(t, count, store.Stats().TileCount)
	}
}

func TestStore_Closed(t *testing.T) {
	store, err := tilestore.Open(tilestore.Options{CacheDir: t.TempDir()}, fs.NewWalker(), quietLogger(t))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	k := key("aa", 0, 0, 0)
	assert.ErrorIs(t, store.Put(k, solidTile(k, 1)), domain.ErrStoreClosed)
	_, _, err = store.Get(k)
	assert.ErrorIs(t, err, domain.ErrStoreClosed)
}

func TestParseTilePath(t *testing.T) {
	root := filepath.Join("cache", "tiles")
	k := key("0123456789abcdef", 3, 10, 7)

	got, ok := tilestore.ParseTilePath(root, domain.TilePath("cache", k))
	require.True(t, ok)
	assert.Equal(t, k, got)

	for _, bad := range []string{
		filepath.Join(root, "fp", "x", "1_1.png"),
		filepath.Join(root, "fp", "0", "1-1.png"),
		filepath.Join(root, "fp", "0", "1_1.jpg"),
		filepath.Join(root, "fp", "1_1.png"),
	} {
		_, ok := tilestore.ParseTilePath(root, bad)
		assert.False(t, ok, bad)
	}
}
