package router_test

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.trai.ch/lithotile/internal/adapters/telemetry"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports/mocks"
	"go.trai.ch/lithotile/internal/engine/router"
	"go.uber.org/mock/gomock"
)

type memStore struct {
	mu    sync.Mutex
	tiles map[domain.TileKey]*domain.Tile
}

func newMemStore() *memStore {
	return &memStore{tiles: make(map[domain.TileKey]*domain.Tile)}
}

func (m *memStore) Has(key domain.TileKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tiles[key]
	return ok
}

func (m *memStore) Get(key domain.TileKey) (*domain.Tile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tiles[key]
	return t, ok, nil
}

func (m *memStore) Put(key domain.TileKey, tile *domain.Tile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiles[key] = tile
	return nil
}

func (m *memStore) Evict(domain.EvictPredicate) (int, error) { return 0, nil }

func (m *memStore) ClearAll() error { return nil }

func (m *memStore) Stats() domain.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CacheStats{TileCount: int64(len(m.tiles))}
}

func (m *memStore) LevelComplete(domain.Fingerprint, int, int) bool { return false }

func (m *memStore) Reclaim() (int, error) { return 0, nil }

func (m *memStore) Close() error { return nil }

func (m *memStore) fill(d domain.PyramidDescriptor, levels ...int) {
	for key := range d.TileKeys(levels...) {
		_ = m.Put(key, blankTile(d, key))
	}
}

// blankTile returns a tile with the key's real dimensions.
func blankTile(d domain.PyramidDescriptor, key domain.TileKey) *domain.Tile {
	r, err := d.TileRect(key.Level, key.Row, key.Col)
	if err != nil {
		r = image.Rect(0, 0, 1, 1)
	}
	return domain.NewTile(key, image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())))
}

type fixture struct {
	builder *mocks.MockPyramidBuilder
	log     *mocks.MockLogger
	store   *memStore
	calls   atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		builder: mocks.NewMockPyramidBuilder(ctrl),
		log:     mocks.NewMockLogger(ctrl),
		store:   newMemStore(),
	}
	f.builder.EXPECT().Describe(gomock.Any()).DoAndReturn(func(src domain.SourceImage) (domain.PyramidDescriptor, error) {
		return domain.Describe(src.Fingerprint, src.Width, src.Height, 256, 0.5)
	}).AnyTimes()
	f.log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return f
}

// router creates a router with a 12ms frame budget and an 8ms build deadline.
func (f *fixture) router(t *testing.T) *router.Router {
	t.Helper()
	r := router.New(f.builder, f.store, telemetry.Discard(), f.log, router.Options{
		FrameBudget:      12 * time.Millisecond,
		BuildDeadline:    8 * time.Millisecond,
		BackfillWorkers:  2,
		BackfillQueue:    64,
		MinOverlayPixels: 8,
	})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func (f *fixture) image(path, fp string, w, h int) domain.PyramidDescriptor {
	src := domain.SourceImage{Path: path, Fingerprint: domain.Fingerprint(fp), Width: w, Height: h}
	f.builder.EXPECT().Source(gomock.Any(), path).Return(src, nil).AnyTimes()
	d, _ := domain.Describe(src.Fingerprint, w, h, 256, 0.5)
	return d
}

// buildAfter makes every BuildTile call take delay.
func (f *fixture) buildAfter(delay time.Duration) {
	f.builder.EXPECT().BuildTile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, src domain.SourceImage, level, row, col int) (*domain.Tile, error) {
			f.calls.Add(1)
			if delay > 0 {
				time.Sleep(delay)
			}
			d, _ := domain.Describe(src.Fingerprint, src.Width, src.Height, 256, 0.5)
			return blankTile(d, d.Key(level, row, col)), nil
		}).AnyTimes()
}

func root(id string) *domain.OverlayNode {
	return &domain.OverlayNode{ImageID: id, Path: id + ".png", Scale: 1, Opacity: 1, Visible: true}
}

func countKinds(frame domain.Frame) map[domain.TileKind]int {
	out := make(map[domain.TileKind]int)
	for _, rt := range frame.Tiles {
		out[rt.Kind]++
	}
	return out
}
