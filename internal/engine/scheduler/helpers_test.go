package scheduler_test

import (
	"context"
	"image"
	"sync"
	"testing"

	"go.trai.ch/lithotile/internal/adapters/telemetry"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/lithotile/internal/core/ports/mocks"
	"go.trai.ch/lithotile/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

// memStore is an in-memory tile store.
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

func (m *memStore) Evict(pred domain.EvictPredicate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.tiles {
		if pred(domain.CacheEntry{Key: k}) {
			delete(m.tiles, k)
			n++
		}
	}
	return n, nil
}

func (m *memStore) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.tiles)
	return nil
}

func (m *memStore) Stats() domain.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CacheStats{TileCount: int64(len(m.tiles))}
}

func (m *memStore) LevelComplete(fp domain.Fingerprint, level, want int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.tiles {
		if k.Fingerprint == fp && k.Level == level {
			n++
		}
	}
	return n >= want
}

func (m *memStore) Reclaim() (int, error) { return 0, nil }

func (m *memStore) Close() error { return nil }

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tiles)
}

// fill caches every tile of the given levels.
func (m *memStore) fill(d domain.PyramidDescriptor, levels ...int) {
	for key := range d.TileKeys(levels...) {
		_ = m.Put(key, blankTile(key))
	}
}

func blankTile(key domain.TileKey) *domain.Tile {
	return domain.NewTile(key, image.NewRGBA(image.Rect(0, 0, 1, 1)))
}

type fixture struct {
	ctrl    *gomock.Controller
	builder *mocks.MockPyramidBuilder
	log     *mocks.MockLogger
	store   *memStore
	sched   *scheduler.Scheduler
}

func newFixture(t *testing.T, workers int) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		ctrl:    ctrl,
		builder: mocks.NewMockPyramidBuilder(ctrl),
		log:     mocks.NewMockLogger(ctrl),
		store:   newMemStore(),
	}
	f.builder.EXPECT().Describe(gomock.Any()).DoAndReturn(func(src domain.SourceImage) (domain.PyramidDescriptor, error) {
		return domain.Describe(src.Fingerprint, src.Width, src.Height, 256, 0.5)
	}).AnyTimes()
	f.log.EXPECT().Warn(gomock.Any()).AnyTimes()

	vertex := mocks.NewMockVertex(ctrl)
	vertex.EXPECT().Cached().AnyTimes()
	vertex.EXPECT().Complete(gomock.Any()).AnyTimes()
	vertex.EXPECT().Log(gomock.Any(), gomock.Any()).AnyTimes()
	tel := mocks.NewMockTelemetry(ctrl)
	tel.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ string) (context.Context, ports.Vertex) {
		return ctx, vertex
	}).AnyTimes()

	f.sched = scheduler.NewScheduler(
		f.builder,
		f.store,
		tel,
		telemetry.Discard(),
		f.log,
		scheduler.Options{Workers: workers, PreviewLevels: 2},
	)
	return f
}

// image registers a source of w x h pixels at path and returns it with its pyramid.
func (f *fixture) image(path, fp string, w, h int) (domain.SourceImage, domain.PyramidDescriptor) {
	src := domain.SourceImage{Path: path, Fingerprint: domain.Fingerprint(fp), Width: w, Height: h}
	f.builder.EXPECT().Source(gomock.Any(), path).Return(src, nil).AnyTimes()
	d, _ := domain.Describe(src.Fingerprint, w, h, 256, 0.5)
	return src, d
}

// buildAll makes every BuildTile call succeed.
func (f *fixture) buildAll() *gomock.Call {
	return f.builder.EXPECT().BuildTile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, src domain.SourceImage, level, row, col int) (*domain.Tile, error) {
			return blankTile(domain.TileKey{Fingerprint: src.Fingerprint, Level: level, Row: row, Col: col}), nil
		})
}

func requests(paths ...string) []domain.ImageRequest {
	out := make([]domain.ImageRequest, 0, len(paths))
	for _, p := range paths {
		out = append(out, domain.ImageRequest{Path: p})
	}
	return out
}
