package pyramid_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lithotile/internal/adapters/decoder"
	"go.trai.ch/lithotile/internal/adapters/fs"
	"go.trai.ch/lithotile/internal/adapters/telemetry"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports/mocks"
	"go.trai.ch/lithotile/internal/engine/pyramid"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func defaultOptions() pyramid.Options {
	return pyramid.Options{TileSize: 256, ScaleRatio: 0.5, HandlePool: 2}
}

func TestDescribe_Golden(t *testing.T) {
	b := pyramid.NewBuilder(defaultOptions(), nil, nil, telemetry.Discard())

	desc, err := b.Describe(domain.SourceImage{Fingerprint: "0123456789abcdef", Width: 10000, Height: 8000})
	require.NoError(t, err)

	require.Len(t, desc.Levels, 7)
	assert.Equal(t, 40, desc.Levels[0].Cols)
	assert.Equal(t, 32, desc.Levels[0].Rows)
	assert.Equal(t, 1, desc.Coarsest().TileCount())

	data, err := json.MarshalIndent(desc, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "pyramid_10000x8000", data)
}

func TestDescribe_InvalidDimensions(t *testing.T) {
	b := pyramid.NewBuilder(defaultOptions(), nil, nil, telemetry.Discard())

	_, err := b.Describe(domain.SourceImage{Path: "/x.png"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDimensions)
}

// writeGradient writes a w x h P6 image whose pixels encode their position.
func writeGradient(t *testing.T, w, h int) string {
	t.Helper()
	data := fmt.Appendf(nil, "P6\n%d %d\n255\n", w, h)
	for y := range h {
		for x := range w {
			data = append(data, byte(x), byte(y), byte((x+y)/2))
		}
	}
	path := filepath.Join(t.TempDir(), "gradient.ppm")
	require.NoError(t, os.WriteFile(path, data, domain.PrivateFilePerm))
	return path
}

func newRealBuilder(t *testing.T) *pyramid.Builder {
	t.Helper()
	b := pyramid.NewBuilder(
		defaultOptions(),
		fs.NewFingerprinter(domain.FingerprintSampled),
		decoder.New(decoder.Options{}),
		telemetry.Discard(),
	)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBuildTile_Deterministic(t *testing.T) {
	b := newRealBuilder(t)
	ctx := context.Background()

	src, err := b.Source(ctx, writeGradient(t, 600, 400))
	require.NoError(t, err)
	assert.Equal(t, 600, src.Width)
	assert.Equal(t, 400, src.Height)
	assert.Len(t, src.Fingerprint.String(), 16)

	desc, err := b.Describe(src)
	require.NoError(t, err)
	require.Len(t, desc.Levels, 3)

	first, err := b.BuildTile(ctx, src, 0, 1, 2)
	require.NoError(t, err)
	second, err := b.BuildTile(ctx, src, 0, 1, 2)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Pixels(), second.Pixels())
	assert.Equal(t, 88, first.Width())
	assert.Equal(t, 144, first.Height())
	assert.Equal(t, desc.Key(0, 1, 2), first.Key)

	// Level 0 is a straight copy of the source region: pixel (3, 5) of this
	// tile is source pixel (515, 261).
	assert.Equal(t, color.RGBA{R: 3, G: 5, B: 132, A: 255}, first.Image().At(3, 5))

	top, err := b.BuildTile(ctx, src, 2, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 150, 100), top.Bounds())
}

func TestBuildTile_OutOfPyramid(t *testing.T) {
	b := newRealBuilder(t)
	ctx := context.Background()

	src, err := b.Source(ctx, writeGradient(t, 64, 64))
	require.NoError(t, err)

	_, err = b.BuildTile(ctx, src, 3, 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOutOfBounds)
}

func TestSource_Memoized(t *testing.T) {
	ctrl := gomock.NewController(t)
	fingerprinter := mocks.NewMockFingerprinter(ctrl)
	dec := mocks.NewMockDecoder(ctrl)
	handle := mocks.NewMockImageHandle(ctrl)

	src := domain.SourceImage{Path: "/slides/a.tif", Fingerprint: "aaaa"}
	fingerprinter.EXPECT().Fingerprint("/slides/a.tif").Return(src, nil).Times(2)
	dec.EXPECT().Open(gomock.Any(), "/slides/a.tif").Return(handle, nil).Times(1)
	handle.EXPECT().Size().Return(image.Pt(300, 200)).Times(1)

	b := pyramid.NewBuilder(defaultOptions(), fingerprinter, dec, telemetry.Discard())

	for range 2 {
		got, err := b.Source(context.Background(), "/slides/a.tif")
		require.NoError(t, err)
		assert.Equal(t, 300, got.Width)
		assert.Equal(t, 200, got.Height)
	}

	handle.EXPECT().Close().Return(nil).Times(1)
	require.NoError(t, b.Close())
}

func TestBuildTile_CorruptImageFailsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	fingerprinter := mocks.NewMockFingerprinter(ctrl)
	dec := mocks.NewMockDecoder(ctrl)
	handle := mocks.NewMockImageHandle(ctrl)

	src := domain.SourceImage{Path: "/slides/bad.ppm", Fingerprint: "bbbb", Width: 512, Height: 512}
	dec.EXPECT().Open(gomock.Any(), src.Path).Return(handle, nil).Times(1)
	handle.EXPECT().ReadRegion(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, zerr.Wrap(domain.ErrCorruptFile, "read rows")).Times(1)

	b := pyramid.NewBuilder(defaultOptions(), fingerprinter, dec, telemetry.Discard())
	ctx := context.Background()

	_, err := b.BuildTile(ctx, src, 0, 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorruptFile)

	// Every later tile fails fast without touching the decoder.
	_, err = b.BuildTile(ctx, src, 0, 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorruptFile)
	assert.True(t, pyramid.IsImageScoped(err))

	fingerprinter.EXPECT().Invalidate(src.Path)
	b.Forget(src.Path)
}

func TestBuildTile_TileScopedFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mocks.NewMockDecoder(ctrl)
	handle := mocks.NewMockImageHandle(ctrl)

	src := domain.SourceImage{Path: "/slides/flaky.tif", Fingerprint: "cccc", Width: 300, Height: 300}
	dec.EXPECT().Open(gomock.Any(), src.Path).Return(handle, nil).Times(1)

	gomock.InOrder(
		handle.EXPECT().ReadRegion(gomock.Any(), image.Rect(0, 0, 256, 256), image.Pt(256, 256)).
			Return(nil, errors.New("short read")),
		handle.EXPECT().ReadRegion(gomock.Any(), image.Rect(0, 0, 256, 256), image.Pt(256, 256)).
			Return(image.NewRGBA(image.Rect(0, 0, 256, 256)), nil),
	)

	b := pyramid.NewBuilder(defaultOptions(), nil, dec, telemetry.Discard())
	ctx := context.Background()

	_, err := b.BuildTile(ctx, src, 0, 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.False(t, pyramid.IsImageScoped(err))

	tile, err := b.BuildTile(ctx, src, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 256, tile.Width())
}

func TestBuildTile_ScaleTooLargeFailsOnlyThatLevel(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mocks.NewMockDecoder(ctrl)
	handle := mocks.NewMockImageHandle(ctrl)

	src := domain.SourceImage{Path: "/slides/huge.tif", Fingerprint: "eeee", Width: 512, Height: 512}
	dec.EXPECT().Open(gomock.Any(), src.Path).Return(handle, nil).Times(1)
	handle.EXPECT().ReadRegion(gomock.Any(), image.Rect(0, 0, 256, 256), image.Pt(256, 256)).
		Return(nil, zerr.Wrap(domain.ErrScaleTooLarge, "decode")).Times(1)
	handle.EXPECT().ReadRegion(gomock.Any(), image.Rect(0, 0, 512, 512), image.Pt(256, 256)).
		Return(image.NewRGBA(image.Rect(0, 0, 256, 256)), nil).Times(1)

	b := pyramid.NewBuilder(defaultOptions(), nil, dec, telemetry.Discard())
	ctx := context.Background()

	_, err := b.BuildTile(ctx, src, 0, 0, 0)
	require.ErrorIs(t, err, domain.ErrScaleTooLarge)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.False(t, pyramid.IsImageScoped(err))

	// The coarser level reads at a reduced scale and succeeds.
	tile, err := b.BuildTile(ctx, src, 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 256, tile.Width())

	assert.True(t, pyramid.IsImageScoped(zerr.Wrap(domain.ErrImageTooLarge, "decode")))
}

func TestBuildTile_UnsupportedFormatRemembered(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mocks.NewMockDecoder(ctrl)

	src := domain.SourceImage{Path: "/slides/notes.txt", Fingerprint: "dddd", Width: 10, Height: 10}
	dec.EXPECT().Open(gomock.Any(), src.Path).
		Return(nil, zerr.Wrap(domain.ErrUnsupportedFormat, "open")).Times(1)

	b := pyramid.NewBuilder(defaultOptions(), nil, dec, telemetry.Discard())

	for range 3 {
		_, err := b.BuildTile(context.Background(), src, 0, 0, 0)
		require.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	}
}

func TestHandlePool_EvictsLeastRecentlyUsed(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mocks.NewMockDecoder(ctrl)

	opts := defaultOptions()
	opts.HandlePool = 1
	b := pyramid.NewBuilder(opts, nil, dec, telemetry.Discard())

	first := mocks.NewMockImageHandle(ctrl)
	second := mocks.NewMockImageHandle(ctrl)
	a := domain.SourceImage{Path: "/a.png", Fingerprint: "aaaa", Width: 8, Height: 8}
	c := domain.SourceImage{Path: "/c.png", Fingerprint: "cccc", Width: 8, Height: 8}

	dec.EXPECT().Open(gomock.Any(), a.Path).Return(first, nil)
	dec.EXPECT().Open(gomock.Any(), c.Path).Return(second, nil)
	first.EXPECT().ReadRegion(gomock.Any(), gomock.Any(), gomock.Any()).Return(image.NewRGBA(image.Rect(0, 0, 8, 8)), nil)
	second.EXPECT().ReadRegion(gomock.Any(), gomock.Any(), gomock.Any()).Return(image.NewRGBA(image.Rect(0, 0, 8, 8)), nil)
	first.EXPECT().Close().Return(nil).Times(1)

	_, err := b.BuildTile(context.Background(), a, 0, 0, 0)
	require.NoError(t, err)
	_, err = b.BuildTile(context.Background(), c, 0, 0, 0)
	require.NoError(t, err)

	second.EXPECT().Close().Return(nil).Times(1)
	require.NoError(t, b.Close())
}

func TestHandlePool_EvictedHandleClosedAfterRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	dec := mocks.NewMockDecoder(ctrl)

	opts := defaultOptions()
	opts.HandlePool = 1
	b := pyramid.NewBuilder(opts, nil, dec, telemetry.Discard())

	busy := mocks.NewMockImageHandle(ctrl)
	other := mocks.NewMockImageHandle(ctrl)
	a := domain.SourceImage{Path: "/a.png", Fingerprint: "aaaa", Width: 8, Height: 8}
	c := domain.SourceImage{Path: "/c.png", Fingerprint: "cccc", Width: 8, Height: 8}

	dec.EXPECT().Open(gomock.Any(), a.Path).Return(busy, nil)
	dec.EXPECT().Open(gomock.Any(), c.Path).Return(other, nil)
	other.EXPECT().ReadRegion(gomock.Any(), gomock.Any(), gomock.Any()).Return(image.NewRGBA(image.Rect(0, 0, 8, 8)), nil)

	closed := false
	busy.EXPECT().Close().DoAndReturn(func() error {
		closed = true
		return nil
	})

	// While a's read is in progress, c pushes a out of the pool. The handle
	// must stay open until the read returns.
	busy.EXPECT().ReadRegion(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ image.Rectangle, _ image.Point) (*image.RGBA, error) {
			_, err := b.BuildTile(ctx, c, 0, 0, 0)
			require.NoError(t, err)
			assert.False(t, closed)
			return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
		})

	_, err := b.BuildTile(context.Background(), a, 0, 0, 0)
	require.NoError(t, err)
	assert.True(t, closed)

	other.EXPECT().Close().Return(nil)
	require.NoError(t, b.Close())
}
