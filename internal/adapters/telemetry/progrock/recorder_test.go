package progrock_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lithotile/internal/adapters/telemetry/progrock"
)

func TestRecorder_Lifecycle(t *testing.T) {
	recorder := progrock.New()
	ctx := context.Background()

	_, vertex := recorder.Record(ctx, "basalt.tif")
	_, err := vertex.Stdout().Write([]byte("level 3 complete\n"))
	require.NoError(t, err)

	vertex.Log(slog.LevelDebug, "decoded region")
	vertex.Log(slog.LevelWarn, "tile rewrite retried")
	vertex.Complete(nil)

	_, failed := recorder.Record(ctx, "broken.png")
	failed.Complete(errors.New("corrupt"))

	_, cached := recorder.Record(ctx, "done.png")
	cached.Cached()
	cached.Complete(nil)

	require.NoError(t, recorder.Close())
}

func TestRecorder_DistinctDigestsForRepeatedNames(t *testing.T) {
	recorder := progrock.New()
	ctx := context.Background()

	_, first := recorder.Record(ctx, "basalt.tif")
	_, second := recorder.Record(ctx, "basalt.tif")

	v1, ok := first.(*progrock.Vertex)
	require.True(t, ok)
	v2, ok := second.(*progrock.Vertex)
	require.True(t, ok)

	assert.Equal(t, digest.FromString("basalt.tif"), v1.ID())
	assert.NotEqual(t, v1.ID(), v2.ID())

	first.Complete(nil)
	second.Complete(nil)
	require.NoError(t, recorder.Close())
}
