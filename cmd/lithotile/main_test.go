package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/lithotile/internal/adapters/telemetry"
	"go.trai.ch/lithotile/internal/app"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports/mocks"
	"go.trai.ch/lithotile/internal/engine/router"
	"go.trai.ch/lithotile/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type testComponents struct {
	loader *mocks.MockConfigLoader
	store  *mocks.MockTileStore
	logger *mocks.MockLogger
	app    *app.App
}

func newComponents(t *testing.T) *testComponents {
	t.Helper()
	ctrl := gomock.NewController(t)

	tc := &testComponents{
		loader: mocks.NewMockConfigLoader(ctrl),
		store:  mocks.NewMockTileStore(ctrl),
		logger: mocks.NewMockLogger(ctrl),
	}
	builder := mocks.NewMockPyramidBuilder(ctrl)
	tracer := telemetry.Discard()

	sched := scheduler.NewScheduler(builder, tc.store, mocks.NewMockTelemetry(ctrl), tracer, tc.logger,
		scheduler.Options{Workers: 1, PreviewLevels: 2})
	rt := router.New(builder, tc.store, tracer, tc.logger, router.Options{
		FrameBudget:   time.Millisecond,
		BuildDeadline: time.Millisecond,
	})

	tc.app = app.New(tc.loader, mocks.NewMockImageResolver(ctrl), builder, tc.store, sched, rt,
		mocks.NewMockWatcher(ctrl), tc.logger)
	tc.store.EXPECT().Close().Return(nil)
	return tc
}

func (tc *testComponents) provider(_ context.Context) (*app.Components, func(), error) {
	return &app.Components{App: tc.app, Logger: tc.logger}, func() {}, nil
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	tc := newComponents(t)

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, tc.provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that run logs and returns 1 when a command fails.
func TestRun_ExecutionError(t *testing.T) {
	tc := newComponents(t)
	loadErr := errors.New("load failed")
	tc.loader.EXPECT().LoadProject("basalt.yaml").Return(domain.Project{}, loadErr)
	tc.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, loadErr)
	})

	exitCode := run(context.Background(), []string{"prepare", "basalt.yaml"}, new(bytes.Buffer), tc.provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_OptionsApplied verifies that options see the constructed app.
func TestRun_OptionsApplied(t *testing.T) {
	tc := newComponents(t)

	var got *app.App
	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), tc.provider, func(a *app.App) {
		got = a
	})
	assert.Equal(t, 0, exitCode)
	assert.Same(t, tc.app, got)
}
