package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lithotile/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/lithotile/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/lithotile/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/lithotile/internal/adapters/tilestore" //nolint:depguard // Wired in app layer
	"go.trai.ch/lithotile/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/lithotile/internal/engine/pyramid"
	"go.trai.ch/lithotile/internal/engine/router"
	"go.trai.ch/lithotile/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			fs.ResolverNodeID,
			pyramid.NodeID,
			tilestore.NodeID,
			scheduler.NodeID,
			router.NodeID,
			watcher.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewComponents(app, log), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	resolver, err := graft.Dep[ports.ImageResolver](ctx)
	if err != nil {
		return nil, err
	}

	builder, err := graft.Dep[ports.PyramidBuilder](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[ports.TileStore](ctx)
	if err != nil {
		return nil, err
	}

	sched, err := graft.Dep[*scheduler.Scheduler](ctx)
	if err != nil {
		return nil, err
	}

	rt, err := graft.Dep[*router.Router](ctx)
	if err != nil {
		return nil, err
	}

	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, resolver, builder, store, sched, rt, w, log), nil
}
