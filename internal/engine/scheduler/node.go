package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lithotile/internal/adapters/config"             //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lithotile/internal/adapters/logger"             //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lithotile/internal/adapters/telemetry"          //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lithotile/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lithotile/internal/adapters/tilestore"          //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/lithotile/internal/engine/pyramid"
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.SettingsNodeID,
			pyramid.NodeID,
			tilestore.NodeID,
			progrock.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			cfg, err := graft.Dep[domain.Config](ctx)
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

			recorder, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewScheduler(builder, store, recorder, tracer, log, OptionsFromConfig(cfg)), nil
		},
	})
}
