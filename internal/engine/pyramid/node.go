package pyramid

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lithotile/internal/adapters/config"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lithotile/internal/adapters/decoder"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lithotile/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lithotile/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
)

// NodeID is the unique identifier for the pyramid builder Graft node.
const NodeID graft.ID = "engine.pyramid"

func init() {
	graft.Register(graft.Node[ports.PyramidBuilder]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.SettingsNodeID,
			fs.FingerprinterNodeID,
			decoder.NodeID,
			telemetry.TracerNodeID,
		},
		Run: func(ctx context.Context) (ports.PyramidBuilder, error) {
			cfg, err := graft.Dep[domain.Config](ctx)
			if err != nil {
				return nil, err
			}

			fingerprinter, err := graft.Dep[ports.Fingerprinter](ctx)
			if err != nil {
				return nil, err
			}

			dec, err := graft.Dep[ports.Decoder](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			return NewBuilder(OptionsFromConfig(cfg), fingerprinter, dec, tracer), nil
		},
	})
}
