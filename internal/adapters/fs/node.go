package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lithotile/internal/adapters/config"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
)

const (
	WalkerNodeID        graft.ID = "adapter.fs.walker"
	ResolverNodeID      graft.ID = "adapter.fs.resolver"
	FingerprinterNodeID graft.ID = "adapter.fs.fingerprinter"
)

func init() {
	// Walker Node (Concrete implementation needed by Resolver and the tile store)
	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})

	graft.Register(graft.Node[ports.ImageResolver]{
		ID:        ResolverNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{WalkerNodeID},
		Run: func(ctx context.Context) (ports.ImageResolver, error) {
			walker, err := graft.Dep[*Walker](ctx)
			if err != nil {
				return nil, err
			}
			return NewResolver(walker), nil
		},
	})

	graft.Register(graft.Node[ports.Fingerprinter]{
		ID:        FingerprinterNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID},
		Run: func(ctx context.Context) (ports.Fingerprinter, error) {
			cfg, err := graft.Dep[domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return NewFingerprinter(cfg.Fingerprint), nil
		},
	})
}
