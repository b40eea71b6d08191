package config

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/lithotile/internal/adapters/logger"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// NodeID is the unique identifier for the configuration loader Graft node.
	NodeID graft.ID = "adapter.config_loader"
	// SettingsNodeID is the unique identifier for the loaded settings Graft node.
	SettingsNodeID graft.ID = "adapter.config.settings"
)

func init() {
	graft.Register(graft.Node[ports.ConfigLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ConfigLoader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(log), nil
		},
	})

	// Settings are discovered from LITHOTILE_CONFIG or the working directory.
	graft.Register(graft.Node[domain.Config]{
		ID:        SettingsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{NodeID},
		Run: func(ctx context.Context) (domain.Config, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return domain.Config{}, err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return domain.Config{}, zerr.Wrap(err, "failed to get working directory")
			}
			return loader.LoadConfig(Discover(cwd))
		},
	})
}
