package tilestore

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/lithotile/internal/adapters/config"
	fsadapter "go.trai.ch/lithotile/internal/adapters/fs"
	"go.trai.ch/lithotile/internal/adapters/index"
	"go.trai.ch/lithotile/internal/adapters/logger"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
)

// NodeID is the unique identifier for the tile store Graft node.
const NodeID graft.ID = "adapter.tile_store"

func init() {
	graft.Register(graft.Node[ports.TileStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID, logger.NodeID, fsadapter.WalkerNodeID},
		Run: func(ctx context.Context) (ports.TileStore, error) {
			cfg, err := graft.Dep[domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			walker, err := graft.Dep[*fsadapter.Walker](ctx)
			if err != nil {
				return nil, err
			}
			store, err := Open(OptionsFromConfig(cfg), walker, log)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	})
}

// Open opens the SQLite index of the cache directory and the store over it.
// A new or reset index is rebuilt from the tile tree.
func Open(opts Options, walker Walker, log ports.Logger) (*Store, error) {
	path := domain.IndexPath(opts.CacheDir)
	_, statErr := os.Stat(path)
	missing := errors.Is(statErr, fs.ErrNotExist)

	idx, err := index.Open(path)
	if err != nil {
		return nil, err
	}

	store, err := New(opts, idx, walker, log, missing || idx.Fresh())
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	return store, nil
}
