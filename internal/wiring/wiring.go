// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/lithotile/internal/adapters/config"
	_ "go.trai.ch/lithotile/internal/adapters/decoder"
	_ "go.trai.ch/lithotile/internal/adapters/fs"
	_ "go.trai.ch/lithotile/internal/adapters/logger"
	_ "go.trai.ch/lithotile/internal/adapters/telemetry"
	_ "go.trai.ch/lithotile/internal/adapters/telemetry/progrock"
	_ "go.trai.ch/lithotile/internal/adapters/tilestore"
	_ "go.trai.ch/lithotile/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/lithotile/internal/app"
	_ "go.trai.ch/lithotile/internal/engine/pyramid"
	_ "go.trai.ch/lithotile/internal/engine/router"
	_ "go.trai.ch/lithotile/internal/engine/scheduler"
)
