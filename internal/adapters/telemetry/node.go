package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lithotile/internal/core/ports"
)

const (
	// TracerNodeID is the unique identifier for the tracer node.
	TracerNodeID graft.ID = "adapter.telemetry.tracer"

	// InstrumentationName names the tracer handed out by the global provider.
	InstrumentationName = "go.trai.ch/lithotile"
)

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        TracerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Tracer, error) {
			return NewTracer(InstrumentationName), nil
		},
	})
}
