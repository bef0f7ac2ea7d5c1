package exec

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/logger"
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the queue factory Graft node.
const NodeID graft.ID = "adapter.exec"

// Factory builds execution queues. One queue is created per build by the
// delegate and dropped when the build completes.
type Factory struct {
	logger ports.Logger
}

// NewFactory creates a queue factory.
func NewFactory(log ports.Logger) *Factory {
	return &Factory{logger: log}
}

// NewQueue creates a queue bounded to the given parallelism.
func (f *Factory) NewQueue(ctx context.Context, parallelism int) ports.ExecutionQueue {
	return NewQueue(ctx, parallelism, f.logger)
}

func init() {
	graft.Register(graft.Node[*Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (*Factory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(log), nil
		},
	})
}
