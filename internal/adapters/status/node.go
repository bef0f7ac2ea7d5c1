package status

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the status recorder Graft node.
const NodeID graft.ID = "adapter.status"

func init() {
	graft.Register(graft.Node[*Recorder]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (*Recorder, error) {
			return New(), nil
		},
	})
}
