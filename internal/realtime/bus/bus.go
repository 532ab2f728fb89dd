package bus

import (
	"context"

	"github.com/coursehub/coursehub-backend/internal/realtime"
)

// Bus carries notification messages between instances. A single-node deploy
// can run without one; the hub then only reaches local clients.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
