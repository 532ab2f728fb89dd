package bus

import (
	"context"

	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/realtime"
)

// Fanout delivers a message to local hub clients and, when a bus is
// configured, to every other instance. Publish failures are logged only.
type Fanout struct {
	log *logger.Logger
	hub *realtime.Hub
	bus Bus
}

func NewFanout(log *logger.Logger, hub *realtime.Hub, b Bus) *Fanout {
	return &Fanout{
		log: log.With("component", "Fanout"),
		hub: hub,
		bus: b,
	}
}

func (f *Fanout) Emit(ctx context.Context, msg realtime.Message) {
	if f.hub != nil {
		f.hub.Broadcast(msg)
	}
	if f.bus != nil {
		if err := f.bus.Publish(ctx, msg); err != nil {
			f.log.Warn("bus publish failed", "channel", msg.Channel, "error", err)
		}
	}
}

// StartForwarding feeds remote messages into the local hub.
func (f *Fanout) StartForwarding(ctx context.Context) error {
	if f.bus == nil || f.hub == nil {
		return nil
	}
	return f.bus.StartForwarder(ctx, func(m realtime.Message) {
		f.hub.Broadcast(m)
	})
}
