package shared

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventBus is the publish/subscribe contract the modules depend on. It is a
// watermill publisher and subscriber backed by NATS JetStream, plus stream
// provisioning.
type EventBus interface {
	message.Publisher
	message.Subscriber

	// EnsureStream creates or updates the JetStream stream carrying the given
	// subjects. Safe to call repeatedly.
	EnsureStream(ctx context.Context, streamName string, subjects []string) error
}
