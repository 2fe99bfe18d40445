package messaging

import "context"

// Publisher publishes messages on a topic
type Publisher interface {
	// Publish the messages and wait until they are acknowledged
	Publish(ctx context.Context, data ...[]byte) error
}
