package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/airbusgeo/ee-ingester/service"
	"google.golang.org/api/option"
)

// Publisher implements messaging.Publisher on a Google Pub/Sub topic
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPublisher connects to the topic of the project
func NewPublisher(ctx context.Context, project, topic string, opts ...option.ClientOption) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}
	return &Publisher{client: client, topic: client.Topic(topic)}, nil
}

// Publish implements messaging.Publisher
func (p *Publisher) Publish(ctx context.Context, data ...[]byte) error {
	results := make([]*pubsub.PublishResult, len(data))
	for i, d := range data {
		results[i] = p.topic.Publish(ctx, &pubsub.Message{Data: d})
	}
	var err error
	for i, r := range results {
		if _, e := r.Get(ctx); e != nil {
			err = service.MergeErrors(true, err, fmt.Errorf("Publish[%d]: %w", i, e))
		}
	}
	return err
}

// Close flushes the pending messages and releases the client
func (p *Publisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
