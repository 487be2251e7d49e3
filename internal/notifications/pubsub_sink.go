package notifications

import (
	"context"
	"encoding/json"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
)

type topicPublisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) error
}

// PubSubSink exports every event as one message on a GCP topic.
type PubSubSink struct {
	publisher topicPublisher
}

func NewPubSubSink(publisher topicPublisher) (*PubSubSink, error) {
	if publisher == nil {
		return nil, errors.New("topic publisher is required")
	}
	return &PubSubSink{publisher: publisher}, nil
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Export(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	attrs := map[string]string{"event_type": e.Type.String()}
	if e.HostelID != "" {
		attrs["hostel_id"] = e.HostelID
	}
	return s.publisher.Publish(ctx, data, attrs)
}

// TopicPublisher adapts a Pub/Sub v2 publisher and waits for the server ack.
type TopicPublisher struct {
	Publisher *pubsub.Publisher
}

func (t TopicPublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) error {
	if t.Publisher == nil {
		return errors.New("pubsub publisher not configured")
	}
	_, err := t.Publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	return err
}
