package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/google/uuid"
)

// DefaultRelayChannel is the redis channel events are broadcast on.
const DefaultRelayChannel = "hostelhub:notifications"

type pubSubClient interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error, error)
}

type relayEnvelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

type RedisRelayParams struct {
	Client  pubSubClient
	Channel string
	Logger  *logger.Logger
}

// RedisRelay broadcasts events over redis pub/sub so every replica can reach
// its own connected principals.
type RedisRelay struct {
	client  pubSubClient
	channel string
	origin  string
	logg    *logger.Logger
}

func NewRedisRelay(params RedisRelayParams) (*RedisRelay, error) {
	if params.Client == nil {
		return nil, errors.New("redis client is required")
	}
	channel := strings.TrimSpace(params.Channel)
	if channel == "" {
		channel = DefaultRelayChannel
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisRelay{client: params.Client, channel: channel, origin: uuid.NewString(), logg: logg}, nil
}

func (r *RedisRelay) Channel() string { return r.channel }

func (r *RedisRelay) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(relayEnvelope{Origin: r.origin, Event: e})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload)
}

// Run feeds relayed events into deliver until ctx ends or the subscription closes.
func (r *RedisRelay) Run(ctx context.Context, deliver func(context.Context, Event)) error {
	messages, closeSub, err := r.client.Subscribe(ctx, r.channel)
	if err != nil {
		return err
	}
	defer func() { _ = closeSub() }()

	r.logg.Info(r.logg.WithField(ctx, "channel", r.channel), "notification relay subscribed")
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-messages:
			if !ok {
				return nil
			}
			var env relayEnvelope
			if err := json.Unmarshal(payload, &env); err != nil {
				r.logg.Warn(ctx, "dropping malformed relay payload: "+err.Error())
				continue
			}
			if !env.Event.Type.IsValid() {
				r.logg.Warn(ctx, "dropping relay payload with unknown event type")
				continue
			}
			deliver(ctx, env.Event)
		}
	}
}
