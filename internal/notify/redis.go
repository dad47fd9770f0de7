package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis relays events through a Redis pub/sub channel so controllers on other
// processes or machines sharing a Redis scope see each other's changes.
type Redis struct {
	client  *redis.Client
	channel string
	local   *Local
	logger  zerolog.Logger

	pubsub *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Notifier = (*Redis)(nil)

// NewRedis subscribes to channel and starts relaying its messages to local
// subscribers.
func NewRedis(ctx context.Context, client *redis.Client, channel string, logger zerolog.Logger) (*Redis, error) {
	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	r := &Redis{
		client:  client,
		channel: channel,
		local:   NewLocal(),
		logger:  logger,
		pubsub:  pubsub,
		cancel:  cancel,
	}

	r.wg.Add(1)
	go r.relay(loopCtx)
	return r, nil
}

func (r *Redis) Subscribe(topic string, h Handler) func() {
	return r.local.Subscribe(topic, h)
}

func (r *Redis) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Topic, err)
	}
	return nil
}

func (r *Redis) Close() error {
	r.cancel()
	err := r.pubsub.Close()
	r.wg.Wait()
	return err
}

func (r *Redis) relay(ctx context.Context) {
	defer r.wg.Done()

	ch := r.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, err := decodeEvent(msg.Payload)
			if err != nil {
				r.logger.Debug().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
				continue
			}
			_ = r.local.Publish(ctx, ev)
		}
	}
}

func decodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.Topic == "" {
		return Event{}, fmt.Errorf("event without topic")
	}
	return ev, nil
}
