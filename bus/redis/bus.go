// Package redis implements the attribute event bus over redis pub/sub so
// that reconciliation keeps working when attribute writes happen in another
// process (an administrative tool, a second replica).
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/pwchange/bus"
	"go.pilab.hu/pwchange/domain"
)

const defaultChannel = "pwchange:attribute_events"

// Bus publishes and subscribes attribute events on a redis channel.
type Bus struct {
	client  *redis.Client
	channel string
}

// NewBus creates a bus on the given client. An empty channel selects the
// default channel name.
func NewBus(client *redis.Client, channel string) *Bus {
	if channel == "" {
		channel = defaultChannel
	}
	return &Bus{client: client, channel: channel}
}

// Publish marshals the event and publishes it on the channel.
func (b *Bus) Publish(ctx context.Context, event domain.AttributeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal attribute event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish attribute event: %w", err)
	}
	return nil
}

// Subscribe confirms the channel subscription, then consumes events on a
// background goroutine until ctx is cancelled. Malformed payloads and
// handler errors are logged and skipped so one bad event cannot stall the
// stream.
func (b *Bus) Subscribe(ctx context.Context, handler bus.Handler) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event domain.AttributeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Error().Err(err).Str("channel", b.channel).Msg("Discarding undecodable attribute event")
					continue
				}
				if err := handler(ctx, event); err != nil {
					log.Error().Err(err).
						Str("account_id", event.AccountID).
						Str("key", event.Key).
						Msg("Attribute event handler failed")
				}
			}
		}
	}()
	return nil
}

var (
	_ bus.Publisher  = (*Bus)(nil)
	_ bus.Subscriber = (*Bus)(nil)
)
