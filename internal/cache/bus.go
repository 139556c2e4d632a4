package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/pollconf/internal/logger"
	"github.com/rafaeljc/pollconf/internal/validation"
)

// ReloadEvent asks every instance to re-read the global poll properties.
type ReloadEvent struct {
	ID     string    `json:"id"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// ReloadBus fans reload requests out over a Redis Pub/Sub channel.
type ReloadBus struct {
	client  *redis.Client
	channel string
}

// NewReloadBus creates a bus on the given channel.
func NewReloadBus(client *redis.Client, channel string) *ReloadBus {
	validation.AssertNotNil(client, "redis client")
	validation.AssertNotEmpty(channel, "reload channel")
	return &ReloadBus{client: client, channel: channel}
}

// Publish broadcasts a reload event and returns it.
func (b *ReloadBus) Publish(ctx context.Context, reason string) (ReloadEvent, error) {
	event := ReloadEvent{
		ID:     uuid.NewString(),
		Reason: reason,
		At:     time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return ReloadEvent{}, fmt.Errorf("failed to marshal reload event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return ReloadEvent{}, fmt.Errorf("failed to publish reload event: %w", err)
	}
	return event, nil
}

// Subscribe returns a channel of decoded reload events.
// The subscription is confirmed before returning; the channel is closed when ctx is done.
// Malformed payloads are logged and skipped.
func (b *ReloadBus) Subscribe(ctx context.Context) (<-chan ReloadEvent, error) {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %q: %w", b.channel, err)
	}

	log := logger.FromContext(ctx)
	out := make(chan ReloadEvent)

	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				event, err := decodeEvent(msg.Payload)
				if err != nil {
					log.Warn("discarding malformed reload event", slog.String("channel", msg.Channel), slog.Any("error", err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func decodeEvent(payload string) (ReloadEvent, error) {
	var event ReloadEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return ReloadEvent{}, fmt.Errorf("invalid reload event: %w", err)
	}
	if event.ID == "" {
		return ReloadEvent{}, fmt.Errorf("invalid reload event: missing id")
	}
	return event, nil
}
