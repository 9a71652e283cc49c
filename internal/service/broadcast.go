package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nat-prohmpiriya/travillian-games/internal/repository/redis"
)

// Broadcaster pushes real-time events toward a user's connected clients.
type Broadcaster interface {
	NotifyUser(userID, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when push is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) NotifyUser(string, string, any) {}

// RedisBroadcaster publishes events to the user's Redis channel so every
// server replica (including this one, via the relay) can deliver them to its
// local WebSocket connections.
type RedisBroadcaster struct {
	client *redis.Client
}

// NewRedisBroadcaster creates a RedisBroadcaster.
func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

// NotifyUser publishes the event. Delivery is best effort; failures are logged.
func (b *RedisBroadcaster) NotifyUser(userID, eventType string, data any) {
	ev := redis.Event{Type: eventType, Payload: data}
	if err := b.client.Publish(context.Background(), userID, ev); err != nil {
		log.Error().Err(err).Str("userId", userID).Str("event", eventType).Msg("Event publish failed")
	}
}
