package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

const eventChannelPrefix = "events:user:"

// Event is a push notification for one user.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Publish fans an event out to every server replica via the user's channel.
func (c *Client) Publish(ctx context.Context, userID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, eventChannelPrefix+userID, data).Err()
}

// Sink receives relayed events for local delivery, keyed by user ID.
type Sink interface {
	Deliver(userID string, message []byte)
}

// Relay subscribes to all user event channels and forwards messages into the
// local sink (the WebSocket hub). Blocks until the context is cancelled.
func (c *Client) Relay(ctx context.Context, sink Sink) {
	sub := c.rdb.PSubscribe(ctx, eventChannelPrefix+"*")
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
			userID := strings.TrimPrefix(msg.Channel, eventChannelPrefix)
			if userID == "" || userID == msg.Channel {
				log.Warn().Str("channel", msg.Channel).Msg("Event on unexpected channel")
				continue
			}
			sink.Deliver(userID, []byte(msg.Payload))
		}
	}
}
