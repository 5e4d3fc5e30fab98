// Package redisrelay fans change events out across processes over Redis
// pub/sub. Each process publishes its committed events to one channel and
// replays events published by siblings into its local hub.
package redisrelay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/engine"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "tavla:events"

// envelope wraps an event with its origin so a process can skip its own
// publications when replaying.
type envelope struct {
	Origin string             `json:"origin"`
	Event  domain.ChangeEvent `json:"event"`
}

// Publisher broadcasts committed change events to the Redis channel. It
// satisfies engine.Broadcaster and is meant to be combined with the local
// router via engine.FanOut.
type Publisher struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *log.Logger
}

// NewPublisher constructs a publisher. origin identifies this process in the
// envelope; an empty channel falls back to DefaultChannel.
func NewPublisher(client *redis.Client, channel, origin string, logger *log.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{client: client, channel: channel, origin: origin, logger: logger}
}

// Broadcast publishes the event, best effort. A publish failure is logged and
// swallowed; local delivery already happened through the hub router.
func (p *Publisher) Broadcast(ctx context.Context, ev domain.ChangeEvent) {
	payload, err := json.Marshal(envelope{Origin: p.origin, Event: ev})
	if err != nil {
		p.logger.Error("encode relay envelope", "kind", ev.Kind, "err", err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Error("publish change event", "kind", ev.Kind, "board_id", ev.BoardID, "err", err)
	}
}

// Subscribe consumes the channel until ctx is cancelled, handing every event
// from a different origin to local. A dropped pub/sub connection is re-opened
// after a short pause.
func Subscribe(ctx context.Context, client *redis.Client, channel, origin string, local engine.Broadcaster, logger *log.Logger) {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.Default()
	}
	for {
		sub := client.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.Error("decode relay envelope", "err", err)
					continue
				}
				if env.Origin == origin {
					continue
				}
				local.Broadcast(ctx, env.Event)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("relay subscription closed, reconnecting")
		time.Sleep(time.Second)
	}
}
