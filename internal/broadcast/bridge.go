package broadcast

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	busPrefix  = "broadcast:"
	busPattern = busPrefix + "*"

	// Pause before resubscribing after the pubsub stream drops.
	bridgeRetryBackoff = time.Second
)

// Bridge forwards envelopes published on the bus to locally connected
// sockets. Exactly one Bridge runs per process; it is started at service
// startup and stopped by cancelling its context.
type Bridge struct {
	rdb      *redis.Client
	registry *Registry
	started  int32
}

func NewBridge(rdb *redis.Client, registry *Registry) *Bridge {
	return &Bridge{rdb: rdb, registry: registry}
}

// Start launches the listener goroutine. Calling Start again is a no-op.
func (b *Bridge) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&b.started, 0, 1) {
		return
	}
	go b.run(ctx)
}

func (b *Bridge) run(ctx context.Context) {
	for {
		pubsub := b.rdb.PSubscribe(ctx, busPattern)
		ch := pubsub.Channel()
		slog.Info("Bridge subscribed", "pattern", busPattern)

	recv:
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				b.dispatch(msg.Channel, []byte(msg.Payload))

			case <-ctx.Done():
				pubsub.Close()
				slog.Info("Bridge shutting down")
				return
			}
		}

		pubsub.Close()
		slog.Warn("Bridge stream interrupted, resubscribing", "backoff", bridgeRetryBackoff)
		select {
		case <-time.After(bridgeRetryBackoff):
		case <-ctx.Done():
			slog.Info("Bridge shutting down")
			return
		}
	}
}

// dispatch hands one bus message to the registry for local fan-out. A
// malformed envelope is logged and skipped; it never stops the listener.
func (b *Bridge) dispatch(topic string, payload []byte) {
	channel := strings.TrimPrefix(topic, busPrefix)

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		slog.Error("Invalid broadcast envelope", "topic", topic, "error", err)
		return
	}

	exclude := ""
	if env.Socket != nil {
		exclude = *env.Socket
	}
	b.registry.Broadcast(channel, env.Event, env.Data, exclude)
}
