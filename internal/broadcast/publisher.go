package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"log/slog"

	"broadcast-service/internal/config"

	pusher "github.com/pusher/pusher-http-go/v5"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Driver delivers one event to one channel. Implementations are best
// effort: they report success with a bool and never propagate a failure
// into the calling business transaction.
type Driver interface {
	Broadcast(ctx context.Context, channel, event string, data json.RawMessage, excludeSocket string) bool
}

// RedisDriver publishes envelopes to the bus topic the Bridge listens on.
type RedisDriver struct {
	rdb *redis.Client
}

func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	return &RedisDriver{rdb: rdb}
}

func (d *RedisDriver) Broadcast(ctx context.Context, channel, event string, data json.RawMessage, excludeSocket string) bool {
	env := Envelope{Event: event, Data: data}
	if excludeSocket != "" {
		env.Socket = &excludeSocket
	}
	payload, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal envelope", "channel", channel, "event", event, "error", err)
		return false
	}
	if err := d.rdb.Publish(ctx, busPrefix+channel, payload).Err(); err != nil {
		slog.Error("Redis broadcast error", "channel", channel, "event", event, "error", err)
		return false
	}
	return true
}

// KafkaDriver writes envelopes to a single topic keyed by channel so that
// per-channel ordering survives partitioning.
type KafkaDriver struct {
	writer *kafka.Writer
}

func NewKafkaDriver(cfg config.KafkaConfig) *KafkaDriver {
	return &KafkaDriver{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (d *KafkaDriver) Broadcast(ctx context.Context, channel, event string, data json.RawMessage, excludeSocket string) bool {
	record := struct {
		Channel string          `json:"channel"`
		Event   string          `json:"event"`
		Data    json.RawMessage `json:"data"`
		Socket  string          `json:"socket,omitempty"`
	}{Channel: channel, Event: event, Data: data, Socket: excludeSocket}

	payload, err := json.Marshal(record)
	if err != nil {
		slog.Error("Failed to marshal envelope", "channel", channel, "event", event, "error", err)
		return false
	}
	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(channel),
		Value: payload,
	})
	if err != nil {
		slog.Error("Kafka broadcast error", "channel", channel, "event", event, "error", err)
		return false
	}
	return true
}

func (d *KafkaDriver) Close() error {
	return d.writer.Close()
}

// PusherDriver hands events to the hosted Pusher Channels service.
type PusherDriver struct {
	client pusher.Client
}

func NewPusherDriver(cfg config.BroadcastConfig) *PusherDriver {
	return &PusherDriver{
		client: pusher.Client{
			AppID:   cfg.PusherAppID,
			Key:     cfg.PusherKey,
			Secret:  cfg.PusherSecret,
			Cluster: cfg.PusherCluster,
		},
	}
}

func (d *PusherDriver) Broadcast(ctx context.Context, channel, event string, data json.RawMessage, excludeSocket string) bool {
	var err error
	if excludeSocket != "" {
		err = d.client.TriggerExclusive(channel, event, data, excludeSocket)
	} else {
		err = d.client.Trigger(channel, event, data)
	}
	if err != nil {
		slog.Error("Pusher broadcast error", "channel", channel, "event", event, "error", err)
		return false
	}
	return true
}

// LogDriver logs events instead of delivering them; used in development.
type LogDriver struct{}

func (LogDriver) Broadcast(_ context.Context, channel, event string, data json.RawMessage, _ string) bool {
	slog.Info("Broadcasting", "channel", channel, "event", event, "data", string(data))
	return true
}

// NullDriver drops every event.
type NullDriver struct{}

func (NullDriver) Broadcast(context.Context, string, string, json.RawMessage, string) bool {
	return true
}

// NewDriver selects the delivery driver named by the configuration.
func NewDriver(cfg *config.Config, rdb *redis.Client) (Driver, error) {
	switch cfg.Broadcast.Driver {
	case "redis":
		return NewRedisDriver(rdb), nil
	case "kafka":
		return NewKafkaDriver(cfg.Kafka), nil
	case "pusher":
		return NewPusherDriver(cfg.Broadcast), nil
	case "log":
		return LogDriver{}, nil
	case "null":
		return NullDriver{}, nil
	default:
		return nil, fmt.Errorf("unsupported broadcast driver %q", cfg.Broadcast.Driver)
	}
}

// Event is implemented by domain events that should be pushed to clients.
type Event interface {
	BroadcastOn() []string
	BroadcastAs() string
	BroadcastWith() map[string]any
}

// Publisher is the write-side primitive business logic calls to emit named
// events onto channels. Broadcasting is always a best-effort side effect;
// a failed broadcast never fails the triggering operation.
type Publisher struct {
	driver Driver
}

func NewPublisher(driver Driver) *Publisher {
	return &Publisher{driver: driver}
}

// Broadcast serializes data once and delivers it to every channel. Returns
// false when any delivery failed.
func (p *Publisher) Broadcast(ctx context.Context, channels []string, event string, data any, excludeSocket string) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("Broadcast payload not serializable", "event", event, "error", err)
		return false
	}
	ok := true
	for _, channel := range channels {
		if !p.driver.Broadcast(ctx, channel, event, payload, excludeSocket) {
			ok = false
		}
	}
	return ok
}

// Publish broadcasts a domain event on its channels.
func (p *Publisher) Publish(ctx context.Context, ev Event) bool {
	return p.Broadcast(ctx, ev.BroadcastOn(), ev.BroadcastAs(), ev.BroadcastWith(), "")
}

// PublishToOthers broadcasts a domain event while skipping the socket that
// triggered it.
func (p *Publisher) PublishToOthers(ctx context.Context, ev Event, socketID string) bool {
	return p.Broadcast(ctx, ev.BroadcastOn(), ev.BroadcastAs(), ev.BroadcastWith(), socketID)
}
