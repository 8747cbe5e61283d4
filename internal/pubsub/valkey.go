package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/UkralStul/content-graph-service/internal/config"
)

// readErrorBackoff is the pause after a failed stream read.
const readErrorBackoff = time.Second

// readRetryDelay returns how long to wait before reading again after err.
// A nil reply is the normal end of a BLOCK read.
func readRetryDelay(err error) time.Duration {
	if valkey.IsValkeyNil(err) {
		return 0
	}
	return readErrorBackoff
}

// NewValkeyClient connects to valkey and verifies the connection.
func NewValkeyClient(cfg config.ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress: []string{cfg.Addr},
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	resp := client.Do(context.Background(), client.B().Ping().Build())
	if err := resp.Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return client, nil
}

// Valkey is a Bus backed by valkey streams (topics, consumer groups) and
// valkey pub/sub (channels).
type Valkey struct {
	client     valkey.Client
	consumerID string
	logger     *slog.Logger
}

func NewValkey(client valkey.Client, consumerID string, logger *slog.Logger) *Valkey {
	return &Valkey{client: client, consumerID: consumerID, logger: logger}
}

func (v *Valkey) Publish(ctx context.Context, topic string, data []byte) error {
	resp := v.client.Do(ctx, v.client.B().Xadd().
		Key(topic).Id("*").
		FieldValue().FieldValue("data", string(data)).
		Build())
	if err := resp.Error(); err != nil {
		return fmt.Errorf("xadd %s: %w", topic, err)
	}
	return nil
}

// EnsureGroup creates the consumer group if it doesn't exist.
func (v *Valkey) EnsureGroup(ctx context.Context, topic, group string) error {
	resp := v.client.Do(ctx, v.client.B().XgroupCreate().
		Key(topic).Group(group).Id("0").Mkstream().Build())
	if err := resp.Error(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("xgroup create %s/%s: %w", topic, group, err)
		}
	}
	return nil
}

// Subscribe first re-delivers messages left pending by a previous run of
// this consumer, then blocks on new ones. Failed messages stay pending.
func (v *Valkey) Subscribe(ctx context.Context, topic, group string, handler Handler) error {
	if err := v.EnsureGroup(ctx, topic, group); err != nil {
		return err
	}
	v.drainPending(ctx, topic, group, handler)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp := v.client.Do(ctx, v.client.B().Xreadgroup().
			Group(group, v.consumerID).
			Count(10).Block(5000).
			Streams().Key(topic).Id(">").
			Build())
		if err := resp.Error(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay := readRetryDelay(err)
			if delay == 0 {
				continue
			}
			v.logger.Warn("xreadgroup failed", slog.String("topic", topic),
				slog.String("error", err.Error()), slog.Duration("retry_in", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		results, err := resp.AsXRead()
		if err != nil {
			continue
		}
		for _, entries := range results {
			for _, entry := range entries {
				v.process(ctx, topic, group, entry, handler)
			}
		}
	}
}

func (v *Valkey) drainPending(ctx context.Context, topic, group string, handler Handler) {
	resp := v.client.Do(ctx, v.client.B().Xreadgroup().
		Group(group, v.consumerID).
		Count(100).
		Streams().Key(topic).Id("0").
		Build())
	if err := resp.Error(); err != nil {
		v.logger.Warn("drain pending failed", slog.String("topic", topic), slog.String("error", err.Error()))
		return
	}

	results, err := resp.AsXRead()
	if err != nil {
		return
	}
	for _, entries := range results {
		for _, entry := range entries {
			v.logger.Info("recovering pending message", slog.String("topic", topic), slog.String("id", entry.ID))
			v.process(ctx, topic, group, entry, handler)
		}
	}
}

func (v *Valkey) process(ctx context.Context, topic, group string, entry valkey.XRangeEntry, handler Handler) {
	data, ok := entry.FieldValues["data"]
	if !ok {
		v.logger.Warn("message missing data field", slog.String("topic", topic), slog.String("id", entry.ID))
		v.ack(ctx, topic, group, entry.ID)
		return
	}

	if err := handler(ctx, Message{ID: entry.ID, Topic: topic, Data: []byte(data)}); err != nil {
		v.logger.Error("handle message", slog.String("error", err.Error()),
			slog.String("topic", topic), slog.String("id", entry.ID))
		return
	}
	v.ack(ctx, topic, group, entry.ID)
}

func (v *Valkey) ack(ctx context.Context, topic, group, id string) {
	resp := v.client.Do(ctx, v.client.B().Xack().Key(topic).Group(group).Id(id).Build())
	if err := resp.Error(); err != nil {
		v.logger.Error("xack failed", slog.String("error", err.Error()), slog.String("id", id))
	}
}

func (v *Valkey) Broadcast(ctx context.Context, channel string, data []byte) error {
	resp := v.client.Do(ctx, v.client.B().Publish().Channel(channel).Message(string(data)).Build())
	if err := resp.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (v *Valkey) Listen(ctx context.Context, channel string, fn func([]byte)) error {
	return v.client.Receive(ctx, v.client.B().Subscribe().Channel(channel).Build(), func(msg valkey.PubSubMessage) {
		fn([]byte(msg.Message))
	})
}
