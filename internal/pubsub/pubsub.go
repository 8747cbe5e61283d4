// Package pubsub moves events between the API and the workers.
//
// Topics are durable work queues consumed by named groups: every group sees
// every message and each message is handled by one consumer of the group.
// Channels are fire-and-forget broadcasts to every listener, used for live
// notification delivery.
package pubsub

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by the in-memory bus when a group lags too far behind.
var ErrQueueFull = errors.New("subscription queue is full")

// Message is a single delivery on a topic.
type Message struct {
	ID    string
	Topic string
	Data  []byte
}

// Handler processes one message. A nil error acknowledges it.
type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte) error
}

// Subscriber blocks, delivering topic messages for group to handler until
// ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, group string, handler Handler) error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, channel string, data []byte) error
}

// Listener blocks, passing every channel payload to fn until ctx is cancelled.
type Listener interface {
	Listen(ctx context.Context, channel string, fn func([]byte)) error
}

// Bus is the full set of operations both backends provide.
type Bus interface {
	Publisher
	Subscriber
	Broadcaster
	Listener
}
