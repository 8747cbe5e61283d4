package pubsub

import (
	"context"
	"strconv"
	"sync"
)

const memoryQueueSize = 1024

// Memory is an in-process Bus for the in-memory server mode and tests.
// Delivery is at-most-once: a message whose handler fails is dropped.
type Memory struct {
	mu sync.RWMutex
	//     map[topic] map[group] queue
	groups    map[string]map[string]chan Message
	listeners map[string]map[int]func([]byte)
	seq       int
}

func NewMemory() *Memory {
	return &Memory{
		groups:    make(map[string]map[string]chan Message),
		listeners: make(map[string]map[int]func([]byte)),
	}
}

// EnsureGroup creates the queue for group so that messages published before
// Subscribe starts are kept.
func (m *Memory) EnsureGroup(topic, group string) chan Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.groups[topic] == nil {
		m.groups[topic] = make(map[string]chan Message)
	}
	q, ok := m.groups[topic][group]
	if !ok {
		q = make(chan Message, memoryQueueSize)
		m.groups[topic][group] = q
	}
	return q
}

func (m *Memory) Publish(ctx context.Context, topic string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	msg := Message{ID: strconv.Itoa(m.seq), Topic: topic, Data: data}
	for _, q := range m.groups[topic] {
		select {
		case q <- msg:
		default:
			return ErrQueueFull
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic, group string, handler Handler) error {
	q := m.EnsureGroup(topic, group)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-q:
			_ = handler(ctx, msg)
		}
	}
}

func (m *Memory) Broadcast(ctx context.Context, channel string, data []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, fn := range m.listeners[channel] {
		fn(data)
	}
	return nil
}

func (m *Memory) Listen(ctx context.Context, channel string, fn func([]byte)) error {
	m.mu.Lock()
	if m.listeners[channel] == nil {
		m.listeners[channel] = make(map[int]func([]byte))
	}
	m.seq++
	id := m.seq
	m.listeners[channel][id] = fn
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	delete(m.listeners[channel], id)
	m.mu.Unlock()
	return ctx.Err()
}
