package graph

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/events"
	"github.com/UkralStul/content-graph-service/internal/pubsub"
	"github.com/UkralStul/content-graph-service/internal/storage"
)

// NotificationObserver fans stored notifications out to the live
// connections of their recipient.
type NotificationObserver struct {
	mu sync.RWMutex
	//          map[userID] map[subscriberID] channel
	subs map[string]map[string]chan *domain.Notification
}

func NewNotificationObserver() *NotificationObserver {
	return &NotificationObserver{
		subs: make(map[string]map[string]chan *domain.Notification),
	}
}

// Subscribe registers a channel for userID. The channel is closed once ctx
// is done.
func (o *NotificationObserver) Subscribe(ctx context.Context, userID string) <-chan *domain.Notification {
	ch := make(chan *domain.Notification, 16)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[userID] == nil {
		o.subs[userID] = make(map[string]chan *domain.Notification)
	}
	o.subs[userID][subID] = ch
	o.mu.Unlock()

	go func() {
		<-ctx.Done()
		o.mu.Lock()
		if userSubs, ok := o.subs[userID]; ok {
			delete(userSubs, subID)
			if len(userSubs) == 0 {
				delete(o.subs, userID)
			}
		}
		close(ch)
		o.mu.Unlock()
	}()

	return ch
}

// Notify never blocks; slow readers miss notifications.
func (o *NotificationObserver) Notify(n *domain.Notification) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, ch := range o.subs[n.UserID] {
		select {
		case ch <- n:
		default:
		}
	}
}

// Relay feeds the live channel of the bus into the observer until ctx is
// done.
func (o *NotificationObserver) Relay(ctx context.Context, listener pubsub.Listener, logger *slog.Logger) error {
	return listener.Listen(ctx, events.ChannelNotifications, func(data []byte) {
		n, err := events.Decode[domain.Notification](data)
		if err != nil {
			logger.Warn("dropping live notification", slog.String("error", err.Error()))
			return
		}
		o.Notify(n)
	})
}

// Resolver is the root resolver. It holds every dependency the schema needs.
type Resolver struct {
	Storage   storage.Storage
	Publisher pubsub.Publisher
	Observer  *NotificationObserver
	Logger    *slog.Logger
}
