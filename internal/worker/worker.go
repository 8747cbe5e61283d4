// Package worker runs the background consumers of the event bus.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/UkralStul/content-graph-service/internal/events"
	"github.com/UkralStul/content-graph-service/internal/metrics"
	"github.com/UkralStul/content-graph-service/internal/notification"
	"github.com/UkralStul/content-graph-service/internal/pubsub"
	"github.com/UkralStul/content-graph-service/internal/storage"
)

// Deps are the services handed to every handler.
type Deps struct {
	Store  storage.Storage
	Logger *slog.Logger
}

// Worker consumes Topic under the Subscription consumer group.
type Worker struct {
	Subscription string
	Topic        string
	Handler      func(ctx context.Context, deps Deps, msg pubsub.Message) error
}

// NotificationWorker maps a message to notification requests. The runner
// generates, stores and broadcasts them.
type NotificationWorker struct {
	Subscription string
	Topic        string
	Handler      func(ctx context.Context, deps Deps, msg pubsub.Message) ([]notification.HandlerReturn, error)
}

// NotificationWorkers lists every notification worker of the platform.
func NotificationWorkers() []NotificationWorker {
	return []NotificationWorker{
		PostMentionNotification,
	}
}

type Runner struct {
	sub       pubsub.Subscriber
	live      pubsub.Broadcaster
	deps      Deps
	generator *notification.Generator
	metrics   *metrics.Metrics
}

func NewRunner(sub pubsub.Subscriber, live pubsub.Broadcaster, deps Deps, generator *notification.Generator, m *metrics.Metrics) *Runner {
	return &Runner{sub: sub, live: live, deps: deps, generator: generator, metrics: m}
}

// FromNotificationWorker turns nw into a plain Worker.
func (r *Runner) FromNotificationWorker(nw NotificationWorker) Worker {
	return Worker{
		Subscription: nw.Subscription,
		Topic:        nw.Topic,
		Handler: func(ctx context.Context, deps Deps, msg pubsub.Message) error {
			rets, err := nw.Handler(ctx, deps, msg)
			if err != nil {
				return err
			}
			for _, ret := range rets {
				if err := r.deliver(ctx, ret); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (r *Runner) deliver(ctx context.Context, ret notification.HandlerReturn) error {
	notifications, err := r.generator.Generate(ret)
	if err != nil {
		return fmt.Errorf("generate %s notification: %w", ret.Type, err)
	}

	for _, n := range notifications {
		created, err := r.deps.Store.CreateNotification(ctx, n)
		if err != nil {
			return fmt.Errorf("store %s notification: %w", n.Type, err)
		}
		if !created {
			continue
		}
		r.metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()

		payload, err := events.Encode(n)
		if err != nil {
			return err
		}
		// Live delivery is best effort; the notification is already stored.
		if err := r.live.Broadcast(ctx, events.ChannelNotifications, payload); err != nil {
			r.deps.Logger.Warn("broadcast notification failed",
				slog.String("error", err.Error()), slog.String("notification_id", n.ID))
		}
	}
	return nil
}

// Handle runs w for a single message with logging and metrics.
func (r *Runner) Handle(ctx context.Context, w Worker, msg pubsub.Message) error {
	start := time.Now()
	logger := r.deps.Logger.With(slog.String("subscription", w.Subscription), slog.String("message_id", msg.ID))
	deps := r.deps
	deps.Logger = logger

	err := w.Handler(ctx, deps, msg)
	r.metrics.ObserveMessage(w.Subscription, err, time.Since(start))
	if err != nil {
		logger.Error("failed to process message", slog.String("error", err.Error()))
	}
	return err
}

// Run blocks until ctx is cancelled or a subscription fails.
func (r *Runner) Run(ctx context.Context, workers []Worker) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			r.deps.Logger.Info("subscribing", slog.String("subscription", w.Subscription), slog.String("topic", w.Topic))
			err := r.sub.Subscribe(ctx, w.Topic, w.Subscription, func(ctx context.Context, msg pubsub.Message) error {
				return r.Handle(ctx, w, msg)
			})
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("subscription %s: %w", w.Subscription, err)
			}
			return nil
		})
	}
	return g.Wait()
}
