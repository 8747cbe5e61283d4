package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/events"
	"github.com/UkralStul/content-graph-service/internal/notification"
	"github.com/UkralStul/content-graph-service/internal/pubsub"
	"github.com/UkralStul/content-graph-service/internal/storage"
)

// PostMentionNotification notifies a user that they were mentioned in a post.
var PostMentionNotification = NotificationWorker{
	Subscription: "api.post-mention-notification",
	Topic:        events.TopicPostMention,
	Handler:      handlePostMention,
}

func handlePostMention(ctx context.Context, deps Deps, msg pubsub.Message) ([]notification.HandlerReturn, error) {
	data, err := events.Decode[events.PostMentionMessage](msg.Data)
	if err != nil {
		deps.Logger.Error("failed to parse post mention", slog.String("error", err.Error()))
		return nil, nil
	}
	mention := data.PostMention
	if mention.PostID == "" || mention.MentionedUserID == "" || mention.MentionedByUserID == "" {
		deps.Logger.Warn("incomplete post mention", slog.String("post_id", mention.PostID))
		return nil, nil
	}

	post, err := deps.Store.GetPostByID(ctx, mention.PostID)
	if err != nil {
		return nil, ignoreNotFound(err, "post")
	}
	initiator, err := deps.Store.GetUserByID(ctx, mention.MentionedByUserID)
	if err != nil {
		return nil, ignoreNotFound(err, "initiator")
	}
	source, err := deps.Store.GetSourceByID(ctx, post.SourceID)
	if err != nil {
		return nil, ignoreNotFound(err, "source")
	}

	return []notification.HandlerReturn{{
		Type: domain.NotificationTypePostMention,
		Ctx: &notification.PostContext{
			BaseContext: notification.BaseContext{UserIDs: []string{mention.MentionedUserID}},
			Post:        post,
			Source:      source,
			Initiator:   initiator,
		},
	}}, nil
}

// ignoreNotFound drops events that reference deleted rows; other errors are
// returned so the message is retried.
func ignoreNotFound(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("load %s: %w", what, err)
}
