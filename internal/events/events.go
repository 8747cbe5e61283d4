// Package events defines the topics and payloads exchanged between the API
// and the workers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/UkralStul/content-graph-service/internal/domain"
)

const (
	// TopicPostMention carries PostMentionMessage payloads.
	TopicPostMention = "api.v1.post-mention"
	// ChannelNotifications carries newly stored notifications to every API
	// instance for live delivery.
	ChannelNotifications = "api.v1.notifications.live"
)

// PostMention is the row change published when a user is mentioned.
type PostMention struct {
	PostID            string    `json:"postId"`
	MentionedUserID   string    `json:"mentionedUserId"`
	MentionedByUserID string    `json:"mentionedByUserId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PostMentionMessage is the payload on TopicPostMention.
type PostMentionMessage struct {
	PostMention PostMention `json:"postMention"`
}

// NewPostMentionMessage wraps a stored mention.
func NewPostMentionMessage(m *domain.PostMention) PostMentionMessage {
	return PostMentionMessage{PostMention: PostMention{
		PostID:            m.PostID,
		MentionedUserID:   m.MentionedUserID,
		MentionedByUserID: m.MentionedByUserID,
		CreatedAt:         m.CreatedAt,
	}}
}

// Encode serializes a payload for the bus.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

// Decode deserializes a bus payload into T.
func Decode[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &v, nil
}
