// Package notification turns domain events into per-user notifications.
package notification

import "github.com/UkralStul/content-graph-service/internal/domain"

// Context is the data a notification is built from.
type Context interface {
	Recipients() []string
}

// BaseContext lists the users a notification is delivered to.
type BaseContext struct {
	UserIDs []string
}

func (c BaseContext) Recipients() []string { return c.UserIDs }

// PostContext describes an event that happened on a post and who caused it.
type PostContext struct {
	BaseContext
	Post      *domain.Post
	Source    *domain.Source
	Initiator *domain.User
}

// HandlerReturn is one notification request emitted by a worker.
type HandlerReturn struct {
	Type domain.NotificationType
	Ctx  Context
}
