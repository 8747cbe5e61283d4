package storage

import (
	"context"
	"errors"

	"github.com/UkralStul/content-graph-service/internal/domain"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidKeyword is returned for keywords that normalize to an empty value.
	ErrInvalidKeyword = errors.New("keyword cannot be empty")
	// ErrSameKeyword is returned when a keyword is merged into itself.
	ErrSameKeyword = errors.New("keyword cannot be a synonym of itself")
	// ErrInvalidStatus is returned for unknown keyword statuses.
	ErrInvalidStatus = errors.New("invalid keyword status")
)

// PaginationArgs - cursor pagination arguments.
type PaginationArgs struct {
	Limit  int
	Cursor *string
}

// Storage is the contract every backing store implements.
type Storage interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)

	CreateSource(ctx context.Context, source *domain.Source) (*domain.Source, error)
	GetSourceByID(ctx context.Context, id string) (*domain.Source, error)

	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	GetPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error)

	// Keyword tagging
	AddPostKeywords(ctx context.Context, postID string, keywords []string) error
	GetPostKeywords(ctx context.Context, postID string) ([]*domain.PostKeyword, error)

	// Keyword moderation
	GetKeyword(ctx context.Context, value string) (*domain.Keyword, error)
	GetRandomPendingKeyword(ctx context.Context) (*domain.Keyword, error)
	CountKeywordsByStatus(ctx context.Context, status domain.KeywordStatus) (int, error)
	GetKeywordsByStatus(ctx context.Context, status domain.KeywordStatus, limit, offset int) ([]*domain.Keyword, error)
	SearchKeywords(ctx context.Context, query string, limit int) ([]*domain.Keyword, error)
	SetKeywordStatus(ctx context.Context, value string, status domain.KeywordStatus) (*domain.Keyword, error)
	SetKeywordAsSynonym(ctx context.Context, keywordToUpdate, originalKeyword string) (*domain.Keyword, error)
	UpdateKeywordFlags(ctx context.Context, value string, flags domain.KeywordFlags) (*domain.Keyword, error)

	// Mentions
	CreatePostMention(ctx context.Context, mention *domain.PostMention) (bool, error)

	// Notifications
	CreateNotification(ctx context.Context, n *domain.Notification) (bool, error)
	GetNotifications(ctx context.Context, userID string, args PaginationArgs) ([]*domain.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationsRead(ctx context.Context, userID string) (int, error)

	// Dataloader batch methods
	GetSourcesByIDs(ctx context.Context, ids []string) (map[string]*domain.Source, error)
	GetPostTags(ctx context.Context, postIDs []string) (map[string][]string, error)
}
