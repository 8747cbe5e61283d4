package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/graphql-go/graphql"

	"github.com/UkralStul/content-graph-service/internal/apierr"
	"github.com/UkralStul/content-graph-service/internal/auth"
	"github.com/UkralStul/content-graph-service/internal/dataloader"
	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/events"
	"github.com/UkralStul/content-graph-service/internal/storage"
)

const maxPageSize = 500

// === Helpers ===

func requireUser(ctx context.Context) (*auth.Principal, error) {
	principal := auth.PrincipalFrom(ctx)
	if principal == nil {
		return nil, apierr.ErrUnauthenticated
	}
	return principal, nil
}

func requireModerator(ctx context.Context) (*auth.Principal, error) {
	principal, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !principal.HasRole(auth.RoleModerator) {
		return nil, apierr.ErrForbidden
	}
	return principal, nil
}

// fail converts err into a coded error. Internal errors are logged here
// because their cause never reaches the client.
func (r *Resolver) fail(ctx context.Context, err error) error {
	apiErr := apierr.FromStorage(err)
	if apiErr.Code() == apierr.CodeInternal {
		r.Logger.ErrorContext(ctx, "resolver failed", slog.String("error", apiErr.Detail()))
	}
	return apiErr
}

func stringArg(p graphql.ResolveParams, name string) string {
	v, _ := p.Args[name].(string)
	return v
}

func optionalStringArg(p graphql.ResolveParams, name string) *string {
	v, ok := p.Args[name].(string)
	if !ok {
		return nil
	}
	return &v
}

// limitArg clamps the limit argument to [1, maxPageSize].
func limitArg(p graphql.ResolveParams) int {
	v, _ := p.Args["limit"].(int)
	if v < 1 {
		return 1
	}
	if v > maxPageSize {
		return maxPageSize
	}
	return v
}

func offsetArg(p graphql.ResolveParams) int {
	v, _ := p.Args["offset"].(int)
	if v < 0 {
		return 0
	}
	return v
}

// === Keyword Resolvers ===

func (r *queryResolver) keyword(p graphql.ResolveParams) (interface{}, error) {
	kw, err := r.Storage.GetKeyword(p.Context, stringArg(p, "value"))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return kw, nil
}

func (r *queryResolver) randomPendingKeyword(p graphql.ResolveParams) (interface{}, error) {
	if _, err := requireModerator(p.Context); err != nil {
		return nil, err
	}
	kw, err := r.Storage.GetRandomPendingKeyword(p.Context)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return kw, nil
}

func (r *queryResolver) countPendingKeywords(p graphql.ResolveParams) (interface{}, error) {
	if _, err := requireModerator(p.Context); err != nil {
		return nil, err
	}
	count, err := r.Storage.CountKeywordsByStatus(p.Context, domain.KeywordStatusPending)
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return count, nil
}

func (r *queryResolver) searchKeywords(p graphql.ResolveParams) (interface{}, error) {
	query := stringArg(p, "query")
	hits, err := r.Storage.SearchKeywords(p.Context, query, limitArg(p))
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	if hits == nil {
		hits = []*domain.Keyword{}
	}
	return &SearchKeywordsResult{Query: query, Hits: hits}, nil
}

func (r *queryResolver) keywords(p graphql.ResolveParams) (interface{}, error) {
	if _, err := requireModerator(p.Context); err != nil {
		return nil, err
	}
	status, _ := p.Args["status"].(domain.KeywordStatus)
	list, err := r.Storage.GetKeywordsByStatus(p.Context, status, limitArg(p), offsetArg(p))
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return list, nil
}

func (r *mutationResolver) setKeywordStatus(status domain.KeywordStatus) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		principal, err := requireModerator(p.Context)
		if err != nil {
			return nil, err
		}
		kw, err := r.Storage.SetKeywordStatus(p.Context, stringArg(p, "keyword"), status)
		if err != nil {
			return nil, r.fail(p.Context, err)
		}
		r.Logger.InfoContext(p.Context, "keyword moderated",
			slog.String("keyword", kw.Value),
			slog.String("status", string(status)),
			slog.String("moderator", principal.UserID))
		return kw, nil
	}
}

func (r *mutationResolver) setKeywordAsSynonym(p graphql.ResolveParams) (interface{}, error) {
	principal, err := requireModerator(p.Context)
	if err != nil {
		return nil, err
	}
	from := stringArg(p, "keywordToUpdate")
	kw, err := r.Storage.SetKeywordAsSynonym(p.Context, from, stringArg(p, "originalKeyword"))
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	r.Logger.InfoContext(p.Context, "keyword merged",
		slog.String("from", domain.NormalizeKeyword(from)),
		slog.String("into", kw.Value),
		slog.String("moderator", principal.UserID))
	return kw, nil
}

func (r *mutationResolver) updateKeyword(p graphql.ResolveParams) (interface{}, error) {
	if _, err := requireModerator(p.Context); err != nil {
		return nil, err
	}
	kw, err := r.Storage.UpdateKeywordFlags(p.Context, stringArg(p, "keyword"), domain.KeywordFlags{
		Title:       optionalStringArg(p, "title"),
		Description: optionalStringArg(p, "description"),
	})
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return kw, nil
}

func (r *mutationResolver) tagPost(p graphql.ResolveParams) (interface{}, error) {
	if _, err := requireModerator(p.Context); err != nil {
		return nil, err
	}
	postID := stringArg(p, "postId")
	raw, _ := p.Args["keywords"].([]interface{})
	keywords := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			keywords = append(keywords, s)
		}
	}

	if err := r.Storage.AddPostKeywords(p.Context, postID, keywords); err != nil {
		return nil, r.fail(p.Context, err)
	}
	post, err := r.Storage.GetPostByID(p.Context, postID)
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return post, nil
}

// === Post Resolvers ===

func (r *queryResolver) post(p graphql.ResolveParams) (interface{}, error) {
	post, err := r.Storage.GetPostByID(p.Context, stringArg(p, "id"))
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return post, nil
}

func (r *queryResolver) posts(p graphql.ResolveParams) (interface{}, error) {
	list, err := r.Storage.GetPosts(p.Context, limitArg(p), offsetArg(p))
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return list, nil
}

func (r *queryResolver) source(p graphql.ResolveParams) (interface{}, error) {
	source, err := r.Storage.GetSourceByID(p.Context, stringArg(p, "id"))
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return source, nil
}

func (r *queryResolver) user(p graphql.ResolveParams) (interface{}, error) {
	user, err := r.Storage.GetUserByID(p.Context, stringArg(p, "id"))
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return user, nil
}

// source batches through the request loaders when they are present.
func (r *postResolver) source(p graphql.ResolveParams) (interface{}, error) {
	post, ok := p.Source.(*domain.Post)
	if !ok {
		return nil, nil
	}
	loaders := dataloader.For(p.Context)
	if loaders == nil {
		source, err := r.Storage.GetSourceByID(p.Context, post.SourceID)
		if err != nil {
			return nil, r.fail(p.Context, err)
		}
		return source, nil
	}

	load := loaders.LoadSource(p.Context, post.SourceID)
	return func() (interface{}, error) {
		source, err := load()
		if err != nil {
			return nil, r.fail(p.Context, err)
		}
		return source, nil
	}, nil
}

func (r *postResolver) tags(p graphql.ResolveParams) (interface{}, error) {
	post, ok := p.Source.(*domain.Post)
	if !ok {
		return nil, nil
	}
	loaders := dataloader.For(p.Context)
	if loaders == nil {
		tags, err := r.Storage.GetPostTags(p.Context, []string{post.ID})
		if err != nil {
			return nil, r.fail(p.Context, err)
		}
		return nonNilTags(tags[post.ID]), nil
	}

	load := loaders.LoadTags(p.Context, post.ID)
	return func() (interface{}, error) {
		tags, err := load()
		if err != nil {
			return nil, r.fail(p.Context, err)
		}
		return nonNilTags(tags), nil
	}, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func (r *postResolver) author(p graphql.ResolveParams) (interface{}, error) {
	post, ok := p.Source.(*domain.Post)
	if !ok || post.AuthorID == nil {
		return nil, nil
	}
	user, err := r.Storage.GetUserByID(p.Context, *post.AuthorID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return user, nil
}

// === Mention Resolvers ===

func (r *mutationResolver) mentionUser(p graphql.ResolveParams) (interface{}, error) {
	principal, err := requireUser(p.Context)
	if err != nil {
		return nil, err
	}
	postID, userID := stringArg(p, "postId"), stringArg(p, "userId")
	if userID == principal.UserID {
		return nil, apierr.New(apierr.CodeValidationFailed, "You cannot mention yourself")
	}

	mention := &domain.PostMention{
		PostID:            postID,
		MentionedUserID:   userID,
		MentionedByUserID: principal.UserID,
	}
	created, err := r.Storage.CreatePostMention(p.Context, mention)
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	if !created {
		return emptyResponse, nil
	}

	payload, err := events.Encode(events.NewPostMentionMessage(mention))
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	// The mention is already stored, so a failed publish is logged, not returned.
	if err := r.Publisher.Publish(p.Context, events.TopicPostMention, payload); err != nil {
		r.Logger.ErrorContext(p.Context, "failed to publish post mention",
			slog.String("error", err.Error()),
			slog.String("post_id", postID),
			slog.String("user_id", userID))
	}
	return emptyResponse, nil
}

// === Notification Resolvers ===

func (r *queryResolver) notifications(p graphql.ResolveParams) (interface{}, error) {
	principal, err := requireUser(p.Context)
	if err != nil {
		return nil, err
	}
	l := limitArg(p)

	// Fetch one extra row to learn whether there is a next page.
	list, err := r.Storage.GetNotifications(p.Context, principal.UserID, storage.PaginationArgs{
		Limit:  l + 1,
		Cursor: optionalStringArg(p, "cursor"),
	})
	if err != nil {
		return nil, r.fail(p.Context, err)
	}

	hasNextPage := len(list) > l
	if hasNextPage {
		list = list[:l]
	}

	edges := make([]*NotificationEdge, len(list))
	for i, n := range list {
		edges[i] = &NotificationEdge{Node: n, Cursor: n.ID}
	}

	var endCursor *string
	if len(edges) > 0 {
		endCursor = &edges[len(edges)-1].Cursor
	}

	return &NotificationConnection{
		Edges: edges,
		PageInfo: &PageInfo{
			HasNextPage: hasNextPage,
			EndCursor:   endCursor,
		},
	}, nil
}

func (r *queryResolver) unreadNotificationsCount(p graphql.ResolveParams) (interface{}, error) {
	principal, err := requireUser(p.Context)
	if err != nil {
		return nil, err
	}
	count, err := r.Storage.CountUnreadNotifications(p.Context, principal.UserID)
	if err != nil {
		return nil, r.fail(p.Context, err)
	}
	return count, nil
}

func (r *mutationResolver) readNotifications(p graphql.ResolveParams) (interface{}, error) {
	principal, err := requireUser(p.Context)
	if err != nil {
		return nil, err
	}
	if _, err := r.Storage.MarkNotificationsRead(p.Context, principal.UserID); err != nil {
		return nil, r.fail(p.Context, err)
	}
	return emptyResponse, nil
}

// === Subscription Resolvers ===

// notificationAdded streams the notifications stored for the caller until
// ctx is done.
func (r *subscriptionResolver) notificationAdded(ctx context.Context) (<-chan *domain.Notification, error) {
	principal, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return r.Observer.Subscribe(ctx, principal.UserID), nil
}

// Query returns the resolvers of the Query root.
func (r *Resolver) Query() *queryResolver { return &queryResolver{r} }

// Mutation returns the resolvers of the Mutation root.
func (r *Resolver) Mutation() *mutationResolver { return &mutationResolver{r} }

// Post returns the field resolvers of the Post type.
func (r *Resolver) Post() *postResolver { return &postResolver{r} }

// Subscription returns the live notification stream resolvers.
func (r *Resolver) Subscription() *subscriptionResolver { return &subscriptionResolver{r} }

type queryResolver struct{ *Resolver }
type mutationResolver struct{ *Resolver }
type postResolver struct{ *Resolver }
type subscriptionResolver struct{ *Resolver }
