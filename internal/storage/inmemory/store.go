package inmemory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/storage"
	"github.com/google/uuid"
)

// Store implements storage.Storage in memory.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*domain.User
	sources  map[string]*domain.Source
	posts    map[string]*domain.Post
	keywords map[string]*domain.Keyword
	// map[postID]map[keyword]row
	postKeywords map[string]map[string]*domain.PostKeyword
	mentions     map[string]*domain.PostMention

	notifications map[string]*domain.Notification
	// map[userID][]notificationID in insertion order
	notificationsByUser map[string][]string
	notificationKeys    map[string]struct{}
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:               make(map[string]*domain.User),
		sources:             make(map[string]*domain.Source),
		posts:               make(map[string]*domain.Post),
		keywords:            make(map[string]*domain.Keyword),
		postKeywords:        make(map[string]map[string]*domain.PostKeyword),
		mentions:            make(map[string]*domain.PostMention),
		notifications:       make(map[string]*domain.Notification),
		notificationsByUser: make(map[string][]string),
		notificationKeys:    make(map[string]struct{}),
	}
}

// === User & Source Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := s.users[user.ID]; ok {
		return nil, fmt.Errorf("user with id %s already exists", user.ID)
	}
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return user, nil
}

func (s *Store) CreateSource(ctx context.Context, source *domain.Source) (*domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source.ID == "" {
		source.ID = uuid.NewString()
	}
	if _, ok := s.sources[source.ID]; ok {
		return nil, fmt.Errorf("source with id %s already exists", source.ID)
	}
	source.CreatedAt = time.Now().UTC()
	s.sources[source.ID] = source
	return source, nil
}

func (s *Store) GetSourceByID(ctx context.Context, id string) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	source, ok := s.sources[id]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", id, storage.ErrNotFound)
	}
	return source, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sources[post.SourceID]; !ok {
		return nil, fmt.Errorf("source %s: %w", post.SourceID, storage.ErrNotFound)
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	s.posts[post.ID] = post
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	return post, nil
}

func (s *Store) GetPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allPosts := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		allPosts = append(allPosts, p)
	}

	sort.Slice(allPosts, func(i, j int) bool {
		return allPosts[i].CreatedAt.After(allPosts[j].CreatedAt)
	})

	return page(allPosts, limit, offset), nil
}

// === Keyword Tagging ===

func (s *Store) AddPostKeywords(ctx context.Context, postID string, keywords []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return fmt.Errorf("post %s: %w", postID, storage.ErrNotFound)
	}

	rows := s.postKeywords[postID]
	if rows == nil {
		rows = make(map[string]*domain.PostKeyword)
		s.postKeywords[postID] = rows
	}

	now := time.Now().UTC()
	for _, raw := range keywords {
		value := domain.NormalizeKeyword(raw)
		if value == "" {
			continue
		}
		kw, ok := s.keywords[value]
		if !ok {
			kw = &domain.Keyword{Value: value, Status: domain.KeywordStatusPending, CreatedAt: now, UpdatedAt: now}
			s.keywords[value] = kw
		}
		if _, tagged := rows[value]; tagged {
			continue
		}
		rows[value] = &domain.PostKeyword{PostID: postID, Keyword: value, Status: kw.Status}
		kw.Occurrences++
	}
	return nil
}

func (s *Store) GetPostKeywords(ctx context.Context, postID string) ([]*domain.PostKeyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.postKeywords[postID]
	result := make([]*domain.PostKeyword, 0, len(rows))
	for _, row := range rows {
		c := *row
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Keyword < result[j].Keyword })
	return result, nil
}

// === Keyword Moderation ===

func (s *Store) GetKeyword(ctx context.Context, value string) (*domain.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kw, ok := s.keywords[domain.NormalizeKeyword(value)]
	if !ok {
		return nil, fmt.Errorf("keyword %s: %w", value, storage.ErrNotFound)
	}
	c := *kw
	return &c, nil
}

func (s *Store) GetRandomPendingKeyword(ctx context.Context) (*domain.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := s.keywordsWithStatus(domain.KeywordStatusPending)
	if len(pending) == 0 {
		return nil, fmt.Errorf("pending keyword: %w", storage.ErrNotFound)
	}
	c := *pending[rand.IntN(len(pending))]
	return &c, nil
}

func (s *Store) CountKeywordsByStatus(ctx context.Context, status domain.KeywordStatus) (int, error) {
	if !status.Valid() {
		return 0, storage.ErrInvalidStatus
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keywordsWithStatus(status)), nil
}

func (s *Store) GetKeywordsByStatus(ctx context.Context, status domain.KeywordStatus, limit, offset int) ([]*domain.Keyword, error) {
	if !status.Valid() {
		return nil, storage.ErrInvalidStatus
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.keywordsWithStatus(status)
	sortByOccurrences(matched)
	return copyKeywords(page(matched, limit, offset)), nil
}

func (s *Store) SearchKeywords(ctx context.Context, query string, limit int) ([]*domain.Keyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := domain.NormalizeKeyword(query)
	var hits []*domain.Keyword
	for _, kw := range s.keywords {
		if strings.Contains(kw.Value, q) {
			hits = append(hits, kw)
		}
	}
	sortByOccurrences(hits)
	return copyKeywords(page(hits, limit, 0)), nil
}

func (s *Store) SetKeywordStatus(ctx context.Context, value string, status domain.KeywordStatus) (*domain.Keyword, error) {
	if !status.Valid() {
		return nil, storage.ErrInvalidStatus
	}
	value = domain.NormalizeKeyword(value)
	if value == "" {
		return nil, storage.ErrInvalidKeyword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	kw, ok := s.keywords[value]
	if !ok {
		kw = &domain.Keyword{Value: value, CreatedAt: now}
		s.keywords[value] = kw
	}
	kw.Status = status
	kw.UpdatedAt = now

	for _, rows := range s.postKeywords {
		if row, ok := rows[value]; ok {
			row.Status = status
		}
	}

	c := *kw
	return &c, nil
}

func (s *Store) SetKeywordAsSynonym(ctx context.Context, keywordToUpdate, originalKeyword string) (*domain.Keyword, error) {
	from := domain.NormalizeKeyword(keywordToUpdate)
	to := domain.NormalizeKeyword(originalKeyword)
	if from == "" || to == "" {
		return nil, storage.ErrInvalidKeyword
	}
	if from == to {
		return nil, storage.ErrSameKeyword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keywords[from]; !ok {
		return nil, fmt.Errorf("keyword %s: %w", from, storage.ErrNotFound)
	}

	now := time.Now().UTC()
	target, ok := s.keywords[to]
	if !ok {
		target = &domain.Keyword{Value: to, Status: domain.KeywordStatusAllow, CreatedAt: now}
		s.keywords[to] = target
	}

	occurrences := 0
	for postID, rows := range s.postKeywords {
		if _, tagged := rows[from]; tagged {
			delete(rows, from)
			// Posts already tagged with the target keep their existing row.
			if _, exists := rows[to]; !exists {
				rows[to] = &domain.PostKeyword{PostID: postID, Keyword: to, Status: target.Status}
			}
		}
		if _, tagged := rows[to]; tagged {
			occurrences++
		}
	}

	target.Occurrences = occurrences
	target.UpdatedAt = now
	delete(s.keywords, from)

	c := *target
	return &c, nil
}

func (s *Store) UpdateKeywordFlags(ctx context.Context, value string, flags domain.KeywordFlags) (*domain.Keyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kw, ok := s.keywords[domain.NormalizeKeyword(value)]
	if !ok {
		return nil, fmt.Errorf("keyword %s: %w", value, storage.ErrNotFound)
	}
	if flags.Title != nil {
		kw.Title = flags.Title
	}
	if flags.Description != nil {
		kw.Description = flags.Description
	}
	kw.UpdatedAt = time.Now().UTC()

	c := *kw
	return &c, nil
}

// keywordsWithStatus must be called with s.mu held.
func (s *Store) keywordsWithStatus(status domain.KeywordStatus) []*domain.Keyword {
	var result []*domain.Keyword
	for _, kw := range s.keywords {
		if kw.Status == status {
			result = append(result, kw)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Value < result[j].Value })
	return result
}

// === Mentions ===

func (s *Store) CreatePostMention(ctx context.Context, mention *domain.PostMention) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[mention.PostID]; !ok {
		return false, fmt.Errorf("post %s: %w", mention.PostID, storage.ErrNotFound)
	}
	if _, ok := s.users[mention.MentionedUserID]; !ok {
		return false, fmt.Errorf("user %s: %w", mention.MentionedUserID, storage.ErrNotFound)
	}

	key := mention.PostID + "|" + mention.MentionedUserID
	if _, ok := s.mentions[key]; ok {
		return false, nil
	}
	mention.CreatedAt = time.Now().UTC()
	s.mentions[key] = mention
	return true, nil
}

// === Notifications ===

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.Join([]string{n.UserID, string(n.Type), n.ReferenceID, n.UniqueKey}, "|")
	if _, ok := s.notificationKeys[key]; ok {
		return false, nil
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	for i, a := range n.Avatars {
		a.NotificationID = n.ID
		a.Position = i
	}

	s.notificationKeys[key] = struct{}{}
	s.notifications[n.ID] = n
	s.notificationsByUser[n.UserID] = append(s.notificationsByUser[n.UserID], n.ID)
	return true, nil
}

func (s *Store) GetNotifications(ctx context.Context, userID string, args storage.PaginationArgs) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.notificationsByUser[userID]
	// Newest first.
	all := make([]*domain.Notification, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		c := *s.notifications[ids[i]]
		all = append(all, &c)
	}

	startIndex := 0
	if args.Cursor != nil {
		startIndex = -1
		for i, n := range all {
			if n.ID == *args.Cursor {
				startIndex = i + 1
				break
			}
		}
		if startIndex < 0 {
			return nil, fmt.Errorf("notification cursor %s: %w", *args.Cursor, storage.ErrNotFound)
		}
	}
	return page(all, args.Limit, startIndex), nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.notificationsByUser[userID] {
		if s.notifications[id].ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkNotificationsRead(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	updated := 0
	for _, id := range s.notificationsByUser[userID] {
		n := s.notifications[id]
		if n.ReadAt == nil {
			n.ReadAt = &now
			updated++
		}
	}
	return updated, nil
}

// === Dataloader Methods ===

func (s *Store) GetSourcesByIDs(ctx context.Context, ids []string) (map[string]*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.Source, len(ids))
	for _, id := range ids {
		if source, ok := s.sources[id]; ok {
			result[id] = source
		}
	}
	return result, nil
}

func (s *Store) GetPostTags(ctx context.Context, postIDs []string) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]string, len(postIDs))
	for _, postID := range postIDs {
		tags := []string{}
		for value, row := range s.postKeywords[postID] {
			if row.Status == domain.KeywordStatusAllow {
				tags = append(tags, value)
			}
		}
		sort.Strings(tags)
		result[postID] = tags
	}
	return result, nil
}

// page returns items[offset:offset+limit], clamped to the slice bounds.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func sortByOccurrences(keywords []*domain.Keyword) {
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Occurrences != keywords[j].Occurrences {
			return keywords[i].Occurrences > keywords[j].Occurrences
		}
		return keywords[i].Value < keywords[j].Value
	})
}

func copyKeywords(keywords []*domain.Keyword) []*domain.Keyword {
	result := make([]*domain.Keyword, len(keywords))
	for i, kw := range keywords {
		c := *kw
		result[i] = &c
	}
	return result
}
