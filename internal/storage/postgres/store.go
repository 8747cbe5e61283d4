package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store implements storage.Storage on top of a relational database via gorm.
type Store struct {
	db *gorm.DB
}

// New connects to PostgreSQL and migrates the schema.
func New(dsn string) (*Store, error) {
	return Open(postgres.Open(dsn), logger.Default.LogMode(logger.Info))
}

// Open builds a Store on any gorm dialector. Tests use it with sqlite.
func Open(dialector gorm.Dialector, log logger.Interface) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Source{},
		&domain.Post{},
		&domain.Keyword{},
		&domain.PostKeyword{},
		&domain.PostMention{},
		&domain.Notification{},
		&domain.NotificationAvatar{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// notFound maps gorm.ErrRecordNotFound onto storage.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return err
}

// === User & Source Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user "+id)
	}
	return &user, nil
}

func (s *Store) CreateSource(ctx context.Context, source *domain.Source) (*domain.Source, error) {
	if err := s.db.WithContext(ctx).Create(source).Error; err != nil {
		return nil, err
	}
	return source, nil
}

func (s *Store) GetSourceByID(ctx context.Context, id string) (*domain.Source, error) {
	var source domain.Source
	if err := s.db.WithContext(ctx).First(&source, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "source "+id)
	}
	return &source, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Source{}).Where("id = ?", post.SourceID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("source %s: %w", post.SourceID, storage.ErrNotFound)
		}
		return tx.Create(post).Error
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "post "+id)
	}
	return &post, nil
}

func (s *Store) GetPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&posts).Error
	return posts, err
}

// === Mentions ===

func (s *Store) CreatePostMention(ctx context.Context, mention *domain.PostMention) (bool, error) {
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Post{}).Where("id = ?", mention.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("post %s: %w", mention.PostID, storage.ErrNotFound)
		}
		if err := tx.Model(&domain.User{}).Where("id = ?", mention.MentionedUserID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("user %s: %w", mention.MentionedUserID, storage.ErrNotFound)
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(mention)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return nil
	})
	return created, err
}

// === Dataloader Methods ===

func (s *Store) GetSourcesByIDs(ctx context.Context, ids []string) (map[string]*domain.Source, error) {
	var sources []*domain.Source
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&sources).Error; err != nil {
		return nil, err
	}

	result := make(map[string]*domain.Source, len(sources))
	for _, src := range sources {
		result[src.ID] = src
	}
	return result, nil
}

func (s *Store) GetPostTags(ctx context.Context, postIDs []string) (map[string][]string, error) {
	var rows []*domain.PostKeyword
	err := s.db.WithContext(ctx).
		Where("post_id IN ? AND status = ?", postIDs, domain.KeywordStatusAllow).
		Order("post_id, keyword").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string][]string, len(postIDs))
	for _, id := range postIDs {
		result[id] = []string{}
	}
	for _, row := range rows {
		result[row.PostID] = append(result[row.PostID], row.Keyword)
	}
	return result, nil
}
