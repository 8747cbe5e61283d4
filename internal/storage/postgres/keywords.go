package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// === Keyword Tagging ===

func (s *Store) AddPostKeywords(ctx context.Context, postID string, keywords []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("post %s: %w", postID, storage.ErrNotFound)
		}

		seen := make(map[string]struct{}, len(keywords))
		for _, raw := range keywords {
			value := domain.NormalizeKeyword(raw)
			if value == "" {
				continue
			}
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}

			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&domain.Keyword{Value: value, Status: domain.KeywordStatusPending}).Error; err != nil {
				return fmt.Errorf("upsert keyword %s: %w", value, err)
			}
			var kw domain.Keyword
			if err := tx.First(&kw, "value = ?", value).Error; err != nil {
				return err
			}

			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&domain.PostKeyword{PostID: postID, Keyword: value, Status: kw.Status})
			if res.Error != nil {
				return fmt.Errorf("tag post %s with %s: %w", postID, value, res.Error)
			}
			if res.RowsAffected == 0 {
				continue
			}
			if err := tx.Model(&domain.Keyword{}).Where("value = ?", value).
				UpdateColumn("occurrences", gorm.Expr("occurrences + 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetPostKeywords(ctx context.Context, postID string) ([]*domain.PostKeyword, error) {
	var rows []*domain.PostKeyword
	err := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("keyword").Find(&rows).Error
	return rows, err
}

// === Keyword Moderation ===

func (s *Store) GetKeyword(ctx context.Context, value string) (*domain.Keyword, error) {
	value = domain.NormalizeKeyword(value)
	var kw domain.Keyword
	if err := s.db.WithContext(ctx).First(&kw, "value = ?", value).Error; err != nil {
		return nil, notFound(err, "keyword "+value)
	}
	return &kw, nil
}

func (s *Store) GetRandomPendingKeyword(ctx context.Context) (*domain.Keyword, error) {
	var kw domain.Keyword
	err := s.db.WithContext(ctx).
		Where("status = ?", domain.KeywordStatusPending).
		Order("random()").
		Take(&kw).Error
	if err != nil {
		return nil, notFound(err, "pending keyword")
	}
	return &kw, nil
}

func (s *Store) CountKeywordsByStatus(ctx context.Context, status domain.KeywordStatus) (int, error) {
	if !status.Valid() {
		return 0, storage.ErrInvalidStatus
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Keyword{}).Where("status = ?", status).Count(&count).Error
	return int(count), err
}

func (s *Store) GetKeywordsByStatus(ctx context.Context, status domain.KeywordStatus, limit, offset int) ([]*domain.Keyword, error) {
	if !status.Valid() {
		return nil, storage.ErrInvalidStatus
	}
	var keywords []*domain.Keyword
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("occurrences DESC, value ASC").
		Limit(limit).Offset(offset).
		Find(&keywords).Error
	return keywords, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) SearchKeywords(ctx context.Context, query string, limit int) ([]*domain.Keyword, error) {
	pattern := "%" + likeEscaper.Replace(domain.NormalizeKeyword(query)) + "%"
	var keywords []*domain.Keyword
	err := s.db.WithContext(ctx).
		Where(`value LIKE ? ESCAPE '\'`, pattern).
		Order("occurrences DESC, value ASC").
		Limit(limit).
		Find(&keywords).Error
	return keywords, err
}

func (s *Store) SetKeywordStatus(ctx context.Context, value string, status domain.KeywordStatus) (*domain.Keyword, error) {
	if !status.Valid() {
		return nil, storage.ErrInvalidStatus
	}
	value = domain.NormalizeKeyword(value)
	if value == "" {
		return nil, storage.ErrInvalidKeyword
	}

	var kw domain.Keyword
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "value"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}),
		}).Create(&domain.Keyword{Value: value, Status: status}).Error
		if err != nil {
			return fmt.Errorf("upsert keyword %s: %w", value, err)
		}

		if err := tx.Model(&domain.PostKeyword{}).Where("keyword = ?", value).Update("status", status).Error; err != nil {
			return fmt.Errorf("update post keywords of %s: %w", value, err)
		}
		return tx.First(&kw, "value = ?", value).Error
	})
	if err != nil {
		return nil, err
	}
	return &kw, nil
}

// SetKeywordAsSynonym repoints every post tagged with keywordToUpdate to
// originalKeyword and removes keywordToUpdate. Posts that already carry
// originalKeyword keep their row and lose the duplicate.
func (s *Store) SetKeywordAsSynonym(ctx context.Context, keywordToUpdate, originalKeyword string) (*domain.Keyword, error) {
	from := domain.NormalizeKeyword(keywordToUpdate)
	to := domain.NormalizeKeyword(originalKeyword)
	if from == "" || to == "" {
		return nil, storage.ErrInvalidKeyword
	}
	if from == to {
		return nil, storage.ErrSameKeyword
	}

	var target domain.Keyword
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old domain.Keyword
		if err := tx.First(&old, "value = ?", from).Error; err != nil {
			return notFound(err, "keyword "+from)
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.Keyword{Value: to, Status: domain.KeywordStatusAllow}).Error; err != nil {
			return fmt.Errorf("upsert keyword %s: %w", to, err)
		}
		if err := tx.First(&target, "value = ?", to).Error; err != nil {
			return err
		}

		err := tx.Exec(`UPDATE post_keywords SET keyword = ?, status = ?
			WHERE keyword = ? AND post_id NOT IN (SELECT post_id FROM post_keywords WHERE keyword = ?)`,
			to, target.Status, from, to).Error
		if err != nil {
			return fmt.Errorf("repoint post keywords: %w", err)
		}
		if err := tx.Where("keyword = ?", from).Delete(&domain.PostKeyword{}).Error; err != nil {
			return fmt.Errorf("delete duplicate post keywords: %w", err)
		}

		var occurrences int64
		if err := tx.Model(&domain.PostKeyword{}).Where("keyword = ?", to).Count(&occurrences).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Keyword{}).Where("value = ?", to).Updates(map[string]interface{}{
			"occurrences": occurrences,
			"updated_at":  time.Now().UTC(),
		}).Error; err != nil {
			return err
		}

		if err := tx.Where("value = ?", from).Delete(&domain.Keyword{}).Error; err != nil {
			return fmt.Errorf("delete keyword %s: %w", from, err)
		}
		return tx.First(&target, "value = ?", to).Error
	})
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func (s *Store) UpdateKeywordFlags(ctx context.Context, value string, flags domain.KeywordFlags) (*domain.Keyword, error) {
	value = domain.NormalizeKeyword(value)

	var kw domain.Keyword
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&kw, "value = ?", value).Error; err != nil {
			return notFound(err, "keyword "+value)
		}

		updates := map[string]interface{}{"updated_at": time.Now().UTC()}
		if flags.Title != nil {
			updates["title"] = *flags.Title
		}
		if flags.Description != nil {
			updates["description"] = *flags.Description
		}
		if err := tx.Model(&domain.Keyword{}).Where("value = ?", value).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&kw, "value = ?", value).Error
	})
	if err != nil {
		return nil, err
	}
	return &kw, nil
}
