package postgres

import (
	"context"
	"time"

	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateNotification stores n with its avatars. It returns false when a
// notification with the same (user, type, reference, unique key) exists.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (bool, error) {
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(n)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true

		if len(n.Avatars) == 0 {
			return nil
		}
		for i, a := range n.Avatars {
			a.NotificationID = n.ID
			a.Position = i
		}
		return tx.Create(n.Avatars).Error
	})
	return created, err
}

func (s *Store) GetNotifications(ctx context.Context, userID string, args storage.PaginationArgs) ([]*domain.Notification, error) {
	var notifications []*domain.Notification
	query := s.db.WithContext(ctx).
		Preload("Avatars", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(args.Limit)

	// Cursor is the id of the last notification on the previous page.
	if args.Cursor != nil {
		var cursor domain.Notification
		err := s.db.WithContext(ctx).Select("id", "created_at").First(&cursor, "id = ? AND user_id = ?", *args.Cursor, userID).Error
		if err != nil {
			return nil, notFound(err, "notification cursor")
		}
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	err := query.Find(&notifications).Error
	return notifications, err
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return int(count), err
}

func (s *Store) MarkNotificationsRead(ctx context.Context, userID string) (int, error) {
	res := s.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now().UTC())
	return int(res.RowsAffected), res.Error
}
