package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType identifies the event a notification was generated for.
type NotificationType string

const (
	NotificationTypePostMention NotificationType = "post_mention"
)

// Notification is a message delivered to a single user.
type Notification struct {
	ID            string                `json:"id" gorm:"primaryKey"`
	UserID        string                `json:"userId" gorm:"not null;index;uniqueIndex:idx_notification_unique,priority:1"`
	Type          NotificationType      `json:"type" gorm:"type:varchar(64);not null;uniqueIndex:idx_notification_unique,priority:2"`
	Icon          string                `json:"icon" gorm:"type:varchar(64);not null"`
	Title         string                `json:"title" gorm:"type:text;not null"`
	Description   *string               `json:"description,omitempty" gorm:"type:text"`
	TargetURL     string                `json:"targetUrl" gorm:"type:text;not null"`
	ReferenceID   string                `json:"referenceId" gorm:"not null;uniqueIndex:idx_notification_unique,priority:3"`
	ReferenceType string                `json:"referenceType" gorm:"type:varchar(32);not null"`
	UniqueKey     string                `json:"uniqueKey" gorm:"not null;default:'';uniqueIndex:idx_notification_unique,priority:4"`
	Public        bool                  `json:"public" gorm:"not null"`
	CreatedAt     time.Time             `json:"createdAt" gorm:"not null;index"`
	ReadAt        *time.Time            `json:"readAt,omitempty"`
	Avatars       []*NotificationAvatar `json:"avatars" gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// NotificationAvatar is an image shown next to a notification.
type NotificationAvatar struct {
	ID             uint   `json:"-" gorm:"primaryKey"`
	NotificationID string `json:"-" gorm:"not null;index"`
	Type           string `json:"type" gorm:"type:varchar(32);not null"`
	ReferenceID    string `json:"referenceId" gorm:"not null"`
	Name           string `json:"name" gorm:"type:varchar(255);not null"`
	Image          string `json:"image" gorm:"type:text"`
	TargetURL      string `json:"targetUrl" gorm:"type:text"`
	Position       int    `json:"position" gorm:"not null;default:0"`
}
