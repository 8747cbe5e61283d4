package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a platform member that can author posts and be mentioned.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Username  *string   `json:"username" gorm:"type:varchar(100);uniqueIndex"`
	Image     string    `json:"image" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

// Source is a publication (blog, squad) that posts belong to.
type Source struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Handle    string    `json:"handle" gorm:"type:varchar(100);uniqueIndex"`
	Image     string    `json:"image" gorm:"type:text"`
	Private   bool      `json:"private" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (s *Source) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Post is a piece of content published by a source.
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"type:varchar(512);not null"`
	URL       string    `json:"url" gorm:"type:text"`
	Image     string    `json:"image" gorm:"type:text"`
	SourceID  string    `json:"sourceId" gorm:"not null;index"`
	AuthorID  *string   `json:"authorId,omitempty" gorm:"index"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index"`
}

// BeforeCreate assigns ids so the same models work on every SQL dialect.
func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// KeywordStatus is the moderation state of a keyword.
type KeywordStatus string

const (
	KeywordStatusPending KeywordStatus = "pending"
	KeywordStatusAllow   KeywordStatus = "allow"
	KeywordStatusDeny    KeywordStatus = "deny"
)

// Valid reports whether s is a known status.
func (s KeywordStatus) Valid() bool {
	switch s {
	case KeywordStatusPending, KeywordStatusAllow, KeywordStatusDeny:
		return true
	}
	return false
}

// Keyword is a moderated tag candidate extracted from posts.
type Keyword struct {
	Value       string        `json:"value" gorm:"primaryKey;type:varchar(255)"`
	Status      KeywordStatus `json:"status" gorm:"type:varchar(32);not null;default:'pending';index"`
	Occurrences int           `json:"occurrences" gorm:"not null;default:0"`
	Title       *string       `json:"title,omitempty" gorm:"type:varchar(255)"`
	Description *string       `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time     `json:"createdAt" gorm:"not null"`
	UpdatedAt   time.Time     `json:"updatedAt" gorm:"not null"`
}

// KeywordFlags are the editable presentation fields of a keyword.
type KeywordFlags struct {
	Title       *string
	Description *string
}

// PostKeyword links a post to a keyword. Status mirrors the keyword status.
type PostKeyword struct {
	PostID  string        `json:"postId" gorm:"primaryKey"`
	Keyword string        `json:"keyword" gorm:"primaryKey;type:varchar(255);index"`
	Status  KeywordStatus `json:"status" gorm:"type:varchar(32);not null;default:'pending'"`
}

// PostMention records that a user was mentioned in a post.
type PostMention struct {
	PostID            string    `json:"postId" gorm:"primaryKey"`
	MentionedUserID   string    `json:"mentionedUserId" gorm:"primaryKey"`
	MentionedByUserID string    `json:"mentionedByUserId" gorm:"not null"`
	CreatedAt         time.Time `json:"createdAt" gorm:"not null"`
}

// NormalizeKeyword lower-cases the value, trims it and joins inner
// whitespace runs with "-".
func NormalizeKeyword(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), "-")
}
