package models

import (
	"time"

	"gorm.io/gorm"
)

// Follow is a directed edge follower -> following. Self-follows are rejected
// by the handlers.
type Follow struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	FollowerID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair" json:"follower_id"`
	FollowingID string    `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
	NotificationMessage NotificationType = "message"
)

// Notification tells RecipientID that ActorID did something.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientID string           `gorm:"type:uuid;not null;index:idx_notifications_recipient_created,priority:1" json:"recipient_id"`
	ActorID     string           `gorm:"type:uuid;not null" json:"actor_id"`
	Actor       User             `gorm:"foreignKey:ActorID" json:"-"`
	Type        NotificationType `gorm:"size:20;not null" json:"type"`
	PostID      *string          `gorm:"type:uuid" json:"post_id,omitempty"`
	CommentID   *string          `gorm:"type:uuid" json:"comment_id,omitempty"`
	IsRead      bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt   time.Time        `gorm:"index:idx_notifications_recipient_created,priority:2" json:"created_at"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}
