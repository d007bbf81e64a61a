package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a short text post, optionally with an image and a link.
type Post struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"type:uuid;not null;index" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"-"`
	Content  string `gorm:"type:text;not null" json:"content"`
	ImageURL string `json:"image_url,omitempty"`
	LinkURL  string `json:"link_url,omitempty"`

	LikesCount    int     `gorm:"default:0" json:"likes_count"`
	CommentsCount int     `gorm:"default:0" json:"comments_count"`
	HotScore      float64 `gorm:"default:0;index" json:"hot_score"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Comment is a reply to a post. ParentID threads one level deep.
type Comment struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	PostID   string  `gorm:"type:uuid;not null;index" json:"post_id"`
	UserID   string  `gorm:"type:uuid;not null;index" json:"user_id"`
	User     User    `gorm:"foreignKey:UserID" json:"-"`
	ParentID *string `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Content  string  `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostLike records that a user liked a post; (post, user) is unique.
type PostLike struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_likes_post_user" json:"post_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_likes_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Hashtag is a lower-cased tag with the number of live posts using it.
type Hashtag struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name       string    `gorm:"uniqueIndex;not null;size:50" json:"name"`
	PostCount  int       `gorm:"default:0;index" json:"post_count"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PostHashtag links posts to hashtags.
type PostHashtag struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_hashtags_post_tag" json:"post_id"`
	HashtagID string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_hashtags_post_tag;index" json:"hashtag_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (l *PostLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (h *Hashtag) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = generateUUID()
	}
	return nil
}

func (ph *PostHashtag) BeforeCreate(tx *gorm.DB) error {
	if ph.ID == "" {
		ph.ID = generateUUID()
	}
	return nil
}
