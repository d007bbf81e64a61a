package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account plus its public profile.
type User struct {
	ID            string  `gorm:"primaryKey;type:uuid" json:"id"`
	Email         string  `gorm:"uniqueIndex;not null" json:"-"`
	Username      string  `gorm:"uniqueIndex;not null;size:20" json:"username"`
	DisplayName   string  `gorm:"size:50" json:"display_name"`
	Bio           string  `gorm:"type:text" json:"bio"`
	AvatarURL     string  `json:"avatar_url,omitempty"`
	Website       string  `json:"website,omitempty"`
	WalletAddress *string `gorm:"size:42;index" json:"wallet_address,omitempty"`
	PasswordHash  string  `gorm:"not null" json:"-"`

	FollowersCount int `gorm:"default:0" json:"followers_count"`
	FollowingCount int `gorm:"default:0" json:"following_count"`
	PostsCount     int `gorm:"default:0" json:"posts_count"`

	LastActiveAt *time.Time     `json:"last_active_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// PublicUser is the compact author block embedded in posts, comments and
// notifications.
type PublicUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}
