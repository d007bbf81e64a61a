package models

import (
	"time"

	"gorm.io/gorm"
)

// WalletTracker is an address a user watches on a given chain.
type WalletTracker struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_trackers_unique" json:"user_id"`
	Address   string    `gorm:"size:42;not null;uniqueIndex:idx_wallet_trackers_unique" json:"address"`
	Chain     string    `gorm:"size:20;not null;uniqueIndex:idx_wallet_trackers_unique" json:"chain"`
	Label     string    `gorm:"size:50" json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

func (w *WalletTracker) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = generateUUID()
	}
	return nil
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Post{},
		&Comment{},
		&PostLike{},
		&Follow{},
		&Hashtag{},
		&PostHashtag{},
		&Notification{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&WalletTracker{},
	}
}
