package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Conversation is a direct-message thread between two users. DMKey holds
// DirectKey of the pair; its unique index allows one conversation per pair.
type Conversation struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	DMKey         *string   `gorm:"column:dm_key;size:80;uniqueIndex" json:"-"`
	LastMessageAt time.Time `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DirectKey is the order-independent key of a two-person conversation.
func DirectKey(userID, otherID string) string {
	pair := []string{userID, otherID}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// ConversationParticipant tracks membership and how far a user has read.
type ConversationParticipant struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	ConversationID string     `gorm:"type:uuid;not null;uniqueIndex:idx_participants_pair" json:"conversation_id"`
	UserID         string     `gorm:"type:uuid;not null;uniqueIndex:idx_participants_pair;index" json:"user_id"`
	User           User       `gorm:"foreignKey:UserID" json:"-"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Message struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ConversationID string    `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       string    `gorm:"type:uuid;not null" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (p *ConversationParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}
