package repository

import (
	"context"
	"errors"
	"time"

	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/telemetry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationSummary is one row of a user's inbox.
type ConversationSummary struct {
	Conversation models.Conversation
	Other        models.User
	LastMessage  *models.Message
	UnreadCount  int64
}

// MessageRepository handles direct-message conversations.
type MessageRepository interface {
	GetOrCreateDirect(ctx context.Context, userID, otherID string) (*models.Conversation, bool, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	Participants(ctx context.Context, conversationID string) ([]string, error)
	ListConversations(ctx context.Context, userID string, page Page) ([]ConversationSummary, int64, error)
	ListMessages(ctx context.Context, conversationID string, page Page) ([]models.Message, int64, error)
	SendMessage(ctx context.Context, msg *models.Message) error
	MarkRead(ctx context.Context, conversationID, userID string) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// GetOrCreateDirect returns the two-person conversation between the users,
// creating it when missing. The bool is true when it was created. Concurrent
// first calls for the same pair converge on one conversation through the
// unique dm_key.
func (r *messageRepository) GetOrCreateDirect(ctx context.Context, userID, otherID string) (*models.Conversation, bool, error) {
	if userID == otherID {
		return nil, false, ErrSelfMessage
	}

	key := models.DirectKey(userID, otherID)
	var conv models.Conversation
	created := false
	err := r.db.WithContext(telemetry.WithDBOperation(ctx, "conversations.get_or_create")).Transaction(func(tx *gorm.DB) error {
		conv = models.Conversation{DMKey: &key, LastMessageAt: time.Now().UTC()}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dm_key"}},
			DoNothing: true,
		}).Create(&conv)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			conv = models.Conversation{}
			return tx.Where("dm_key = ?", key).First(&conv).Error
		}

		created = true
		participants := []models.ConversationParticipant{
			{ConversationID: conv.ID, UserID: userID},
			{ConversationID: conv.ID, UserID: otherID},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &conv, created, nil
}

func (r *messageRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *messageRepository) Participants(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListConversations returns the user's conversations, most recent activity
// first, each with the other participant, the last message and the unread
// count. Counts are queried one conversation at a time.
func (r *messageRepository) ListConversations(ctx context.Context, userID string, page Page) ([]ConversationSummary, int64, error) {
	db := r.db.WithContext(ctx)

	mine := db.Model(&models.ConversationParticipant{}).Where("user_id = ?", userID)
	var total int64
	if err := mine.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var memberships []models.ConversationParticipant
	err := db.Model(&models.ConversationParticipant{}).
		Joins("JOIN conversations ON conversations.id = conversation_participants.conversation_id").
		Where("conversation_participants.user_id = ?", userID).
		Order("conversations.last_message_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&memberships).Error
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]ConversationSummary, 0, len(memberships))
	for _, m := range memberships {
		var s ConversationSummary
		if err := db.Where("id = ?", m.ConversationID).First(&s.Conversation).Error; err != nil {
			return nil, 0, err
		}

		var other models.ConversationParticipant
		if err := db.Preload("User").
			Where("conversation_id = ? AND user_id <> ?", m.ConversationID, userID).
			Limit(1).Find(&other).Error; err != nil {
			return nil, 0, err
		}
		s.Other = other.User

		var last models.Message
		if err := db.Where("conversation_id = ?", m.ConversationID).
			Order("created_at DESC").Limit(1).Find(&last).Error; err != nil {
			return nil, 0, err
		}
		if last.ID != "" {
			s.LastMessage = &last
		}

		unread := db.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ?", m.ConversationID, userID)
		if m.LastReadAt != nil {
			unread = unread.Where("created_at > ?", *m.LastReadAt)
		}
		if err := unread.Count(&s.UnreadCount).Error; err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, nil
}

// ListMessages returns newest first.
func (r *messageRepository) ListMessages(ctx context.Context, conversationID string, page Page) ([]models.Message, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Message{}).Where("conversation_id = ?", conversationID)

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var messages []models.Message
	err := db.Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&messages).Error
	return messages, total, err
}

// SendMessage stores msg, bumps the conversation and marks it read for the
// sender.
func (r *messageRepository) SendMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.Where("id = ?", msg.ConversationID).First(&conv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).
			UpdateColumn("last_message_at", msg.CreatedAt).Error; err != nil {
			return err
		}
		return tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conv.ID, msg.SenderID).
			UpdateColumn("last_read_at", msg.CreatedAt).Error
	})
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID, userID string) error {
	return r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		UpdateColumn("last_read_at", time.Now().UTC()).Error
}
