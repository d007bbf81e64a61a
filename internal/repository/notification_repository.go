package repository

import (
	"context"

	"github.com/feek13/mini-social-sub003/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository stores and reads notifications.
type NotificationRepository interface {
	Notify(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, recipientID string, unreadOnly bool, page Page) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Notify stores n unless the actor is notifying themselves.
func (r *notificationRepository) Notify(ctx context.Context, n *models.Notification) error {
	if n.RecipientID == "" || n.RecipientID == n.ActorID {
		return nil
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// List returns newest first, with the actor preloaded.
func (r *notificationRepository) List(ctx context.Context, recipientID string, unreadOnly bool, page Page) ([]models.Notification, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := db.Preload("Actor").
		Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead reports false when no notification with that id belongs to
// recipientID.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) (bool, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).Select("id").
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Limit(1).Find(&n).Error
	if err != nil || n.ID == "" {
		return false, err
	}
	err = r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).
		UpdateColumn("is_read", true).Error
	return err == nil, err
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		UpdateColumn("is_read", true)
	return res.RowsAffected, res.Error
}
