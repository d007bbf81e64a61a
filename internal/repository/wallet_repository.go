package repository

import (
	"context"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepository stores the addresses users track.
type WalletRepository interface {
	ListTrackers(ctx context.Context, userID string) ([]models.WalletTracker, error)
	AddTracker(ctx context.Context, tracker *models.WalletTracker) error
	DeleteTracker(ctx context.Context, userID, trackerID string) (bool, error)
}

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) ListTrackers(ctx context.Context, userID string) ([]models.WalletTracker, error) {
	trackers := []models.WalletTracker{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&trackers).Error
	return trackers, err
}

// AddTracker stores the address lower-cased. It returns ErrDuplicate when the
// user already tracks it on that chain.
func (r *walletRepository) AddTracker(ctx context.Context, tracker *models.WalletTracker) error {
	tracker.Address = strings.ToLower(tracker.Address)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(tracker)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *walletRepository) DeleteTracker(ctx context.Context, userID, trackerID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", trackerID, userID).Delete(&models.WalletTracker{})
	return res.RowsAffected > 0, res.Error
}
