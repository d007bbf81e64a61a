package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/telemetry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles profiles and the follow graph.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID string, updates map[string]any) (*models.User, error)
	SearchUsers(ctx context.Context, query string, page Page) ([]models.User, int64, error)

	GetFollowers(ctx context.Context, userID string, page Page) ([]models.User, int64, error)
	GetFollowing(ctx context.Context, userID string, page Page) ([]models.User, int64, error)
	Follow(ctx context.Context, followerID, followingID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followingID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetUser gets a user by ID
func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &user, err
}

// GetUserByUsername matches case-insensitively.
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &user, err
}

// GetUsersByUsernames resolves lower-cased usernames (mentions) to users.
// Unknown names are skipped.
func (r *userRepository) GetUsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(usernames))
	for i, u := range usernames {
		lowered[i] = strings.ToLower(u)
	}
	var users []models.User
	err := r.db.WithContext(ctx).Where("LOWER(username) IN ?", lowered).Find(&users).Error
	return users, err
}

// UpdateProfile applies column updates and returns the fresh row.
func (r *userRepository) UpdateProfile(ctx context.Context, userID string, updates map[string]any) (*models.User, error) {
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return r.GetUser(ctx, userID)
}

// SearchUsers matches username or display name by substring, most followed
// first.
func (r *userRepository) SearchUsers(ctx context.Context, query string, page Page) ([]models.User, int64, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	q := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) LIKE ? ESCAPE '\\' OR LOWER(display_name) LIKE ? ESCAPE '\\'", pattern, pattern)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := q.Order("followers_count DESC").Order("username").
		Limit(page.Limit).Offset(page.Offset).
		Find(&users).Error
	return users, total, err
}

// GetFollowers gets users following the given user
func (r *userRepository) GetFollowers(ctx context.Context, userID string, page Page) ([]models.User, int64, error) {
	return r.followList(ctx, "follows.follower_id = users.id", "follows.following_id = ?", userID, page)
}

// GetFollowing gets users that the given user follows
func (r *userRepository) GetFollowing(ctx context.Context, userID string, page Page) ([]models.User, int64, error) {
	return r.followList(ctx, "follows.following_id = users.id", "follows.follower_id = ?", userID, page)
}

func (r *userRepository) followList(ctx context.Context, join, where, userID string, page Page) ([]models.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Table("follows").Where(strings.TrimPrefix(where, "follows."), userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON "+join).
		Where(where, userID).
		Order("follows.created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&users).Error
	return users, total, err
}

// Follow creates the edge and bumps both counters. It reports false when the
// edge already existed.
func (r *userRepository) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == followingID {
		return false, ErrSelfFollow
	}

	created := false
	err := r.db.WithContext(telemetry.WithDBOperation(ctx, "follows.create")).Transaction(func(tx *gorm.DB) error {
		follow := models.Follow{FollowerID: followerID, FollowingID: followingID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		if err := tx.Model(&models.User{}).Where("id = ?", followerID).
			UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", followingID).
			UpdateColumn("followers_count", gorm.Expr("followers_count + 1")).Error
	})
	return created, err
}

// Unfollow removes the edge; false when there was none.
func (r *userRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	removed := false
	err := r.db.WithContext(telemetry.WithDBOperation(ctx, "follows.delete")).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		if err := tx.Model(&models.User{}).Where("id = ? AND following_count > 0", followerID).
			UpdateColumn("following_count", gorm.Expr("following_count - 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ? AND followers_count > 0", followingID).
			UpdateColumn("followers_count", gorm.Expr("followers_count - 1")).Error
	})
	return removed, err
}

// IsFollowing checks if follower follows following
func (r *userRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
