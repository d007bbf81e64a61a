package repository

import (
	"context"
	"errors"
	"time"

	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/telemetry"
	"github.com/feek13/mini-social-sub003/internal/trending"
	"github.com/feek13/mini-social-sub003/internal/util"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Feed names accepted by PostQuery.
const (
	FeedLatest    = "latest"
	FeedFollowing = "following"
	FeedTrending  = "trending"
)

// PostQuery selects a page of posts. Zero fields do not filter.
type PostQuery struct {
	Feed     string
	ViewerID string // required for FeedFollowing
	AuthorID string
	Hashtag  string
	Page
}

// PostRepository handles posts, comments, likes and hashtags. Counter columns
// change in the same transaction as the rows they count.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) ([]string, error)
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	DeletePost(ctx context.Context, post *models.Post) error
	ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error)

	Like(ctx context.Context, postID, userID string) (bool, int, error)
	Unlike(ctx context.Context, postID, userID string) (bool, int, error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)

	AddComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, commentID string) (*models.Comment, error)
	DeleteComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, postID string, page Page) ([]models.Comment, int64, error)

	TrendingHashtags(ctx context.Context, limit int) ([]models.Hashtag, error)
	SearchHashtags(ctx context.Context, prefix string, limit int) ([]models.Hashtag, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// CreatePost inserts the post, links its #hashtags and bumps the author's
// post count. It returns the hashtags it linked.
func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) ([]string, error) {
	if post == nil || post.UserID == "" {
		return nil, ErrInvalidInput
	}
	tags := util.ExtractHashtags(post.Content)

	err := r.db.WithContext(telemetry.WithDBOperation(ctx, "posts.create")).Transaction(func(tx *gorm.DB) error {
		if post.CreatedAt.IsZero() {
			post.CreatedAt = time.Now().UTC()
		}
		post.HotScore = trending.HotScore(post.LikesCount, post.CommentsCount, post.CreatedAt, time.Now())
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", post.UserID).
			UpdateColumn("posts_count", gorm.Expr("posts_count + 1")).Error; err != nil {
			return err
		}
		return linkHashtags(tx, post.ID, tags)
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func linkHashtags(tx *gorm.DB, postID string, tags []string) error {
	now := time.Now().UTC()
	for _, name := range tags {
		tag := models.Hashtag{Name: name, LastUsedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{"last_used_at": now}),
		}).Create(&tag).Error; err != nil {
			return err
		}
		// The upsert does not return the id of an existing row.
		var stored models.Hashtag
		if err := tx.Where("name = ?", name).First(&stored).Error; err != nil {
			return err
		}

		link := models.PostHashtag{PostID: postID, HashtagID: stored.ID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Model(&models.Hashtag{}).Where("id = ?", stored.ID).
				UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// GetPost loads a live post with its author.
func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	return &post, err
}

// DeletePost soft-deletes the post and releases its hashtags.
func (r *postRepository) DeletePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(telemetry.WithDBOperation(ctx, "posts.delete")).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Post{}, "id = ?", post.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPostNotFound
		}
		if err := tx.Model(&models.User{}).Where("id = ? AND posts_count > 0", post.UserID).
			UpdateColumn("posts_count", gorm.Expr("posts_count - 1")).Error; err != nil {
			return err
		}

		var tagIDs []string
		if err := tx.Model(&models.PostHashtag{}).Where("post_id = ?", post.ID).
			Pluck("hashtag_id", &tagIDs).Error; err != nil {
			return err
		}
		if len(tagIDs) > 0 {
			if err := tx.Model(&models.Hashtag{}).Where("id IN ? AND post_count > 0", tagIDs).
				UpdateColumn("post_count", gorm.Expr("post_count - 1")).Error; err != nil {
				return err
			}
		}
		return tx.Where("post_id = ?", post.ID).Delete(&models.PostHashtag{}).Error
	})
}

// ListPosts returns one page of a feed, a user's posts or a hashtag's posts,
// with authors preloaded.
func (r *postRepository) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	db := r.db.WithContext(telemetry.WithDBOperation(ctx, feedOperation(q))).Model(&models.Post{})

	if q.AuthorID != "" {
		db = db.Where("posts.user_id = ?", q.AuthorID)
	}
	if q.Hashtag != "" {
		db = db.Joins("JOIN post_hashtags ON post_hashtags.post_id = posts.id").
			Joins("JOIN hashtags ON hashtags.id = post_hashtags.hashtag_id").
			Where("hashtags.name = ?", q.Hashtag)
	}
	if q.Feed == FeedFollowing {
		if q.ViewerID == "" {
			return nil, 0, ErrInvalidInput
		}
		followed := r.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", q.ViewerID)
		db = db.Where("posts.user_id IN (?) OR posts.user_id = ?", followed, q.ViewerID)
	}

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if q.Feed == FeedTrending {
		db = db.Order("posts.hot_score DESC")
	}
	var posts []models.Post
	err := db.Preload("User").
		Order("posts.created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&posts).Error
	return posts, total, err
}

// feedOperation names a ListPosts call for tracing.
func feedOperation(q PostQuery) string {
	switch {
	case q.AuthorID != "":
		return "posts.by_author"
	case q.Hashtag != "":
		return "posts.by_hashtag"
	case q.Feed != "":
		return "feed." + q.Feed
	default:
		return "feed." + FeedLatest
	}
}

// Like is idempotent: it reports whether a new like was recorded, and the
// post's like count afterwards.
func (r *postRepository) Like(ctx context.Context, postID, userID string) (bool, int, error) {
	return r.toggleLike(ctx, postID, userID, true)
}

// Unlike removes the like, if any.
func (r *postRepository) Unlike(ctx context.Context, postID, userID string) (bool, int, error) {
	return r.toggleLike(ctx, postID, userID, false)
}

func (r *postRepository) toggleLike(ctx context.Context, postID, userID string, like bool) (bool, int, error) {
	op := "posts.unlike"
	if like {
		op = "posts.like"
	}
	changed := false
	var post models.Post
	err := r.db.WithContext(telemetry.WithDBOperation(ctx, op)).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").Where("id = ?", postID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		var res *gorm.DB
		delta := "likes_count + 1"
		if like {
			res = tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.PostLike{PostID: postID, UserID: userID})
		} else {
			res = tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
			delta = "likes_count - 1"
		}
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			changed = true
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("likes_count", gorm.Expr(delta)).Error; err != nil {
				return err
			}
			if err := trending.UpdatePost(tx, postID); err != nil {
				return err
			}
		}
		return tx.Select("likes_count").Where("id = ?", postID).First(&post).Error
	})
	return changed, post.LikesCount, err
}

// LikedPostIDs reports which of postIDs userID has liked.
func (r *postRepository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool)
	if userID == "" || len(postIDs) == 0 {
		return liked, nil
	}
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// AddComment inserts the comment and bumps the post's comment count. A reply
// to a reply is attached to the top-level comment.
func (r *postRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(telemetry.WithDBOperation(ctx, "comments.create")).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").Where("id = ?", comment.PostID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		if comment.ParentID != nil {
			var parent models.Comment
			if err := tx.Where("id = ? AND post_id = ?", *comment.ParentID, comment.PostID).First(&parent).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			if parent.ParentID != nil {
				comment.ParentID = parent.ParentID
			}
		}

		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error; err != nil {
			return err
		}
		return trending.UpdatePost(tx, comment.PostID)
	})
}

func (r *postRepository) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", commentID).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &comment, err
}

// DeleteComment soft-deletes the comment and its direct replies.
func (r *postRepository) DeleteComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(telemetry.WithDBOperation(ctx, "comments.delete")).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? OR parent_id = ?", comment.ID, comment.ID).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("CASE WHEN comments_count >= ? THEN comments_count - ? ELSE 0 END", res.RowsAffected, res.RowsAffected)).Error; err != nil {
			return err
		}
		return trending.UpdatePost(tx, comment.PostID)
	})
}

// ListComments returns comments oldest first.
func (r *postRepository) ListComments(ctx context.Context, postID string, page Page) ([]models.Comment, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID)

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var comments []models.Comment
	err := db.Preload("User").Order("created_at ASC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&comments).Error
	return comments, total, err
}

// TrendingHashtags orders by live post count, then recency.
func (r *postRepository) TrendingHashtags(ctx context.Context, limit int) ([]models.Hashtag, error) {
	var tags []models.Hashtag
	err := r.db.WithContext(ctx).
		Where("post_count > 0").
		Order("post_count DESC").Order("last_used_at DESC").
		Limit(limit).
		Find(&tags).Error
	return tags, err
}

// SearchHashtags matches by name prefix.
func (r *postRepository) SearchHashtags(ctx context.Context, prefix string, limit int) ([]models.Hashtag, error) {
	var tags []models.Hashtag
	err := r.db.WithContext(ctx).
		Where("name LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("post_count DESC").
		Limit(limit).
		Find(&tags).Error
	return tags, err
}
