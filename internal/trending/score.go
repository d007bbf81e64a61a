// Package trending computes post hot scores and keeps them fresh.
package trending

import (
	"math"
	"time"

	"github.com/feek13/mini-social-sub003/internal/models"
	"gorm.io/gorm"
)

const (
	commentWeight = 2.0
	gravity       = 1.5

	// Window is how far back the refresher rescores posts.
	Window = 7 * 24 * time.Hour
)

// HotScore ranks a post: (likes + 2*comments + 1) / (ageHours + 2)^1.5.
func HotScore(likes, comments int, createdAt, now time.Time) float64 {
	ageHours := now.Sub(createdAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	points := float64(likes) + commentWeight*float64(comments) + 1
	return points / math.Pow(ageHours+2, gravity)
}

// UpdatePost recomputes one post's score from its stored counters.
func UpdatePost(db *gorm.DB, postID string) error {
	var post models.Post
	if err := db.Select("id", "likes_count", "comments_count", "created_at").
		First(&post, "id = ?", postID).Error; err != nil {
		return err
	}
	score := HotScore(post.LikesCount, post.CommentsCount, post.CreatedAt, time.Now())
	return db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("hot_score", score).Error
}
