package trending

import (
	"context"
	"testing"
	"time"

	"github.com/feek13/mini-social-sub003/internal/database"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestHotScore(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	fresh := HotScore(0, 0, now, now)
	assert.InDelta(t, 1/(2*1.4142135623730951), fresh, 1e-9)

	// comments weigh twice as much as likes
	assert.InDelta(t, HotScore(2, 0, now, now), HotScore(0, 1, now, now), 1e-12)

	// older posts decay
	assert.Greater(t, HotScore(10, 0, now.Add(-time.Hour), now), HotScore(10, 0, now.Add(-48*time.Hour), now))

	// clock skew never produces a larger-than-fresh score
	assert.Equal(t, fresh, HotScore(0, 0, now.Add(time.Hour), now))
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { _ = database.Close() })
	return db
}

func TestRefresh(t *testing.T) {
	db := setupDB(t)
	now := time.Now().UTC()

	user := &models.User{Username: "alice", Email: "a@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	recent := &models.Post{UserID: user.ID, Content: "recent", LikesCount: 5, CommentsCount: 1, CreatedAt: now.Add(-2 * time.Hour)}
	old := &models.Post{UserID: user.ID, Content: "old", LikesCount: 50, CreatedAt: now.Add(-10 * 24 * time.Hour)}
	require.NoError(t, db.Create(recent).Error)
	require.NoError(t, db.Create(old).Error)

	r := NewRefresher(db, time.Minute)
	r.now = func() time.Time { return now }

	updated, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	var got models.Post
	require.NoError(t, db.First(&got, "id = ?", recent.ID).Error)
	assert.InDelta(t, HotScore(5, 1, recent.CreatedAt, now), got.HotScore, 1e-6)

	require.NoError(t, db.First(&got, "id = ?", old.ID).Error)
	assert.Zero(t, got.HotScore)
}

func TestUpdatePost(t *testing.T) {
	db := setupDB(t)

	user := &models.User{Username: "bob", Email: "b@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	post := &models.Post{UserID: user.ID, Content: "hi", LikesCount: 3}
	require.NoError(t, db.Create(post).Error)

	require.NoError(t, UpdatePost(db, post.ID))

	var got models.Post
	require.NoError(t, db.First(&got, "id = ?", post.ID).Error)
	assert.Greater(t, got.HotScore, 0.0)

	assert.Error(t, UpdatePost(db, "missing"))
}

func TestRefresherStartStop(t *testing.T) {
	db := setupDB(t)
	r := NewRefresher(db, time.Hour)
	r.Start()
	r.Stop()
	r.Stop()
}
