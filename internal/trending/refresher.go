package trending

import (
	"context"
	"sync"
	"time"

	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/metrics"
	"github.com/feek13/mini-social-sub003/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batchSize = 500

// Refresher periodically rescores the posts of the last week so older posts
// decay even when nobody interacts with them.
type Refresher struct {
	db       *gorm.DB
	interval time.Duration
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewRefresher(db *gorm.DB, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		db:       db,
		interval: interval,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start refreshes once immediately and then on every tick.
func (r *Refresher) Start() {
	logger.Log.Info("Starting hot score refresher", zap.Duration("interval", r.interval))
	go r.run()
}

// Stop cancels the loop and waits for an in-flight refresh to finish.
func (r *Refresher) Stop() {
	r.once.Do(func() {
		r.cancel()
		<-r.done
		logger.Log.Info("Hot score refresher stopped")
	})
}

func (r *Refresher) run() {
	defer close(r.done)

	r.refreshAndLog()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.refreshAndLog()
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Refresher) refreshAndLog() {
	updated, err := r.Refresh(r.ctx)
	if err != nil {
		if r.ctx.Err() == nil {
			logger.ErrorWithFields("Hot score refresh failed", err)
		}
		return
	}
	logger.Log.Debug("Hot scores refreshed", zap.Int64("posts", updated))
}

// Refresh rescores every live post created within Window and returns how many
// rows it touched.
func (r *Refresher) Refresh(ctx context.Context) (int64, error) {
	start := time.Now()
	now := r.now()
	db := r.db.WithContext(ctx)

	var updated int64
	var posts []models.Post
	err := db.Model(&models.Post{}).
		Select("id", "likes_count", "comments_count", "created_at").
		Where("created_at >= ?", now.Add(-Window)).
		FindInBatches(&posts, batchSize, func(_ *gorm.DB, _ int) error {
			return db.Transaction(func(tx *gorm.DB) error {
				for _, p := range posts {
					score := HotScore(p.LikesCount, p.CommentsCount, p.CreatedAt, now)
					if err := tx.Model(&models.Post{}).Where("id = ?", p.ID).
						UpdateColumn("hot_score", score).Error; err != nil {
						return err
					}
					updated++
				}
				return nil
			})
		}).Error
	if err != nil {
		return updated, err
	}

	m := metrics.Get()
	m.HotScoreRefreshDuration.Observe(time.Since(start).Seconds())
	m.HotScorePostsUpdated.Add(float64(updated))
	return updated, nil
}
