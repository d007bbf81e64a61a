package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/feek13/mini-social-sub003/internal/chains"
	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/repository"
	"github.com/feek13/mini-social-sub003/internal/trending"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

var (
	usernameStrip = regexp.MustCompile(`[^a-z0-9_]`)

	seedHashtags = []string{"defi", "eth", "nft", "l2", "airdrop", "gm", "base", "staking", "memecoin", "dao"}
	walletLabels = []string{"cold", "hot", "degen", "vault", "whale watch", ""}
)

// Seeder fills the database with fake but plausible data.
type Seeder struct {
	db      *gorm.DB
	users   repository.UserRepository
	posts   repository.PostRepository
	wallets repository.WalletRepository

	passwordHash string
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:      db,
		users:   repository.NewUserRepository(db),
		posts:   repository.NewPostRepository(db),
		wallets: repository.NewWalletRepository(db),
	}
}

// DevCounts sizes a development seed.
type DevCounts struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
	Follows  int
}

// DefaultDevCounts is what `seed dev` creates.
var DefaultDevCounts = DevCounts{Users: 50, Posts: 300, Comments: 600, Likes: 1500, Follows: 400}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(ctx context.Context, counts DevCounts) error {
	logger.Log.Info("Creating users...", zap.Int("count", counts.Users))
	users, err := s.seedUsers(ctx, counts.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if len(users) < 2 {
		return errors.New("need at least two users to seed interactions")
	}

	logger.Log.Info("Creating follows...")
	if err := s.seedFollows(ctx, users, counts.Follows); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating posts...")
	posts, err := s.seedPosts(ctx, users, counts.Posts, 7*24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	logger.Log.Info("Creating comments...")
	if err := s.seedComments(ctx, users, posts, counts.Comments); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Creating likes...")
	if err := s.seedLikes(ctx, users, posts, counts.Likes); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}

	logger.Log.Info("Creating wallet trackers...")
	if err := s.seedWalletTrackers(ctx, users); err != nil {
		return fmt.Errorf("failed to seed wallet trackers: %w", err)
	}

	updated, err := trending.NewRefresher(s.db, 0).Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh hot scores: %w", err)
	}
	logger.Log.Info("Seed complete", zap.Int64("hot_scores_updated", updated))
	return nil
}

// SeedTest creates five fixed accounts with a handful of posts between them.
func (s *Seeder) SeedTest(ctx context.Context) ([]models.User, error) {
	accounts := []struct {
		username    string
		displayName string
	}{
		{"alice", "Alice Smith"},
		{"bob", "Bob Johnson"},
		{"charlie", "Charlie Brown"},
		{"diana", "Diana Prince"},
		{"eve", "Eve Wilson"},
	}

	hash, err := s.hash()
	if err != nil {
		return nil, err
	}

	var users []models.User
	for _, acct := range accounts {
		var user models.User
		err := s.db.WithContext(ctx).Where("username = ?", acct.username).First(&user).Error
		if err == nil {
			users = append(users, user)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		user = models.User{
			Email:        acct.username + "@example.com",
			Username:     acct.username,
			DisplayName:  acct.displayName,
			PasswordHash: hash,
			AvatarURL:    avatarURL(acct.username),
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create test user %s: %w", acct.username, err)
		}
		users = append(users, user)
	}

	posts, err := s.seedPosts(ctx, users, 5, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to seed posts: %w", err)
	}
	if err := s.seedComments(ctx, users, posts, 10); err != nil {
		return nil, fmt.Errorf("failed to seed comments: %w", err)
	}
	return users, nil
}

// Clean removes all seed data (use with caution!)
func (s *Seeder) Clean(ctx context.Context) error {
	// Children first.
	tables := []string{
		"messages",
		"conversation_participants",
		"conversations",
		"notifications",
		"wallet_trackers",
		"post_hashtags",
		"hashtags",
		"post_likes",
		"comments",
		"posts",
		"follows",
		"users",
	}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) hash() (string, error) {
	if s.passwordHash != "" {
		return s.passwordHash, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	s.passwordHash = string(hashed)
	return s.passwordHash, nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]models.User, error) {
	hash, err := s.hash()
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username, email := fakeUsername(), gofakeit.Email()

		// Retry until both are free.
		for {
			var taken int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("LOWER(username) = ? OR LOWER(email) = ?", username, strings.ToLower(email)).
				Count(&taken).Error; err != nil {
				return nil, err
			}
			if taken == 0 {
				break
			}
			username, email = fakeUsername(), gofakeit.Email()
		}

		lastActive := gofakeit.DateRange(time.Now().Add(-72*time.Hour), time.Now())
		user := models.User{
			Email:        strings.ToLower(email),
			Username:     username,
			DisplayName:  truncate(gofakeit.Name(), 50),
			Bio:          fmt.Sprintf("%s Based in %s, %s.", gofakeit.HipsterSentence(), gofakeit.City(), gofakeit.Country()),
			AvatarURL:    avatarURL(username),
			PasswordHash: hash,
			LastActiveAt: &lastActive,
		}
		if rand.Float32() < 0.4 {
			addr := fakeAddress()
			user.WalletAddress = &addr
		}

		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []models.User, count int) error {
	for i := 0; i < count; i++ {
		follower := users[rand.Intn(len(users))]
		following := users[rand.Intn(len(users))]
		if follower.ID == following.ID {
			continue
		}
		if _, err := s.users.Follow(ctx, follower.ID, following.ID); err != nil {
			return err
		}
	}
	return nil
}

// seedPosts spreads posts over the last `spread`, a third of them tagged.
func (s *Seeder) seedPosts(ctx context.Context, users []models.User, count int, spread time.Duration) ([]models.Post, error) {
	now := time.Now().UTC()
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]

		content := gofakeit.HipsterSentence()
		if rand.Intn(3) == 0 {
			content += " #" + seedHashtags[rand.Intn(len(seedHashtags))]
			if rand.Intn(2) == 0 {
				content += " #" + seedHashtags[rand.Intn(len(seedHashtags))]
			}
		}
		if rand.Intn(5) == 0 {
			other := users[rand.Intn(len(users))]
			content += " cc @" + other.Username
		}

		post := models.Post{
			UserID:    author.ID,
			Content:   content,
			CreatedAt: gofakeit.DateRange(now.Add(-spread), now),
		}
		if rand.Intn(10) == 0 {
			post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.Word())
		}
		if _, err := s.posts.CreatePost(ctx, &post); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) seedComments(ctx context.Context, users []models.User, posts []models.Post, count int) error {
	if len(posts) == 0 {
		return nil
	}
	var topLevel []models.Comment
	for i := 0; i < count; i++ {
		comment := models.Comment{
			PostID:  posts[rand.Intn(len(posts))].ID,
			UserID:  users[rand.Intn(len(users))].ID,
			Content: gofakeit.HipsterSentence(),
		}
		// Some replies to earlier comments.
		if len(topLevel) > 0 && rand.Intn(4) == 0 {
			parent := topLevel[rand.Intn(len(topLevel))]
			comment.PostID = parent.PostID
			comment.ParentID = &parent.ID
		}
		if err := s.posts.AddComment(ctx, &comment); err != nil {
			return err
		}
		if comment.ParentID == nil {
			topLevel = append(topLevel, comment)
		}
	}
	return nil
}

func (s *Seeder) seedLikes(ctx context.Context, users []models.User, posts []models.Post, count int) error {
	if len(posts) == 0 {
		return nil
	}
	for i := 0; i < count; i++ {
		// Skew likes toward the first posts so trending has a clear head.
		idx := int(float64(len(posts)) * rand.Float64() * rand.Float64())
		if _, _, err := s.posts.Like(ctx, posts[idx].ID, users[rand.Intn(len(users))].ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedWalletTrackers(ctx context.Context, users []models.User) error {
	all := chains.All()
	for _, user := range users {
		for n := rand.Intn(3); n > 0; n-- {
			tracker := models.WalletTracker{
				UserID:  user.ID,
				Address: fakeAddress(),
				Chain:   all[rand.Intn(len(all))].Key,
				Label:   walletLabels[rand.Intn(len(walletLabels))],
			}
			err := s.wallets.AddTracker(ctx, &tracker)
			if err != nil && !errors.Is(err, repository.ErrDuplicate) {
				return err
			}
		}
	}
	return nil
}

// fakeUsername fits the 3-20 character [a-z0-9_] rule.
func fakeUsername() string {
	name := usernameStrip.ReplaceAllString(strings.ToLower(gofakeit.Username()), "")
	if len(name) < 3 {
		name += fmt.Sprintf("%03d", rand.Intn(1000))
	}
	return truncate(name, 20)
}

func fakeAddress() string {
	const hexDigits = "0123456789abcdef"
	var b strings.Builder
	b.WriteString("0x")
	for i := 0; i < 40; i++ {
		b.WriteByte(hexDigits[rand.Intn(len(hexDigits))])
	}
	return b.String()
}

func avatarURL(seed string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/identicon/png?seed=%s", seed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
