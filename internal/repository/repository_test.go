package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/feek13/mini-social-sub003/internal/database"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	ctx   context.Context
	users UserRepository
	posts PostRepository
	notes NotificationRepository
	msgs  MessageRepository
	wall  WalletRepository
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.Migrate())

	s.db = db
	s.ctx = context.Background()
	s.users = NewUserRepository(db)
	s.posts = NewPostRepository(db)
	s.notes = NewNotificationRepository(db)
	s.msgs = NewMessageRepository(db)
	s.wall = NewWalletRepository(db)
}

func (s *RepositoryTestSuite) TearDownTest() {
	_ = database.Close()
}

func (s *RepositoryTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "hash",
	}
	require.NoError(s.T(), s.db.Create(user).Error)
	return user
}

func (s *RepositoryTestSuite) createPost(userID, content string) *models.Post {
	post := &models.Post{UserID: userID, Content: content}
	_, err := s.posts.CreatePost(s.ctx, post)
	require.NoError(s.T(), err)
	return post
}

func (s *RepositoryTestSuite) reloadUser(id string) *models.User {
	user, err := s.users.GetUser(s.ctx, id)
	require.NoError(s.T(), err)
	return user
}

func (s *RepositoryTestSuite) TestGetUserByUsername() {
	t := s.T()
	alice := s.createUser("alice")

	found, err := s.users.GetUserByUsername(s.ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	_, err = s.users.GetUserByUsername(s.ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	users, err := s.users.GetUsersByUsernames(s.ctx, []string{"Alice", "ghost"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func (s *RepositoryTestSuite) TestUpdateProfileAndSearch() {
	t := s.T()
	alice := s.createUser("alice")
	s.createUser("bob")
	s.createUser("al_ice")

	updated, err := s.users.UpdateProfile(s.ctx, alice.ID, map[string]any{"bio": "gm"})
	require.NoError(t, err)
	assert.Equal(t, "gm", updated.Bio)

	users, total, err := s.users.SearchUsers(s.ctx, "AL", Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	// "_" is matched literally.
	_, total, err = s.users.SearchUsers(s.ctx, "l_i", Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func (s *RepositoryTestSuite) TestFollowUnfollow() {
	t := s.T()
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	_, err := s.users.Follow(s.ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfFollow)

	created, err := s.users.Follow(s.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.users.Follow(s.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, s.reloadUser(alice.ID).FollowingCount)
	assert.Equal(t, 1, s.reloadUser(bob.ID).FollowersCount)

	following, err := s.users.IsFollowing(s.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	followers, total, err := s.users.GetFollowers(s.ctx, bob.ID, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, followers, 1)
	assert.Equal(t, alice.ID, followers[0].ID)

	removed, err := s.users.Unfollow(s.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.users.Unfollow(s.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, 0, s.reloadUser(alice.ID).FollowingCount)
	assert.Equal(t, 0, s.reloadUser(bob.ID).FollowersCount)
}

func (s *RepositoryTestSuite) TestCreatePostLinksHashtags() {
	t := s.T()
	alice := s.createUser("alice")

	post := &models.Post{UserID: alice.ID, Content: "gm #DeFi #eth #defi"}
	tags, err := s.posts.CreatePost(s.ctx, post)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"defi", "eth"}, tags)
	assert.Greater(t, post.HotScore, 0.0)
	assert.Equal(t, 1, s.reloadUser(alice.ID).PostsCount)

	s.createPost(alice.ID, "more #defi")

	trending, err := s.posts.TrendingHashtags(s.ctx, 10)
	require.NoError(t, err)
	require.Len(t, trending, 2)
	assert.Equal(t, "defi", trending[0].Name)
	assert.Equal(t, 2, trending[0].PostCount)

	found, err := s.posts.SearchHashtags(s.ctx, "de", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "defi", found[0].Name)

	byTag, total, err := s.posts.ListPosts(s.ctx, PostQuery{Hashtag: "eth", Page: Page{Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byTag, 1)
	assert.Equal(t, post.ID, byTag[0].ID)
	assert.Equal(t, "alice", byTag[0].User.Username)
}

func (s *RepositoryTestSuite) TestDeletePost() {
	t := s.T()
	alice := s.createUser("alice")
	post := s.createPost(alice.ID, "bye #gm")

	require.NoError(t, s.posts.DeletePost(s.ctx, post))

	_, err := s.posts.GetPost(s.ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Equal(t, 0, s.reloadUser(alice.ID).PostsCount)

	tags, err := s.posts.TrendingHashtags(s.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func (s *RepositoryTestSuite) TestFeeds() {
	t := s.T()
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	carol := s.createUser("carol")

	old := &models.Post{UserID: bob.ID, Content: "old", CreatedAt: time.Now().UTC().Add(-time.Hour)}
	_, err := s.posts.CreatePost(s.ctx, old)
	require.NoError(t, err)
	fresh := s.createPost(carol.ID, "fresh")
	own := s.createPost(alice.ID, "mine")

	_, err = s.users.Follow(s.ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	latest, total, err := s.posts.ListPosts(s.ctx, PostQuery{Feed: FeedLatest, Page: Page{Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, old.ID, latest[2].ID)

	following, total, err := s.posts.ListPosts(s.ctx, PostQuery{Feed: FeedFollowing, ViewerID: alice.ID, Page: Page{Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	ids := []string{following[0].ID, following[1].ID}
	assert.ElementsMatch(t, []string{old.ID, own.ID}, ids)

	_, _, err = s.posts.ListPosts(s.ctx, PostQuery{Feed: FeedFollowing})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Likes lift the old post above the fresh one.
	for _, u := range []*models.User{alice, bob, carol} {
		_, _, err := s.posts.Like(s.ctx, old.ID, u.ID)
		require.NoError(t, err)
	}
	trending, _, err := s.posts.ListPosts(s.ctx, PostQuery{Feed: FeedTrending, Page: Page{Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, old.ID, trending[0].ID)

	byAuthor, total, err := s.posts.ListPosts(s.ctx, PostQuery{AuthorID: carol.ID, Page: Page{Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, fresh.ID, byAuthor[0].ID)
}

func (s *RepositoryTestSuite) TestLikeIsIdempotent() {
	t := s.T()
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	post := s.createPost(alice.ID, "like me")

	changed, count, err := s.posts.Like(s.ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, count)

	changed, count, err = s.posts.Like(s.ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, count)

	liked, err := s.posts.LikedPostIDs(s.ctx, bob.ID, []string{post.ID, "other"})
	require.NoError(t, err)
	assert.True(t, liked[post.ID])
	assert.False(t, liked["other"])

	changed, count, err = s.posts.Unlike(s.ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, count)

	changed, _, err = s.posts.Unlike(s.ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = s.posts.Like(s.ctx, "missing", bob.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func (s *RepositoryTestSuite) TestComments() {
	t := s.T()
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	post := s.createPost(alice.ID, "discuss")

	top := &models.Comment{PostID: post.ID, UserID: bob.ID, Content: "first"}
	require.NoError(t, s.posts.AddComment(s.ctx, top))

	reply := &models.Comment{PostID: post.ID, UserID: alice.ID, Content: "reply", ParentID: &top.ID}
	require.NoError(t, s.posts.AddComment(s.ctx, reply))

	nested := &models.Comment{PostID: post.ID, UserID: bob.ID, Content: "nested", ParentID: &reply.ID}
	require.NoError(t, s.posts.AddComment(s.ctx, nested))
	require.NotNil(t, nested.ParentID)
	assert.Equal(t, top.ID, *nested.ParentID)

	missing := "missing"
	err := s.posts.AddComment(s.ctx, &models.Comment{PostID: post.ID, UserID: bob.ID, Content: "x", ParentID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)

	comments, total, err := s.posts.ListComments(s.ctx, post.ID, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "bob", comments[0].User.Username)

	stored, err := s.posts.GetPost(s.ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CommentsCount)

	require.NoError(t, s.posts.DeleteComment(s.ctx, top))

	stored, err = s.posts.GetPost(s.ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CommentsCount)

	_, err = s.posts.GetComment(s.ctx, top.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestNotifications() {
	t := s.T()
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	require.NoError(t, s.notes.Notify(s.ctx, &models.Notification{RecipientID: alice.ID, ActorID: alice.ID, Type: models.NotificationLike}))
	first := &models.Notification{RecipientID: alice.ID, ActorID: bob.ID, Type: models.NotificationFollow}
	require.NoError(t, s.notes.Notify(s.ctx, first))
	require.NoError(t, s.notes.Notify(s.ctx, &models.Notification{RecipientID: alice.ID, ActorID: bob.ID, Type: models.NotificationLike}))

	count, err := s.notes.UnreadCount(s.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	list, total, err := s.notes.List(s.ctx, alice.ID, false, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "bob", list[0].Actor.Username)

	ok, err := s.notes.MarkRead(s.ctx, bob.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.notes.MarkRead(s.ctx, alice.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, total, err = s.notes.List(s.ctx, alice.ID, true, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	n, err := s.notes.MarkAllRead(s.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err = s.notes.UnreadCount(s.ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func (s *RepositoryTestSuite) TestConversations() {
	t := s.T()
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	_, _, err := s.msgs.GetOrCreateDirect(s.ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfMessage)

	conv, created, err := s.msgs.GetOrCreateDirect(s.ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := s.msgs.GetOrCreateDirect(s.ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	ok, err := s.msgs.IsParticipant(s.ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	members, err := s.msgs.Participants(s.ctx, conv.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, members)

	require.NoError(t, s.msgs.SendMessage(s.ctx, &models.Message{
		ConversationID: conv.ID, SenderID: alice.ID, Content: "gm", CreatedAt: time.Now().UTC().Add(-time.Second),
	}))
	require.NoError(t, s.msgs.SendMessage(s.ctx, &models.Message{ConversationID: conv.ID, SenderID: alice.ID, Content: "wagmi"}))

	err = s.msgs.SendMessage(s.ctx, &models.Message{ConversationID: "missing", SenderID: alice.ID, Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	inbox, total, err := s.msgs.ListConversations(s.ctx, bob.ID, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, inbox, 1)
	assert.Equal(t, "alice", inbox[0].Other.Username)
	require.NotNil(t, inbox[0].LastMessage)
	assert.Equal(t, "wagmi", inbox[0].LastMessage.Content)
	assert.Equal(t, int64(2), inbox[0].UnreadCount)

	mine, _, err := s.msgs.ListConversations(s.ctx, alice.ID, Page{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, mine[0].UnreadCount)

	require.NoError(t, s.msgs.MarkRead(s.ctx, conv.ID, bob.ID))
	inbox, _, err = s.msgs.ListConversations(s.ctx, bob.ID, Page{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, inbox[0].UnreadCount)

	messages, total, err := s.msgs.ListMessages(s.ctx, conv.ID, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "wagmi", messages[0].Content)
}

func (s *RepositoryTestSuite) TestGetOrCreateDirectConcurrent() {
	t := s.T()
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	const callers = 8
	var wg sync.WaitGroup
	ids := make([]string, callers)
	createdBy := make([]bool, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := alice.ID, bob.ID
			if i%2 == 1 {
				from, to = to, from
			}
			conv, created, err := s.msgs.GetOrCreateDirect(s.ctx, from, to)
			errs[i] = err
			if conv != nil {
				ids[i] = conv.ID
			}
			createdBy[i] = created
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
		if createdBy[i] {
			created++
		}
	}
	assert.Equal(t, 1, created)

	var conversations, participants int64
	require.NoError(t, s.db.Model(&models.Conversation{}).Count(&conversations).Error)
	require.NoError(t, s.db.Model(&models.ConversationParticipant{}).Count(&participants).Error)
	assert.Equal(t, int64(1), conversations)
	assert.Equal(t, int64(2), participants)
}

func (s *RepositoryTestSuite) TestDirectKeyIsUnique() {
	t := s.T()
	assert.Equal(t, models.DirectKey("a", "b"), models.DirectKey("b", "a"))

	key := models.DirectKey("a", "b")
	require.NoError(t, s.db.Create(&models.Conversation{DMKey: &key}).Error)
	assert.Error(t, s.db.Create(&models.Conversation{DMKey: &key}).Error)
}

func (s *RepositoryTestSuite) TestFeedOperation() {
	t := s.T()
	assert.Equal(t, "feed.latest", feedOperation(PostQuery{}))
	assert.Equal(t, "feed.trending", feedOperation(PostQuery{Feed: FeedTrending}))
	assert.Equal(t, "posts.by_author", feedOperation(PostQuery{AuthorID: "u1", Feed: FeedLatest}))
	assert.Equal(t, "posts.by_hashtag", feedOperation(PostQuery{Hashtag: "defi"}))
}

func (s *RepositoryTestSuite) TestWalletTrackers() {
	t := s.T()
	alice := s.createUser("alice")
	addr := "0xAbCdEf0123456789abcdef0123456789ABCDEF01"

	tracker := &models.WalletTracker{UserID: alice.ID, Address: addr, Chain: "ethereum", Label: "cold"}
	require.NoError(t, s.wall.AddTracker(s.ctx, tracker))
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", tracker.Address)

	err := s.wall.AddTracker(s.ctx, &models.WalletTracker{UserID: alice.ID, Address: addr, Chain: "ethereum"})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, s.wall.AddTracker(s.ctx, &models.WalletTracker{UserID: alice.ID, Address: addr, Chain: "base"}))

	trackers, err := s.wall.ListTrackers(s.ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, trackers, 2)

	deleted, err := s.wall.DeleteTracker(s.ctx, "someone-else", tracker.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.wall.DeleteTracker(s.ctx, alice.ID, tracker.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
