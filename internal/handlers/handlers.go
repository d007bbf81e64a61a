package handlers

import (
	"context"
	stderrors "errors"

	"github.com/feek13/mini-social-sub003/internal/alchemy"
	"github.com/feek13/mini-social-sub003/internal/auth"
	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/feek13/mini-social-sub003/internal/coingecko"
	"github.com/feek13/mini-social-sub003/internal/defillama"
	"github.com/feek13/mini-social-sub003/internal/etherscan"
	"github.com/feek13/mini-social-sub003/internal/linkpreview"
	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/repository"
	"github.com/feek13/mini-social-sub003/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db            *gorm.DB
	auth          auth.AuthService
	users         repository.UserRepository
	posts         repository.PostRepository
	notifications repository.NotificationRepository
	messages      repository.MessageRepository
	wallets       repository.WalletRepository

	cache     *cache.Cache
	defillama *defillama.Client
	etherscan *etherscan.Client
	alchemy   *alchemy.Client
	coingecko *coingecko.Client
	previews  *linkpreview.Fetcher
	uploader  storage.ImageUploader
}

// DataClients are the third-party APIs behind the wallet and DeFi views.
type DataClients struct {
	DefiLlama *defillama.Client
	Etherscan *etherscan.Client
	Alchemy   *alchemy.Client
	CoinGecko *coingecko.Client
}

// NewHandlers creates a new handlers instance over db. Upstream clients
// default to their public endpoints without API keys; the link preview
// fetcher refuses private hosts.
func NewHandlers(authService auth.AuthService, db *gorm.DB) *Handlers {
	return &Handlers{
		db:            db,
		auth:          authService,
		users:         repository.NewUserRepository(db),
		posts:         repository.NewPostRepository(db),
		notifications: repository.NewNotificationRepository(db),
		messages:      repository.NewMessageRepository(db),
		wallets:       repository.NewWalletRepository(db),
		defillama:     defillama.NewClient("", ""),
		etherscan:     etherscan.NewClient("", ""),
		alchemy:       alchemy.NewClient("", ""),
		coingecko:     coingecko.NewClient("", ""),
		previews:      linkpreview.NewFetcher(),
	}
}

// SetCache sets the cache used for upstream responses. Without one every
// request goes to the source.
func (h *Handlers) SetCache(c *cache.Cache) {
	h.cache = c
}

// SetDataClients replaces the non-nil upstream clients.
func (h *Handlers) SetDataClients(clients DataClients) {
	if clients.DefiLlama != nil {
		h.defillama = clients.DefiLlama
	}
	if clients.Etherscan != nil {
		h.etherscan = clients.Etherscan
	}
	if clients.Alchemy != nil {
		h.alchemy = clients.Alchemy
	}
	if clients.CoinGecko != nil {
		h.coingecko = clients.CoinGecko
	}
}

// SetPreviewFetcher sets the link preview fetcher
func (h *Handlers) SetPreviewFetcher(f *linkpreview.Fetcher) {
	h.previews = f
}

// SetUploader sets the image store. Uploads answer 503 until one is set.
func (h *Handlers) SetUploader(u storage.ImageUploader) {
	h.uploader = u
}

// notify stores a notification. Failures are logged; the action that
// triggered it has already succeeded.
func (h *Handlers) notify(ctx context.Context, n *models.Notification) {
	if err := h.notifications.Notify(ctx, n); err != nil {
		logger.WarnWithFields("Failed to create notification", err,
			zap.String("type", string(n.Type)),
			logger.WithUserID(n.RecipientID),
		)
	}
}

// notifyMentions notifies every existing user named with @ in content,
// except the author.
func (h *Handlers) notifyMentions(ctx context.Context, actorID string, usernames []string, postID string, commentID *string) {
	if len(usernames) == 0 {
		return
	}
	mentioned, err := h.users.GetUsersByUsernames(ctx, usernames)
	if err != nil {
		logger.WarnWithFields("Failed to resolve mentions", err, logger.WithPostID(postID))
		return
	}
	for i := range mentioned {
		h.notify(ctx, &models.Notification{
			RecipientID: mentioned[i].ID,
			ActorID:     actorID,
			Type:        models.NotificationMention,
			PostID:      &postID,
			CommentID:   commentID,
		})
	}
}

func isNotFound(err error) bool {
	return stderrors.Is(err, repository.ErrNotFound) ||
		stderrors.Is(err, repository.ErrPostNotFound) ||
		stderrors.Is(err, repository.ErrUserNotFound) ||
		stderrors.Is(err, gorm.ErrRecordNotFound)
}
