package main

import (
	"net/http"
	"time"

	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/feek13/mini-social-sub003/internal/handlers"
	"github.com/feek13/mini-social-sub003/internal/middleware"
	"github.com/feek13/mini-social-sub003/internal/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const profileCacheTTL = 30 * time.Second

// routerOptions carries everything the route table needs.
type routerOptions struct {
	Handlers    *handlers.Handlers
	Limiter     ratelimit.Limiter
	Cache       *cache.Cache
	Origins     []string
	ServiceName string
	Tracing     bool
}

func setupRouter(opts routerOptions) *gin.Engine {
	h := opts.Handlers
	limit := func(rule ratelimit.Rule) gin.HandlerFunc {
		return middleware.RateLimit(opts.Limiter, rule)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if opts.Tracing {
		r.Use(middleware.TracingMiddleware(opts.ServiceName)...)
	}

	corsConfig := cors.DefaultConfig()
	if len(opts.Origins) == 1 && opts.Origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.Origins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After", "X-Cache"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", h.Health)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found", "code": "NOT_FOUND"})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		// Authentication routes
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", limit(ratelimit.Strict), h.Register)
			authGroup.POST("/login", limit(ratelimit.Strict), h.Login)
			authGroup.GET("/me", h.AuthMiddleware(), h.Me)
		}

		// User routes
		invalidateProfiles := middleware.InvalidateResponseCache(opts.Cache, "/api/users/:username")
		users := api.Group("/users")
		{
			users.GET("/search", h.OptionalAuthMiddleware(), h.SearchUsers)
			users.PUT("/me", h.AuthMiddleware(), invalidateProfiles, h.UpdateProfile)
			users.GET("/:username", h.OptionalAuthMiddleware(), middleware.ResponseCache(opts.Cache, profileCacheTTL), h.GetProfile)
			users.GET("/:username/posts", h.OptionalAuthMiddleware(), h.GetUserPosts)
			users.GET("/:username/followers", h.GetFollowers)
			users.GET("/:username/following", h.GetFollowing)
			users.POST("/:username/follow", h.AuthMiddleware(), limit(ratelimit.Burst), invalidateProfiles, h.FollowUser)
			users.DELETE("/:username/follow", h.AuthMiddleware(), limit(ratelimit.Burst), invalidateProfiles, h.UnfollowUser)
		}

		// Post routes
		posts := api.Group("/posts")
		{
			posts.GET("", h.OptionalAuthMiddleware(), h.ListPosts)
			posts.POST("", h.AuthMiddleware(), limit(ratelimit.Normal), h.CreatePost)
			posts.GET("/:id", h.OptionalAuthMiddleware(), h.GetPost)
			posts.DELETE("/:id", h.AuthMiddleware(), h.DeletePost)
			posts.POST("/:id/like", h.AuthMiddleware(), limit(ratelimit.Burst), h.LikePost)
			posts.DELETE("/:id/like", h.AuthMiddleware(), limit(ratelimit.Burst), h.UnlikePost)
			posts.GET("/:id/comments", h.GetComments)
			posts.POST("/:id/comments", h.AuthMiddleware(), limit(ratelimit.Normal), h.CreateComment)
		}

		api.DELETE("/comments/:id", h.AuthMiddleware(), h.DeleteComment)

		// Notification routes
		notifications := api.Group("/notifications")
		{
			notifications.Use(h.AuthMiddleware())
			notifications.GET("", h.GetNotifications)
			notifications.GET("/unread-count", h.GetUnreadCount)
			notifications.POST("/read-all", h.MarkAllNotificationsRead)
			notifications.POST("/:id/read", h.MarkNotificationRead)
		}

		// Direct message routes
		conversations := api.Group("/conversations")
		{
			conversations.Use(h.AuthMiddleware())
			conversations.GET("", h.GetConversations)
			conversations.POST("", h.CreateConversation)
			conversations.GET("/:id/messages", h.GetMessages)
			conversations.POST("/:id/messages", limit(ratelimit.Normal), h.SendMessage)
			conversations.POST("/:id/read", h.MarkConversationRead)
		}

		// Search routes
		search := api.Group("/search")
		{
			search.GET("", h.Search)
			search.GET("/hashtags/trending", h.GetTrendingHashtags)
			search.GET("/hashtags/:tag", h.OptionalAuthMiddleware(), h.GetHashtagPosts)
		}

		// Wallet routes
		wallet := api.Group("/wallet")
		{
			wallet.GET("/trackers", h.AuthMiddleware(), h.GetWalletTrackers)
			wallet.POST("/trackers", h.AuthMiddleware(), limit(ratelimit.Normal), h.AddWalletTracker)
			wallet.DELETE("/trackers/:id", h.AuthMiddleware(), h.DeleteWalletTracker)

			lookups := wallet.Group("/:address", h.OptionalAuthMiddleware(), limit(ratelimit.Relaxed))
			lookups.GET("/tokens", h.GetWalletTokens)
			lookups.GET("/nfts", h.GetWalletNFTs)
			lookups.GET("/transactions", h.GetWalletTransactions)
			lookups.GET("/balance", h.GetWalletBalance)
		}

		// DeFi routes
		defi := api.Group("/defi", h.OptionalAuthMiddleware(), limit(ratelimit.Relaxed))
		{
			defi.GET("/protocols", h.GetProtocols)
			defi.GET("/protocols/:slug", h.GetProtocol)
			defi.GET("/chains", h.GetDefiChains)
			defi.GET("/pools", h.GetPools)
			defi.GET("/gas", h.GetGas)
			defi.GET("/prices", h.GetPrices)
		}

		api.GET("/previews", h.OptionalAuthMiddleware(), limit(ratelimit.Relaxed), h.GetLinkPreview)
		api.POST("/uploads/image", h.AuthMiddleware(), limit(ratelimit.Normal), invalidateProfiles, h.UploadImage)
	}

	return r
}
