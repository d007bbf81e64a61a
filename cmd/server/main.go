package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feek13/mini-social-sub003/internal/alchemy"
	"github.com/feek13/mini-social-sub003/internal/auth"
	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/feek13/mini-social-sub003/internal/coingecko"
	"github.com/feek13/mini-social-sub003/internal/config"
	"github.com/feek13/mini-social-sub003/internal/database"
	"github.com/feek13/mini-social-sub003/internal/defillama"
	"github.com/feek13/mini-social-sub003/internal/etherscan"
	"github.com/feek13/mini-social-sub003/internal/handlers"
	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/metrics"
	"github.com/feek13/mini-social-sub003/internal/ratelimit"
	"github.com/feek13/mini-social-sub003/internal/storage"
	"github.com/feek13/mini-social-sub003/internal/telemetry"
	"github.com/feek13/mini-social-sub003/internal/trending"
	"github.com/feek13/mini-social-sub003/internal/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "mini-social"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		panic(err)
	}
	defer logger.Close()

	if err := cfg.Validate(); err != nil {
		logger.FatalWithFields("Invalid configuration", err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
		logger.Log.Warn("JWT_SECRET not set, using an insecure development secret")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Log.Info("=== mini-social server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
		zap.String("version", version),
	)

	metrics.Initialize()

	tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Enabled:        cfg.OTelEnabled,
		SamplingRate:   cfg.OTelSamplingRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
	}

	// Initialize database
	if err := database.Initialize(database.Options{
		DSN:     cfg.DSN(),
		Verbose: cfg.IsDevelopment(),
		Tracing: tp != nil,
	}); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	// Redis backs both the response cache and the rate limiter. Without it the
	// cache is disabled and the limiter keeps its counters in memory.
	var redisClient *cache.RedisClient
	if cfg.RedisEnabled() {
		redisClient, err = cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, continuing without cache", err)
			redisClient = nil
		}
	}
	var store *cache.Cache
	if redisClient != nil {
		store = cache.New(redisClient)
	}
	limiter := ratelimit.NewLimiter(redisClient)
	logger.Log.Info("Rate limiter ready", zap.String("backend", limiter.Backend()))

	llama := defillama.NewClient(cfg.DefiLlamaBaseURL, cfg.DefiLlamaYieldsURL)

	validator := validation.NewServiceValidator(cfg.RequiredServices).
		Register("database", func(ctx context.Context) error { return database.Health() }).
		Register("redis", func(ctx context.Context) error {
			if !store.Enabled() {
				return errors.New("redis is not configured")
			}
			return store.Ping(ctx)
		}).
		Register("defillama", func(ctx context.Context) error {
			_, err := llama.Chains(ctx)
			return err
		})
	checkCtx, cancelCheck := context.WithTimeout(context.Background(), 15*time.Second)
	if err := validator.ValidateServices(checkCtx); err != nil {
		cancelCheck()
		logger.FatalWithFields("Required service check failed", err)
	}
	cancelCheck()

	authService := auth.NewService([]byte(cfg.JWTSecret), cfg.JWTTTL())

	h := handlers.NewHandlers(authService, database.DB)
	h.SetCache(store)
	h.SetDataClients(handlers.DataClients{
		DefiLlama: llama,
		Etherscan: etherscan.NewClient(cfg.EtherscanBaseURL, cfg.EtherscanAPIKey),
		Alchemy:   alchemy.NewClient(cfg.AlchemyAPIKey, ""),
		CoinGecko: coingecko.NewClient(cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey),
	})

	if cfg.AWSBucket != "" {
		uploader, err := storage.NewS3Uploader(context.Background(), cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
		if err != nil {
			logger.WarnWithFields("Failed to initialize S3 uploader, image uploads disabled", err)
		} else {
			if err := uploader.CheckBucketAccess(context.Background()); err != nil {
				logger.WarnWithFields("S3 bucket access check failed", err, zap.String("bucket", cfg.AWSBucket))
			}
			h.SetUploader(uploader)
		}
	} else {
		logger.Log.Info("AWS_BUCKET not set, image uploads disabled")
	}

	refresher := trending.NewRefresher(database.DB, cfg.HotScoreInterval())
	refresher.Start()

	r := setupRouter(routerOptions{
		Handlers:    h,
		Limiter:     limiter,
		Cache:       store,
		Origins:     cfg.AllowedOrigins(),
		ServiceName: serviceName,
		Tracing:     tp != nil,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("mini-social backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}

	refresher.Stop()
	ratelimit.Close(limiter)
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.WarnWithFields("Failed to close Redis", err)
		}
	}
	if err := telemetry.Shutdown(tp); err != nil {
		logger.WarnWithFields("Failed to flush traces", err)
	}
	if err := database.Close(); err != nil {
		logger.WarnWithFields("Failed to close database", err)
	}

	logger.Log.Info("Server exited")
}
