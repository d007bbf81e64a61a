package main

import (
	"context"
	"fmt"
	"os"

	"github.com/feek13/mini-social-sub003/internal/config"
	"github.com/feek13/mini-social-sub003/internal/database"
	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/seed"
	"go.uber.org/zap"
)

func main() {
	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	var run func(ctx context.Context, s *seed.Seeder) error
	switch command {
	case "dev":
		run = seedDev
	case "test":
		run = seedTest
	case "clean":
		run = cleanSeed
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with minimal data")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.IsProduction() {
		fmt.Fprintln(os.Stderr, "refusing to seed a production database")
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		panic(err)
	}
	defer logger.Close()

	if err := database.Initialize(database.Options{DSN: cfg.DSN()}); err != nil {
		logger.FatalWithFields("Failed to connect to database", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	if err := run(context.Background(), seed.NewSeeder(database.DB)); err != nil {
		logger.FatalWithFields("Seeding failed", err)
	}
}

func seedDev(ctx context.Context, s *seed.Seeder) error {
	counts := seed.DefaultDevCounts
	logger.Log.Info("Seeding development database",
		zap.Int("users", counts.Users),
		zap.Int("posts", counts.Posts),
	)
	if err := s.SeedDev(ctx, counts); err != nil {
		return err
	}
	logger.Log.Info("Development database seeded", zap.String("password", seed.DefaultPassword))
	return nil
}

func seedTest(ctx context.Context, s *seed.Seeder) error {
	users, err := s.SeedTest(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		logger.Log.Info("Test account", zap.String("username", u.Username), zap.String("email", u.Email))
	}
	logger.Log.Info("Test database seeded", zap.String("password", seed.DefaultPassword))
	return nil
}

func cleanSeed(ctx context.Context, s *seed.Seeder) error {
	if err := s.Clean(ctx); err != nil {
		return err
	}
	logger.Log.Info("Seed data cleaned")
	return nil
}
