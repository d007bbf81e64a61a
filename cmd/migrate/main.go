package main

import (
	"fmt"
	"os"

	"github.com/feek13/mini-social-sub003/internal/config"
	"github.com/feek13/mini-social-sub003/internal/database"
	"github.com/feek13/mini-social-sub003/internal/logger"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp()
	default:
		fmt.Println("Usage: migrate [up]")
		fmt.Println("  up - Create or update every table and index")
		os.Exit(1)
	}
}

func runMigrationsUp() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Log.Info("Connecting to database...")
	if err := database.Initialize(database.Options{DSN: cfg.DSN()}); err != nil {
		logger.FatalWithFields("Failed to connect to database", err)
	}
	defer database.Close()

	logger.Log.Info("Running migrations...")
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Migration failed", err)
	}

	logger.Log.Info("All migrations completed successfully")
}
