package main

import (
	"github.com/feek13/mini-social-sub003/internal/database"
	"github.com/feek13/mini-social-sub003/internal/trending"
	"github.com/spf13/cobra"
)

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Manage trending scores",
}

var trendingRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute the hot score of recent posts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Initialize(database.Options{DSN: cfg.DSN()}); err != nil {
			return err
		}
		defer database.Close()

		updated, err := trending.NewRefresher(database.DB, cfg.HotScoreInterval()).Refresh(cmd.Context())
		if err != nil {
			return err
		}
		printSuccess("Refreshed %d posts", updated)
		return nil
	},
}

func init() {
	trendingCmd.AddCommand(trendingRefreshCmd)
}
