package main

import (
	"fmt"
	"os"

	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/feek13/mini-social-sub003/internal/config"
	"github.com/spf13/cobra"
)

var (
	output string = "text" // "text" or "json"
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mini-social",
	Short: "mini-social admin CLI",
	Long: `Operator commands for a mini-social deployment.
Inspect and reset rate limits, read or flush cached responses, recompute
trending scores and list the supported chains.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if output != "text" && output != "json" {
			return fmt.Errorf("invalid --output %q: use text or json", output)
		}
		var err error
		cfg, err = config.Load()
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	rootCmd.AddCommand(rateLimitCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(chainsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connectRedis opens the Redis configured through REDIS_*.
func connectRedis() (*cache.RedisClient, error) {
	if !cfg.RedisEnabled() {
		return nil, fmt.Errorf("REDIS_HOST is not set")
	}
	return cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
}
