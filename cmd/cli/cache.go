package main

import (
	"fmt"

	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Read and flush cached responses",
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a cached value and its remaining TTL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connectRedis()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx := cmd.Context()
		raw, err := client.Get(ctx, args[0])
		if cache.IsMiss(err) {
			return fmt.Errorf("key %q not found", args[0])
		}
		if err != nil {
			return err
		}
		ttl, err := client.TTL(ctx, args[0])
		if err != nil {
			return err
		}

		if output == "json" {
			fmt.Println(string(raw))
			return nil
		}
		fmt.Printf("key: %s\nttl: %s\nsize: %d bytes\n\n%s\n", args[0], ttl, len(raw), raw)
		return nil
	},
}

var cacheKeysCmd = &cobra.Command{
	Use:   "keys <prefix>",
	Short: "List cached keys starting with prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connectRedis()
		if err != nil {
			return err
		}
		defer client.Close()

		keys, err := client.ScanKeys(cmd.Context(), args[0]+"*")
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(keys)
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	},
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush <prefix>",
	Short: "Delete every cached key starting with prefix",
	Long: `Delete every cached key starting with prefix, for example:

  mini-social cache flush defi:
  mini-social cache flush response:/api/users`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return fmt.Errorf("prefix cannot be empty")
		}
		client, err := connectRedis()
		if err != nil {
			return err
		}
		defer client.Close()

		deleted, err := cache.New(client).DeletePrefix(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSuccess("Deleted %d keys", deleted)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheGetCmd)
	cacheCmd.AddCommand(cacheKeysCmd)
	cacheCmd.AddCommand(cacheFlushCmd)
}
