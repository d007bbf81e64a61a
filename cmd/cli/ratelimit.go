package main

import (
	"strconv"

	"github.com/feek13/mini-social-sub003/internal/ratelimit"
	"github.com/spf13/cobra"
)

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Inspect and reset rate limit counters",
	Long: `Identifiers are "user:<id>" for authenticated callers and "ip:<address>"
otherwise. Only the Redis limiter can be inspected from outside the server.`,
}

var rateLimitStatusCmd = &cobra.Command{
	Use:   "status <identifier>",
	Short: "Show the live counters of an identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connectRedis()
		if err != nil {
			return err
		}
		defer client.Close()

		usages, err := ratelimit.NewRedisLimiter(client).Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(usages)
		}
		if len(usages) == 0 {
			printWarning("No active counters for %s", args[0])
			return nil
		}

		rows := make([][]string, 0, len(usages))
		for _, u := range usages {
			limit := "-"
			if rule, ok := ratelimit.PresetByName(u.Rule); ok {
				limit = strconv.Itoa(rule.Max)
			}
			rows = append(rows, []string{u.Rule, strconv.FormatInt(u.Count, 10), limit, u.TTL.String()})
		}
		return printTable([]string{"RULE", "COUNT", "LIMIT", "RESETS IN"}, rows)
	},
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset <identifier>",
	Short: "Clear every counter of an identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connectRedis()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := ratelimit.NewRedisLimiter(client).Reset(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("Rate limits reset for %s", args[0])
		return nil
	},
}

var rateLimitPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the rate limit presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		presets := ratelimit.Presets()
		if output == "json" {
			return printJSON(presets)
		}
		rows := make([][]string, 0, len(presets))
		for _, r := range presets {
			rows = append(rows, []string{r.Name, strconv.Itoa(r.Max), r.Window.String()})
		}
		return printTable([]string{"NAME", "MAX", "WINDOW"}, rows)
	},
}

func init() {
	rateLimitCmd.AddCommand(rateLimitStatusCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rateLimitCmd.AddCommand(rateLimitPresetsCmd)
}
