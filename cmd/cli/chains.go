package main

import (
	"strconv"

	"github.com/feek13/mini-social-sub003/internal/chains"
	"github.com/spf13/cobra"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "Supported EVM chains",
}

var chainsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the chains the wallet and gas endpoints accept",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all := chains.All()
		if output == "json" {
			return printJSON(all)
		}

		def := chains.Default().Key
		rows := make([][]string, 0, len(all))
		for _, c := range all {
			marker := ""
			if c.Key == def {
				marker = "(default)"
			}
			rows = append(rows, []string{c.Key, strconv.FormatInt(c.ChainID, 10), c.Name, c.Symbol, c.AlchemyNetwork, marker})
		}
		return printTable([]string{"KEY", "ID", "NAME", "SYMBOL", "ALCHEMY", ""}, rows)
	},
}

var chainsGetCmd = &cobra.Command{
	Use:   "get <key|chain-id>",
	Short: "Show one chain, looked up by key, decimal id or 0x id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := chains.Lookup(args[0])
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(c)
		}
		return printTable([]string{"FIELD", "VALUE"}, [][]string{
			{"key", c.Key},
			{"chain_id", strconv.FormatInt(c.ChainID, 10)},
			{"name", c.Name},
			{"symbol", c.Symbol},
			{"decimals", strconv.Itoa(c.Decimals)},
			{"coingecko_id", c.CoinGeckoID},
			{"alchemy_network", c.AlchemyNetwork},
			{"explorer", c.Explorer},
		})
	},
}

func init() {
	chainsCmd.AddCommand(chainsListCmd, chainsGetCmd)
}
