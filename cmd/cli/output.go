package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
)

func printJSON(v any) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(color.Output, string(data))
	return nil
}

func printSuccess(msg string, args ...any) {
	color.New(color.FgGreen).Fprintf(color.Output, msg+"\n", args...)
}

func printWarning(msg string, args ...any) {
	color.New(color.FgYellow).Fprintf(color.Output, msg+"\n", args...)
}

// printTable writes rows under bold headers, aligned on tabs.
func printTable(headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(color.Output, 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)

	for i, h := range headers {
		bold.Fprint(w, h)
		if i < len(headers)-1 {
			fmt.Fprint(w, "\t")
		}
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprint(w, cell)
			if i < len(row)-1 {
				fmt.Fprint(w, "\t")
			}
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
