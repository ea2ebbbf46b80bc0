package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var linksCmd = &cobra.Command{
	Use:   "links <note-or-canvas>",
	Short: "List what a document links to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		edges, err := host.LinksFrom(context.Background(), args[0])
		if err != nil {
			return err
		}

		if len(edges) == 0 {
			fmt.Println("No outgoing links")
			return nil
		}
		for _, e := range edges {
			fmt.Printf("%s  %d\n", e.Target, e.Occurrences)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(linksCmd)
}
