package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"linkcal/internal/application/commands"
	"linkcal/internal/domain"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List, edit and create configuration blocks",
	Long: `Work with the component blocks stored in notes and canvases.

Examples:
  linkcal-cli blocks list Dashboards/Atlas.md
  linkcal-cli blocks set Dashboards/Atlas.md backlink-heatmap 3f2a9c1d year 2024
  linkcal-cli blocks set Boards/Week.canvas backlink-counter 7b1e period this-week
  linkcal-cli blocks create Dashboards/Atlas.md backlink-calendar Projects/Atlas.md`,
}

var blocksListCmd = &cobra.Command{
	Use:   "list <note-or-canvas>",
	Short: "List the component blocks of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commands.NewListBlocksCommand(host, args[0])
		res, err := c.Execute(context.Background())
		if err != nil {
			return err
		}

		for _, b := range res.Blocks {
			fmt.Println(describeBlock(b))
			for _, f := range b.Fallbacks {
				fmt.Printf("    %s\n", f)
			}
		}
		fmt.Println(res.Message)
		return nil
	},
}

var blocksSetCmd = &cobra.Command{
	Use:   "set <note-or-canvas> <kind> <block-id> <key> [value...]",
	Short: "Set one property of a block",
	Long: `Set one property of a block, rewriting only that line of its carrier.
Every duplicate of the block id in the carrier is updated.

Without values the property is written empty.`,
	Args: cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commands.NewSetPropertyCommand(engine, args[0], args[1], args[2], args[3], args[4:])
		res, err := c.Execute(context.Background())
		if err != nil {
			return err
		}

		fmt.Println(res.Message)
		return nil
	},
}

var blocksCreateCmd = &cobra.Command{
	Use:   "create <note> <kind> [watched-note...]",
	Short: "Append a new block with a fresh id to a note",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := commands.NewCreateBlockCommand(host, args[0], args[1], args[2:])
		res, err := c.Execute(context.Background())
		if err != nil {
			return err
		}

		fmt.Println(res.Message)
		return nil
	},
}

func describeBlock(b commands.BlockInfo) string {
	where := fmt.Sprintf("line %d", b.Line)
	if b.NodeID != "" {
		where = fmt.Sprintf("node %s, line %d", b.NodeID, b.Line)
	}
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s (%s) error: %v", b.Kind, b.ID, where, b.Err)
	}

	var props []string
	for _, p := range b.Config.Properties() {
		if p.Key == domain.IDKey {
			continue
		}
		props = append(props, p.Key+"="+strings.Join(p.Values, ","))
	}
	return fmt.Sprintf("[%s] %s (%s) %s", b.Kind, b.ID, where, strings.Join(props, " "))
}

func init() {
	blocksCmd.AddCommand(blocksListCmd, blocksSetCmd, blocksCreateCmd)
	rootCmd.AddCommand(blocksCmd)
}
