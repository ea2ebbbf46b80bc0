package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"linkcal/internal/application/commands"
	"linkcal/internal/application/configsync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Bring the link index up to date",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := host.Sync()
		if err != nil {
			return err
		}

		fmt.Printf("Scanned %d files: %d added, %d updated, %d deleted, %d links in %s\n",
			stats.FilesScanned, stats.NodesAdded, stats.NodesUpdated, stats.NodesDeleted,
			stats.EdgesAdded, stats.Duration)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <note-or-canvas>",
	Short: "Print every block of a document as the vault changes",
	Long: `Mount every block of a document and print its recomputed counts each
time the link index changes, until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		carrier := args[0]
		list, err := commands.NewListBlocksCommand(host, carrier).Execute(ctx)
		if err != nil {
			return err
		}

		loc := configsync.Location{Kind: configsync.CarrierFor(carrier), Path: carrier}
		mounted := 0
		for _, b := range list.Blocks {
			if b.Err != nil {
				logger.Warn("skipping undecodable block", "id", b.ID, "error", b.Err)
				continue
			}
			h, _, err := engine.Mount(ctx, loc, b.Kind, b.ID, printRefresh)
			if err != nil {
				logger.Warn("failed to mount block", "id", b.ID, "error", err)
				continue
			}
			defer engine.Dispose(h)
			mounted++
		}
		if mounted == 0 {
			return fmt.Errorf("no blocks to watch in %s", carrier)
		}

		if err := host.Watch(ctx); err != nil {
			return err
		}
		fmt.Printf("Watching %d blocks in %s\n", mounted, carrier)

		<-ctx.Done()
		return nil
	},
}

func printRefresh(r configsync.Refreshed) {
	a := r.Analysis
	fmt.Printf("%s %s: %d in %s, %d in %d\n",
		r.Config.Kind(), r.Config.BlockID(), a.CurrentPeriodCount, a.Period.Token, a.Total, a.Year)
}

func init() {
	rootCmd.AddCommand(syncCmd, watchCmd)
}
