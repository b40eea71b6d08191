package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/lithotile/internal/app"
	"go.trai.ch/lithotile/internal/ui/output"
)

func (c *CLI) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show tile cache usage",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printStats(cmd.OutOrStdout(), c.app.Stats())
		},
	}
}

func (c *CLI) newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached tile",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.app.Clear()
		},
	}
}

func (c *CLI) newGCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Shrink the tile cache to its budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keep, _ := cmd.Flags().GetStringSlice("keep")
			res, err := c.app.GC(cmd.Context(), app.GCOptions{Keep: keep})
			if err != nil {
				return err
			}
			stats := c.app.Stats()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale and %d least recently used tiles, %s left\n",
				res.Stale, res.Evicted, output.Bytes(stats.TotalBytes))
			return nil
		},
	}
	cmd.Flags().StringSliceP("keep", "k", nil, "Evict every tile not belonging to this project")
	return cmd
}
