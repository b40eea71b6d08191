package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <project.yaml | images...>",
		Short: "Show which images have their pyramids cached",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			full, _ := cmd.Flags().GetBool("full")
			statuses, err := c.app.Status(cmd.Context(), args, full)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	cmd.Flags().BoolP("full", "f", false, "Check every level instead of the preview levels")
	return cmd
}
