package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.trai.ch/lithotile/internal/adapters/detector"
	"go.trai.ch/lithotile/internal/app"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
)

func (c *CLI) newPrepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare <project.yaml | images...>",
		Short: "Build the tile pyramids of a project's images",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			full, _ := cmd.Flags().GetBool("full")
			mode, err := outputMode(cmd)
			if err != nil {
				return err
			}

			prepare := func(ctx context.Context, sink ports.ProgressSink) (domain.BatchResult, error) {
				return c.app.Prepare(ctx, args, app.PrepareOptions{Full: full, Progress: sink})
			}

			var res domain.BatchResult
			if mode == detector.ModeTUI {
				res, err = present(cmd)(cmd.Context(), prepare)
			} else {
				res, err = prepare(cmd.Context(), newProgressPrinter(cmd.ErrOrStderr()))
			}
			if res.Total > 0 {
				printBatch(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	cmd.Flags().BoolP("full", "f", false, "Build every level instead of the preview levels")
	addOutputFlags(cmd)
	return cmd
}
