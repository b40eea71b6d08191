package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/lithotile/internal/adapters/detector"
	"go.trai.ch/lithotile/internal/app"
	"go.trai.ch/lithotile/internal/core/domain"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <project.yaml | images...>",
		Short: "Prepare a project and keep it prepared while its images change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			full, _ := cmd.Flags().GetBool("full")
			mode, err := outputMode(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := app.WatchOptions{
				Prepare: app.PrepareOptions{Full: full},
				OnBatch: func(res domain.BatchResult) {
					printBatch(out, res)
				},
			}
			if mode == detector.ModeTUI {
				// Interrupting a view cancels that batch only; watching goes on.
				opts.Present = present(cmd)
			} else {
				opts.Prepare.Progress = newProgressPrinter(cmd.ErrOrStderr())
			}
			return c.app.Watch(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().BoolP("full", "f", false, "Build every level instead of the preview levels")
	addOutputFlags(cmd)
	return cmd
}
