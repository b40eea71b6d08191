package commands

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.trai.ch/lithotile/internal/adapters/detector"
	"go.trai.ch/lithotile/internal/app"
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/tui"
)

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "auto", "Progress output: auto, tui or linear")
	cmd.Flags().BoolP("interactive", "i", false, "Same as --output tui")
}

// outputMode resolves --output and --interactive against the terminal.
func outputMode(cmd *cobra.Command) (detector.OutputMode, error) {
	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		return detector.ModeTUI, nil
	}
	flag, _ := cmd.Flags().GetString("output")
	return detector.ResolveMode(detector.DetectEnvironment(), flag)
}

// present runs a batch inside the progress view, which renders to stderr.
func present(cmd *cobra.Command) func(context.Context, app.BatchFunc) (domain.BatchResult, error) {
	return func(ctx context.Context, run app.BatchFunc) (domain.BatchResult, error) {
		return tui.Run(ctx, tui.PrepareFunc(run), tea.WithOutput(cmd.ErrOrStderr()))
	}
}
