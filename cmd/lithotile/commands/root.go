// Package commands implements the CLI commands for lithotile.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/lithotile/internal/app"
	"go.trai.ch/lithotile/internal/build"
	"go.trai.ch/lithotile/internal/core/domain"
)

// CLI represents the command line interface for lithotile.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Prepare(ctx context.Context, args []string, opts app.PrepareOptions) (domain.BatchResult, error)
	Status(ctx context.Context, args []string, full bool) ([]app.ImageStatus, error)
	Stats() domain.CacheStats
	Clear() error
	GC(ctx context.Context, opts app.GCOptions) (app.GCResult, error)
	Resolve(ctx context.Context, args []string, opts app.ResolveOptions) (domain.Frame, error)
	Watch(ctx context.Context, args []string, opts app.WatchOptions) error
	SetLogJSON(enable bool)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "lithotile",
		Short:         "Tile pyramids and overlay views for thin-section micrographs",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	var logJSON bool
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write log records as JSON")
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		if logJSON {
			a.SetLogJSON(true)
		}
	}

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newPrepareCmd())
	rootCmd.AddCommand(c.newStatusCmd())
	rootCmd.AddCommand(c.newStatsCmd())
	rootCmd.AddCommand(c.newClearCmd())
	rootCmd.AddCommand(c.newGCCmd())
	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
