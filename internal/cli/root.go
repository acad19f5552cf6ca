package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/spf13/cobra"
)

const appName = "ByteFit"

// Execute runs the bytefit command line with the production wiring
func Execute(ctx context.Context) error {
	return Run(ctx, NewApp, os.Args[1:], nil)
}

// Run executes the command tree on args, writing to out (stdout when nil).
// The App built for the run is closed afterwards, also when the command
// fails; cobra skips post-run hooks on errors.
func Run(ctx context.Context, build Builder, args []string, out io.Writer) error {
	var app *App
	root := NewRootCommand(func(ctx context.Context, w io.Writer) (*App, error) {
		a, err := build(ctx, w)
		app = a
		return a, err
	})
	root.SetArgs(args)
	if out != nil {
		root.SetOut(out)
		root.SetErr(out)
	}

	err := root.ExecuteContext(ctx)
	if app != nil {
		if closeErr := app.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("[cli Run] close: %w", closeErr))
		}
	}
	return err
}

// NewRootCommand builds the command tree. The App is created once per run,
// before the selected command executes. Closing it is left to Run.
func NewRootCommand(build Builder) *cobra.Command {
	var app *App
	current := func() *App { return app }

	root := &cobra.Command{
		Use:           "bytefit",
		Short:         "ByteFit fitness tracker",
		Long:          "bytefit logs you in to ByteFit and lets you track your activities from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				if err := os.Setenv("BYTEFIT_CONFIG", path); err != nil {
					return err
				}
			}

			a, err := build(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("[cli] %w", err)
			}
			app = a

			// Startup snapshot; no network round trip is needed to know the state
			if err := app.Reconciler.Reconcile(cmd.Context()); err != nil {
				app.Logger.Warn().Err(err).Msg("startup reconcile failed")
			}
			return nil
		},
	}
	root.PersistentFlags().String("config", "", "YAML config file (default bytefit.yaml)")

	root.AddCommand(
		newLoginCommand(current),
		newLogoutCommand(current),
		newStatusCommand(current),
		newWatchCommand(current),
		newActivitiesCommand(current),
		newDashboardCommand(current),
	)
	return root
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
