package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/bytefit/activities"
	"github.com/jrsteele09/bytefit/notify"
	"github.com/jrsteele09/bytefit/session"
	"github.com/spf13/cobra"
)

func newDashboardCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show your activity statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()
			if err := a.Reconciler.Guard(ctx, session.ViewDashboard); err != nil {
				return err
			}

			list, err := a.Activities.ListActivities(ctx)
			if err != nil {
				a.Logger.Warn().Err(err).Msg("list activities failed")
				a.Notifier.Notify(listLoadFailed, notify.Error(4*time.Second))
				list = nil
			}

			name := a.Store.User().DisplayName()
			if name == "" {
				name = "athlete"
			}
			fmt.Fprintln(a.Out, headingStyle.Render(fmt.Sprintf("Hi %s, here is your progress", name)))

			stats := activities.Summarize(list)
			fmt.Fprintf(a.Out, "%s %d\n", labelStyle.Render("Activities:     "), stats.Count)
			fmt.Fprintf(a.Out, "%s %.0f min\n", labelStyle.Render("Total duration: "), stats.TotalDuration)
			fmt.Fprintf(a.Out, "%s %.0f kcal\n", labelStyle.Render("Total calories: "), stats.TotalCalories)
			fmt.Fprintf(a.Out, "%s %.0f kcal\n", labelStyle.Render("Avg calories:   "), stats.AverageCalories)

			if stats.Count == 0 {
				fmt.Fprintln(a.Out)
				fmt.Fprintln(a.Out, emptyActivities)
				return nil
			}

			fmt.Fprintln(a.Out)
			tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tCOUNT\tSHARE")
			for _, t := range activities.Types {
				if n := stats.ByType[t]; n > 0 {
					fmt.Fprintf(tw, "%s\t%d\t%.0f%%\n", t.Label(), n, stats.Share(t))
				}
			}
			_ = tw.Flush()

			fmt.Fprintln(a.Out)
			printActivities(a.Out, list)
			return nil
		},
	}
}
