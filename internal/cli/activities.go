package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jrsteele09/bytefit/activities"
	"github.com/jrsteele09/bytefit/internal/utils"
	"github.com/jrsteele09/bytefit/notify"
	"github.com/jrsteele09/bytefit/session"
	"github.com/spf13/cobra"
)

const (
	activityAdded     = "Activity added successfully!"
	activityAddFailed = "Failed to add activity. Please try again."
	listLoadFailed    = "Failed to load activities"
	backToDashboard   = "Back to your dashboard: bytefit dashboard"
	emptyActivities   = "No activities yet. Start tracking with 'bytefit activities add'."
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#667eea"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

func newActivitiesCommand(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activities",
		Aliases: []string{"activity"},
		Short:   "List, show and add activities",
	}
	cmd.AddCommand(
		newActivitiesListCommand(app),
		newActivitiesShowCommand(app),
		newActivitiesAddCommand(app),
	)
	return cmd
}

func newActivitiesListCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your activities",
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
			printActivities(a.Out, list)
			return nil
		},
	}
}

func newActivitiesShowCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one activity with its recommendations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()
			var id string
			if len(args) > 0 {
				id = args[0]
			}
			if err := a.Reconciler.Guard(ctx, session.ActivityView(id)); err != nil {
				return err
			}

			detail, err := activities.LoadDetail(ctx, a.Activities, id)
			if err != nil {
				a.Notifier.Notify(activities.DetailLoadError, notify.Error(4*time.Second))
				fmt.Fprintln(a.Out, backToDashboard)
				return err
			}
			printDetail(a.Out, detail)
			return nil
		},
	}
}

func newActivitiesAddCommand(app func() *App) *cobra.Command {
	var (
		typeName string
		duration float64
		calories float64
		start    string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new activity",
		Example: `  bytefit activities add --type running --duration 30 --calories 300
  bytefit activities add --type "weight training" --duration 45 --calories 250 --start 2026-03-01T07:30:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()
			if err := a.Reconciler.Guard(ctx, session.ViewAddActivity); err != nil {
				return err
			}

			t, err := activities.ParseType(typeName)
			if err != nil {
				return err
			}
			in := activities.CreateActivityInput{
				Type:              t,
				Duration:          duration,
				CaloriesBurned:    calories,
				AdditionalMetrics: map[string]any{},
			}
			if start != "" {
				ts, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				in.StartTime = utils.Ptr(ts)
			}
			if err := in.Validate(); err != nil {
				return err
			}

			created, err := a.Activities.CreateActivity(ctx, in)
			if err != nil {
				a.Notifier.Notify(activityAddFailed, notify.Error(4*time.Second))
				return err
			}
			a.Notifier.Notify(activityAdded, notify.Success(3*time.Second))
			fmt.Fprintf(a.Out, "Created activity %s\n", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&typeName, "type", string(activities.TypeRunning), "activity type, one of "+typeList())
	cmd.Flags().Float64Var(&duration, "duration", 0, "duration in minutes")
	cmd.Flags().Float64Var(&calories, "calories", 0, "calories burned")
	cmd.Flags().StringVar(&start, "start", "", "start time (RFC 3339)")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func typeList() string {
	names := make([]string, 0, len(activities.Types))
	for _, t := range activities.Types {
		names = append(names, strings.ToLower(string(t)))
	}
	return strings.Join(names, ", ")
}

func printActivities(out io.Writer, list []activities.Activity) {
	if len(list) == 0 {
		fmt.Fprintln(out, emptyActivities)
		return
	}
	fmt.Fprintln(out, headingStyle.Render("Your activities"))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tDURATION\tCALORIES\tDATE")
	for _, act := range list {
		fmt.Fprintf(tw, "%s\t%s\t%.0f min\t%.0f kcal\t%s\n",
			act.ID, act.Type.Label(), act.Duration, act.CaloriesBurned, formatDate(act.CreatedAt))
	}
	_ = tw.Flush()
}

func printDetail(out io.Writer, d *activities.Detail) {
	act := d.Activity
	fmt.Fprintln(out, headingStyle.Render(act.Type.Label()))
	fmt.Fprintf(out, "%s %.0f min\n", labelStyle.Render("Duration:"), act.Duration)
	fmt.Fprintf(out, "%s %.0f kcal\n", labelStyle.Render("Calories:"), act.CaloriesBurned)
	if act.StartTime != nil {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Started: "), formatDate(utils.Value(act.StartTime)))
	}
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Logged:  "), formatDate(act.CreatedAt))

	if !d.HasAdvice() {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, headingStyle.Render("AI recommendation"))
	fmt.Fprintln(out, d.RecommendationText())
	printList(out, "Improvements", d.Improvements())
	printList(out, "Suggestions", d.Suggestions())
	printList(out, "Safety", d.Safety())
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, headingStyle.Render(title))
	for _, item := range items {
		fmt.Fprintf(out, "  - %s\n", item)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}
