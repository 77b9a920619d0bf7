package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/database"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Maintain the daily attendance summaries",
}

var summaryRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute daily summaries from the stored marks",
	Long: `Recompute the stored daily summary of every day in a range.
Summaries are derived data; rebuilding is safe to repeat and repairs
summaries left stale by a failed write or a student directory change.`,
	RunE: runSummaryRebuild,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.AddCommand(summaryRebuildCmd)

	summaryRebuildCmd.Flags().String("from", "", "First date (YYYY-MM-DD, default 30 days ago)")
	summaryRebuildCmd.Flags().String("to", "", "Last date (YYYY-MM-DD, default today)")
	summaryRebuildCmd.Flags().Bool("quiet", false, "Hide the progress bar")
}

func runSummaryRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	today := time.Now().In(a.loc)
	to, err := parseDateFlag(mustGetString(cmd, "to"), today, a.loc)
	if err != nil {
		return err
	}
	from, err := parseDateFlag(mustGetString(cmd, "from"), to.AddDate(0, 0, -29), a.loc)
	if err != nil {
		return err
	}
	if to.Before(from) {
		return fmt.Errorf("--from %s is after --to %s", database.FormatDate(from), database.FormatDate(to))
	}

	days := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days++
	}
	var bar *progressbar.ProgressBar
	if !mustGetBool(cmd, "quiet") {
		bar = progressbar.NewOptions(days,
			progressbar.OptionSetDescription("Rebuilding summaries"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("days"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	count, err := a.service.Projector.RebuildRange(ctx, from, to, func(date string) {
		if bar != nil {
			bar.Add(1)
		}
	})
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("rebuild stopped after %d days: %w", count, err)
	}
	fmt.Printf("Rebuilt %d daily summaries (%s to %s)\n", count, database.FormatDate(from), database.FormatDate(to))
	return nil
}

// parseDateFlag parses a YYYY-MM-DD flag value in loc, fallback when empty.
func parseDateFlag(value string, fallback time.Time, loc *time.Location) (time.Time, error) {
	if value == "" {
		y, m, d := fallback.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	day, err := database.ParseDate(value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return day, nil
}
