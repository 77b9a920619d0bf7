package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database"
)

var markCmd = &cobra.Command{
	Use:   "mark <student-id> <slot-id>",
	Short: "Record a manual mark",
	Long: `Record an operator mark for a student in a slot.
The date defaults to today. Holidays and slots outside the active catalog are rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().String("date", "", "Date to mark (YYYY-MM-DD, default today)")
	markCmd.Flags().String("reason", "", "Reason recorded with the mark")
}

func runMark(cmd *cobra.Command, args []string) error {
	studentID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || studentID <= 0 {
		return fmt.Errorf("invalid student id %q", args[0])
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	date := mustGetString(cmd, "date")
	if date == "" {
		date = database.FormatDate(time.Now().In(a.loc))
	}

	result, err := a.service.MarkManual(ctx, attendance.ManualRequest{
		StudentID: studentID,
		Date:      date,
		SlotID:    args[1],
		Reason:    mustGetString(cmd, "reason"),
	})
	if err != nil {
		return err
	}
	if err := printResult(result.Result); err != nil {
		return err
	}
	if result.Summary != nil {
		fmt.Printf("%s: %d of %d students present\n", result.Summary.Date, result.Summary.TotalPresent, result.Summary.TotalStudents)
	}
	return nil
}
