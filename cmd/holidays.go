package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/database"
)

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "Manage the holiday calendar",
}

var holidaysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List holidays",
	RunE:  runHolidaysList,
}

var holidaysAddCmd = &cobra.Command{
	Use:   "add <date> <name>",
	Short: "Add a holiday",
	Args:  cobra.ExactArgs(2),
	RunE:  runHolidaysAdd,
}

var holidaysDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a holiday",
	Args:  cobra.ExactArgs(1),
	RunE:  runHolidaysDelete,
}

func init() {
	rootCmd.AddCommand(holidaysCmd)
	holidaysCmd.AddCommand(holidaysListCmd, holidaysAddCmd, holidaysDeleteCmd)

	holidaysListCmd.Flags().String("from", "", "First date (YYYY-MM-DD)")
	holidaysListCmd.Flags().String("to", "", "Last date (YYYY-MM-DD)")
	holidaysAddCmd.Flags().String("type", "holiday", "Type: holiday, vacation, exam or event")
}

func runHolidaysList(cmd *cobra.Command, args []string) error {
	from, to := mustGetString(cmd, "from"), mustGetString(cmd, "to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(database.DateLayout, d); err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d)
		}
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	holidays, err := a.store.ListHolidays(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to list holidays: %w", err)
	}
	if len(holidays) == 0 {
		fmt.Println("No holidays")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tNAME")
	for _, h := range holidays {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", h.ID, h.Date, h.Type, h.Name)
	}
	return w.Flush()
}

func runHolidaysAdd(cmd *cobra.Command, args []string) error {
	if _, err := time.Parse(database.DateLayout, args[0]); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[0])
	}
	holidayType := mustGetString(cmd, "type")
	switch holidayType {
	case "holiday", "vacation", "exam", "event":
	default:
		return fmt.Errorf("invalid type %q", holidayType)
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	holiday := &database.Holiday{Date: args[0], Name: args[1], Type: holidayType}
	err = a.store.AddHoliday(ctx, holiday)
	if errors.Is(err, database.ErrConflict) {
		return fmt.Errorf("a holiday already exists on %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to add holiday: %w", err)
	}
	fmt.Printf("Added holiday %d: %s (%s)\n", holiday.ID, holiday.Name, holiday.Date)
	return nil
}

func runHolidaysDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid holiday id %q", args[0])
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.store.DeleteHoliday(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("holiday %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	fmt.Printf("Deleted holiday %d\n", id)
	return nil
}
