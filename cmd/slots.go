package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Manage the attendance slot catalog",
}

var slotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured slots",
	RunE:  runSlotsList,
}

var slotsUpdateCmd = &cobra.Command{
	Use:   "update <slot-id> <start HH:MM> <end HH:MM>",
	Short: "Change the window of a slot",
	Args:  cobra.ExactArgs(3),
	RunE:  runSlotsUpdate,
}

var slotsCreateCmd = &cobra.Command{
	Use:   "create <slot-id> <start HH:MM> <end HH:MM>",
	Short: "Add a slot to the catalog",
	Args:  cobra.ExactArgs(3),
	RunE:  runSlotsCreate,
}

var slotsDeactivateCmd = &cobra.Command{
	Use:   "deactivate <slot-id>",
	Short: "Remove a slot from the catalog, keeping its marks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlotsDeactivate,
}

var slotsActivateCmd = &cobra.Command{
	Use:   "activate <slot-id>",
	Short: "Return a deactivated slot to the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlotsActivate,
}

func init() {
	rootCmd.AddCommand(slotsCmd)
	slotsCmd.AddCommand(slotsListCmd, slotsUpdateCmd, slotsCreateCmd, slotsDeactivateCmd, slotsActivateCmd)

	slotsListCmd.Flags().Bool("all", false, "Include deactivated slots")
	slotsCreateCmd.Flags().String("name", "", "Display name (defaults to \"<Id> Session\")")
}

func runSlotsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	slots, err := a.store.ListSlots(ctx, mustGetBool(cmd, "all"))
	if err != nil {
		return fmt.Errorf("failed to list slots: %w", err)
	}

	result := a.service.Slots()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tWINDOW\tSTATUS")
	for _, s := range slots {
		status := "active"
		if !s.IsActive {
			status = "inactive"
		}
		if result.CurrentSlot != nil && result.CurrentSlot.Slot.SlotID == s.SlotID {
			status = "current"
		}
		fmt.Fprintf(w, "%s\t%s\t%s-%s\t%s\n", s.SlotID, s.DisplayName, s.StartTime, s.EndTime, status)
	}
	w.Flush()

	if result.NextSlot != nil {
		fmt.Printf("\nNext: %s in %d minutes\n", result.NextSlot.Slot.DisplayName, result.NextSlot.WaitMinutes)
	}
	return nil
}

// parseSlotWindow parses the start and end arguments.
func parseSlotWindow(start, end string) (database.TimeOfDay, database.TimeOfDay, error) {
	s, err := database.ParseTimeOfDay(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := database.ParseTimeOfDay(end)
	if err != nil {
		return 0, 0, err
	}
	return s, e, nil
}

// runCatalogChange opens the app, applies change and prints its result.
func runCatalogChange(change func(ctx context.Context, svc *attendance.Service) (*attendance.CatalogResult, error)) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := change(ctx, a.service)
	if err != nil {
		return err
	}
	return printResult(result.Result)
}

func runSlotsUpdate(cmd *cobra.Command, args []string) error {
	start, end, err := parseSlotWindow(args[1], args[2])
	if err != nil {
		return err
	}
	return runCatalogChange(func(ctx context.Context, svc *attendance.Service) (*attendance.CatalogResult, error) {
		return svc.UpdateSlot(ctx, args[0], start, end)
	})
}

func runSlotsCreate(cmd *cobra.Command, args []string) error {
	start, end, err := parseSlotWindow(args[1], args[2])
	if err != nil {
		return err
	}
	def := database.SlotDefinition{
		SlotID:      args[0],
		DisplayName: mustGetString(cmd, "name"),
		StartTime:   start,
		EndTime:     end,
		IsActive:    true,
	}
	return runCatalogChange(func(ctx context.Context, svc *attendance.Service) (*attendance.CatalogResult, error) {
		return svc.CreateSlot(ctx, def)
	})
}

func runSlotsDeactivate(cmd *cobra.Command, args []string) error {
	return runCatalogChange(func(ctx context.Context, svc *attendance.Service) (*attendance.CatalogResult, error) {
		return svc.DeactivateSlot(ctx, args[0])
	})
}

func runSlotsActivate(cmd *cobra.Command, args []string) error {
	return runCatalogChange(func(ctx context.Context, svc *attendance.Service) (*attendance.CatalogResult, error) {
		return svc.ActivateSlot(ctx, args[0])
	})
}
