package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/database/postgres"
	"github.com/kozaktomas/attendance/internal/database/sqlite"
	"github.com/kozaktomas/attendance/internal/directory/mysql"
)

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	store    database.Store
	students database.StudentDirectory
	service  *attendance.Service
	loc      *time.Location
	closers  []func() error
}

// openApp opens the store and the student directory and wires the attendance
// components. The catalog is loaded, seeding the bootstrap slots into an empty store.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	postgres.Register(cfg.Database)
	sqlite.Register()

	loc, err := cfg.Attendance.Location()
	if err != nil {
		return nil, err
	}
	workingDays, err := attendance.ParseWorkingDays(cfg.Attendance.WorkingDays...)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKING_DAYS: %w", err)
	}
	defaults, err := cfg.Attendance.SlotDefinitions()
	if err != nil {
		return nil, fmt.Errorf("invalid bootstrap slots: %w", err)
	}

	store, err := database.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: store, students: store, loc: loc, closers: []func() error{store.Close}}

	if cfg.Directory.MySQLURL != "" {
		dir, err := mysql.New(ctx, cfg.Directory.MySQLURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open student directory: %w", err)
		}
		a.students = dir
		a.closers = append(a.closers, dir.Close)
	}

	catalog := attendance.NewCatalog(store, defaults)
	snap, err := catalog.Load(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load slot catalog: %w", err)
	}
	fmt.Printf("Slot catalog loaded with %d active slots\n", snap.Len())

	projector := attendance.NewProjector(store, store, a.students)
	ledger := attendance.NewLedger(catalog, store, a.students, store, projector, loc)
	query := attendance.NewQueryService(catalog, store, a.students, projector, workingDays, loc)
	a.service = attendance.NewService(catalog, ledger, projector, query, loc)
	return a, nil
}

// Close releases the store and directory connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			fmt.Printf("Warning: close failed: %v\n", err)
		}
	}
}

// printResult prints a service result and turns a failure into an error.
func printResult(res attendance.Result) error {
	if !res.Success {
		return fmt.Errorf("%s: %s", res.Status, res.Message)
	}
	fmt.Println(res.Message)
	return nil
}
