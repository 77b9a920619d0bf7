package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/recognition"
	"github.com/kozaktomas/attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance API server.
The server loads the slot catalog, builds the face gallery from the enrolled
embeddings and serves the JSON API used by kiosks and the admin console.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().StringSlice("allowed-origin", nil, "Additional CORS origin (repeatable)")
}

// initGallery builds or loads the face gallery used to attribute detected faces.
func initGallery(ctx context.Context, a *app) *recognition.Gallery {
	gallery := recognition.NewGallery(a.cfg.Recognition.Threshold)
	indexPath := a.cfg.Recognition.HNSWIndexPath
	if indexPath != "" {
		fmt.Printf("Loading face gallery from %s...\n", indexPath)
	} else {
		fmt.Printf("Building in-memory face gallery...\n")
	}
	if err := gallery.Load(ctx, a.store, indexPath); err != nil {
		fmt.Printf("Warning: Failed to build face gallery: %v\n", err)
		fmt.Printf("Recognised faces will not be attributed until students are enrolled\n")
		return gallery
	}
	fmt.Printf("Face gallery ready with %d embeddings (threshold %.2f)\n", gallery.Len(), gallery.Threshold())
	return gallery
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.service.Catalog.Watch(ctx, a.cfg.Attendance.ReloadInterval)

	faces := recognition.NewClient(a.cfg.Recognition.ServiceURL)
	healthCtx, healthCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := faces.Health(healthCtx); err != nil {
		fmt.Printf("Warning: face service unavailable: %v\n", err)
	}
	healthCancel()

	gallery := initGallery(ctx, a)
	port, host := resolveServeHostPort(cmd)
	a.cfg.Web.AllowedOrigins = append(a.cfg.Web.AllowedOrigins, mustGetStringSlice(cmd, "allowed-origin")...)

	server := web.NewServer(a.cfg, port, host, web.Dependencies{
		Service:  a.service,
		Store:    a.store,
		Students: a.students,
		Detector: recognition.NewDetector(faces, gallery, a.service),
		Enroller: recognition.NewEnroller(faces, a.store, a.students, gallery),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		if path := a.cfg.Recognition.HNSWIndexPath; path != "" {
			if err := gallery.Save(path); err != nil {
				fmt.Printf("Warning: failed to save face gallery: %v\n", err)
			} else {
				fmt.Println("Face gallery saved to disk")
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
		cancel()
	}()

	fmt.Printf("Starting attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
