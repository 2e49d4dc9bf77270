package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diogenes-ai-code/taskman/internal/server"
	"github.com/spf13/cobra"
)

// Serve command flags
var (
	servePort int
	serveHost string
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config, 18090)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host address to bind to (default from config, localhost)")

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP JSON API",
	Long: `Start an HTTP server exposing the active store as a JSON API.

The API covers the board view with sorting and filtering, ticket create and
edit (JSON or multipart with an attachment), column moves, drag and drop,
reordering, expand state, subtasks, tags and the timeline.

Examples:
  taskman serve                    # Start on localhost:18090
  taskman serve --port 8080        # Start on custom port
  taskman serve --host 0.0.0.0     # Bind to all interfaces
  taskman --store work serve       # Serve another store`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	database, _, err := openBoard()
	if err != nil {
		return err
	}
	defer database.Close()

	cfg := GetConfig()
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	host := cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}

	srv, err := server.New(server.Config{
		Port:       port,
		Host:       host,
		DB:         database.DB,
		UploadsDir: GetUploadsDir(),
		AllowedExt: cfg.Uploads.AllowedExt,
		View:       cfg.View,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	OutputLine("Serving %s at http://%s", database.Name(), srv.Address())
	OutputLine("Press Ctrl+C to stop")

	// Wait for shutdown signal or error
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-stop:
		OutputLine("\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	OutputLine("Server stopped")
	return nil
}
