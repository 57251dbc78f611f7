package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/api"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                      - Health check
  GET  /api/v1/index/values         - Index values in a date range
  GET  /api/v1/index/composition    - Composition in effect on a date
  GET  /api/v1/index/latest         - Most recent index value
  POST /api/v1/query                - Read-only SQL escape hatch
  GET  /ws/index                    - Live index value stream

Example:
  go run ./cmd/index100 api
  go run ./cmd/index100 api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides config)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.close()

	if apiPort != "" {
		rt.cfg.Port = apiPort
	}

	indexHandler := handlers.NewIndexHandler(rt.store, rt.cache, rt.logger)
	stream := api.NewStream(rt.store, rt.logger)
	router := api.NewRouter(indexHandler, stream, rt.logger)
	server := api.New(rt.cfg, rt.logger, router)

	go func() {
		if err := server.Start(); err != nil {
			rt.logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", rt.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
