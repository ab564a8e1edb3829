package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/tilex/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the tile extraction API",
	Long: `Start an HTTP server that provides a REST API for tile extraction.

Uploaded images are extracted, kept in a bounded in-memory store and can be
downloaded as tileset, map, TMX and preview. Progress can be streamed over a
WebSocket.

Examples:
  # Start server on default port 8080
  tilex serve

  # Start server on custom port
  tilex serve --port 3000

  # Keep the last 256 extractions
  tilex serve --bind 0.0.0.0 --cache-size 256`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 60*time.Second, "request timeout")
	serveCmd.Flags().Int("cache-size", server.DefaultCacheSize, "number of extraction results kept in memory")
	serveCmd.Flags().Int64("max-image-size", server.DefaultMaxImageBytes, "largest accepted image upload in bytes")
	serveCmd.Flags().Int64("max-image-pixels", server.DefaultMaxImagePixels, "largest accepted image area (width*height)")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.cache-size", serveCmd.Flags().Lookup("cache-size"))
	viper.BindPFlag("server.max-image-size", serveCmd.Flags().Lookup("max-image-size"))
	viper.BindPFlag("server.max-image-pixels", serveCmd.Flags().Lookup("max-image-pixels"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")

	addr := fmt.Sprintf("%s:%d", bind, port)

	// Create server implementation
	apiServer, err := server.NewServer(server.Config{
		Version:        Version,
		CacheSize:      viper.GetInt("server.cache-size"),
		MaxImageBytes:  viper.GetInt64("server.max-image-size"),
		MaxImagePixels: viper.GetInt64("server.max-image-pixels"),
		Logger:         log.New(cmd.ErrOrStderr(), "", log.LstdFlags),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     server.NewRouter(apiServer, timeout),
		ReadTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Fprintf(cmd.ErrOrStderr(), "\nShutting down server...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting tilex server on %s\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Extract endpoint: http://%s/api/v1/extract\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Progress stream: ws://%s/api/v1/extract/ws\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}
