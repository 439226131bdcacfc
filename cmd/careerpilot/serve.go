package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/yangwenmai/careerpilot/internal/api"
	"github.com/yangwenmai/careerpilot/internal/config"
	"github.com/yangwenmai/careerpilot/internal/worker"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (or the MCP stdio server with --mcp)",
		RunE: func(cmd *cobra.Command, args []string) error {
			useMCP, _ := cmd.Flags().GetBool("mcp")
			return runServe(useMCP)
		},
	}
	cmd.Flags().Bool("mcp", false, "serve MCP over stdin/stdout instead of HTTP")
	return cmd
}

func runServe(useMCP bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Purge expired research in the background.
	go worker.New(a.store, a.companies, cfg.SweepInterval).Start(ctx)

	deps := api.Deps{
		Generator:  a.orch,
		Extractor:  a.extractor,
		Artifacts:  a.store,
		CORSOrigin: cfg.CORSOrigin,
	}

	if useMCP {
		slog.Info("MCP server started (stdio transport)")
		err := server.NewStdioServer(api.NewMCPServer(deps, version)).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.New(deps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("careerpilot listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
