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

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/skn-ai14-250409/SKN14-3rd-3Team/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the QA server (HTTP + MCP over stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "manualqa version %s\n", version)

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n, err := a.manuals.Count(); err == nil && n == 0 {
		printWarning("manual collection is empty — run 'manualqa ingest' first")
	}

	handler := api.NewHandler(a.engine)
	router := chi.NewRouter()
	if a.cfg.Server.APIToken != "" {
		router.With(api.BearerAuth(a.cfg.Server.APIToken)).Mount("/", handler)
	} else {
		router.Mount("/", handler)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// MCP over stdio, alongside HTTP.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Engine:   a.engine,
		Embedder: a.embedder,
		Chunks:   a.manuals,
		FetchK:   a.cfg.Retrieval.FetchK,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "manualqa listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
