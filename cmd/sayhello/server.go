package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/sayhello/sayhello/internal/api"
	"github.com/sayhello/sayhello/internal/app"
	"github.com/sayhello/sayhello/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the directory server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpStdio, _ := cmd.Flags().GetBool("mcp")
		return runServer(mcpStdio)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools on stdio")
}

func runServer(mcpStdio bool) error {
	fmt.Fprintf(os.Stderr, "sayhello version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, closeGateway, err := openGateway(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeGateway(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing gateway: %v\n", err)
		}
	}()

	ctrl := app.NewController(gw)

	// Load the collection once. A failed load is surfaced, not fatal:
	// the server starts and the error shows up in the API responses'
	// empty collection until a later action succeeds.
	if err := ctrl.Load(ctx); err != nil {
		printWarning("initial load failed: %v", err)
	} else {
		slog.Info("profiles loaded", "count", len(ctrl.Profiles()))
	}

	handler := api.NewHandler(api.Deps{
		App:          ctrl,
		Token:        cfg.Server.APIToken,
		PageSize:     cfg.Directory.PageSize,
		ImportPolicy: app.ParseImportPolicy(cfg.Directory.ImportPolicy),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if mcpStdio {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			App:      ctrl,
			Version:  version,
			PageSize: cfg.Directory.PageSize,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("sayhello listening", "addr", addr)
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
