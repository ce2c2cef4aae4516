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
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/vaultflow/internal/api"
	"github.com/kalambet/vaultflow/internal/audit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only HTTP API and MCP interface",
	Long: `Serve the read-only HTTP API and MCP interface.

The HTTP API listens on localhost and exposes /health, /summary,
/approvals, and /audit. The MCP server runs over stdio so a supervising
agent can inspect the vault. Neither surface mutates the vault.

Set VAULTFLOW_API_TOKEN to require bearer auth on the HTTP API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		initLogging(cfg)

		v, err := openVault(cfg)
		if err != nil {
			return err
		}
		deps := api.Deps{
			Vault: v,
			Audit: audit.New(v.Root),
			Token: os.Getenv("VAULTFLOW_API_TOKEN"),
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: api.NewHandler(deps),
		}
		stdioSrv := server.NewStdioServer(api.NewMCPServer(deps))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			slog.Info("http api listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			slog.Info("mcp server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		slog.Info("shutdown complete")
		return nil
	},
}
