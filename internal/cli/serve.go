package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tt/internal/mcp"
	"github.com/rpggio/tt/internal/teamwork"
	"github.com/rpggio/tt/internal/transport"
	"github.com/spf13/cobra"
)

const (
	sessionTimeout  = 30 * time.Minute
	shutdownTimeout = 5 * time.Second
)

func newServeCommand(opts *RootOptions) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger as MCP tools over stdio or HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if mode == "" {
					mode = a.cfg.Transport.Mode
				}
				server := mcp.NewServer(mcp.Config{
					Services: mcp.Services{
						Projects:   a.projects,
						Timeblocks: a.timeblocks,
						Tracker:    a.tracker,
						Syncer:     a.optionalSyncer(),
						Activity:   a.activity,
					},
					Logger: a.logger,
				})

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				switch mode {
				case "stdio":
					return runStdio(ctx, a.logger, server)
				case "http":
					router := transport.NewRouter(transport.RouterConfig{
						MCP:     mcp.NewHTTPHandler(server, sessionTimeout),
						Metrics: a.metrics.Handler(),
						Token:   a.cfg.Server.Token,
						Logger:  a.logger,
					})
					addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
					return runHTTP(ctx, a.logger, router, addr, a.cfg.Server.Token != "")
				default:
					return fmt.Errorf("invalid transport mode %q", mode)
				}
			})
		},
	}
	cmd.Flags().StringVar(&mode, "transport", "", "stdio or http (default from config)")
	return cmd
}

// optionalSyncer returns nil when Teamwork is not configured, so the sync
// tool reports SYNC_NOT_CONFIGURED instead of the server failing to start.
func (a *app) optionalSyncer() mcp.Syncer {
	s, err := a.syncer()
	if err != nil {
		if !errors.Is(err, teamwork.ErrMissingCredentials) {
			a.logger.Warn("teamwork sync disabled", "error", err)
		}
		return nil
	}
	return s
}

func runStdio(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server) error {
	logger.Info("starting stdio transport")

	// Run blocks until stdin closes or ctx is canceled.
	err := server.Run(ctx, &sdkmcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	logger.Info("stdio transport closed")
	return nil
}

func runHTTP(ctx context.Context, logger *slog.Logger, handler http.Handler, addr string, auth bool) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "auth", auth)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
