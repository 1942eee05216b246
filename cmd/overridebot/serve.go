package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/overridebot/internal/adapter/driving/http"
)

// shutdownTimeout bounds how long in-flight requests may drain on shutdown.
const shutdownTimeout = 10 * time.Second

// newServeCommand creates the serve command: poll loop plus HTTP API.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll on an interval and serve the run history API",
		Long: `Run the override pipeline immediately and then on every poll interval,
while serving the run history API on OVERRIDEBOT_LISTEN_ADDR.

Endpoints:
  GET  /api/v1/health
  GET  /api/v1/runs?limit=N
  GET  /api/v1/runs/{id}
  POST /api/v1/runs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	// Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(a.runStore, a.service, a.cfg.Repo, a.logger)

	srv := &http.Server{
		Handler:           httphandler.NewServeMux(apiHandler, a.logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Minute, // POST /api/v1/runs waits for a full run.
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.ListenAddr, err)
	}

	a.logger.Info("overridebot started",
		"repo", a.cfg.Repo,
		"listen_addr", ln.Addr().String(),
		"poll_interval", a.cfg.PollInterval,
	)

	return runServer(ctx, srv, ln, a.service, a.logger)
}

// pollLoop is the long-running half of serve.
type pollLoop interface {
	Start(ctx context.Context)
}

// runServer serves srv on ln and runs loop until ctx is canceled or the
// listener fails. On shutdown, in-flight requests drain first; the poll loop
// and request contexts are canceled only afterwards.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener, loop pollLoop, logger *slog.Logger) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	srv.BaseContext = func(net.Listener) context.Context { return runCtx }

	// Start the poll loop.
	pollDone := make(chan struct{})
	go func() {
		loop.Start(runCtx)
		close(pollDone)
	}()

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	// Wait for shutdown signal or a listener failure.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err, ok := <-srvErr:
		if ok {
			logger.Error("http server error", "error", err)
			runErr = err
		}
	}

	// Graceful shutdown for in-flight requests, then stop the poll loop.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	cancel()
	<-pollDone

	logger.Info("shutdown complete")
	return runErr
}
