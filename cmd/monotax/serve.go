package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/monotax/api"
)

// cmdServe runs the HTTP API until SIGINT/SIGTERM, then stops accepting
// connections and waits up to 30s for active requests.
func cmdServe(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.String("port", e.cfg.Server.Port, "HTTP server port")
	applyEvery := fs.Duration("apply-every", time.Hour, "apply recorded payments on this interval, 0 disables")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := api.NewHandler(e.svc, e.cfg.Taxer, e.log)
	applier := api.NewPaymentApplier(e.svc, *applyEvery, e.log)
	applier.Start(ctx)
	defer applier.Stop()

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		e.log.Info("server starting", "addr", "http://localhost:"+*port, "db", e.cfg.Database.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	e.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	e.log.Info("server stopped")
	return nil
}
