package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"givebridge/internal/platform/config"
	"givebridge/internal/platform/httpserver"
	"givebridge/internal/platform/logger"
	"givebridge/pkg/platform/httputil"
)

const shutdownTimeout = 15 * time.Second

// main wires dependencies, then runs the HTTP server and the notification
// dispatcher until SIGINT or SIGTERM.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("givebridge exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Server)
	slog.SetDefault(log)
	httputil.ExposeInternalErrors(cfg.Server.IsDevelopment())

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	srv := httpserver.New(cfg.Server.Addr, a.handler)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting givebridge",
			"addr", cfg.Server.Addr,
			"environment", cfg.Server.Environment,
			"store_backend", string(cfg.Store.Backend),
			"require_verified_ngo", cfg.Donation.RequireVerifiedNGO,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.dispatcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
