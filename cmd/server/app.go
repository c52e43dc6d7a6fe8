package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	donationhandler "givebridge/internal/donation/handler"
	donationmetrics "givebridge/internal/donation/metrics"
	donationservice "givebridge/internal/donation/service"
	jwttoken "givebridge/internal/jwt_token"
	ngocache "givebridge/internal/ngo/cache"
	ngohandler "givebridge/internal/ngo/handler"
	ngometrics "givebridge/internal/ngo/metrics"
	ngoservice "givebridge/internal/ngo/service"
	"givebridge/internal/notification/dispatcher"
	notificationmetrics "givebridge/internal/notification/metrics"
	"givebridge/internal/notification/publisher"
	"givebridge/internal/notification/sender"
	"givebridge/internal/platform/config"
	platformmetrics "givebridge/internal/platform/metrics"
	platformredis "givebridge/internal/platform/redis"
)

// app is the assembled process: the HTTP handler plus the background
// dispatcher and everything that must be released on shutdown.
type app struct {
	handler    http.Handler
	dispatcher *dispatcher.Dispatcher
	backends   *backends
	cleanup    []func()
}

func (a *app) close(ctx context.Context) {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.backends.close(ctx)
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{backends: b}
	fail := func(err error) (*app, error) {
		a.close(context.Background())
		return nil, err
	}

	ngoOpts := []ngoservice.Option{
		ngoservice.WithLogger(logger),
		ngoservice.WithMetrics(ngometrics.New()),
	}
	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	if rdb != nil {
		a.cleanup = append(a.cleanup, func() { _ = rdb.Close() })
		b.checks["redis"] = rdb.Health
		ngoOpts = append(ngoOpts, ngoservice.WithCache(newVerificationCache(rdb.Client, cfg)))
	}
	ngos, err := ngoservice.New(b.ngos, ngoOpts...)
	if err != nil {
		return fail(err)
	}

	notifyMetrics := notificationmetrics.New()
	var directory sender.Directory = ngoservice.NewDirectory(b.ngos)
	out, closeSender, err := buildSender(ctx, cfg, directory, notifyMetrics, logger)
	if err != nil {
		return fail(err)
	}
	a.cleanup = append(a.cleanup, closeSender)
	a.dispatcher = dispatcher.New(b.outbox, out, dispatcher.Config{
		PollInterval: cfg.Notification.PollInterval,
		BatchSize:    cfg.Notification.BatchSize,
		MaxAttempts:  cfg.Notification.MaxAttempts,
		RetryDelay:   cfg.Notification.RetryDelay,
	}, dispatcher.WithLogger(logger), dispatcher.WithMetrics(notifyMetrics))

	donationOpts := []donationservice.Option{
		donationservice.WithLogger(logger),
		donationservice.WithMetrics(donationmetrics.New()),
		donationservice.WithFoodMinLead(cfg.Donation.FoodMinLead),
	}
	if cfg.Donation.RequireVerifiedNGO {
		donationOpts = append(donationOpts, donationservice.WithVerificationGate(ngos))
	}
	donations, err := donationservice.New(b.donations,
		publisher.New(b.outbox, publisher.WithMetrics(notifyMetrics)), donationOpts...)
	if err != nil {
		return fail(fmt.Errorf("donation service: %w", err))
	}

	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	a.handler = newRouter(routerDeps{
		logger:    logger,
		metrics:   platformmetrics.New(),
		validator: jwttoken.NewJWTServiceAdapter(jwt),
		donations: donationhandler.New(donations, logger),
		ngos:      ngohandler.New(ngos, logger),
		checks:    b.checks,
	})
	return a, nil
}

func newVerificationCache(client *redis.Client, cfg config.Config) *ngocache.VerificationCache {
	return ngocache.New(client, ngocache.WithTTL(cfg.Donation.NGOCacheTTL))
}
