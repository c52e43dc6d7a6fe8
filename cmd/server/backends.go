package main

import (
	"context"
	"fmt"
	"log/slog"

	donationservice "givebridge/internal/donation/service"
	donationstore "givebridge/internal/donation/store"
	ngoservice "givebridge/internal/ngo/service"
	ngostore "givebridge/internal/ngo/store"
	"givebridge/internal/notification/dispatcher"
	"givebridge/internal/notification/publisher"
	outboxmemory "givebridge/internal/notification/store/memory"
	outboxpostgres "givebridge/internal/notification/store/postgres"
	"givebridge/internal/platform/config"
	platformmongo "givebridge/internal/platform/mongo"
	"givebridge/internal/platform/postgres"
)

// outbox is the notification queue seen from both ends.
type outbox interface {
	publisher.Outbox
	dispatcher.Outbox
}

type backends struct {
	donations donationservice.Store
	ngos      ngoservice.Store
	outbox    outbox
	checks    map[string]func(context.Context) error
	closers   []func(context.Context) error
}

// openBackends selects the donation store by STORE_BACKEND. NGO profiles
// and the outbox live in PostgreSQL whenever DATABASE_URL is set, and in
// memory otherwise.
func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{checks: make(map[string]func(context.Context) error)}

	if cfg.Store.DatabaseURL != "" {
		db, err := postgres.Open(ctx, postgres.Config{URL: cfg.Store.DatabaseURL, MaxOpenConns: 20, MaxIdleConns: 5})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, b.closeOnError(err)
		}
		b.checks["postgres"] = db.PingContext
		b.ngos = ngostore.NewPostgres(db)
		b.outbox = outboxpostgres.New(db)
		if cfg.Store.Backend == config.BackendPostgres {
			b.donations = donationstore.NewPostgres(db)
		}
		logger.InfoContext(ctx, "postgres connected, migrations applied")
	} else {
		b.ngos = ngostore.NewInMemory()
		b.outbox = outboxmemory.NewInMemoryOutbox()
	}

	switch cfg.Store.Backend {
	case config.BackendMongo:
		client, err := platformmongo.Connect(ctx, cfg.Store.MongoURI)
		if err != nil {
			return nil, b.closeOnError(err)
		}
		b.closers = append(b.closers, client.Disconnect)
		store := donationstore.NewMongo(client.Database(cfg.Store.MongoDatabase))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, b.closeOnError(fmt.Errorf("mongo indexes: %w", err))
		}
		b.checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		b.donations = store
		logger.InfoContext(ctx, "mongo connected", "database", cfg.Store.MongoDatabase)
	case config.BackendMemory:
		b.donations = donationstore.NewInMemory()
	}
	return b, nil
}

func (b *backends) closeOnError(err error) error {
	b.close(context.Background())
	return err
}

// close releases resources in reverse order of acquisition.
func (b *backends) close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i](ctx)
	}
	b.closers = nil
}
