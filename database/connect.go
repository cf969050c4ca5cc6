package database

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/db44/storefront/config"
)

// Open selects the store for the configured environment and prepares it:
// reset environments and the memory store are seeded, all others only get
// their indexes ensured.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var store Store
	if cfg.UsesMemoryStore() {
		store = NewMemoryStore()
		log.WithField("env", cfg.Env).Info("Using in-memory document store")
	} else {
		mongoStore, err := ConnectMongo(ctx, cfg.Database.URI, cfg.Database.Name, cfg.Database.MaxPoolSize, cfg.Database.Timeout)
		if err != nil {
			return nil, err
		}
		store = mongoStore
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	defer cancel()

	if cfg.ShouldReset() || cfg.UsesMemoryStore() {
		if err := Setup(ctx, store); err != nil {
			_ = store.Close(context.Background())
			return nil, err
		}
		log.WithField("env", cfg.Env).Info("Database reset and seeded")
		return store, nil
	}
	if err := EnsureIndexes(ctx, store); err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}
	return store, nil
}
