package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/urbanthreads/storefront/internal/storage"
)

// StorageProvider provides access to the object store for uploads
type StorageProvider interface {
	Objects() storage.ObjectStore
}

func (a *Application) Objects() storage.ObjectStore {
	return a.objects
}

// initStorage opens the configured object store backend.
func (a *Application) initStorage() {
	cfg := a.appConfig.Storage
	switch cfg.Type {
	case "nats":
		store, err := storage.NewJetStreamObjectStore(context.Background(), cfg.NatsURL, cfg.Bucket)
		if err != nil {
			zap.S().Fatalf("open nats object store failed: %v", err)
		}
		a.objects = store
	default:
		store, err := storage.NewFSObjectStore(cfg.Dir)
		if err != nil {
			zap.S().Fatalf("open fs object store failed: %v", err)
		}
		a.objects = store
	}
	zap.S().Infof("object storage ready, type: %s", cfg.Type)
}
