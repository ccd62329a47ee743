package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vango-dev/vstore/internal/config"
	serrors "github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/storage"
	"github.com/vango-dev/vstore/pkg/storage/badgerstore"
	"github.com/vango-dev/vstore/pkg/storage/filestore"
	"github.com/vango-dev/vstore/pkg/storage/natskv"
	"github.com/vango-dev/vstore/pkg/storage/s3store"
	"github.com/vango-dev/vstore/pkg/storage/sqlstore"
)

// openBackend opens the storage driver named by cfg.Storage.Driver.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Backend, error) {
	sc := cfg.Storage
	path := cfg.StoragePath()

	switch sc.Driver {
	case "memory":
		return storage.NewMemory(), nil

	case "file":
		return filestore.Open(path, filestore.WithLogger(logger))

	case "sqlite":
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		var opts []sqlstore.Option
		if sc.Table != "" {
			opts = append(opts, sqlstore.WithTableName(sc.Table))
		}
		return sqlstore.OpenSQLite(ctx, path, opts...)

	case "badger":
		bc := badgerstore.DefaultConfig(path)
		if sc.InMemory {
			bc = badgerstore.InMemoryConfig()
		}
		bc.Logger = logger
		return badgerstore.Open(bc)

	case "s3":
		client := s3store.NewClient(s3store.ClientConfig{
			Region:          firstNonEmpty(sc.Region, os.Getenv("AWS_REGION"), "us-east-1"),
			Endpoint:        sc.Endpoint,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		})
		return s3store.New(client, sc.Bucket, sc.Prefix), nil

	case "nats":
		return natskv.Open(ctx, sc.URL, sc.Bucket)
	}

	return nil, serrors.New("S031").
		WithDetail(fmt.Sprintf("Driver %q is not supported.", sc.Driver))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
