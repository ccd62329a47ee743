package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/vstore/pkg/storage"
	"go.opentelemetry.io/otel/trace"
)

// PersistenceConfig selects the fields mirrored to the storage backend.
type PersistenceConfig struct {
	// Keys are the persisted field names.
	Keys []string

	// Prefix is prepended to each field name to form the storage key.
	Prefix string

	// Deep also persists writes made through a Ref below the field root.
	// Off by default: only top-level State().Set persists.
	Deep bool
}

// HistoryConfig enables undo/redo for a set of fields.
type HistoryConfig struct {
	// Keys are the fields captured by each snapshot.
	Keys []string

	// UseStorage keeps the history record in the storage backend instead of
	// process memory.
	UseStorage bool

	// StorageKey is the backend key for the record. Default: "history".
	StorageKey string

	// MaxLength caps the number of snapshots. Zero means unbounded.
	MaxLength int
}

// Option configures a Store.
type Option func(*config)

type config struct {
	backend        storage.Backend
	codec          storage.Codec
	persistence    *PersistenceConfig
	history        *HistoryConfig
	logger         *slog.Logger
	metrics        *Metrics
	tracer         trace.Tracer
	ctx            context.Context
	storageTimeout time.Duration
}

// WithBackend sets the durable storage backend. Default: storage.NewMemory().
func WithBackend(b storage.Backend) Option {
	return func(c *config) {
		c.backend = b
	}
}

// WithCodec sets the codec used for persisted fields. Default: storage.JSON.
// The history record is always JSON.
func WithCodec(codec storage.Codec) Option {
	return func(c *config) {
		c.codec = codec
	}
}

// WithPersistence enables the storage bridge for cfg.Keys.
func WithPersistence(cfg PersistenceConfig) Option {
	return func(c *config) {
		c.persistence = &cfg
	}
}

// WithHistory enables undo/redo for cfg.Keys.
func WithHistory(cfg HistoryConfig) Option {
	return func(c *config) {
		c.history = &cfg
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics records store activity in m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithTracer sets the tracer for construction and history spans.
// Default: the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) {
		c.tracer = t
	}
}

// WithContext sets the base context for storage calls.
// Default: context.Background().
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

// WithStorageTimeout bounds each storage call. Zero means no timeout.
func WithStorageTimeout(d time.Duration) Option {
	return func(c *config) {
		c.storageTimeout = d
	}
}
