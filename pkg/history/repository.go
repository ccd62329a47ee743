package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/storage"
)

// DefaultStorageKey is the backend key used when none is configured.
const DefaultStorageKey = "history"

// Repository loads and stores a history record.
type Repository interface {
	// Load returns the stored record. A missing or undecodable record yields
	// an empty record and no error; errors are reserved for an unavailable
	// backend.
	Load(ctx context.Context) (*Record, error)

	// Save replaces the stored record.
	Save(ctx context.Context, rec *Record) error
}

// MemoryRepository keeps the record in process memory. Each store owns its
// own instance, so two stores never share history.
type MemoryRepository struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rec: NewRecord()}
}

// Load implements Repository.
func (m *MemoryRepository) Load(context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.Clone(), nil
}

// Save implements Repository.
func (m *MemoryRepository) Save(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = rec.Clone()
	return nil
}

// StorageRepository serializes the whole record as JSON under one key of a
// storage backend, so history survives restarts together with the
// persisted fields.
type StorageRepository struct {
	backend storage.Backend
	key     string
	logger  *slog.Logger
}

// StorageOption configures a StorageRepository.
type StorageOption func(*StorageRepository)

// WithKey sets the backend key. Default: "history".
func WithKey(key string) StorageOption {
	return func(r *StorageRepository) {
		if key != "" {
			r.key = key
		}
	}
}

// WithLogger sets the logger used to report undecodable records.
func WithLogger(l *slog.Logger) StorageOption {
	return func(r *StorageRepository) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewStorageRepository creates a repository on backend.
func NewStorageRepository(backend storage.Backend, opts ...StorageOption) *StorageRepository {
	r := &StorageRepository{
		backend: backend,
		key:     DefaultStorageKey,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "history", "key", r.key)
	return r
}

// Key returns the backend key holding the record.
func (r *StorageRepository) Key() string { return r.key }

// Load implements Repository.
func (r *StorageRepository) Load(ctx context.Context) (*Record, error) {
	raw, ok, err := r.backend.GetItem(ctx, r.key)
	if err != nil {
		return nil, errors.New("S011").Wrap(err)
	}
	if !ok {
		return NewRecord(), nil
	}

	rec, err := DecodeRecord([]byte(raw))
	if err != nil {
		se := errors.New("S012").Wrap(err)
		r.logger.Warn("discarding stored history", se.LogAttrs()...)
		return NewRecord(), nil
	}
	return rec, nil
}

// Save implements Repository.
func (r *StorageRepository) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: encode record: %w", err)
	}
	if err := r.backend.SetItem(ctx, r.key, string(data)); err != nil {
		return errors.New("S011").Wrap(err)
	}
	return nil
}
