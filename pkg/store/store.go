package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	serrors "github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/history"
	"github.com/vango-dev/vstore/pkg/reactive"
	"github.com/vango-dev/vstore/pkg/storage"
	"github.com/vango-dev/vstore/pkg/value"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/vstore/pkg/store"

// field is the backing slot for one declared field.
type field struct {
	name     string
	initial  value.Value
	value    value.Value
	computed bool
	persist  bool
	tracked  bool
	subs     reactive.Subscribers
}

// Store holds the live values of a fixed set of fields.
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	fields map[string]*field
	order  []string

	backend     storage.Backend
	codec       storage.Codec
	prefix      string
	deep        bool
	persistKeys []string

	// histMu serializes history operations so a snapshot and the cursor
	// move it belongs to are never interleaved with another one.
	histMu      sync.Mutex
	history     *history.Engine
	historyKeys []string

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	ctx     context.Context
	timeout time.Duration
}

// New builds a store from defs and loads persisted values and history.
//
// Construction fails when a field name is empty or repeated, when a feature
// names an undeclared field, or when a feature names a computed field.
// Unreadable storage is not an error: affected fields keep their defaults
// and a warning is logged.
func New(defs []Definition, opts ...Option) (*Store, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.backend == nil {
		cfg.backend = storage.NewMemory()
	}
	if cfg.codec == nil {
		cfg.codec = storage.JSON
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}
	if cfg.ctx == nil {
		cfg.ctx = context.Background()
	}

	s := &Store{
		fields:  make(map[string]*field, len(defs)),
		backend: cfg.backend,
		codec:   cfg.codec,
		logger:  cfg.logger.With("component", "store"),
		metrics: cfg.metrics,
		tracer:  cfg.tracer,
		ctx:     cfg.ctx,
		timeout: cfg.storageTimeout,
	}

	ctx, span := s.tracer.Start(cfg.ctx, "vstore.New",
		trace.WithAttributes(attribute.Int("vstore.fields", len(defs))))
	defer span.End()

	if err := s.configure(defs, cfg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.loadPersisted(ctx)
	s.initHistory(ctx, cfg.history)

	span.SetAttributes(
		attribute.Int("vstore.persisted", len(s.persistKeys)),
		attribute.Int("vstore.tracked", len(s.historyKeys)),
	)
	s.logger.Debug("store ready",
		"fields", len(s.order),
		"persisted", len(s.persistKeys),
		"tracked", len(s.historyKeys))
	return s, nil
}

// configure declares the fields and resolves the feature key sets.
func (s *Store) configure(defs []Definition, cfg *config) error {
	for _, d := range defs {
		if d.Name == "" {
			return serrors.New("S003").WithDetail("A field definition has an empty name.")
		}
		if _, dup := s.fields[d.Name]; dup {
			return serrors.New("S003").WithField(d.Name).
				WithDetail(fmt.Sprintf("Field %q is declared more than once.", d.Name))
		}
		initial := d.Initial
		if initial == nil {
			initial = value.Null()
		}
		s.fields[d.Name] = &field{
			name:     d.Name,
			initial:  initial,
			value:    initial,
			computed: d.IsComputed(),
		}
		s.order = append(s.order, d.Name)
	}

	if p := cfg.persistence; p != nil {
		keys, err := s.featureKeys("persistence", p.Keys)
		if err != nil {
			return err
		}
		for _, k := range keys {
			s.fields[k].persist = true
		}
		s.persistKeys = keys
		s.prefix = p.Prefix
		s.deep = p.Deep
	}

	if h := cfg.history; h != nil {
		if h.MaxLength < 0 {
			return serrors.New("S003").
				WithDetail(fmt.Sprintf("History MaxLength must not be negative, got %d.", h.MaxLength))
		}
		keys, err := s.featureKeys("history", h.Keys)
		if err != nil {
			return err
		}
		for _, k := range keys {
			s.fields[k].tracked = true
		}
		s.historyKeys = keys

		if h.UseStorage {
			hkey := h.StorageKey
			if hkey == "" {
				hkey = history.DefaultStorageKey
			}
			for _, k := range s.persistKeys {
				if s.storageKey(k) == hkey {
					return serrors.New("S003").WithField(k).
						WithDetail(fmt.Sprintf("Persisted field %q would be stored under %q, the history key.", k, hkey))
				}
			}
		}
	}
	return nil
}

// featureKeys validates a feature's key list and drops repeats.
func (s *Store) featureKeys(feature string, keys []string) ([]string, error) {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		f, ok := s.fields[k]
		if !ok {
			return nil, serrors.New("S004").WithField(k).
				WithDetail(fmt.Sprintf("The %s feature lists %q, which is not a declared field.", feature, k))
		}
		if f.computed {
			return nil, serrors.New("S005").WithField(k).
				WithDetail(fmt.Sprintf("The %s feature lists computed field %q.", feature, k))
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}

// storageCtx derives a context for one storage call.
func (s *Store) storageCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(parent, s.timeout)
	}
	return context.WithCancel(parent)
}

// storageKey returns the backend key for a persisted field.
func (s *Store) storageKey(name string) string {
	return s.prefix + name
}

// lookup returns the field or an S001 error naming it.
func (s *Store) lookup(name string) (*field, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, serrors.New("S001").WithField(name)
	}
	return f, nil
}

// Fields returns the declared field names in declaration order.
func (s *Store) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// State returns the read/write surface of the store.
func (s *Store) State() *State {
	return &State{s: s}
}

// Logger returns the store's logger.
func (s *Store) Logger() *slog.Logger { return s.logger }

// FieldInfo describes a declared field.
type FieldInfo struct {
	Name        string     `json:"name"`
	Kind        value.Kind `json:"-"`
	KindName    string     `json:"kind"`
	Computed    bool       `json:"computed"`
	Persisted   bool       `json:"persisted"`
	Tracked     bool       `json:"tracked"`
	Subscribers int        `json:"subscribers"`
	StorageKey  string     `json:"storageKey,omitempty"`
}

// Describe returns information about every field in declaration order.
func (s *Store) Describe() []FieldInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]FieldInfo, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.infoLocked(s.fields[name]))
	}
	return out
}

// Info returns information about one field.
func (s *Store) Info(name string) (FieldInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.lookup(name)
	if err != nil {
		return FieldInfo{}, err
	}
	return s.infoLocked(f), nil
}

func (s *Store) infoLocked(f *field) FieldInfo {
	kind := value.KindOf(f.value)
	info := FieldInfo{
		Name:        f.name,
		Kind:        kind,
		KindName:    kind.String(),
		Computed:    f.computed,
		Persisted:   f.persist,
		Tracked:     f.tracked,
		Subscribers: f.subs.Len(),
	}
	if f.persist {
		info.StorageKey = s.storageKey(f.name)
	}
	return info
}

// read returns the current value of a field.
func (s *Store) read(name string) (*field, value.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.lookup(name)
	if err != nil {
		return nil, nil, err
	}
	return f, f.value, nil
}

// write replaces a field's value, persists it when asked and the field is
// persisted, then wakes the field's subscribers. It reports whether the
// value was applied; computed fields ignore writes. A persistence error is
// returned after the in-memory update and the wakes have happened.
func (s *Store) write(name string, v value.Value, source string, persist bool) (bool, error) {
	if v == nil {
		v = value.Null()
	}

	s.mu.Lock()
	f, err := s.lookup(name)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if f.computed {
		s.mu.Unlock()
		s.logger.Debug("ignoring write to computed field", "field", name)
		return false, nil
	}
	if source == sourceSet && holdsComputed(v) {
		s.mu.Unlock()
		return false, computedValueError(name)
	}
	f.value = v
	var perr error
	if persist && f.persist {
		perr = s.persistLocked(f)
	}
	s.mu.Unlock()

	s.metrics.write(name, source)
	s.wake(f)
	return true, perr
}

// holdsComputed reports whether v or anything nested in it is computed.
func holdsComputed(v value.Value) bool {
	switch c := v.(type) {
	case value.Computed:
		return true
	case *value.Sequence:
		for _, item := range c.Items() {
			if holdsComputed(item) {
				return true
			}
		}
	case *value.Record:
		for _, e := range c.Entries() {
			if holdsComputed(e.Value) {
				return true
			}
		}
	}
	return false
}

func computedValueError(name string) error {
	return serrors.New("S003").WithField(name).
		WithDetail(fmt.Sprintf("Field %q is not computed and cannot hold a computed value.", name))
}

// persistLocked writes f's value to the backend. Caller holds s.mu so that
// concurrent writes reach storage in the same order as memory.
func (s *Store) persistLocked(f *field) error {
	encoded, err := s.codec.Encode(f.value)
	if err != nil {
		s.metrics.storageError("encode")
		return fmt.Errorf("store: encode field %q: %w", f.name, err)
	}

	ctx, cancel := s.storageCtx(s.ctx)
	defer cancel()
	if err := s.backend.SetItem(ctx, s.storageKey(f.name), encoded); err != nil {
		s.metrics.storageError("write")
		se := serrors.New("S011").WithField(f.name).Wrap(err)
		s.logger.Warn("persisting field failed", se.LogAttrs()...)
		return se
	}
	return nil
}

// loadPersisted replaces defaults with stored values for persisted fields.
func (s *Store) loadPersisted(ctx context.Context) {
	for _, name := range s.persistKeys {
		f := s.fields[name]

		rctx, cancel := s.storageCtx(ctx)
		raw, ok, err := s.backend.GetItem(rctx, s.storageKey(name))
		cancel()

		if err != nil {
			s.metrics.storageError("read")
			se := serrors.New("S011").WithField(name).Wrap(err)
			s.logger.Warn("using default value", se.LogAttrs()...)
			continue
		}
		if !ok {
			continue
		}

		v, err := s.codec.Decode(raw)
		if err != nil {
			se := serrors.New("S010").WithField(name).Wrap(err)
			s.logger.Warn("using default value", se.LogAttrs()...)
			continue
		}
		f.value = v
	}
}

// wake notifies f's subscribers. Must be called without s.mu held.
func (s *Store) wake(f *field) {
	n := f.subs.Notify()
	s.metrics.wake(f.name, n)
}

// Invalidate wakes the subscribers of the named fields, or of every field
// when none are named, without changing any value. Use it after Undo or
// Redo, which do not wake subscribers themselves.
func (s *Store) Invalidate(fields ...string) error {
	s.mu.RLock()
	if len(fields) == 0 {
		fields = s.order
	}
	targets := make([]*field, 0, len(fields))
	for _, name := range fields {
		f, err := s.lookup(name)
		if err != nil {
			s.mu.RUnlock()
			return err
		}
		targets = append(targets, f)
	}
	s.mu.RUnlock()

	for _, f := range targets {
		s.wake(f)
	}
	return nil
}
