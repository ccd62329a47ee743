package history

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vango-dev/vstore/pkg/value"
)

// Engine applies history operations to the record held by a Repository.
// Every operation reads the record, changes it and writes it back, so a
// storage-backed record stays the single source of truth.
type Engine struct {
	mu        sync.Mutex
	repo      Repository
	maxLength int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxLength caps the number of snapshots. Zero means unbounded.
func WithMaxLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLength = n
		}
	}
}

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over repo. A nil repo uses a fresh
// MemoryRepository.
func NewEngine(repo Repository, opts ...Option) *Engine {
	if repo == nil {
		repo = NewMemoryRepository()
	}
	e := &Engine{
		repo:   repo,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "history")
	return e
}

// MaxLength returns the snapshot cap (0 = unbounded).
func (e *Engine) MaxLength() int { return e.maxLength }

// Repository returns the engine's repository.
func (e *Engine) Repository() Repository { return e.repo }

// Init prepares history for a new store. If the record is empty, initial is
// saved as the first snapshot and nil is returned. Otherwise the snapshot at
// the stored position is returned for the caller to load.
func (e *Engine) Init(ctx context.Context, initial *value.Record) (*value.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !rec.Empty() {
		return rec.Current(), nil
	}

	rec.Position = 0
	rec.States = append(rec.States, initial)
	return nil, e.repo.Save(ctx, rec)
}

// Save records snap as the newest snapshot. Snapshots after the cursor are
// discarded, then the oldest is evicted if MaxLength is exceeded. The cursor
// ends on the new snapshot.
func (e *Engine) Save(ctx context.Context, snap *value.Record) (*Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	keep := rec.Position + 1
	if keep > len(rec.States) {
		keep = len(rec.States)
	}
	states := make([]*value.Record, 0, keep+1)
	states = append(states, rec.States[:keep]...)
	states = append(states, snap)

	evicted := 0
	for e.maxLength > 0 && len(states) > e.maxLength {
		states = states[1:]
		evicted++
	}
	if evicted > 0 {
		e.logger.Debug("evicted snapshots", "count", evicted, "max_length", e.maxLength)
	}

	rec.States = states
	rec.Position = len(states) - 1
	if err := e.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Undo moves the cursor back one step and returns the snapshot to load.
// At the oldest snapshot it returns (nil, false, nil) and writes nothing.
func (e *Engine) Undo(ctx context.Context) (*value.Record, bool, error) {
	return e.step(ctx, -1)
}

// Redo moves the cursor forward one step and returns the snapshot to load.
// At the newest snapshot it returns (nil, false, nil) and writes nothing.
func (e *Engine) Redo(ctx context.Context) (*value.Record, bool, error) {
	return e.step(ctx, +1)
}

func (e *Engine) step(ctx context.Context, delta int) (*value.Record, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.repo.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	if (delta < 0 && !rec.CanUndo()) || (delta > 0 && !rec.CanRedo()) {
		return nil, false, nil
	}

	rec.Position += delta
	if err := e.repo.Save(ctx, rec); err != nil {
		return nil, false, err
	}
	return rec.Current(), true, nil
}

// CanUndo reports whether Undo would change anything.
func (e *Engine) CanUndo(ctx context.Context) (bool, error) {
	rec, err := e.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return rec.CanUndo(), nil
}

// CanRedo reports whether Redo would change anything.
func (e *Engine) CanRedo(ctx context.Context) (bool, error) {
	rec, err := e.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return rec.CanRedo(), nil
}

// Current returns the snapshot at the cursor, or nil when history is empty.
func (e *Engine) Current(ctx context.Context) (*value.Record, error) {
	rec, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Current(), nil
}

// Snapshot returns a copy of the record for inspection.
func (e *Engine) Snapshot(ctx context.Context) (*Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Clear drops every snapshot except the one at the cursor, which becomes
// the only entry.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.repo.Load(ctx)
	if err != nil {
		return err
	}
	cur := rec.Current()
	out := NewRecord()
	if cur != nil {
		out.States = append(out.States, cur)
	}
	return e.repo.Save(ctx, out)
}
