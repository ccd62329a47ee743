package store

import (
	"context"

	serrors "github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/history"
	"github.com/vango-dev/vstore/pkg/value"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// initHistory creates the engine and either records the initial snapshot
// or loads the stored one.
func (s *Store) initHistory(ctx context.Context, cfg *HistoryConfig) {
	if cfg == nil {
		return
	}

	var repo history.Repository
	if cfg.UseStorage {
		repo = history.NewStorageRepository(s.backend,
			history.WithKey(cfg.StorageKey),
			history.WithLogger(s.logger))
	} else {
		repo = history.NewMemoryRepository()
	}
	s.history = history.NewEngine(repo,
		history.WithMaxLength(cfg.MaxLength),
		history.WithEngineLogger(s.logger))

	hctx, cancel := s.storageCtx(ctx)
	defer cancel()

	load, err := s.history.Init(hctx, s.snapshotLocked())
	if err != nil {
		s.metrics.storageError("history_read")
		se := serrors.FromError(err, "S011")
		s.logger.Warn("history not initialised", se.LogAttrs()...)
		return
	}
	if load != nil {
		s.applySnapshotLocked(load)
		s.logger.Debug("restored history snapshot", "fields", load.Len())
	}
}

// snapshotLocked captures the tracked fields. Caller holds s.mu, or is New.
func (s *Store) snapshotLocked() *value.Record {
	entries := make([]value.Entry, 0, len(s.historyKeys))
	for _, name := range s.historyKeys {
		entries = append(entries, value.E(name, s.fields[name].value))
	}
	return value.NewRecord(entries...)
}

// applySnapshotLocked writes snapshot entries straight into the backing
// values. Keys that are not tracked fields are skipped. No persistence and
// no wakes. Caller holds s.mu, or is New.
func (s *Store) applySnapshotLocked(snap *value.Record) {
	for _, e := range snap.Entries() {
		f, ok := s.fields[e.Key]
		if !ok || !f.tracked {
			s.logger.Debug("snapshot key skipped", "field", e.Key)
			continue
		}
		f.value = e.Value
		s.metrics.write(e.Key, sourceHistory)
	}
}

// historyReady reports whether history is configured, logging an S002
// diagnostic when it is not.
func (s *Store) historyReady(op string) bool {
	if s.history != nil {
		return true
	}
	se := serrors.New("S002")
	s.logger.Error("history operation ignored", append(se.LogAttrs(), "op", op)...)
	return false
}

func (s *Store) startSpan(name string) (context.Context, trace.Span) {
	return s.tracer.Start(s.ctx, name)
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *Store) recordHistoryOp(ctx context.Context, op string, span trace.Span) {
	rec, err := s.history.Snapshot(ctx)
	if err != nil {
		return
	}
	span.SetAttributes(
		attribute.Int("vstore.history.length", rec.Len()),
		attribute.Int("vstore.history.position", rec.Position),
	)
	s.metrics.historyOp(op, rec.Len(), rec.Position)
}

// HistoryEnabled reports whether undo/redo is configured.
func (s *Store) HistoryEnabled() bool { return s.history != nil }

// HistoryKeys returns the tracked field names.
func (s *Store) HistoryKeys() []string {
	out := make([]string, len(s.historyKeys))
	copy(out, s.historyKeys)
	return out
}

// SaveHistory captures the tracked fields as the newest snapshot. Any
// snapshots after the cursor are discarded first.
func (s *Store) SaveHistory() error {
	if !s.historyReady("save") {
		return nil
	}
	s.histMu.Lock()
	defer s.histMu.Unlock()

	ctx, span := s.startSpan("vstore.SaveHistory")
	defer span.End()

	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	hctx, cancel := s.storageCtx(ctx)
	defer cancel()

	rec, err := s.history.Save(hctx, snap)
	if err != nil {
		s.metrics.storageError("history_write")
		failSpan(span, err)
		return err
	}
	span.SetAttributes(
		attribute.Int("vstore.history.length", rec.Len()),
		attribute.Int("vstore.history.position", rec.Position),
	)
	s.metrics.historyOp("save", rec.Len(), rec.Position)
	return nil
}

// Undo restores the previous snapshot. At the oldest snapshot it does
// nothing.
//
// Restored values are written directly: they are not persisted and
// subscribers are not woken. Call Invalidate to re-render.
func (s *Store) Undo() error {
	return s.step("undo")
}

// Redo restores the next snapshot. At the newest snapshot it does nothing.
// Like Undo, it neither persists nor wakes subscribers.
func (s *Store) Redo() error {
	return s.step("redo")
}

func (s *Store) step(op string) error {
	if !s.historyReady(op) {
		return nil
	}
	s.histMu.Lock()
	defer s.histMu.Unlock()

	spanName := "vstore.Undo"
	if op == "redo" {
		spanName = "vstore.Redo"
	}
	ctx, span := s.startSpan(spanName)
	defer span.End()

	hctx, cancel := s.storageCtx(ctx)
	defer cancel()

	var (
		snap    *value.Record
		changed bool
		err     error
	)
	if op == "undo" {
		snap, changed, err = s.history.Undo(hctx)
	} else {
		snap, changed, err = s.history.Redo(hctx)
	}
	if err != nil {
		s.metrics.storageError("history_" + op)
		failSpan(span, err)
		return err
	}
	span.SetAttributes(attribute.Bool("vstore.history.changed", changed))
	if !changed {
		return nil
	}

	s.mu.Lock()
	s.applySnapshotLocked(snap)
	s.mu.Unlock()

	s.recordHistoryOp(hctx, op, span)
	return nil
}

// CanUndo reports whether Undo would change anything. It is false when
// history is not configured.
func (s *Store) CanUndo() bool {
	if !s.historyReady("canUndo") {
		return false
	}
	ctx, cancel := s.storageCtx(s.ctx)
	defer cancel()

	ok, err := s.history.CanUndo(ctx)
	if err != nil {
		s.logger.Warn("reading history failed", serrors.FromError(err, "S011").LogAttrs()...)
		return false
	}
	return ok
}

// CanRedo reports whether Redo would change anything. It is false when
// history is not configured.
func (s *Store) CanRedo() bool {
	if !s.historyReady("canRedo") {
		return false
	}
	ctx, cancel := s.storageCtx(s.ctx)
	defer cancel()

	ok, err := s.history.CanRedo(ctx)
	if err != nil {
		s.logger.Warn("reading history failed", serrors.FromError(err, "S011").LogAttrs()...)
		return false
	}
	return ok
}

// History returns a copy of the history record for inspection.
func (s *Store) History() (*history.Record, error) {
	if s.history == nil {
		return nil, serrors.New("S002")
	}
	ctx, cancel := s.storageCtx(s.ctx)
	defer cancel()
	return s.history.Snapshot(ctx)
}

// ClearHistory keeps only the snapshot at the cursor.
func (s *Store) ClearHistory() error {
	if !s.historyReady("clear") {
		return nil
	}
	s.histMu.Lock()
	defer s.histMu.Unlock()

	ctx, span := s.startSpan("vstore.ClearHistory")
	defer span.End()

	hctx, cancel := s.storageCtx(ctx)
	defer cancel()

	if err := s.history.Clear(hctx); err != nil {
		s.metrics.storageError("history_write")
		failSpan(span, err)
		return err
	}
	s.recordHistoryOp(hctx, "clear", span)
	return nil
}
