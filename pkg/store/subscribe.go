package store

import (
	serrors "github.com/vango-dev/vstore/internal/errors"
	"github.com/vango-dev/vstore/pkg/reactive"
)

// SubscribeTo registers the rendering unit currently rendering on this
// goroutine for the named fields. Registering the same unit twice is a
// no-op. Outside a render there is nothing to register; a warning is
// logged and nil returned.
func (s *Store) SubscribeTo(fields ...string) error {
	l := reactive.CurrentListener()
	if l == nil {
		se := serrors.New("S020")
		s.logger.Warn("subscribe outside render ignored", append(se.LogAttrs(), "fields", fields)...)
		return nil
	}
	return s.SubscribeListener(l, fields...)
}

// SubscribeToAll is SubscribeTo for every declared field.
func (s *Store) SubscribeToAll() error {
	return s.SubscribeTo(s.order...)
}

// SubscribeListener registers l for the named fields. Nothing is registered
// if any name is undeclared.
func (s *Store) SubscribeListener(l reactive.Listener, fields ...string) error {
	if l == nil {
		return serrors.New("S020")
	}

	s.mu.RLock()
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
		if f.subs.Add(l) {
			s.logger.Debug("subscribed", "field", f.name, "listener", l.ID())
		}
	}
	return nil
}

// Unsubscribe removes l from the named fields, or from every field when
// none are named.
func (s *Store) Unsubscribe(l reactive.Listener, fields ...string) {
	if l == nil {
		return
	}
	if len(fields) == 0 {
		fields = s.order
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range fields {
		if f, ok := s.fields[name]; ok {
			f.subs.Remove(l)
		}
	}
}

// Subscribers returns how many listeners are registered for field.
func (s *Store) Subscribers(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.fields[name]; ok {
		return f.subs.Len()
	}
	return 0
}
