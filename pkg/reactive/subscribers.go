package reactive

import "sync"

// Subscribers is a set of listeners keyed by listener ID.
// The zero value is ready to use.
type Subscribers struct {
	mu   sync.RWMutex
	subs []Listener
}

// Add subscribes l. It reports false if a listener with the same ID is
// already present or l is nil.
func (s *Subscribers) Add(l Listener) bool {
	if l == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lid := l.ID()
	for _, existing := range s.subs {
		if existing.ID() == lid {
			return false
		}
	}
	s.subs = append(s.subs, l)
	return true
}

// Remove unsubscribes the listener with l's ID.
func (s *Subscribers) Remove(l Listener) bool {
	if l == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lid := l.ID()
	for i, existing := range s.subs {
		if existing.ID() == lid {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether a listener with the given ID is subscribed.
func (s *Subscribers) Has(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.subs {
		if l.ID() == id {
			return true
		}
	}
	return false
}

// Len returns the number of subscribed listeners.
func (s *Subscribers) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Notify wakes every subscriber once. The set is copied first so listeners
// may subscribe or unsubscribe while being woken. Inside Batch the wakes
// are queued instead.
func (s *Subscribers) Notify() int {
	s.mu.RLock()
	subs := make([]Listener, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	if ctx, ok := inBatch(); ok {
		ctx.pendingUpdates = append(ctx.pendingUpdates, subs...)
		return len(subs)
	}
	for _, l := range subs {
		l.MarkDirty()
	}
	return len(subs)
}
