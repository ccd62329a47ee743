package reactive

import (
	"sync"
	"testing"
)

type testListener struct {
	id         uint64
	dirtyCount int
	mu         sync.Mutex
}

func newTestListener() *testListener {
	return &testListener{id: NextID()}
}

func (l *testListener) MarkDirty() {
	l.mu.Lock()
	l.dirtyCount++
	l.mu.Unlock()
}

func (l *testListener) ID() uint64 { return l.id }

func (l *testListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirtyCount
}

func TestNextIDUnique(t *testing.T) {
	a, b := NextID(), NextID()
	if a == b || b < a {
		t.Errorf("NextID returned %d then %d", a, b)
	}
}

func TestCurrentListenerOutsideRender(t *testing.T) {
	if l := CurrentListener(); l != nil {
		t.Errorf("CurrentListener() = %v, want nil", l)
	}
}

func TestWithListenerNestsAndRestores(t *testing.T) {
	outer := newTestListener()
	inner := newTestListener()

	WithListener(outer, func() {
		if CurrentListener() != outer {
			t.Error("outer should be current")
		}
		WithListener(inner, func() {
			if CurrentListener() != inner {
				t.Error("inner should be current")
			}
		})
		if CurrentListener() != outer {
			t.Error("outer should be restored")
		}
		Untracked(func() {
			if CurrentListener() != nil {
				t.Error("Untracked should clear the listener")
			}
		})
	})

	if CurrentListener() != nil {
		t.Error("listener should be cleared after WithListener")
	}
}

func TestListenerIsPerGoroutine(t *testing.T) {
	l := newTestListener()
	var seen Listener = l

	WithListener(l, func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen = CurrentListener()
		}()
		wg.Wait()
	})

	if seen != nil {
		t.Error("another goroutine should not see this goroutine's listener")
	}
}

func TestSubscribersDedup(t *testing.T) {
	var s Subscribers
	l := newTestListener()

	if !s.Add(l) {
		t.Error("first Add should report true")
	}
	if s.Add(l) {
		t.Error("second Add should report false")
	}
	if s.Add(nil) {
		t.Error("Add(nil) should report false")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if !s.Has(l.ID()) {
		t.Error("Has should find the listener")
	}

	s.Notify()
	if l.count() != 1 {
		t.Errorf("dirty count = %d, want 1", l.count())
	}

	if !s.Remove(l) || s.Len() != 0 {
		t.Error("Remove should drop the listener")
	}
	s.Notify()
	if l.count() != 1 {
		t.Error("removed listener should not be woken")
	}
}

func TestNotifyAllowsResubscribe(t *testing.T) {
	var s Subscribers
	var self Listener
	calls := 0
	self = Func(func() {
		calls++
		s.Remove(self)
		s.Add(self)
	})
	s.Add(self)

	if n := s.Notify(); n != 1 {
		t.Errorf("Notify woke %d, want 1", n)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBatchDeduplicates(t *testing.T) {
	var a, b Subscribers
	l := newTestListener()
	a.Add(l)
	b.Add(l)

	Batch(func() {
		a.Notify()
		b.Notify()
		Batch(func() {
			a.Notify()
		})
		if l.count() != 0 {
			t.Error("wakes should be deferred inside a batch")
		}
	})

	if l.count() != 1 {
		t.Errorf("dirty count = %d, want 1", l.count())
	}
}

func TestComponentRenderTracksItself(t *testing.T) {
	var got Listener
	c := NewComponent("probe", func() {
		got = CurrentListener()
	})

	c.Render()
	if got != c {
		t.Error("component should be the current listener during render")
	}
	if c.Renders() != 1 {
		t.Errorf("Renders = %d, want 1", c.Renders())
	}
	if CurrentListener() != nil {
		t.Error("listener should be cleared after render")
	}
}

func TestComponentQueueCoalesces(t *testing.T) {
	q := NewQueue(nil)
	c := NewComponent("panel", func() {})
	c.SetScheduler(q)

	c.MarkDirty()
	c.MarkDirty()
	if !c.IsDirty() {
		t.Fatal("component should be dirty")
	}
	if q.Len() != 1 {
		t.Errorf("queue length = %d, want 1", q.Len())
	}

	if n := q.Flush(); n != 1 {
		t.Errorf("Flush rendered %d, want 1", n)
	}
	if c.IsDirty() {
		t.Error("component should be clean after flush")
	}
	if q.Flush() != 0 {
		t.Error("second flush should render nothing")
	}
}
