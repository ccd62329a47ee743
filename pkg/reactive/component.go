package reactive

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Component is a rendering unit: a render function that runs with itself as
// the current listener, and a dirty flag set when a subscribed field changes.
type Component struct {
	id     uint64
	name   string
	render func()

	dirty   atomic.Bool
	renders atomic.Int64

	mu        sync.Mutex
	scheduler Scheduler
}

// Scheduler receives components that have just become dirty.
type Scheduler interface {
	Schedule(c *Component)
}

// NewComponent creates a component that runs render on every Render call.
func NewComponent(name string, render func()) *Component {
	return &Component{
		id:     NextID(),
		name:   name,
		render: render,
	}
}

// ID implements Listener.
func (c *Component) ID() uint64 { return c.id }

// Name returns the component's display name.
func (c *Component) Name() string { return c.name }

// SetScheduler attaches the scheduler that is told about dirty transitions.
func (c *Component) SetScheduler(s Scheduler) {
	c.mu.Lock()
	c.scheduler = s
	c.mu.Unlock()
}

// MarkDirty implements Listener. Only the clean-to-dirty transition reaches
// the scheduler, so repeated wakes before the next render coalesce.
func (c *Component) MarkDirty() {
	if !c.dirty.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	s := c.scheduler
	c.mu.Unlock()
	if s != nil {
		s.Schedule(c)
	}
}

// IsDirty reports whether the component needs to render.
func (c *Component) IsDirty() bool { return c.dirty.Load() }

// Renders returns how many times Render has run.
func (c *Component) Renders() int64 { return c.renders.Load() }

// Render clears the dirty flag and runs the render function with c as the
// current listener.
func (c *Component) Render() {
	c.dirty.Store(false)
	c.renders.Add(1)
	if c.render == nil {
		return
	}
	WithListener(c, c.render)
}

// Queue is a Scheduler that collects dirty components until Flush.
type Queue struct {
	mu      sync.Mutex
	pending []*Component
	logger  *slog.Logger
}

// NewQueue creates an empty render queue.
func NewQueue(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{logger: logger.With("component", "reactive.queue")}
}

// Schedule implements Scheduler.
func (q *Queue) Schedule(c *Component) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()
}

// Len returns the number of queued components.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush renders every queued component that is still dirty and returns the
// number rendered. Components dirtied during Flush are rendered by the next
// call.
func (q *Queue) Flush() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	n := 0
	for _, c := range pending {
		if !c.IsDirty() {
			continue
		}
		c.Render()
		n++
	}
	if n > 0 {
		q.logger.Debug("flushed renders", "count", n)
	}
	return n
}
